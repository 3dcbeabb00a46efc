// Package identity defines the NFT-derived identity model: tiers, their
// capability sets and limits, and the resolved identity record.
package identity

import "time"

// Tier is a discrete identity class derived from NFT holdership and
// accumulated community points.
type Tier string

const (
	TierStandard Tier = "standard"
	TierWhite    Tier = "white"
	TierPurple   Tier = "purple"
	TierOrange   Tier = "orange"
)

// String returns the wire representation of the tier.
func (t Tier) String() string { return string(t) }

// ParseTier converts a string to a Tier. The second return value is false
// for unknown values; callers must treat that as a configuration fault, not
// a default.
func ParseTier(s string) (Tier, bool) {
	switch Tier(s) {
	case TierStandard, TierWhite, TierPurple, TierOrange:
		return Tier(s), true
	default:
		return "", false
	}
}

// Capability tags. Permission checks are set-membership tests against a
// credential's embedded snapshot of these.
const (
	PermReadMarkets           = "read:markets"
	PermReadAnalyticsBasic    = "read:analytics_basic"
	PermReadAnalyticsAdvanced = "read:analytics_advanced"
	PermReadUtility           = "read:utility"
	PermPersonalizedFeeds     = "access:personalized_feeds"
	PermSocialTrading         = "access:social_trading"
	PermExclusiveData         = "access:exclusive_data"
	PermPrioritySupport       = "access:priority_support"
)

// Limits are the per-tier rate limit settings snapshotted into credentials.
type Limits struct {
	RequestsPerMinute     int `json:"requests_per_minute" yaml:"requests_per_minute"`
	ConcurrentConnections int `json:"concurrent_connections" yaml:"concurrent_connections"`
}

// TierDefinition describes one tier: display name, capability set, limits.
type TierDefinition struct {
	Tier        Tier     `json:"tier" yaml:"tier"`
	DisplayName string   `json:"display_name" yaml:"display_name"`
	Permissions []string `json:"permissions" yaml:"permissions"`
	Limits      Limits   `json:"limits" yaml:"limits"`
}

// HasPermission reports whether the definition grants the capability.
func (d TierDefinition) HasPermission(permission string) bool {
	for _, p := range d.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// Record is a resolved identity. It is immutable once produced and is
// recomputed on every resolution call.
type Record struct {
	WalletAddress string         `json:"wallet_address"`
	IsHolder      bool           `json:"is_holder"`
	Tier          Tier           `json:"tier"`
	Points        int            `json:"points"`
	TierDetails   TierDefinition `json:"tier_details"`
	ResolvedAt    time.Time      `json:"resolved_at"`
}

// HasPermission reports whether the record's tier snapshot grants the
// capability.
func (r Record) HasPermission(permission string) bool {
	return r.TierDetails.HasPermission(permission)
}
