package identity

import (
	"fmt"

	"github.com/blade-dance/gateway/internal/errors"
)

// knownPermissions is the closed capability set. Catalog construction
// rejects any definition referencing a tag outside it.
var knownPermissions = map[string]struct{}{
	PermReadMarkets:           {},
	PermReadAnalyticsBasic:    {},
	PermReadAnalyticsAdvanced: {},
	PermReadUtility:           {},
	PermPersonalizedFeeds:     {},
	PermSocialTrading:         {},
	PermExclusiveData:         {},
	PermPrioritySupport:       {},
}

// tierOrder lists tiers lowest to highest.
var tierOrder = []Tier{TierStandard, TierWhite, TierPurple, TierOrange}

// Catalog is the static table of tier definitions. The permission lattice
// (each tier's set a superset of the one below) is enforced at construction,
// never at call time.
type Catalog struct {
	defs map[Tier]TierDefinition
}

// NewCatalog validates and builds a catalog from the given definitions.
// Every tier must be defined exactly once, every permission must belong to
// the closed capability set, and consecutive tiers must satisfy superset
// inclusion. Violations are configuration errors.
func NewCatalog(defs []TierDefinition) (*Catalog, error) {
	byTier := make(map[Tier]TierDefinition, len(defs))
	for _, def := range defs {
		if _, ok := ParseTier(string(def.Tier)); !ok {
			return nil, errors.Configuration(fmt.Sprintf("tier catalog: unknown tier %q", def.Tier))
		}
		if _, dup := byTier[def.Tier]; dup {
			return nil, errors.Configuration(fmt.Sprintf("tier catalog: duplicate tier %q", def.Tier))
		}
		for _, p := range def.Permissions {
			if _, ok := knownPermissions[p]; !ok {
				return nil, errors.Configuration(fmt.Sprintf("tier catalog: tier %q references unknown permission %q", def.Tier, p))
			}
		}
		if def.Limits.RequestsPerMinute <= 0 || def.Limits.ConcurrentConnections <= 0 {
			return nil, errors.Configuration(fmt.Sprintf("tier catalog: tier %q has non-positive limits", def.Tier))
		}
		byTier[def.Tier] = def
	}

	for _, t := range tierOrder {
		if _, ok := byTier[t]; !ok {
			return nil, errors.Configuration(fmt.Sprintf("tier catalog: missing tier %q", t))
		}
	}

	for i := 1; i < len(tierOrder); i++ {
		lower := byTier[tierOrder[i-1]]
		higher := byTier[tierOrder[i]]
		for _, p := range lower.Permissions {
			if !higher.HasPermission(p) {
				return nil, errors.Configuration(fmt.Sprintf(
					"tier catalog: tier %q is missing permission %q granted to lower tier %q",
					higher.Tier, p, lower.Tier))
			}
		}
	}

	return &Catalog{defs: byTier}, nil
}

// DefaultCatalog returns the built-in tier table. It mirrors the on-chain
// tier progression: standard (non-holder) < white < purple < orange.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultDefinitions())
	if err != nil {
		// The built-in table is validated by tests; a failure here is a
		// programming error, not a runtime condition.
		panic(err)
	}
	return c
}

// DefinitionFor returns the definition for a tier.
func (c *Catalog) DefinitionFor(t Tier) (TierDefinition, bool) {
	def, ok := c.defs[t]
	return def, ok
}

// AllTiers returns the tiers ordered lowest to highest.
func (c *Catalog) AllTiers() []Tier {
	out := make([]Tier, len(tierOrder))
	copy(out, tierOrder)
	return out
}

// KnownPermission reports whether the tag belongs to the closed capability
// set.
func KnownPermission(permission string) bool {
	_, ok := knownPermissions[permission]
	return ok
}

func defaultDefinitions() []TierDefinition {
	return []TierDefinition{
		{
			Tier:        TierStandard,
			DisplayName: "Standard User",
			Permissions: []string{
				PermReadMarkets,
				PermReadAnalyticsBasic,
			},
			Limits: Limits{RequestsPerMinute: 60, ConcurrentConnections: 3},
		},
		{
			Tier:        TierWhite,
			DisplayName: "N1NJ4 White",
			Permissions: []string{
				PermReadMarkets,
				PermReadAnalyticsBasic,
				PermReadAnalyticsAdvanced,
				PermReadUtility,
			},
			Limits: Limits{RequestsPerMinute: 300, ConcurrentConnections: 10},
		},
		{
			Tier:        TierPurple,
			DisplayName: "N1NJ4 Purple",
			Permissions: []string{
				PermReadMarkets,
				PermReadAnalyticsBasic,
				PermReadAnalyticsAdvanced,
				PermReadUtility,
				PermPersonalizedFeeds,
				PermSocialTrading,
			},
			Limits: Limits{RequestsPerMinute: 1000, ConcurrentConnections: 30},
		},
		{
			Tier:        TierOrange,
			DisplayName: "N1NJ4 Orange",
			Permissions: []string{
				PermReadMarkets,
				PermReadAnalyticsBasic,
				PermReadAnalyticsAdvanced,
				PermReadUtility,
				PermPersonalizedFeeds,
				PermSocialTrading,
				PermExclusiveData,
				PermPrioritySupport,
			},
			Limits: Limits{RequestsPerMinute: 5000, ConcurrentConnections: 100},
		},
	}
}
