package auth

import "context"

// HolderInfo is the raw registry answer for a holder: the tier name as the
// registry reports it, plus accumulated points. The tier string is validated
// against the catalog during resolution, not here.
type HolderInfo struct {
	Tier   string `yaml:"tier"`
	Points int    `yaml:"points"`
}

// HolderRegistry is the external source of truth mapping a wallet address
// to NFT ownership. Implementations may be slow and fallible; resolution
// treats failures as upstream conditions.
type HolderRegistry interface {
	// HolderInfo returns the holder record and true, or false when the
	// wallet holds no NFT.
	HolderInfo(ctx context.Context, walletAddress string) (HolderInfo, bool, error)
}

// StaticRegistry is an in-process registry seeded from configuration. It
// stands in for the on-chain holder contract during local development and
// tests, and is deterministic for a given seed.
type StaticRegistry struct {
	holders map[string]HolderInfo
}

// NewStaticRegistry builds a registry from a wallet→holder map. A nil map
// yields a registry with no holders.
func NewStaticRegistry(holders map[string]HolderInfo) *StaticRegistry {
	copied := make(map[string]HolderInfo, len(holders))
	for addr, info := range holders {
		copied[addr] = info
	}
	return &StaticRegistry{holders: copied}
}

// DefaultRegistry returns the development fixture registry: one holder per
// NFT tier.
func DefaultRegistry() *StaticRegistry {
	return NewStaticRegistry(map[string]HolderInfo{
		"inj1whiteholder":  {Tier: "white", Points: 50},
		"inj1purpleholder": {Tier: "purple", Points: 300},
		"inj1orangeholder": {Tier: "orange", Points: 1000},
	})
}

// HolderInfo implements HolderRegistry.
func (r *StaticRegistry) HolderInfo(_ context.Context, walletAddress string) (HolderInfo, bool, error) {
	info, ok := r.holders[walletAddress]
	return info, ok, nil
}
