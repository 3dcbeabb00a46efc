package identity

import (
	"strings"
	"testing"
)

func TestDefaultCatalogLattice(t *testing.T) {
	catalog := DefaultCatalog()

	tiers := catalog.AllTiers()
	if len(tiers) != 4 {
		t.Fatalf("expected 4 tiers, got %d", len(tiers))
	}

	// Each tier must grant everything the one below it grants.
	for i := 1; i < len(tiers); i++ {
		lower, ok := catalog.DefinitionFor(tiers[i-1])
		if !ok {
			t.Fatalf("missing definition for %s", tiers[i-1])
		}
		higher, ok := catalog.DefinitionFor(tiers[i])
		if !ok {
			t.Fatalf("missing definition for %s", tiers[i])
		}
		for _, p := range lower.Permissions {
			if !higher.HasPermission(p) {
				t.Fatalf("tier %s lost permission %s held by %s", higher.Tier, p, lower.Tier)
			}
		}
		if higher.Limits.RequestsPerMinute < lower.Limits.RequestsPerMinute {
			t.Fatalf("tier %s has lower rate limit than %s", higher.Tier, lower.Tier)
		}
	}
}

func TestDefaultCatalogGates(t *testing.T) {
	catalog := DefaultCatalog()

	standard, _ := catalog.DefinitionFor(TierStandard)
	if standard.HasPermission(PermSocialTrading) {
		t.Fatalf("standard tier must not have social trading")
	}

	purple, _ := catalog.DefinitionFor(TierPurple)
	if !purple.HasPermission(PermSocialTrading) {
		t.Fatalf("purple tier must have social trading")
	}
	if purple.HasPermission(PermExclusiveData) {
		t.Fatalf("purple tier must not have exclusive data")
	}

	orange, _ := catalog.DefinitionFor(TierOrange)
	if !orange.HasPermission(PermExclusiveData) {
		t.Fatalf("orange tier must have exclusive data")
	}
}

func TestNewCatalogRejectsLatticeViolation(t *testing.T) {
	defs := defaultDefinitions()
	// Strip a standard permission from white so the inclusion check fails.
	for i := range defs {
		if defs[i].Tier == TierWhite {
			defs[i].Permissions = []string{PermReadAnalyticsAdvanced}
		}
	}
	if _, err := NewCatalog(defs); err == nil {
		t.Fatalf("expected lattice violation to fail construction")
	}
}

func TestNewCatalogRejectsUnknownPermission(t *testing.T) {
	defs := defaultDefinitions()
	defs[0].Permissions = append(defs[0].Permissions, "read:everything")
	_, err := NewCatalog(defs)
	if err == nil {
		t.Fatalf("expected unknown permission to fail construction")
	}
	if !strings.Contains(err.Error(), "read:everything") {
		t.Fatalf("error should name the offending permission: %v", err)
	}
}

func TestNewCatalogRejectsMissingTier(t *testing.T) {
	defs := defaultDefinitions()
	if _, err := NewCatalog(defs[:3]); err == nil {
		t.Fatalf("expected missing tier to fail construction")
	}
}

func TestNewCatalogRejectsDuplicateTier(t *testing.T) {
	defs := defaultDefinitions()
	defs = append(defs, defs[0])
	if _, err := NewCatalog(defs); err == nil {
		t.Fatalf("expected duplicate tier to fail construction")
	}
}

func TestNewCatalogRejectsNonPositiveLimits(t *testing.T) {
	defs := defaultDefinitions()
	defs[0].Limits.RequestsPerMinute = 0
	if _, err := NewCatalog(defs); err == nil {
		t.Fatalf("expected non-positive limit to fail construction")
	}
}

func TestParseTier(t *testing.T) {
	for _, valid := range []string{"standard", "white", "purple", "orange"} {
		if _, ok := ParseTier(valid); !ok {
			t.Fatalf("expected %q to parse", valid)
		}
	}
	if _, ok := ParseTier("gold"); ok {
		t.Fatalf("unknown tier must not parse")
	}
	if _, ok := ParseTier(""); ok {
		t.Fatalf("empty tier must not parse")
	}
}
