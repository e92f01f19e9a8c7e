package registry

import (
	"fmt"
	"testing"
)

func TestCandidateKeysPluginScoped(t *testing.T) {
	keys := candidateKeys("forms", "contact", "submit")

	want := []Key{
		{PluginID: "forms", ComponentID: "contact", EventType: "submit"},
		{PluginID: "forms", ComponentID: "contact", EventType: "*"},
		{PluginID: "forms", ComponentID: "*", EventType: "submit"},
		{PluginID: "", ComponentID: "contact", EventType: "submit"},
		{PluginID: "", ComponentID: "contact", EventType: "*"},
		{PluginID: "", ComponentID: "*", EventType: "submit"},
		{PluginID: "", ComponentID: "*", EventType: "*"},
	}
	if fmt.Sprint(keys) != fmt.Sprint(want) {
		t.Errorf("candidateKeys = %v, want %v", keys, want)
	}
}

func TestCandidateKeysCoreRequestCollapses(t *testing.T) {
	keys := candidateKeys("", "contact", "submit")

	// Plugin tiers collapse onto core tiers, leaving four distinct keys.
	want := []Key{
		{PluginID: "", ComponentID: "contact", EventType: "submit"},
		{PluginID: "", ComponentID: "contact", EventType: "*"},
		{PluginID: "", ComponentID: "*", EventType: "submit"},
		{PluginID: "", ComponentID: "*", EventType: "*"},
	}
	if fmt.Sprint(keys) != fmt.Sprint(want) {
		t.Errorf("candidateKeys = %v, want %v", keys, want)
	}
}

func TestResolveTierMajorOrdering(t *testing.T) {
	reg := New()
	var order []string

	// One handler in each tier, every less specific tier with a higher
	// priority than the tier above it. Tier order must still win.
	tiers := []struct {
		label       string
		pluginID    string
		componentID string
		eventType   string
	}{
		{"t1-exact", "forms", "contact", "submit"},
		{"t2-any-event", "forms", "contact", "*"},
		{"t3-any-component", "forms", "*", "submit"},
		{"t4-core-exact", "", "contact", "submit"},
		{"t5-core-any-event", "", "contact", "*"},
		{"t6-core-any-component", "", "*", "submit"},
		{"t7-catch-all", "", "*", "*"},
	}
	for i, tier := range tiers {
		spec := DefaultSpec(tier.componentID, tier.eventType, appendingHandler(&order, tier.label))
		spec.Priority = i * 100 // later tiers get higher priority
		register(t, reg, tier.pluginID, spec)
	}

	chain := reg.Resolve("forms", "contact", "submit")
	if len(chain) != len(tiers) {
		t.Fatalf("chain length = %d, want %d", len(chain), len(tiers))
	}

	reg.Dispatch("forms", "contact", "submit", nil)

	want := []string{
		"t1-exact", "t2-any-event", "t3-any-component",
		"t4-core-exact", "t5-core-any-event", "t6-core-any-component", "t7-catch-all",
	}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("execution order = %v, want %v", order, want)
	}
}

func TestResolvePriorityOnlyOrdersWithinTier(t *testing.T) {
	reg := New()
	var order []string

	// Handler A: exact event, low priority. Handler B: wildcard event, high
	// priority. A must still run first: specificity dominates priority.
	a := DefaultSpec("nav", "click", appendingHandler(&order, "A"))
	a.Priority = 10
	b := DefaultSpec("nav", "*", appendingHandler(&order, "B"))
	b.Priority = 100
	register(t, reg, "", a)
	register(t, reg, "", b)

	result := reg.Dispatch("", "nav", "click", nil)

	want := []string{"A", "B"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("execution order = %v, want %v", order, want)
	}
	if result.Status != StatusSuccess {
		t.Errorf("aggregated status = %s, want success", result.Status)
	}
}

func TestResolveEmptyChain(t *testing.T) {
	reg := New()

	chain := reg.Resolve("forms", "contact", "submit")
	if len(chain) != 0 {
		t.Errorf("chain length = %d, want 0", len(chain))
	}
}

func TestResolvePluginHandlersInvisibleToOtherPlugins(t *testing.T) {
	reg := New()
	noop := func(ctx *EventContext) *EventResult { return Success("") }
	register(t, reg, "gallery", DefaultSpec("carousel", "slide", noop))

	if chain := reg.Resolve("forms", "carousel", "slide"); len(chain) != 0 {
		t.Errorf("chain length = %d, want 0: gallery handlers must not match forms requests", len(chain))
	}
	if chain := reg.Resolve("", "carousel", "slide"); len(chain) != 0 {
		t.Errorf("chain length = %d, want 0: plugin handlers must not match core requests", len(chain))
	}
	if chain := reg.Resolve("gallery", "carousel", "slide"); len(chain) != 1 {
		t.Errorf("chain length = %d, want 1", len(chain))
	}
}

func TestCoreHandlersVisibleToPluginRequests(t *testing.T) {
	reg := New()
	var order []string
	register(t, reg, "", DefaultSpec("*", "*", appendingHandler(&order, "catch-all")))

	reg.Dispatch("gallery", "carousel", "slide", nil)
	if len(order) != 1 {
		t.Errorf("catch-all invocations = %d, want 1", len(order))
	}
}
