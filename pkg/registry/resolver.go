package registry

// candidateKeys returns the resolution order for one lookup, most specific
// first: exact match, then plugin-scoped wildcards, then the core tiers,
// ending at the global core catch-all. For a core lookup (empty pluginID)
// the plugin-scoped tiers collapse onto the core tiers; duplicates are
// skipped so no key is consulted twice.
func candidateKeys(pluginID, componentID, eventType string) []Key {
	candidates := [...]Key{
		{PluginID: pluginID, ComponentID: componentID, EventType: eventType},
		{PluginID: pluginID, ComponentID: componentID, EventType: Wildcard},
		{PluginID: pluginID, ComponentID: Wildcard, EventType: eventType},
		{PluginID: "", ComponentID: componentID, EventType: eventType},
		{PluginID: "", ComponentID: componentID, EventType: Wildcard},
		{PluginID: "", ComponentID: Wildcard, EventType: eventType},
		{PluginID: "", ComponentID: Wildcard, EventType: Wildcard},
	}

	keys := make([]Key, 0, len(candidates))
	seen := make(map[Key]struct{}, len(candidates))
	for _, k := range candidates {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// Resolve returns the full ordered handler chain for one lookup. Ordering is
// tier-major: every handler in a more specific tier runs before any handler
// in a less specific one, regardless of priority values; priority only
// orders handlers within a single tier. An empty chain is a valid outcome,
// not an error.
func (r *Registry) Resolve(pluginID, componentID, eventType string) []*HandlerEntry {
	keys := candidateKeys(pluginID, componentID, eventType)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var chain []*HandlerEntry
	for _, k := range keys {
		// Per-key lists are immutable snapshots, safe to share.
		chain = append(chain, r.handlers[k]...)
	}
	return chain
}
