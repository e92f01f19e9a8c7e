package registry

import (
	"fmt"
	"log"
	"reflect"
	"sort"
	"sync"

	"github.com/mainul35/dynamic-site-builder/internal/metrics"
)

// Registry routes named builder events to registered handler chains. It is
// safe for concurrent use from arbitrary goroutines: per-key handler lists
// are replaced copy-on-write, never mutated in place, so a reader either
// sees the prior list or the fully sorted replacement and an in-flight
// dispatch finishes against the snapshot it resolved.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Key][]*HandlerEntry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{handlers: make(map[Key][]*HandlerEntry)}
}

// Register validates the spec's target and binds it under
// (pluginID, spec.ComponentID, spec.EventType). An empty pluginID registers
// a core handler. A rejected registration is never stored.
func (r *Registry) Register(pluginID string, spec HandlerSpec) (*HandlerEntry, error) {
	if spec.ComponentID == "" || spec.EventType == "" {
		return nil, fmt.Errorf("registration requires componentID and eventType")
	}
	invoke, err := normalizeTarget(spec.Handler)
	if err != nil {
		return nil, err
	}

	entry := &HandlerEntry{
		PluginID:          pluginID,
		ComponentID:       spec.ComponentID,
		EventType:         spec.EventType,
		Description:       spec.Description,
		Priority:          spec.Priority,
		Async:             spec.Async,
		ContinueOnSuccess: spec.ContinueOnSuccess,
		ContinueOnError:   spec.ContinueOnError,
		invoke:            invoke,
	}
	key := entry.Key()

	r.mu.Lock()
	prev := r.handlers[key]
	next := make([]*HandlerEntry, 0, len(prev)+1)
	next = append(next, prev...)
	next = append(next, entry)
	// Stable sort: equal priorities keep registration order.
	sort.SliceStable(next, func(i, j int) bool { return next[i].Priority > next[j].Priority })
	r.handlers[key] = next
	r.mu.Unlock()

	metrics.HandlersRegistered.Inc()
	log.Printf("[Registry] Registered handler for %s (priority=%d async=%t)", key, entry.Priority, entry.Async)
	return entry, nil
}

// RegisterFunc is the by-name convenience path: it resolves methodName on
// owner and registers the bound method with default continuation policy.
// Fails with ErrHandlerMethodNotFound when the owner has no such method.
func (r *Registry) RegisterFunc(pluginID, componentID, eventType string, owner any, methodName string, priority int) (*HandlerEntry, error) {
	m := reflect.ValueOf(owner).MethodByName(methodName)
	if !m.IsValid() {
		return nil, fmt.Errorf("%w: %T has no method %s", ErrHandlerMethodNotFound, owner, methodName)
	}
	spec := DefaultSpec(componentID, eventType, m.Interface())
	spec.Priority = priority
	return r.Register(pluginID, spec)
}

// Unregister removes one previously registered entry. Returns false when the
// entry is not (or no longer) registered.
func (r *Registry) Unregister(entry *HandlerEntry) bool {
	if entry == nil {
		return false
	}
	key := entry.Key()

	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.handlers[key]
	kept := make([]*HandlerEntry, 0, len(prev))
	for _, e := range prev {
		if e != entry {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(prev) {
		return false
	}
	if len(kept) == 0 {
		delete(r.handlers, key)
	} else {
		r.handlers[key] = kept
	}
	metrics.HandlersRegistered.Dec()
	return true
}

// UnregisterPlugin removes every handler owned by pluginID across all keys;
// keys left empty are dropped entirely. Called once by the plugin manager
// per plugin removal. Dispatches that already resolved their chain finish
// against the snapshot they captured.
func (r *Registry) UnregisterPlugin(pluginID string) int {
	r.mu.Lock()
	removed := 0
	for key, entries := range r.handlers {
		var kept []*HandlerEntry
		for _, e := range entries {
			if e.PluginID != pluginID {
				kept = append(kept, e)
			}
		}
		if len(kept) == len(entries) {
			continue
		}
		removed += len(entries) - len(kept)
		if len(kept) == 0 {
			delete(r.handlers, key)
		} else {
			r.handlers[key] = kept
		}
	}
	r.mu.Unlock()

	if removed > 0 {
		metrics.HandlersRegistered.Sub(float64(removed))
		log.Printf("[Registry] Unregistered %d handler(s) for plugin %s", removed, pluginID)
	}
	return removed
}

// Keys returns the composite string form of every key with at least one
// registered handler, sorted for stable diagnostics output.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		keys = append(keys, k.String())
	}
	r.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// HandlerCount returns the total number of registered handlers.
func (r *Registry) HandlerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, entries := range r.handlers {
		count += len(entries)
	}
	return count
}
