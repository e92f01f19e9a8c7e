package registry

import (
	"fmt"
	"log"
)

// HandlerSource is implemented by plugins and host components that
// contribute event handlers declaratively. Discovery checks candidates for
// this capability rather than scanning their types; components that expose
// no handlers are simply not sources.
type HandlerSource interface {
	EventHandlers() []HandlerSpec
}

// namedSource claims plugin ownership of a source's handlers. Framework
// plugins satisfy it through their Name method; anonymous sources register
// at the core tier.
type namedSource interface {
	Name() string
}

// Discover inspects every candidate supplied by the host, registering the
// handlers of each one that is a HandlerSource. A candidate whose inspection
// or registration fails is logged and skipped; it never aborts the rest of
// the pass. Returns the number of handlers registered.
func (r *Registry) Discover(candidates ...any) int {
	registered := 0
	for _, candidate := range candidates {
		source, ok := candidate.(HandlerSource)
		if !ok {
			continue
		}
		pluginID := ""
		if named, ok := candidate.(namedSource); ok {
			pluginID = named.Name()
		}
		registered += r.RegisterSource(pluginID, source)
	}
	return registered
}

// RegisterSource registers every handler a single source exposes under
// pluginID. A spec that fails validation is logged and skipped without
// aborting the source's remaining handlers.
func (r *Registry) RegisterSource(pluginID string, source HandlerSource) int {
	specs, err := inspectSource(source)
	if err != nil {
		log.Printf("[Registry] Skipping handler source %T: %v", source, err)
		return 0
	}

	registered := 0
	for _, spec := range specs {
		if _, err := r.Register(pluginID, spec); err != nil {
			log.Printf("[Registry] Skipping handler %s/%s from %T: %v", spec.ComponentID, spec.EventType, source, err)
			continue
		}
		registered++
	}
	return registered
}

// inspectSource collects a source's handler specs, converting a panic during
// inspection into an error so one bad source cannot abort discovery.
func inspectSource(source HandlerSource) (specs []HandlerSpec, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler inspection panic: %v", rec)
		}
	}()
	return source.EventHandlers(), nil
}
