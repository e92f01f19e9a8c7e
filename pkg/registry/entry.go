package registry

import (
	"fmt"
	"reflect"
)

// HandlerFunc is the normalized invocation shape every accepted target is
// adapted to before it is stored.
type HandlerFunc func(*EventContext) *EventResult

// HandlerSpec is the declarative registration metadata for one handler, as
// contributed by a HandlerSource or an explicit Register call.
type HandlerSpec struct {
	ComponentID string
	EventType   string
	Description string

	// Priority orders handlers within one key; higher runs first, ties keep
	// registration order.
	Priority int

	// Async detaches the invocation from the dispatch loop.
	Async bool

	ContinueOnSuccess bool
	ContinueOnError   bool

	// Handler is the target callable; see normalizeTarget for the accepted
	// shapes.
	Handler any
}

// DefaultSpec returns a HandlerSpec carrying the registration defaults:
// synchronous, continue after success, halt after error.
func DefaultSpec(componentID, eventType string, handler any) HandlerSpec {
	return HandlerSpec{
		ComponentID:       componentID,
		EventType:         eventType,
		ContinueOnSuccess: true,
		Handler:           handler,
	}
}

// HandlerEntry is one registered handler. Entries are immutable after
// registration; removal happens only through unregistration.
type HandlerEntry struct {
	PluginID    string
	ComponentID string
	EventType   string
	Description string

	Priority          int
	Async             bool
	ContinueOnSuccess bool
	ContinueOnError   bool

	invoke HandlerFunc
}

// Key returns the exact routing key this entry is stored under.
func (e *HandlerEntry) Key() Key {
	return Key{PluginID: e.PluginID, ComponentID: e.ComponentID, EventType: e.EventType}
}

// normalizeTarget validates a registration target and adapts it to
// HandlerFunc. Accepted shapes, all taking a single *EventContext:
//
//	func(*EventContext) *EventResult
//	func(*EventContext) (*EventResult, error)
//	func(*EventContext)                       // implicit bare success
//	func(*EventContext) <-chan *EventResult   // dispatch blocks on the channel
//
// Anything else fails with ErrInvalidHandlerSignature. Validation happens
// here, at registration time, never at dispatch time.
func normalizeTarget(target any) (HandlerFunc, error) {
	switch fn := target.(type) {
	case HandlerFunc:
		return fn, nil
	case func(*EventContext) *EventResult:
		return fn, nil
	case func(*EventContext) (*EventResult, error):
		return func(ctx *EventContext) *EventResult {
			res, err := fn(ctx)
			if err != nil {
				return Failure(err.Error())
			}
			if res == nil {
				res = Success("")
			}
			return res
		}, nil
	case func(*EventContext):
		return func(ctx *EventContext) *EventResult {
			fn(ctx)
			return Success("")
		}, nil
	case func(*EventContext) <-chan *EventResult:
		return func(ctx *EventContext) *EventResult {
			res := <-fn(ctx)
			if res == nil {
				res = Success("")
			}
			return res
		}, nil
	}

	t := reflect.TypeOf(target)
	if t == nil || t.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: target %T is not a func", ErrInvalidHandlerSignature, target)
	}
	return nil, fmt.Errorf("%w: %s must take one *EventContext and return *EventResult, (*EventResult, error), <-chan *EventResult, or nothing",
		ErrInvalidHandlerSignature, t)
}
