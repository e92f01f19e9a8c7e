package registry

import "errors"

var (
	// ErrInvalidHandlerSignature rejects a registration whose target does
	// not take exactly one *EventContext and return a result, a result plus
	// error, a result channel, or nothing.
	ErrInvalidHandlerSignature = errors.New("invalid handler signature")

	// ErrHandlerMethodNotFound rejects a by-name registration naming a
	// method the owner does not export.
	ErrHandlerMethodNotFound = errors.New("handler method not found")
)
