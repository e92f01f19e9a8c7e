package registry

import (
	"time"

	"github.com/google/uuid"
)

// EventContext carries one event occurrence through a handler chain. The
// registry passes it through untouched; a handler owns the context for the
// duration of its single invocation and must not retain it across events.
type EventContext struct {
	PluginID    string `json:"plugin_id,omitempty"`
	ComponentID string `json:"component_id"`
	EventType   string `json:"event_type"`

	// CorrelationID ties the dispatch to gateway and audit records.
	CorrelationID string    `json:"correlation_id"`
	Timestamp     time.Time `json:"timestamp"`

	// Payload is the builder-supplied event body (form values, pointer
	// coordinates, selection state, ...). The registry never inspects it.
	Payload map[string]any `json:"payload,omitempty"`
}

// NewEventContext creates a context for one event occurrence with a fresh
// correlation ID.
func NewEventContext(pluginID, componentID, eventType string, payload map[string]any) *EventContext {
	return &EventContext{
		PluginID:      pluginID,
		ComponentID:   componentID,
		EventType:     eventType,
		CorrelationID: uuid.NewString(),
		Timestamp:     time.Now(),
		Payload:       payload,
	}
}

// WithCorrelationID overrides the generated correlation ID, for callers that
// already track one (e.g. the gateway).
func (c *EventContext) WithCorrelationID(id string) *EventContext {
	c.CorrelationID = id
	return c
}

// WithValue sets a single payload value.
func (c *EventContext) WithValue(key string, value any) *EventContext {
	if c.Payload == nil {
		c.Payload = make(map[string]any)
	}
	c.Payload[key] = value
	return c
}
