package registry

import (
	"fmt"
	"strings"
)

// Wildcard matches any componentID or eventType when used in a registration.
const Wildcard = "*"

// corePlugin is the serialized form of an empty plugin ID.
const corePlugin = "core"

// Key is the composite routing key for one registration coordinate. An empty
// PluginID denotes a core (non-plugin) handler. Keys are only ever used as
// map keys and diagnostics; they are never persisted.
type Key struct {
	PluginID    string
	ComponentID string
	EventType   string
}

// String serializes the key as "plugin:component:event", with the core tier
// rendered as "core".
func (k Key) String() string {
	plugin := k.PluginID
	if plugin == "" {
		plugin = corePlugin
	}
	return plugin + ":" + k.ComponentID + ":" + k.EventType
}

// ParseKey parses the composite form produced by Key.String.
func ParseKey(s string) (Key, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Key{}, fmt.Errorf("malformed registry key %q", s)
	}
	k := Key{PluginID: parts[0], ComponentID: parts[1], EventType: parts[2]}
	if k.PluginID == corePlugin {
		k.PluginID = ""
	}
	return k, nil
}
