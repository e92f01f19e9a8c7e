package framework

import (
	"encoding/json"
	"time"

	"github.com/mainul35/dynamic-site-builder/pkg/registry"
)

// Plugin is the lifecycle contract for site-builder plugins. A plugin that
// also implements registry.HandlerSource has its event handlers registered
// under its name when it starts and removed when it stops.
type Plugin interface {
	Init(config json.RawMessage, reg *registry.Registry) error
	Start() error
	Stop() error
	Status() PluginStatus
	Name() string
}

// PluginStatus is a snapshot of one plugin's runtime state.
type PluginStatus struct {
	Name          string
	State         string
	LastError     error
	EventsHandled int64
	Uptime        time.Duration
}

// PluginWithDependencies extends the Plugin interface with dependency
// management.
type PluginWithDependencies interface {
	Plugin
	// Dependencies returns a list of plugin names this plugin depends on
	Dependencies() []string
	// Ready returns true when the plugin is ready to accept requests
	Ready() bool
}
