package theme

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mainul35/dynamic-site-builder/internal/framework"
	"github.com/mainul35/dynamic-site-builder/internal/logger"
	"github.com/mainul35/dynamic-site-builder/pkg/registry"
)

// Plugin applies named style presets to builder pages and components. Theme
// changes come back to the builder UI as style-update side channels plus a
// broadcast so open editors can follow along.
type Plugin struct {
	name   string
	config *Config

	mu            sync.RWMutex
	running       bool
	startTime     time.Time
	eventsHandled int64
	activeTheme   string
}

// Config holds the named style presets.
type Config struct {
	// Themes maps a theme name to the style properties it applies.
	Themes map[string]map[string]any `json:"themes"`
	// Default is applied at startup and on style.reset.
	Default string `json:"default"`
}

// New creates a new theme plugin instance
func New() *Plugin {
	return &Plugin{
		name: "theme",
		config: &Config{
			Themes: map[string]map[string]any{
				"light": {"background": "#ffffff", "color": "#1a1a1a"},
				"dark":  {"background": "#1a1a1a", "color": "#f5f5f5"},
			},
			Default: "light",
		},
	}
}

// Name returns the plugin name
func (p *Plugin) Name() string {
	return p.name
}

// Init parses configuration
func (p *Plugin) Init(config json.RawMessage, reg *registry.Registry) error {
	if len(config) > 0 {
		if err := json.Unmarshal(config, p.config); err != nil {
			return fmt.Errorf("failed to parse theme config: %w", err)
		}
	}
	if _, ok := p.config.Themes[p.config.Default]; !ok {
		return fmt.Errorf("default theme %q is not defined", p.config.Default)
	}
	p.activeTheme = p.config.Default
	return nil
}

// Start marks the plugin running
func (p *Plugin) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = true
	p.startTime = time.Now()
	logger.Info(p.name, "Theme plugin started with %d theme(s), default %q", len(p.config.Themes), p.config.Default)
	return nil
}

// Stop marks the plugin stopped
func (p *Plugin) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	return nil
}

// Status reports the plugin's runtime state
func (p *Plugin) Status() framework.PluginStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	state := "stopped"
	var uptime time.Duration
	if p.running {
		state = "running"
		uptime = time.Since(p.startTime)
	}
	return framework.PluginStatus{
		Name:          p.name,
		State:         state,
		EventsHandled: p.eventsHandled,
		Uptime:        uptime,
	}
}

// EventHandlers declares the handlers this plugin contributes.
func (p *Plugin) EventHandlers() []registry.HandlerSpec {
	return []registry.HandlerSpec{
		{
			ComponentID:       "page",
			EventType:         "theme.change",
			Description:       "Applies a named theme to the page",
			Priority:          50,
			ContinueOnSuccess: true,
			ContinueOnError:   true,
			Handler:           p.ChangeTheme,
		},
		{
			ComponentID:       registry.Wildcard,
			EventType:         "style.reset",
			Description:       "Resets a component to the default theme",
			ContinueOnSuccess: true,
			Handler:           p.ResetStyle,
		},
	}
}

// ChangeTheme switches the active theme and emits the theme's style set.
func (p *Plugin) ChangeTheme(ctx *registry.EventContext) *registry.EventResult {
	p.mu.Lock()
	p.eventsHandled++
	p.mu.Unlock()

	name, _ := ctx.Payload["theme"].(string)
	if name == "" {
		return registry.Failure("theme.change requires a theme name")
	}
	styles, ok := p.config.Themes[name]
	if !ok {
		return registry.Failure(fmt.Sprintf("unknown theme %q", name))
	}

	p.mu.Lock()
	p.activeTheme = name
	p.mu.Unlock()

	updates := make(map[string]any, len(styles))
	for k, v := range styles {
		updates[k] = v
	}

	return &registry.EventResult{
		Status:          registry.StatusSuccess,
		Message:         fmt.Sprintf("theme %q applied", name),
		StyleUpdates:    updates,
		PropertyUpdates: map[string]any{"active_theme": name},
		BroadcastEvents: map[string]any{
			"theme.changed": map[string]any{"theme": name},
		},
	}
}

// ResetStyle reapplies the default theme's styles to the target component.
func (p *Plugin) ResetStyle(ctx *registry.EventContext) *registry.EventResult {
	p.mu.Lock()
	p.eventsHandled++
	p.activeTheme = p.config.Default
	p.mu.Unlock()

	styles := p.config.Themes[p.config.Default]
	updates := make(map[string]any, len(styles))
	for k, v := range styles {
		updates[k] = v
	}

	return &registry.EventResult{
		Status:          registry.StatusSuccess,
		Message:         fmt.Sprintf("reset %s to theme %q", ctx.ComponentID, p.config.Default),
		StyleUpdates:    updates,
		PropertyUpdates: map[string]any{"active_theme": p.config.Default},
	}
}

// ActiveTheme returns the currently applied theme name.
func (p *Plugin) ActiveTheme() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.activeTheme
}
