package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mainul35/dynamic-site-builder/internal/framework"
	"github.com/mainul35/dynamic-site-builder/internal/logger"
	"github.com/mainul35/dynamic-site-builder/pkg/registry"
)

// Plugin tracks builder component interactions and serves aggregated counts
// to the stats widget. Recording is asynchronous so it never slows an
// interaction dispatch; reads are synchronous handler calls.
type Plugin struct {
	name     string
	config   *Config
	registry *registry.Registry

	mu            sync.RWMutex
	running       bool
	startTime     time.Time
	lastError     error
	eventsHandled int64

	// interaction counts keyed by "component/event"
	counts map[string]int64
}

// Config holds analytics plugin configuration
type Config struct {
	// TopN bounds the number of entries returned to the stats widget.
	TopN int `json:"top_n"`
}

// InteractionCount is one aggregated counter row.
type InteractionCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// New creates a new analytics plugin instance
func New() *Plugin {
	return &Plugin{
		name:   "analytics",
		config: &Config{TopN: 10},
		counts: make(map[string]int64),
	}
}

// Name returns the plugin name
func (p *Plugin) Name() string {
	return p.name
}

// Init parses configuration and keeps the registry reference
func (p *Plugin) Init(config json.RawMessage, reg *registry.Registry) error {
	if len(config) > 0 {
		if err := json.Unmarshal(config, p.config); err != nil {
			return fmt.Errorf("failed to parse analytics config: %w", err)
		}
	}
	if p.config.TopN <= 0 {
		p.config.TopN = 10
	}
	p.registry = reg
	return nil
}

// Start marks the plugin running
func (p *Plugin) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = true
	p.startTime = time.Now()
	logger.Info(p.name, "Analytics started (top_n=%d)", p.config.TopN)
	return nil
}

// Stop marks the plugin stopped
func (p *Plugin) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	logger.Info(p.name, "Analytics stopped after %d event(s)", p.eventsHandled)
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
		LastError:     p.lastError,
		EventsHandled: p.eventsHandled,
		Uptime:        uptime,
	}
}

// EventHandlers declares the handlers this plugin contributes. The recorder
// is async and low priority; the stats handler is a synchronous read.
func (p *Plugin) EventHandlers() []registry.HandlerSpec {
	return []registry.HandlerSpec{
		{
			ComponentID:       registry.Wildcard,
			EventType:         "interaction",
			Description:       "Records a component interaction",
			Priority:          -10,
			Async:             true,
			ContinueOnSuccess: true,
			Handler:           p.RecordInteraction,
		},
		{
			ComponentID:       "stats-widget",
			EventType:         "refresh",
			Description:       "Returns aggregated interaction counts",
			Priority:          10,
			ContinueOnSuccess: true,
			Handler:           p.RefreshStats,
		},
		{
			ComponentID:       "stats-widget",
			EventType:         "reset",
			Description:       "Clears all interaction counters",
			ContinueOnSuccess: true,
			Handler:           p.ResetStats,
		},
	}
}

// RecordInteraction counts one interaction. Runs detached from the dispatch
// chain; the caller only ever sees the queued outcome.
func (p *Plugin) RecordInteraction(ctx *registry.EventContext) {
	target := ctx.ComponentID
	if event, ok := ctx.Payload["event"].(string); ok && event != "" {
		target = target + "/" + event
	}

	p.mu.Lock()
	p.counts[target]++
	p.eventsHandled++
	p.mu.Unlock()
}

// RefreshStats returns the top interaction counts as a data payload.
func (p *Plugin) RefreshStats(ctx *registry.EventContext) *registry.EventResult {
	p.mu.Lock()
	p.eventsHandled++
	rows := make([]InteractionCount, 0, len(p.counts))
	for key, count := range p.counts {
		rows = append(rows, InteractionCount{Key: key, Count: count})
	}
	p.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Key < rows[j].Key
	})
	if len(rows) > p.config.TopN {
		rows = rows[:p.config.TopN]
	}

	return registry.SuccessWithData("", map[string]any{
		"interactions": rows,
		"total_keys":   len(rows),
	})
}

// ResetStats clears every counter.
func (p *Plugin) ResetStats(ctx *registry.EventContext) *registry.EventResult {
	p.mu.Lock()
	cleared := len(p.counts)
	p.counts = make(map[string]int64)
	p.eventsHandled++
	p.mu.Unlock()

	logger.Info(p.name, "Cleared %d counter(s)", cleared)
	return registry.Success(fmt.Sprintf("cleared %d counters", cleared))
}
