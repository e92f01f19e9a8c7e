package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mainul35/dynamic-site-builder/internal/framework"
	"github.com/mainul35/dynamic-site-builder/internal/logger"
	"github.com/mainul35/dynamic-site-builder/internal/metrics"
	"github.com/mainul35/dynamic-site-builder/pkg/registry"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS sitebuilder_audit_events (
	id             BIGSERIAL PRIMARY KEY,
	correlation_id TEXT NOT NULL,
	plugin_id      TEXT NOT NULL DEFAULT '',
	component_id   TEXT NOT NULL,
	event_type     TEXT NOT NULL,
	payload        JSONB,
	occurred_at    TIMESTAMPTZ NOT NULL
)`

const insertEventSQL = `
INSERT INTO sitebuilder_audit_events
	(correlation_id, plugin_id, component_id, event_type, payload, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6)`

// Plugin persists every dispatched builder event to Postgres. It registers a
// single core-tier catch-all handler, async so a slow database never stalls
// a dispatch chain, and removes that exact entry again when it stops.
type Plugin struct {
	name     string
	config   *Config
	registry *registry.Registry
	db       *sql.DB

	mu            sync.RWMutex
	running       bool
	startTime     time.Time
	lastError     error
	eventsHandled int64

	entry *registry.HandlerEntry
}

// Config holds audit plugin configuration
type Config struct {
	// ConnString is a pgx-compatible connection string. Empty disables the
	// plugin: it starts, but registers no handler.
	ConnString string `json:"conn_string"`
}

// New creates a new audit plugin instance
func New() *Plugin {
	return &Plugin{name: "audit", config: &Config{}}
}

// NewWithDB creates an audit plugin over an existing database handle,
// used by tests.
func NewWithDB(db *sql.DB) *Plugin {
	return &Plugin{name: "audit", config: &Config{}, db: db}
}

// Name returns the plugin name
func (p *Plugin) Name() string {
	return p.name
}

// Init parses configuration, keeps the registry reference, and opens the
// database connection when one is configured.
func (p *Plugin) Init(config json.RawMessage, reg *registry.Registry) error {
	if len(config) > 0 {
		if err := json.Unmarshal(config, p.config); err != nil {
			return fmt.Errorf("failed to parse audit config: %w", err)
		}
	}
	p.registry = reg

	if p.db != nil || p.config.ConnString == "" {
		return nil
	}

	db, err := sql.Open("pgx", p.config.ConnString)
	if err != nil {
		return fmt.Errorf("failed to open audit database: %w", err)
	}
	p.db = db
	return nil
}

// Start ensures the audit table exists and registers the catch-all recorder
// at the core tier.
func (p *Plugin) Start() error {
	p.mu.Lock()
	p.running = true
	p.startTime = time.Now()
	p.mu.Unlock()

	if p.db == nil {
		logger.Warn(p.name, "No database configured, audit trail disabled")
		return nil
	}

	if _, err := p.db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("failed to create audit table: %w", err)
	}

	spec := registry.DefaultSpec(registry.Wildcard, registry.Wildcard, p.RecordEvent)
	spec.Description = "Persists dispatched events to the audit trail"
	spec.Priority = -100
	spec.Async = true

	// Core tier: audits every dispatch, whichever plugin it targets.
	entry, err := p.registry.Register("", spec)
	if err != nil {
		return fmt.Errorf("failed to register audit handler: %w", err)
	}
	p.entry = entry

	logger.Info(p.name, "Audit trail enabled")
	return nil
}

// Stop unregisters the recorder entry and closes the database.
func (p *Plugin) Stop() error {
	if p.entry != nil {
		p.registry.Unregister(p.entry)
		p.entry = nil
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("failed to close audit database: %w", err)
		}
	}
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

// RecordEvent writes one dispatched event to the audit table. Runs async;
// a write failure surfaces in the operational log and metrics only.
func (p *Plugin) RecordEvent(ctx *registry.EventContext) (*registry.EventResult, error) {
	payload, err := json.Marshal(ctx.Payload)
	if err != nil {
		payload = []byte("null")
	}

	_, err = p.db.Exec(insertEventSQL,
		ctx.CorrelationID, ctx.PluginID, ctx.ComponentID, ctx.EventType, payload, ctx.Timestamp)

	p.mu.Lock()
	p.eventsHandled++
	if err != nil {
		p.lastError = err
	}
	p.mu.Unlock()

	if err != nil {
		metrics.AuditErrors.Inc()
		return nil, fmt.Errorf("audit write failed: %w", err)
	}

	metrics.AuditWrites.Inc()
	return registry.Success(""), nil
}
