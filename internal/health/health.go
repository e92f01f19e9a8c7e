package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/mainul35/dynamic-site-builder/internal/framework"
	"github.com/mainul35/dynamic-site-builder/internal/metrics"
	"github.com/mainul35/dynamic-site-builder/pkg/registry"
)

// Status represents the health status of a component
type Status string

const (
	StatusUp       Status = "UP"
	StatusDown     Status = "DOWN"
	StatusDegraded Status = "DEGRADED"
)

// HealthDetails contains specific health check details
type HealthDetails struct {
	State          string   `json:"state,omitempty"`
	EventsHandled  int64    `json:"events_handled,omitempty"`
	Uptime         string   `json:"uptime,omitempty"`
	ResponseTimeMS int64    `json:"response_time_ms,omitempty"`
	HandlerCount   int      `json:"handler_count,omitempty"`
	RegisteredKeys []string `json:"registered_keys,omitempty"`
	Warning        string   `json:"warning,omitempty"`
}

// ComponentHealth represents the health of a single component
type ComponentHealth struct {
	Name      string         `json:"name"`
	Status    Status         `json:"status"`
	Details   *HealthDetails `json:"details,omitempty"`
	Error     string         `json:"error,omitempty"`
	CheckTime time.Time      `json:"check_time"`
}

// HealthStatus represents the overall system health
type HealthStatus struct {
	Status     Status                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Uptime     string                     `json:"uptime"`
	Components map[string]ComponentHealth `json:"components"`
}

// LivenessResponse represents the liveness check response
type LivenessResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Ready     bool   `json:"ready"`
	Status    Status `json:"status,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Checker interface for components that can report health
type Checker interface {
	HealthCheck(ctx context.Context) ComponentHealth
}

// Service manages health checks for the system
type Service struct {
	startTime time.Time
	plugins   []framework.Plugin
	checkers  map[string]Checker
	registry  *registry.Registry
	mu        sync.RWMutex
}

// NewService creates a new health check service
func NewService(reg *registry.Registry) *Service {
	return &Service{
		startTime: time.Now(),
		plugins:   make([]framework.Plugin, 0),
		checkers:  make(map[string]Checker),
		registry:  reg,
	}
}

// RegisterPlugin registers a plugin for health checking
func (s *Service) RegisterPlugin(plugin framework.Plugin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plugins = append(s.plugins, plugin)
}

// RegisterChecker registers a custom health checker
func (s *Service) RegisterChecker(name string, checker Checker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers[name] = checker
}

// GetHealth returns the current health status
func (s *Service) GetHealth(ctx context.Context, detailed bool) HealthStatus {
	status := HealthStatus{
		Timestamp:  time.Now(),
		Uptime:     time.Since(s.startTime).Round(time.Second).String(),
		Components: make(map[string]ComponentHealth),
	}

	s.mu.RLock()
	plugins := make([]framework.Plugin, len(s.plugins))
	copy(plugins, s.plugins)
	checkers := make(map[string]Checker)
	for k, v := range s.checkers {
		checkers[k] = v
	}
	s.mu.RUnlock()

	// Collect plugin statuses
	overallStatus := StatusUp
	for _, plugin := range plugins {
		pluginStatus := plugin.Status()
		componentHealth := ComponentHealth{
			Name:      plugin.Name(),
			CheckTime: time.Now(),
			Details:   &HealthDetails{},
		}

		// Determine component status based on plugin state
		switch pluginStatus.State {
		case "running":
			componentHealth.Status = StatusUp
		case "stopped", "error":
			componentHealth.Status = StatusDown
			overallStatus = StatusDegraded
		default:
			componentHealth.Status = StatusDegraded
			if overallStatus == StatusUp {
				overallStatus = StatusDegraded
			}
		}

		if detailed {
			componentHealth.Details.State = pluginStatus.State
			componentHealth.Details.EventsHandled = pluginStatus.EventsHandled
			if pluginStatus.Uptime > 0 {
				componentHealth.Details.Uptime = pluginStatus.Uptime.String()
			}
		}

		running := pluginStatus.State == "running"
		metrics.UpdatePluginMetrics(plugin.Name(), running, 0, 0)

		if pluginStatus.LastError != nil {
			componentHealth.Error = pluginStatus.LastError.Error()
			componentHealth.Status = StatusDown
			overallStatus = StatusDegraded
		}

		status.Components[plugin.Name()] = componentHealth
	}

	// Check custom health checkers
	for name, checker := range checkers {
		health := checker.HealthCheck(ctx)
		status.Components[name] = health

		if health.Status != StatusUp && overallStatus == StatusUp {
			overallStatus = StatusDegraded
		}
	}

	// Check handler registry
	registryHealth := s.checkRegistry(detailed)
	status.Components["registry"] = registryHealth
	if registryHealth.Status != StatusUp && overallStatus == StatusUp {
		overallStatus = StatusDegraded
	}

	status.Status = overallStatus
	return status
}

// checkRegistry reports the handler registry's registration state.
func (s *Service) checkRegistry(detailed bool) ComponentHealth {
	health := ComponentHealth{
		Name:      "registry",
		CheckTime: time.Now(),
		Status:    StatusUp,
		Details:   &HealthDetails{},
	}

	health.Details.HandlerCount = s.registry.HandlerCount()
	if detailed {
		health.Details.RegisteredKeys = s.registry.Keys()
	}
	if health.Details.HandlerCount == 0 {
		health.Details.Warning = "no handlers registered"
	}

	return health
}

// Handler returns an HTTP handler for health checks
func (s *Service) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// Determine level of detail requested
		detailed := r.URL.Query().Get("detailed") == "true"

		health := s.GetHealth(ctx, detailed)

		w.Header().Set("Content-Type", "application/json")

		switch health.Status {
		case StatusUp:
			w.WriteHeader(http.StatusOK)
		case StatusDegraded:
			w.WriteHeader(http.StatusOK) // Still return 200 for degraded
		case StatusDown:
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		metrics.HealthCheckRequests.WithLabelValues("/health", string(health.Status)).Inc()

		if err := json.NewEncoder(w).Encode(health); err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}

// LivenessHandler returns a simple liveness check handler
func (s *Service) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Simple check - if we can handle requests, we're alive
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		metrics.HealthCheckRequests.WithLabelValues("/health/live", string(StatusUp)).Inc()
		response := LivenessResponse{
			Status:    "alive",
			Timestamp: time.Now().Format(time.RFC3339),
		}
		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}

// ReadinessHandler returns a readiness check handler
func (s *Service) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		health := s.GetHealth(ctx, false)

		w.Header().Set("Content-Type", "application/json")
		metrics.HealthCheckRequests.WithLabelValues("/health/ready", string(health.Status)).Inc()

		if health.Status == StatusUp {
			w.WriteHeader(http.StatusOK)
			response := ReadinessResponse{
				Ready:     true,
				Timestamp: time.Now().Format(time.RFC3339),
			}
			if err := json.NewEncoder(w).Encode(response); err != nil {
				http.Error(w, "Failed to encode response", http.StatusInternalServerError)
			}
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			response := ReadinessResponse{
				Ready:     false,
				Status:    health.Status,
				Timestamp: time.Now().Format(time.RFC3339),
			}
			if err := json.NewEncoder(w).Encode(response); err != nil {
				http.Error(w, "Failed to encode response", http.StatusInternalServerError)
			}
		}
	}
}
