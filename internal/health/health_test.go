package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mainul35/dynamic-site-builder/internal/framework"
	"github.com/mainul35/dynamic-site-builder/pkg/registry"
)

// mockPlugin implements framework.Plugin for testing
type mockPlugin struct {
	name   string
	status framework.PluginStatus
}

func (m *mockPlugin) Init(config json.RawMessage, reg *registry.Registry) error { return nil }
func (m *mockPlugin) Start() error                                              { return nil }
func (m *mockPlugin) Stop() error                                               { return nil }
func (m *mockPlugin) Status() framework.PluginStatus                            { return m.status }
func (m *mockPlugin) Name() string                                              { return m.name }

func runningPlugin(name string) *mockPlugin {
	return &mockPlugin{
		name: name,
		status: framework.PluginStatus{
			Name:   name,
			State:  "running",
			Uptime: time.Minute,
		},
	}
}

func newRegistryWithHandler(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	spec := registry.DefaultSpec("nav", "click", func(ctx *registry.EventContext) *registry.EventResult {
		return registry.Success("")
	})
	if _, err := reg.Register("", spec); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return reg
}

func TestGetHealthAllUp(t *testing.T) {
	service := NewService(newRegistryWithHandler(t))
	service.RegisterPlugin(runningPlugin("analytics"))
	service.RegisterPlugin(runningPlugin("theme"))

	health := service.GetHealth(context.Background(), false)

	if health.Status != StatusUp {
		t.Errorf("status = %s, want UP", health.Status)
	}
	if len(health.Components) != 3 {
		t.Errorf("components = %d, want 2 plugins + registry", len(health.Components))
	}
	for name, component := range health.Components {
		if component.Status != StatusUp {
			t.Errorf("component %s status = %s", name, component.Status)
		}
	}
}

func TestGetHealthDegradedOnStoppedPlugin(t *testing.T) {
	service := NewService(newRegistryWithHandler(t))
	service.RegisterPlugin(runningPlugin("analytics"))
	service.RegisterPlugin(&mockPlugin{
		name:   "audit",
		status: framework.PluginStatus{Name: "audit", State: "stopped"},
	})

	health := service.GetHealth(context.Background(), false)

	if health.Status != StatusDegraded {
		t.Errorf("status = %s, want DEGRADED", health.Status)
	}
	if health.Components["audit"].Status != StatusDown {
		t.Errorf("audit status = %s, want DOWN", health.Components["audit"].Status)
	}
}

func TestGetHealthReportsPluginError(t *testing.T) {
	service := NewService(newRegistryWithHandler(t))
	service.RegisterPlugin(&mockPlugin{
		name: "audit",
		status: framework.PluginStatus{
			Name:      "audit",
			State:     "running",
			LastError: errors.New("connection refused"),
		},
	})

	health := service.GetHealth(context.Background(), false)

	if health.Components["audit"].Error != "connection refused" {
		t.Errorf("error = %q", health.Components["audit"].Error)
	}
	if health.Components["audit"].Status != StatusDown {
		t.Errorf("status = %s, want DOWN", health.Components["audit"].Status)
	}
}

func TestRegistryComponentDetails(t *testing.T) {
	service := NewService(newRegistryWithHandler(t))

	health := service.GetHealth(context.Background(), true)
	component := health.Components["registry"]

	if component.Status != StatusUp {
		t.Errorf("registry status = %s", component.Status)
	}
	if component.Details.HandlerCount != 1 {
		t.Errorf("handler count = %d, want 1", component.Details.HandlerCount)
	}
	if len(component.Details.RegisteredKeys) != 1 || component.Details.RegisteredKeys[0] != "core:nav:click" {
		t.Errorf("registered keys = %v", component.Details.RegisteredKeys)
	}
}

func TestEmptyRegistryWarns(t *testing.T) {
	service := NewService(registry.New())

	health := service.GetHealth(context.Background(), false)
	component := health.Components["registry"]

	if component.Details.Warning != "no handlers registered" {
		t.Errorf("warning = %q", component.Details.Warning)
	}
}

func TestHealthHandler(t *testing.T) {
	service := NewService(newRegistryWithHandler(t))
	service.RegisterPlugin(runningPlugin("analytics"))

	req := httptest.NewRequest("GET", "/health?detailed=true", nil)
	rec := httptest.NewRecorder()
	service.Handler()(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status code = %d", rec.Code)
	}

	var health HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if health.Status != StatusUp {
		t.Errorf("status = %s", health.Status)
	}
	if health.Components["analytics"].Details.State != "running" {
		t.Errorf("detailed analytics state = %q", health.Components["analytics"].Details.State)
	}
}

func TestLivenessHandler(t *testing.T) {
	service := NewService(registry.New())

	req := httptest.NewRequest("GET", "/health/live", nil)
	rec := httptest.NewRecorder()
	service.LivenessHandler()(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status code = %d", rec.Code)
	}

	var response LivenessResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != "alive" {
		t.Errorf("status = %q", response.Status)
	}
}

func TestReadinessHandler(t *testing.T) {
	service := NewService(newRegistryWithHandler(t))
	service.RegisterPlugin(runningPlugin("analytics"))

	req := httptest.NewRequest("GET", "/health/ready", nil)
	rec := httptest.NewRecorder()
	service.ReadinessHandler()(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status code = %d", rec.Code)
	}

	var response ReadinessResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !response.Ready {
		t.Error("expected ready")
	}
}

func TestReadinessHandlerNotReady(t *testing.T) {
	service := NewService(newRegistryWithHandler(t))
	service.RegisterPlugin(&mockPlugin{
		name:   "audit",
		status: framework.PluginStatus{Name: "audit", State: "stopped"},
	})

	req := httptest.NewRequest("GET", "/health/ready", nil)
	rec := httptest.NewRecorder()
	service.ReadinessHandler()(rec, req)

	if rec.Code != 503 {
		t.Fatalf("status code = %d, want 503", rec.Code)
	}

	var response ReadinessResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Ready {
		t.Error("expected not ready")
	}
	if response.Status != StatusDegraded {
		t.Errorf("status = %s, want DEGRADED", response.Status)
	}
}

// customChecker implements Checker for testing
type customChecker struct {
	health ComponentHealth
}

func (c *customChecker) HealthCheck(ctx context.Context) ComponentHealth {
	return c.health
}

func TestCustomChecker(t *testing.T) {
	service := NewService(newRegistryWithHandler(t))
	service.RegisterChecker("database", &customChecker{
		health: ComponentHealth{Name: "database", Status: StatusDown, Error: "timeout"},
	})

	health := service.GetHealth(context.Background(), false)
	if health.Status != StatusDegraded {
		t.Errorf("status = %s, want DEGRADED", health.Status)
	}
	if health.Components["database"].Error != "timeout" {
		t.Errorf("database error = %q", health.Components["database"].Error)
	}
}
