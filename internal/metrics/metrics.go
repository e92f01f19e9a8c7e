package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registry metrics
	Dispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitebuilder_registry_dispatches_total",
			Help: "Total number of event dispatches through the handler registry",
		},
		[]string{"component", "event_type"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sitebuilder_registry_dispatch_duration_seconds",
			Help:    "Duration of event dispatches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"component", "event_type"},
	)

	HandlerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitebuilder_registry_handler_failures_total",
			Help: "Total number of handler invocations that produced a failure outcome",
		},
		[]string{"component", "event_type"},
	)

	HandlersRegistered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sitebuilder_registry_handlers_registered",
			Help: "Number of handlers currently registered",
		},
	)

	AsyncHandlersQueued = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sitebuilder_registry_async_handlers_queued",
			Help: "Number of async handler invocations currently in flight",
		},
	)

	// Plugin metrics
	PluginStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sitebuilder_plugin_status",
			Help: "Current status of plugins (1=running, 0=stopped)",
		},
		[]string{"plugin_name"},
	)

	PluginEventsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitebuilder_plugin_events_handled_total",
			Help: "Total number of events handled by each plugin",
		},
		[]string{"plugin_name"},
	)

	PluginErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitebuilder_plugin_errors_total",
			Help: "Total number of errors encountered by plugins",
		},
		[]string{"plugin_name"},
	)

	// Gateway metrics
	GatewayConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sitebuilder_gateway_connections",
			Help: "Number of open builder websocket connections",
		},
	)

	GatewayMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitebuilder_gateway_messages_total",
			Help: "Total number of gateway messages by direction",
		},
		[]string{"direction"}, // "in" or "out"
	)

	// Audit metrics
	AuditWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sitebuilder_audit_writes_total",
			Help: "Total number of audit records written",
		},
	)

	AuditErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sitebuilder_audit_errors_total",
			Help: "Total number of audit write errors",
		},
	)

	// Health check metrics
	HealthCheckRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitebuilder_health_check_requests_total",
			Help: "Total number of health check requests",
		},
		[]string{"endpoint", "status"},
	)

	// General application metrics
	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sitebuilder_uptime_seconds",
			Help: "Uptime of the site-builder host in seconds",
		},
	)
)

// UpdatePluginMetrics updates metrics for a specific plugin.
func UpdatePluginMetrics(pluginName string, running bool, eventsHandled int64, errors int64) {
	if running {
		PluginStatus.WithLabelValues(pluginName).Set(1)
	} else {
		PluginStatus.WithLabelValues(pluginName).Set(0)
	}

	PluginEventsHandled.WithLabelValues(pluginName).Add(float64(eventsHandled))
	PluginErrors.WithLabelValues(pluginName).Add(float64(errors))
}
