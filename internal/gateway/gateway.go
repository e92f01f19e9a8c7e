package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mainul35/dynamic-site-builder/internal/logger"
	"github.com/mainul35/dynamic-site-builder/internal/metrics"
	"github.com/mainul35/dynamic-site-builder/pkg/registry"
)

// Server terminates builder connections: a websocket endpoint that streams
// interaction events in and aggregated results back out, plus a plain HTTP
// dispatch endpoint for one-shot callers.
type Server struct {
	registry *registry.Registry
	upgrader websocket.Upgrader
}

// EventEnvelope is one builder interaction event received from a client.
type EventEnvelope struct {
	PluginID      string         `json:"plugin_id,omitempty"`
	ComponentID   string         `json:"component_id"`
	EventType     string         `json:"event_type"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// ResultEnvelope pairs an aggregated dispatch result with its correlation ID.
type ResultEnvelope struct {
	CorrelationID string                `json:"correlation_id"`
	Result        *registry.EventResult `json:"result"`
}

// NewServer creates a gateway bound to a handler registry. allowedOrigins
// restricts websocket upgrades; empty allows any origin.
func NewServer(reg *registry.Registry, allowedOrigins []string) *Server {
	s := &Server{registry: reg}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
	return s
}

// Handler returns the gateway's HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/dispatch", s.handleDispatch)
	return mux
}

// handleWebSocket upgrades the connection and serves the event loop: read an
// envelope, dispatch it, write the result. Reads and writes share one
// goroutine, so no write lock is needed.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("gateway", "Websocket upgrade failed: %v", err)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Debug("gateway", "Close failed: %v", err)
		}
	}()

	metrics.GatewayConnections.Inc()
	defer metrics.GatewayConnections.Dec()
	logger.Info("gateway", "Builder connected from %s", conn.RemoteAddr())

	for {
		var envelope EventEnvelope
		if err := conn.ReadJSON(&envelope); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("gateway", "Read error: %v", err)
			}
			return
		}
		metrics.GatewayMessages.WithLabelValues("in").Inc()

		response := s.dispatch(&envelope)
		if err := conn.WriteJSON(response); err != nil {
			logger.Warn("gateway", "Write error: %v", err)
			return
		}
		metrics.GatewayMessages.WithLabelValues("out").Inc()
	}
}

// handleDispatch serves one-shot dispatches over plain HTTP POST.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var envelope EventEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		http.Error(w, "malformed event envelope", http.StatusBadRequest)
		return
	}
	metrics.GatewayMessages.WithLabelValues("in").Inc()

	response := s.dispatch(&envelope)

	w.Header().Set("Content-Type", "application/json")
	if response.Result.Status == registry.StatusFailure {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Warn("gateway", "Encode error: %v", err)
		return
	}
	metrics.GatewayMessages.WithLabelValues("out").Inc()
}

// dispatch validates an envelope and runs it through the registry. Envelope
// problems come back as failure results, not transport errors, so the
// builder UI has one result shape to handle.
func (s *Server) dispatch(envelope *EventEnvelope) ResultEnvelope {
	correlationID := envelope.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	if envelope.ComponentID == "" || envelope.EventType == "" {
		return ResultEnvelope{
			CorrelationID: correlationID,
			Result:        registry.Failure("event envelope requires component_id and event_type"),
		}
	}

	ctx := registry.NewEventContext(envelope.PluginID, envelope.ComponentID, envelope.EventType, envelope.Payload).
		WithCorrelationID(correlationID)

	start := time.Now()
	result := s.registry.Dispatch(envelope.PluginID, envelope.ComponentID, envelope.EventType, ctx)
	logger.Debug("gateway", "Dispatched %s/%s/%s in %s (status=%s)",
		envelope.PluginID, envelope.ComponentID, envelope.EventType, time.Since(start), result.Status)

	return ResultEnvelope{CorrelationID: correlationID, Result: result}
}
