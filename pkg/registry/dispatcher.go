package registry

import (
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mainul35/dynamic-site-builder/internal/metrics"
)

const (
	msgNoHandlers  = "no handlers registered"
	msgAsyncQueued = "queued for async execution"
)

// Dispatch resolves and executes the handler chain for one event occurrence
// and returns the aggregated outcome. Handler misbehavior — an error return,
// a panic — is captured and folded into the result's status and error list;
// it never propagates out of Dispatch. A dispatch with no matching handlers
// returns success with an informational message.
func (r *Registry) Dispatch(pluginID, componentID, eventType string, ctx *EventContext) *EventResult {
	timer := prometheus.NewTimer(metrics.DispatchDuration.WithLabelValues(componentID, eventType))
	defer timer.ObserveDuration()
	metrics.Dispatches.WithLabelValues(componentID, eventType).Inc()

	if ctx == nil {
		ctx = NewEventContext(pluginID, componentID, eventType, nil)
	}

	chain := r.Resolve(pluginID, componentID, eventType)
	if len(chain) == 0 {
		return Success(msgNoHandlers)
	}

	outcomes := make([]*EventResult, 0, len(chain))
	for _, entry := range chain {
		if entry.Async {
			r.invokeAsync(entry, ctx)
			outcomes = append(outcomes, Success(msgAsyncQueued))
			continue
		}

		outcome := invokeSafely(entry, ctx)
		outcomes = append(outcomes, outcome)

		stop := false
		switch outcome.Status {
		case StatusSuccess:
			stop = !entry.ContinueOnSuccess
		case StatusFailure:
			metrics.HandlerFailures.WithLabelValues(componentID, eventType).Inc()
			stop = !entry.ContinueOnError
		default:
			// A partial outcome ends the chain.
			stop = true
		}
		if stop {
			break
		}
	}
	return Aggregate(outcomes)
}

// invokeAsync detaches the invocation from the dispatch loop. The dispatch
// caller never waits on it and never sees its outcome; failures go to the
// operational log only. Once submitted the handler is never cancelled.
func (r *Registry) invokeAsync(entry *HandlerEntry, ctx *EventContext) {
	metrics.AsyncHandlersQueued.Inc()
	go func() {
		defer metrics.AsyncHandlersQueued.Dec()
		outcome := invokeSafely(entry, ctx)
		if outcome.Status == StatusFailure {
			metrics.HandlerFailures.WithLabelValues(entry.ComponentID, entry.EventType).Inc()
			log.Printf("[Registry] Async handler for %s failed: %s", entry.Key(), outcome.Message)
		}
	}()
}

// invokeSafely runs one handler, converting a panic into a failure outcome
// and a nil return into an implicit bare success.
func invokeSafely(entry *HandlerEntry, ctx *EventContext) (outcome *EventResult) {
	defer func() {
		if rec := recover(); rec != nil {
			outcome = Failure(fmt.Sprintf("handler panic: %v", rec))
		}
	}()

	outcome = entry.invoke(ctx)
	if outcome == nil {
		outcome = Success("")
	}
	return outcome
}
