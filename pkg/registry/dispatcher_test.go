package registry

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatchNoHandlers(t *testing.T) {
	reg := New()

	result := reg.Dispatch("", "nav", "click", nil)
	if result.Status != StatusSuccess {
		t.Fatalf("status = %s, want success", result.Status)
	}
	if result.Message != "no handlers registered" {
		t.Errorf("message = %q", result.Message)
	}
	if len(result.Errors) != 0 {
		t.Errorf("errors = %v, want none", result.Errors)
	}
}

func TestDispatchPanicBecomesFailure(t *testing.T) {
	reg := New()
	register(t, reg, "", DefaultSpec("nav", "click", func(ctx *EventContext) *EventResult {
		panic("handler exploded")
	}))

	result := reg.Dispatch("", "nav", "click", nil)
	if result.Status != StatusFailure {
		t.Fatalf("status = %s, want failure", result.Status)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "handler exploded") {
		t.Errorf("errors = %v", result.Errors)
	}
}

func TestDispatchHaltsOnErrorByDefault(t *testing.T) {
	reg := New()
	var invocations int32

	failing := DefaultSpec("nav", "click", func(ctx *EventContext) *EventResult {
		atomic.AddInt32(&invocations, 1)
		return Failure("boom")
	})
	failing.Priority = 10

	after := DefaultSpec("nav", "click", func(ctx *EventContext) *EventResult {
		atomic.AddInt32(&invocations, 1)
		return Success("")
	})
	after.Priority = 1

	register(t, reg, "", failing)
	register(t, reg, "", after)

	result := reg.Dispatch("", "nav", "click", nil)
	if got := atomic.LoadInt32(&invocations); got != 1 {
		t.Errorf("invocations = %d, want 1 (chain must halt)", got)
	}
	if result.Status != StatusFailure {
		t.Errorf("status = %s, want failure", result.Status)
	}
}

func TestDispatchContinuesOnErrorWhenAllowed(t *testing.T) {
	reg := New()

	failing := DefaultSpec("btn", "submit", func(ctx *EventContext) *EventResult {
		return Failure("C always fails")
	})
	failing.Priority = 10
	failing.ContinueOnError = true

	succeeding := DefaultSpec("btn", "submit", func(ctx *EventContext) *EventResult {
		return SuccessWithData("", map[string]any{"saved": true})
	})
	succeeding.Priority = 1

	register(t, reg, "p1", failing)
	register(t, reg, "p1", succeeding)

	result := reg.Dispatch("p1", "btn", "submit", nil)
	if result.Status != StatusPartial {
		t.Fatalf("status = %s, want partial", result.Status)
	}
	if len(result.Errors) != 1 || result.Errors[0] != "C always fails" {
		t.Errorf("errors = %v", result.Errors)
	}
	if saved, ok := result.Data["saved"].(bool); !ok || !saved {
		t.Errorf("data = %v, want saved=true", result.Data)
	}
}

func TestDispatchStopsWhenContinueOnSuccessFalse(t *testing.T) {
	reg := New()
	var order []string

	terminal := DefaultSpec("nav", "click", appendingHandler(&order, "terminal"))
	terminal.Priority = 10
	terminal.ContinueOnSuccess = false

	never := DefaultSpec("nav", "click", appendingHandler(&order, "never"))
	never.Priority = 1

	register(t, reg, "", terminal)
	register(t, reg, "", never)

	result := reg.Dispatch("", "nav", "click", nil)
	if fmt.Sprint(order) != fmt.Sprint([]string{"terminal"}) {
		t.Errorf("execution order = %v, want [terminal]", order)
	}
	// The stopping handler's own outcome is still included.
	if result.Status != StatusSuccess || result.Message != "terminal" {
		t.Errorf("result = %+v", result)
	}
}

func TestDispatchAsyncReturnsImmediately(t *testing.T) {
	reg := New()
	done := make(chan struct{})

	slow := DefaultSpec("export", "generate", func(ctx *EventContext) *EventResult {
		time.Sleep(300 * time.Millisecond)
		close(done)
		return Success("")
	})
	slow.Async = true
	register(t, reg, "", slow)

	start := time.Now()
	result := reg.Dispatch("", "export", "generate", nil)
	elapsed := time.Since(start)

	if elapsed > 100*time.Millisecond {
		t.Errorf("dispatch blocked for %s on an async handler", elapsed)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("status = %s, want success", result.Status)
	}
	if result.Message != "queued for async execution" {
		t.Errorf("message = %q", result.Message)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async handler never ran")
	}
}

func TestDispatchAsyncFailureNotSurfaced(t *testing.T) {
	reg := New()
	ran := make(chan struct{})

	failing := DefaultSpec("export", "generate", func(ctx *EventContext) *EventResult {
		defer close(ran)
		return Failure("async boom")
	})
	failing.Async = true
	register(t, reg, "", failing)

	result := reg.Dispatch("", "export", "generate", nil)
	if result.Status != StatusSuccess {
		t.Errorf("status = %s, want success: async failures stay out of the caller's result", result.Status)
	}
	if len(result.Errors) != 0 {
		t.Errorf("errors = %v, want none", result.Errors)
	}

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("async handler never ran")
	}
}

func TestDispatchAsyncDoesNotBreakChain(t *testing.T) {
	reg := New()
	var order []string
	ran := make(chan struct{})

	async := DefaultSpec("nav", "click", func(ctx *EventContext) *EventResult {
		defer close(ran)
		return Failure("detached failure")
	})
	async.Priority = 10
	async.Async = true

	sync := DefaultSpec("nav", "click", appendingHandler(&order, "sync"))
	sync.Priority = 1

	register(t, reg, "", async)
	register(t, reg, "", sync)

	result := reg.Dispatch("", "nav", "click", nil)
	if fmt.Sprint(order) != fmt.Sprint([]string{"sync"}) {
		t.Errorf("execution order = %v, want [sync]", order)
	}
	if result.Status != StatusSuccess {
		t.Errorf("status = %s, want success", result.Status)
	}

	<-ran
}

func TestDispatchFutureHandlerBlocksUntilResolved(t *testing.T) {
	reg := New()
	register(t, reg, "", DefaultSpec("export", "generate", func(ctx *EventContext) <-chan *EventResult {
		ch := make(chan *EventResult, 1)
		go func() {
			time.Sleep(50 * time.Millisecond)
			ch <- SuccessWithData("done", map[string]any{"pages": 3})
		}()
		return ch
	}))

	result := reg.Dispatch("", "export", "generate", nil)
	if result.Status != StatusSuccess || result.Message != "done" {
		t.Fatalf("result = %+v", result)
	}
	if result.Data["pages"] != 3 {
		t.Errorf("data = %v", result.Data)
	}
}

func TestDispatchGeneratesContextWhenNil(t *testing.T) {
	reg := New()
	var captured *EventContext
	register(t, reg, "forms", DefaultSpec("contact", "submit", func(ctx *EventContext) {
		captured = ctx
	}))

	reg.Dispatch("forms", "contact", "submit", nil)
	if captured == nil {
		t.Fatal("handler did not receive a context")
	}
	if captured.PluginID != "forms" || captured.ComponentID != "contact" || captured.EventType != "submit" {
		t.Errorf("context coordinates = %s/%s/%s", captured.PluginID, captured.ComponentID, captured.EventType)
	}
	if captured.CorrelationID == "" {
		t.Error("context has no correlation ID")
	}
}
