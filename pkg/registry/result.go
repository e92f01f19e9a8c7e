package registry

// ResultStatus is the tri-state outcome of a handler invocation or of an
// aggregated dispatch.
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusPartial ResultStatus = "partial"
	StatusFailure ResultStatus = "failure"
)

// Command is a queued builder command produced by a handler (e.g. "refresh",
// "navigate") and executed by the host after dispatch completes.
type Command struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// EventResult is the outcome of one handler invocation, or of a whole
// dispatch once aggregated. Beyond Status the registry treats every field as
// opaque handler payload.
type EventResult struct {
	Status  ResultStatus   `json:"status"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Errors  []string       `json:"errors,omitempty"`

	// Side-channel updates consumed by the builder UI.
	PropertyUpdates map[string]any `json:"property_updates,omitempty"`
	StyleUpdates    map[string]any `json:"style_updates,omitempty"`
	Commands        []Command      `json:"commands,omitempty"`

	// BroadcastEvents requests follow-up events keyed by event name. Each
	// value must be a map payload; anything else is dropped during merge.
	BroadcastEvents map[string]any `json:"broadcast_events,omitempty"`
}

// Success returns a success outcome with an optional message.
func Success(message string) *EventResult {
	return &EventResult{Status: StatusSuccess, Message: message}
}

// SuccessWithData returns a success outcome carrying a data payload.
func SuccessWithData(message string, data map[string]any) *EventResult {
	return &EventResult{Status: StatusSuccess, Message: message, Data: data}
}

// Failure returns a failure outcome whose message is also recorded in the
// error list, so it survives aggregation.
func Failure(message string) *EventResult {
	return &EventResult{Status: StatusFailure, Message: message, Errors: []string{message}}
}

// Aggregate folds an ordered list of per-handler outcomes into the single
// result returned to the dispatch caller. Zero outcomes yield a bare
// success; a single outcome is returned unchanged. For multiple outcomes the
// combined status is partial when both failures and successes are present,
// failure when only failures are, and success otherwise; a partial input
// counts as both. Map fields merge last-write-wins in outcome order, error
// messages and commands append in order.
func Aggregate(outcomes []*EventResult) *EventResult {
	switch len(outcomes) {
	case 0:
		return Success("")
	case 1:
		return outcomes[0]
	}

	var hasSuccess, hasFailure bool
	for _, o := range outcomes {
		switch o.Status {
		case StatusSuccess:
			hasSuccess = true
		case StatusFailure:
			hasFailure = true
		case StatusPartial:
			hasSuccess, hasFailure = true, true
		}
	}

	combined := &EventResult{Status: StatusSuccess}
	switch {
	case hasFailure && hasSuccess:
		combined.Status = StatusPartial
	case hasFailure:
		combined.Status = StatusFailure
	}

	for _, o := range outcomes {
		combined.Data = mergeMap(combined.Data, o.Data)
		combined.Errors = append(combined.Errors, o.Errors...)
		combined.PropertyUpdates = mergeMap(combined.PropertyUpdates, o.PropertyUpdates)
		combined.StyleUpdates = mergeMap(combined.StyleUpdates, o.StyleUpdates)
		combined.Commands = append(combined.Commands, o.Commands...)
		combined.BroadcastEvents = mergeBroadcasts(combined.BroadcastEvents, o.BroadcastEvents)
	}
	return combined
}

// mergeMap copies src into dst, later keys overwriting earlier ones.
func mergeMap(dst, src map[string]any) map[string]any {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// mergeBroadcasts merges broadcast requests by event name. Values must be
// map payloads; non-map values are silently dropped.
func mergeBroadcasts(dst, src map[string]any) map[string]any {
	if len(src) == 0 {
		return dst
	}
	for name, payload := range src {
		pm, ok := payload.(map[string]any)
		if !ok {
			continue
		}
		if dst == nil {
			dst = make(map[string]any)
		}
		if existing, ok := dst[name].(map[string]any); ok {
			for k, v := range pm {
				existing[k] = v
			}
		} else {
			merged := make(map[string]any, len(pm))
			for k, v := range pm {
				merged[k] = v
			}
			dst[name] = merged
		}
	}
	return dst
}
