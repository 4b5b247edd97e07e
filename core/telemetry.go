package core

import "time"

// TelemetryHook receives notifications about request lifecycle events.
// Implementations can use this for logging, metrics, tracing, etc.
//
// # Security Considerations
//
// Event types never carry API keys, prompt content or model output. Only
// operational metadata is exposed (operation, model, timing, token counts), so
// events can be logged or exported without review of their payload.
// Keep it that way when adding fields.
type TelemetryHook interface {
	// OnRequestStart is called before each attempt of a request.
	OnRequestStart(e RequestStartEvent)

	// OnRequestEnd is called when an attempt completes. For streaming calls
	// this fires once the response headers are in; Usage is zero.
	OnRequestEnd(e RequestEndEvent)
}

// RequestStartEvent contains metadata about a starting request.
type RequestStartEvent struct {
	Operation string    // "messages.new" or "messages.stream"
	Model     ModelID   // Model being called
	Attempt   int       // 0 for the first try
	Start     time.Time // When the attempt started
}

// RequestEndEvent contains metadata about a completed request attempt.
// Err carries the classified error (a ProviderError or sentinel), never a raw
// response body.
type RequestEndEvent struct {
	Operation string
	Model     ModelID
	Attempt   int
	RequestID string // server request-id header, if any
	Start     time.Time
	End       time.Time
	Usage     TokenUsage
	Err       error
}

// Duration returns the elapsed time for the request.
func (e RequestEndEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// NoopTelemetryHook is a no-op implementation of TelemetryHook.
type NoopTelemetryHook struct{}

// OnRequestStart does nothing.
func (NoopTelemetryHook) OnRequestStart(RequestStartEvent) {}

// OnRequestEnd does nothing.
func (NoopTelemetryHook) OnRequestEnd(RequestEndEvent) {}

var _ TelemetryHook = NoopTelemetryHook{}
