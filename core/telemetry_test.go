package core

import (
	"errors"
	"testing"
	"time"
)

// testTelemetryHook is a test implementation that records events.
type testTelemetryHook struct {
	startEvents []RequestStartEvent
	endEvents   []RequestEndEvent
}

func (h *testTelemetryHook) OnRequestStart(e RequestStartEvent) {
	h.startEvents = append(h.startEvents, e)
}

func (h *testTelemetryHook) OnRequestEnd(e RequestEndEvent) {
	h.endEvents = append(h.endEvents, e)
}

func TestRequestEndEventDuration(t *testing.T) {
	start := time.Now()
	event := RequestEndEvent{
		Operation: "messages.new",
		Start:     start,
		End:       start.Add(1500 * time.Millisecond),
	}

	if event.Duration() != 1500*time.Millisecond {
		t.Errorf("Duration() = %v, want 1.5s", event.Duration())
	}
}

func TestNoopTelemetryHookDoesNotPanic(t *testing.T) {
	var hook TelemetryHook = NoopTelemetryHook{}
	hook.OnRequestStart(RequestStartEvent{Operation: "messages.stream", Start: time.Now()})
	hook.OnRequestEnd(RequestEndEvent{Operation: "messages.stream", Err: errors.New("boom")})
}

func TestTelemetryHookReceivesEvents(t *testing.T) {
	hook := &testTelemetryHook{}
	start := time.Now()

	hook.OnRequestStart(RequestStartEvent{Operation: "messages.new", Model: "claude-sonnet-4-5", Start: start})
	hook.OnRequestEnd(RequestEndEvent{
		Operation: "messages.new",
		Model:     "claude-sonnet-4-5",
		RequestID: "req_1",
		Start:     start,
		End:       time.Now(),
		Usage:     TokenUsage{InputTokens: 10, OutputTokens: 5},
	})

	if len(hook.startEvents) != 1 || len(hook.endEvents) != 1 {
		t.Fatalf("events = %d/%d, want 1/1", len(hook.startEvents), len(hook.endEvents))
	}
	if hook.endEvents[0].Usage.Total() != 15 {
		t.Errorf("Usage.Total() = %d, want 15", hook.endEvents[0].Usage.Total())
	}
	if hook.endEvents[0].RequestID != "req_1" {
		t.Errorf("RequestID = %q, want req_1", hook.endEvents[0].RequestID)
	}
}
