package messages

import (
	"github.com/petal-labs/iris-messages/core"
	"github.com/petal-labs/iris-messages/variant"
)

// StreamEvent is one event of a streaming response.
//
// A well-formed stream is message_start, then for each content block a
// content_block_start, any number of content_block_delta and a
// content_block_stop, then message_delta and message_stop. ping may appear
// anywhere; error ends the stream.
type StreamEvent interface {
	isStreamEvent()
}

// StreamEvents is the union for StreamEvent.
var StreamEvents = variant.Register(variant.Extensible("StreamEvent", "type",
	func(u variant.Unknown) StreamEvent { return UnknownStreamEvent{u} },
	variant.Struct[MessageStartEvent, StreamEvent]("message_start"),
	variant.Struct[MessageDeltaEvent, StreamEvent]("message_delta"),
	variant.Struct[MessageStopEvent, StreamEvent]("message_stop"),
	variant.Struct[ContentBlockStartEvent, StreamEvent]("content_block_start"),
	variant.Struct[ContentBlockDeltaEvent, StreamEvent]("content_block_delta"),
	variant.Struct[ContentBlockStopEvent, StreamEvent]("content_block_stop"),
	variant.Struct[PingEvent, StreamEvent]("ping"),
	variant.Struct[ErrorEvent, StreamEvent]("error"),
))

// MessageStartEvent opens the stream with an empty message shell.
type MessageStartEvent struct {
	Type    string  `json:"type"`
	Message Message `json:"message"`
}

func (MessageStartEvent) isStreamEvent() {}

func (e MessageStartEvent) Validate() error {
	return variant.First(
		variant.OneOf("type", e.Type, "message_start"),
		variant.Nested("message", e.Message),
	)
}

// MessageDeltaEvent carries top-level changes near the end of the stream.
// Usage token counts are cumulative.
type MessageDeltaEvent struct {
	Type  string          `json:"type"`
	Delta MessageDelta    `json:"delta"`
	Usage core.TokenUsage `json:"usage"`
}

func (MessageDeltaEvent) isStreamEvent() {}

func (e MessageDeltaEvent) Validate() error {
	return variant.First(
		variant.OneOf("type", e.Type, "message_delta"),
		variant.Nested("delta", e.Delta),
	)
}

// MessageDelta is the body of a MessageDeltaEvent.
type MessageDelta struct {
	StopReason   StopReason `json:"stop_reason,omitempty"`
	StopSequence *string    `json:"stop_sequence,omitempty"`
}

func (d MessageDelta) Validate() error {
	if d.StopReason == "" {
		return nil
	}
	return d.StopReason.Validate()
}

// MessageStopEvent ends a successful stream.
type MessageStopEvent struct {
	Type string `json:"type"`
}

func (MessageStopEvent) isStreamEvent() {}

func (e MessageStopEvent) Validate() error {
	return variant.OneOf("type", e.Type, "message_stop")
}

// ContentBlockStartEvent opens the block at Index.
type ContentBlockStartEvent struct {
	Type         string                      `json:"type"`
	Index        int                         `json:"index"`
	ContentBlock variant.Field[ContentBlock] `json:"content_block"`
}

func (ContentBlockStartEvent) isStreamEvent() {}

func (e ContentBlockStartEvent) Validate() error {
	return variant.First(
		variant.OneOf("type", e.Type, "content_block_start"),
		indexCheck(e.Index),
		variant.Nested("content_block", e.ContentBlock),
	)
}

// ContentBlockDeltaEvent updates the block at Index.
type ContentBlockDeltaEvent struct {
	Type  string                    `json:"type"`
	Index int                       `json:"index"`
	Delta variant.Field[BlockDelta] `json:"delta"`
}

func (ContentBlockDeltaEvent) isStreamEvent() {}

func (e ContentBlockDeltaEvent) Validate() error {
	return variant.First(
		variant.OneOf("type", e.Type, "content_block_delta"),
		indexCheck(e.Index),
		variant.Nested("delta", e.Delta),
	)
}

// ContentBlockStopEvent closes the block at Index.
type ContentBlockStopEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

func (ContentBlockStopEvent) isStreamEvent() {}

func (e ContentBlockStopEvent) Validate() error {
	return variant.First(
		variant.OneOf("type", e.Type, "content_block_stop"),
		indexCheck(e.Index),
	)
}

// PingEvent is a keep-alive.
type PingEvent struct {
	Type string `json:"type"`
}

func (PingEvent) isStreamEvent() {}

func (e PingEvent) Validate() error {
	return variant.OneOf("type", e.Type, "ping")
}

// ErrorEvent reports a failure after the response started, e.g. overload.
type ErrorEvent struct {
	Type  string   `json:"type"`
	Error APIError `json:"error"`
}

func (ErrorEvent) isStreamEvent() {}

func (e ErrorEvent) Validate() error {
	return variant.First(
		variant.OneOf("type", e.Type, "error"),
		variant.Required("error.type", e.Error.Type != ""),
	)
}

// APIError is the error object of an error envelope or ErrorEvent.
type APIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// UnknownStreamEvent is an event type this client does not know.
type UnknownStreamEvent struct{ variant.Unknown }

func (UnknownStreamEvent) isStreamEvent() {}

func indexCheck(index int) error {
	if index < 0 {
		return variant.Invalid("index", "must not be negative")
	}
	return nil
}
