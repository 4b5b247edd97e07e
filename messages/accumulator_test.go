package messages

import (
	"context"
	"os"
	"testing"
	"testing/iotest"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petal-labs/iris-messages/core"
	"github.com/petal-labs/iris-messages/stream"
	"github.com/petal-labs/iris-messages/variant"
)

func replay(t *testing.T, path string) []StreamEvent {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)

	s := stream.New(context.Background(), iotest.OneByteReader(f), StreamEvents)
	defer s.Close()

	var out []StreamEvent
	for s.Next() {
		out = append(out, s.Current())
	}
	require.NoError(t, s.Err())
	require.NoError(t, f.Close())
	return out
}

func TestAccumulatorReplaysTranscript(t *testing.T) {
	events := replay(t, "testdata/tool_use.sse")
	require.Len(t, events, 19)

	var acc Accumulator
	for i, ev := range events {
		require.NoError(t, variant.Validate(ev), "event %d", i)
		require.NoError(t, acc.Add(ev), "event %d", i)
	}
	require.True(t, acc.Done())

	msg, err := acc.Message()
	require.NoError(t, err)

	assert.Equal(t, "msg_014p7gG3wDgGV9EUtLvnow3U", msg.ID)
	assert.Equal(t, StopReasonToolUse, msg.StopReason)
	assert.Equal(t, core.TokenUsage{InputTokens: 472, OutputTokens: 89}, msg.Usage)
	require.Len(t, msg.Content, 3)

	assert.Equal(t, ThinkingBlock{
		Type:      "thinking",
		Thinking:  "The user wants the weather. I should call get_weather.",
		Signature: "EqQBCgIYAhIM1gbcDa9GJwZA2b3hGgxBdjrkzLoky3dl1pkiMOYds",
	}, msg.Content[0].Value)
	assert.Equal(t, "Okay, let me check the weather for San Francisco.", msg.Text())

	tools := msg.ToolUses()
	require.Len(t, tools, 1)
	assert.Equal(t, "get_weather", tools[0].Name)
	assert.JSONEq(t, `{"location":"San Francisco, CA","unit":"fahrenheit"}`, string(tools[0].Input))

	assert.NoError(t, variant.Validate(*msg))
}

func TestAccumulatorCitations(t *testing.T) {
	cite := variant.Of[Citation](CharLocation{Type: "char_location", CitedText: "sky", EndCharIndex: 3})

	var acc Accumulator
	for _, ev := range []StreamEvent{
		MessageStartEvent{Type: "message_start", Message: Message{ID: "m", Type: "message", Role: core.RoleAssistant}},
		ContentBlockStartEvent{Type: "content_block_start", Index: 0, ContentBlock: variant.Of[ContentBlock](TextBlock{Type: "text"})},
		ContentBlockDeltaEvent{Type: "content_block_delta", Index: 0, Delta: variant.Of[BlockDelta](CitationsDelta{Type: "citations_delta", Citation: cite})},
		ContentBlockDeltaEvent{Type: "content_block_delta", Index: 0, Delta: variant.Of[BlockDelta](TextDelta{Type: "text_delta", Text: "The sky is blue."})},
		ContentBlockStopEvent{Type: "content_block_stop", Index: 0},
		MessageStopEvent{Type: "message_stop"},
	} {
		require.NoError(t, acc.Add(ev))
	}

	msg, err := acc.Message()
	require.NoError(t, err)
	assert.Equal(t, TextBlock{
		Type:      "text",
		Text:      "The sky is blue.",
		Citations: []variant.Field[Citation]{cite},
	}, msg.Content[0].Value)
}

func TestAccumulatorPartialText(t *testing.T) {
	var acc Accumulator
	require.NoError(t, acc.Add(MessageStartEvent{Type: "message_start", Message: Message{ID: "m"}}))
	require.NoError(t, acc.Add(ContentBlockStartEvent{Type: "content_block_start", Index: 0, ContentBlock: variant.Of[ContentBlock](TextBlock{Type: "text", Text: "Hel"})}))
	require.NoError(t, acc.Add(ContentBlockDeltaEvent{Type: "content_block_delta", Index: 0, Delta: variant.Of[BlockDelta](TextDelta{Type: "text_delta", Text: "lo"})}))

	assert.Equal(t, "Hello", acc.Text())
	assert.False(t, acc.Done())

	_, err := acc.Message()
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestAccumulatorIgnoresPingAndUnknown(t *testing.T) {
	var acc Accumulator
	unknown, err := StreamEvents.Decode([]byte(`{"type":"future_event"}`))
	require.NoError(t, err)

	require.NoError(t, acc.Add(PingEvent{Type: "ping"}))
	require.NoError(t, acc.Add(unknown))
	assert.False(t, acc.Started())

	require.NoError(t, acc.Add(MessageStartEvent{Type: "message_start", Message: Message{ID: "m"}}))
	require.NoError(t, acc.Add(unknown))
	require.NoError(t, acc.Add(MessageStopEvent{Type: "message_stop"}))
	require.NoError(t, acc.Add(PingEvent{Type: "ping"}))
}

func TestAccumulatorErrorEvent(t *testing.T) {
	var acc Accumulator
	require.NoError(t, acc.Add(MessageStartEvent{Type: "message_start", Message: Message{ID: "msg_9"}}))

	err := acc.Add(ErrorEvent{Type: "error", Error: APIError{Type: "overloaded_error", Message: "Overloaded"}})
	require.ErrorIs(t, err, core.ErrOverloaded)

	var pe *core.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "overloaded_error", pe.Code)
	assert.Equal(t, "Overloaded", pe.Message)
}

func TestAccumulatorRejectsBadSequences(t *testing.T) {
	start := MessageStartEvent{Type: "message_start", Message: Message{ID: "m"}}
	text := func(i int) StreamEvent {
		return ContentBlockStartEvent{Type: "content_block_start", Index: i, ContentBlock: variant.Of[ContentBlock](TextBlock{Type: "text"})}
	}
	tool := func(i int) StreamEvent {
		return ContentBlockStartEvent{Type: "content_block_start", Index: i, ContentBlock: variant.Of[ContentBlock](ToolUseBlock{Type: "tool_use", ID: "t", Name: "f", Input: json.RawMessage(`{}`)})}
	}
	delta := func(i int, d BlockDelta) StreamEvent {
		return ContentBlockDeltaEvent{Type: "content_block_delta", Index: i, Delta: variant.Of(d)}
	}
	stop := func(i int) StreamEvent { return ContentBlockStopEvent{Type: "content_block_stop", Index: i} }
	msgStop := MessageStopEvent{Type: "message_stop"}

	tests := []struct {
		name   string
		events []StreamEvent
		want   error
	}{
		{"block before start", []StreamEvent{text(0)}, ErrEventSequence},
		{"duplicate start", []StreamEvent{start, start}, ErrEventSequence},
		{"index gap", []StreamEvent{start, text(1)}, ErrEventSequence},
		{"repeated index", []StreamEvent{start, text(0), stop(0), text(0)}, ErrEventSequence},
		{"delta for unknown block", []StreamEvent{start, delta(0, TextDelta{Type: "text_delta", Text: "x"})}, ErrEventSequence},
		{"delta after block stop", []StreamEvent{start, text(0), stop(0), delta(0, TextDelta{Type: "text_delta"})}, ErrEventSequence},
		{"json delta on text block", []StreamEvent{start, text(0), delta(0, InputJSONDelta{Type: "input_json_delta", PartialJSON: "{"})}, ErrEventSequence},
		{"text delta on tool block", []StreamEvent{start, tool(0), delta(0, TextDelta{Type: "text_delta", Text: "x"})}, ErrEventSequence},
		{"signature on text block", []StreamEvent{start, text(0), delta(0, SignatureDelta{Type: "signature_delta", Signature: "s"})}, ErrEventSequence},
		{"stop unknown block", []StreamEvent{start, stop(0)}, ErrEventSequence},
		{"message stop with open block", []StreamEvent{start, text(0), msgStop}, ErrEventSequence},
		{"event after message stop", []StreamEvent{start, msgStop, text(0)}, ErrEventSequence},
		{"invalid tool json", []StreamEvent{start, tool(0), delta(0, InputJSONDelta{Type: "input_json_delta", PartialJSON: `{"a":`}), stop(0)}, ErrToolInputInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var acc Accumulator
			var err error
			for _, ev := range tt.events {
				if err = acc.Add(ev); err != nil {
					break
				}
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAccumulatorUnknownDeltaKeepsBlock(t *testing.T) {
	unknown, err := BlockDeltas.Decode([]byte(`{"type":"sparkle_delta","n":1}`))
	require.NoError(t, err)

	var acc Accumulator
	for _, ev := range []StreamEvent{
		MessageStartEvent{Type: "message_start", Message: Message{ID: "m"}},
		ContentBlockStartEvent{Type: "content_block_start", Index: 0, ContentBlock: variant.Of[ContentBlock](TextBlock{Type: "text", Text: "a"})},
		ContentBlockDeltaEvent{Type: "content_block_delta", Index: 0, Delta: variant.Of(unknown)},
		ContentBlockStopEvent{Type: "content_block_stop", Index: 0},
		MessageStopEvent{Type: "message_stop"},
	} {
		require.NoError(t, acc.Add(ev))
	}

	msg, err := acc.Message()
	require.NoError(t, err)
	assert.Equal(t, "a", msg.Text())
}
