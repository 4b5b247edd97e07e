package messages

import (
	"strings"

	"github.com/petal-labs/iris-messages/core"
	"github.com/petal-labs/iris-messages/variant"
)

// StopReason explains why the model stopped generating.
type StopReason string

const (
	StopReasonEndTurn      StopReason = "end_turn"
	StopReasonMaxTokens    StopReason = "max_tokens"
	StopReasonStopSequence StopReason = "stop_sequence"
	StopReasonToolUse      StopReason = "tool_use"
	StopReasonPauseTurn    StopReason = "pause_turn"
	StopReasonRefusal      StopReason = "refusal"
)

func (r StopReason) Validate() error {
	return variant.OneOf("stop_reason", r,
		StopReasonEndTurn,
		StopReasonMaxTokens,
		StopReasonStopSequence,
		StopReasonToolUse,
		StopReasonPauseTurn,
		StopReasonRefusal,
	)
}

// Message is a complete model response.
type Message struct {
	ID           string                        `json:"id"`
	Type         string                        `json:"type"`
	Role         core.Role                     `json:"role"`
	Model        core.ModelID                  `json:"model"`
	Content      []variant.Field[ContentBlock] `json:"content"`
	StopReason   StopReason                    `json:"stop_reason,omitempty"`
	StopSequence *string                       `json:"stop_sequence,omitempty"`
	Usage        core.TokenUsage               `json:"usage"`
}

func (m Message) Validate() error {
	var stop error
	if m.StopReason != "" {
		stop = m.StopReason.Validate()
	}
	return variant.First(
		variant.OneOf("type", m.Type, "message"),
		variant.Required("id", m.ID != ""),
		variant.OneOf("role", m.Role, core.RoleAssistant),
		variant.Each("content", m.Content),
		stop,
	)
}

// Text concatenates the text of every TextBlock.
func (m Message) Text() string {
	var b strings.Builder
	for _, f := range m.Content {
		if t, ok := f.Value.(TextBlock); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// ToolUses returns the tool calls the model requested, in order.
func (m Message) ToolUses() []ToolUseBlock {
	var out []ToolUseBlock
	for _, f := range m.Content {
		if t, ok := f.Value.(ToolUseBlock); ok {
			out = append(out, t)
		}
	}
	return out
}
