package messages

import (
	"errors"
	"fmt"
	"strings"

	"github.com/petal-labs/iris-messages/core"
	"github.com/petal-labs/iris-messages/internal/normalize"
	"github.com/petal-labs/iris-messages/internal/toolcalls"
	"github.com/petal-labs/iris-messages/variant"
)

var (
	// ErrEventSequence is returned by Accumulator.Add for events that do not
	// fit the stream protocol: gaps in block indexes, deltas for blocks that
	// are not open, deltas of the wrong kind, or anything after message_stop.
	ErrEventSequence = errors.New("messages: invalid event sequence")

	// ErrToolInputInvalidJSON is returned when streamed tool input does not
	// assemble into valid JSON.
	ErrToolInputInvalidJSON = errors.New("messages: tool input invalid json")

	// ErrIncomplete is returned by Accumulator.Message before message_stop.
	ErrIncomplete = errors.New("messages: stream incomplete")
)

// Accumulator folds stream events into the Message they describe.
//
//	var acc messages.Accumulator
//	for s.Next() {
//	    if err := acc.Add(s.Current()); err != nil {
//	        return err
//	    }
//	}
//	msg, err := acc.Message()
//
// It fails fast: the first out-of-order event is an error and the
// accumulator should be discarded. ping and unknown events are ignored.
// An Accumulator is not safe for concurrent use.
type Accumulator struct {
	msg     Message
	started bool
	stopped bool

	blocks []ContentBlock
	open   map[int]bool
	text   map[int]*strings.Builder
	tools  *toolcalls.Assembler
}

// Add folds one event.
func (a *Accumulator) Add(ev StreamEvent) error {
	switch ev := ev.(type) {
	case PingEvent, UnknownStreamEvent:
		return nil
	case ErrorEvent:
		return normalize.StreamError(providerName, "", ev.Error.Type, ev.Error.Message)
	case MessageStartEvent:
		if a.started {
			return sequenceError("duplicate message_start")
		}
		a.start(ev.Message)
		return nil
	}

	if !a.started {
		return sequenceError(fmt.Sprintf("%s before message_start", eventName(ev)))
	}
	if a.stopped {
		return sequenceError(fmt.Sprintf("%s after message_stop", eventName(ev)))
	}

	switch ev := ev.(type) {
	case ContentBlockStartEvent:
		return a.startBlock(ev)
	case ContentBlockDeltaEvent:
		return a.applyDelta(ev)
	case ContentBlockStopEvent:
		return a.stopBlock(ev.Index)
	case MessageDeltaEvent:
		a.msg.StopReason = ev.Delta.StopReason
		a.msg.StopSequence = ev.Delta.StopSequence
		mergeUsage(&a.msg.Usage, ev.Usage)
		return nil
	case MessageStopEvent:
		if idx := a.openIndexes(); len(idx) > 0 {
			return sequenceError(fmt.Sprintf("message_stop with open blocks %v", idx))
		}
		a.stopped = true
		return nil
	default:
		return sequenceError(fmt.Sprintf("unhandled event %T", ev))
	}
}

// Started reports whether message_start has been seen.
func (a *Accumulator) Started() bool { return a.started }

// Done reports whether message_stop has been seen.
func (a *Accumulator) Done() bool { return a.stopped }

// Text returns the text accumulated so far, including open blocks.
func (a *Accumulator) Text() string {
	var b strings.Builder
	for i, blk := range a.blocks {
		if _, ok := blk.(TextBlock); !ok {
			continue
		}
		if sb, ok := a.text[i]; ok {
			b.WriteString(sb.String())
		} else {
			b.WriteString(blk.(TextBlock).Text)
		}
	}
	return b.String()
}

// Message returns the assembled message once message_stop has been seen.
func (a *Accumulator) Message() (*Message, error) {
	if !a.stopped {
		return nil, ErrIncomplete
	}
	msg := a.msg
	msg.Content = make([]variant.Field[ContentBlock], len(a.blocks))
	for i, blk := range a.blocks {
		msg.Content[i] = variant.Of(blk)
	}
	return &msg, nil
}

func (a *Accumulator) start(m Message) {
	a.started = true
	a.msg = m
	a.open = make(map[int]bool)
	a.text = make(map[int]*strings.Builder)
	a.tools = toolcalls.NewAssembler(toolcalls.Config{EmptyInputJSON: "{}"})

	for _, f := range m.Content {
		a.blocks = append(a.blocks, f.Value)
	}
	a.msg.Content = nil
}

func (a *Accumulator) startBlock(ev ContentBlockStartEvent) error {
	if ev.Index != len(a.blocks) {
		return sequenceError(fmt.Sprintf("content_block_start for index %d, expected %d", ev.Index, len(a.blocks)))
	}
	blk := ev.ContentBlock.Value
	if blk == nil {
		return sequenceError(fmt.Sprintf("content_block_start %d has no block", ev.Index))
	}

	switch b := blk.(type) {
	case TextBlock:
		sb := &strings.Builder{}
		sb.WriteString(b.Text)
		a.text[ev.Index] = sb
	case ThinkingBlock:
		sb := &strings.Builder{}
		sb.WriteString(b.Thinking)
		a.text[ev.Index] = sb
	case ToolUseBlock:
		a.tools.StartCall(ev.Index, b.ID, b.Name)
		if seed := string(b.Input); seed != "" && seed != "{}" {
			_ = a.tools.AddInput(ev.Index, seed)
		}
	}

	a.blocks = append(a.blocks, blk)
	a.open[ev.Index] = true
	return nil
}

func (a *Accumulator) applyDelta(ev ContentBlockDeltaEvent) error {
	if !a.open[ev.Index] {
		return sequenceError(fmt.Sprintf("content_block_delta for block %d which is not open", ev.Index))
	}
	blk := a.blocks[ev.Index]

	switch d := ev.Delta.Value.(type) {
	case TextDelta:
		if _, ok := blk.(TextBlock); !ok {
			return mismatch(ev.Index, "text_delta", blk)
		}
		a.text[ev.Index].WriteString(d.Text)
	case CitationsDelta:
		tb, ok := blk.(TextBlock)
		if !ok {
			return mismatch(ev.Index, "citations_delta", blk)
		}
		tb.Citations = append(tb.Citations, d.Citation)
		a.blocks[ev.Index] = tb
	case InputJSONDelta:
		if _, ok := blk.(ToolUseBlock); !ok {
			return mismatch(ev.Index, "input_json_delta", blk)
		}
		if err := a.tools.AddInput(ev.Index, d.PartialJSON); err != nil {
			return fmt.Errorf("%w: %w", ErrEventSequence, err)
		}
	case ThinkingDelta:
		if _, ok := blk.(ThinkingBlock); !ok {
			return mismatch(ev.Index, "thinking_delta", blk)
		}
		a.text[ev.Index].WriteString(d.Thinking)
	case SignatureDelta:
		tb, ok := blk.(ThinkingBlock)
		if !ok {
			return mismatch(ev.Index, "signature_delta", blk)
		}
		tb.Signature = d.Signature
		a.blocks[ev.Index] = tb
	case UnknownDelta:
		// Unknown delta kinds cannot be applied; the block keeps what it has.
	default:
		return sequenceError(fmt.Sprintf("content_block_delta %d has no delta", ev.Index))
	}
	return nil
}

func (a *Accumulator) stopBlock(index int) error {
	if !a.open[index] {
		return sequenceError(fmt.Sprintf("content_block_stop for block %d which is not open", index))
	}
	delete(a.open, index)

	switch b := a.blocks[index].(type) {
	case TextBlock:
		b.Text = a.text[index].String()
		delete(a.text, index)
		a.blocks[index] = b
	case ThinkingBlock:
		b.Thinking = a.text[index].String()
		delete(a.text, index)
		a.blocks[index] = b
	case ToolUseBlock:
		call, err := a.tools.Finish(index)
		if err != nil {
			if errors.Is(err, toolcalls.ErrInvalidJSON) {
				return fmt.Errorf("%w: %w", ErrToolInputInvalidJSON, err)
			}
			return fmt.Errorf("%w: %w", ErrEventSequence, err)
		}
		b.Input = call.Input
		a.blocks[index] = b
	}
	return nil
}

func (a *Accumulator) openIndexes() []int {
	var out []int
	for i := range a.blocks {
		if a.open[i] {
			out = append(out, i)
		}
	}
	return out
}

// mergeUsage applies cumulative counts from message_delta. Zero fields are
// absent from the event and keep the message_start value.
func mergeUsage(dst *core.TokenUsage, src core.TokenUsage) {
	if src.InputTokens > 0 {
		dst.InputTokens = src.InputTokens
	}
	if src.OutputTokens > 0 {
		dst.OutputTokens = src.OutputTokens
	}
	if src.CacheCreationInputTokens > 0 {
		dst.CacheCreationInputTokens = src.CacheCreationInputTokens
	}
	if src.CacheReadInputTokens > 0 {
		dst.CacheReadInputTokens = src.CacheReadInputTokens
	}
}

func sequenceError(reason string) error {
	return fmt.Errorf("%w: %s", ErrEventSequence, reason)
}

func mismatch(index int, delta string, blk ContentBlock) error {
	return sequenceError(fmt.Sprintf("%s cannot apply to block %d (%s)", delta, index, blockName(blk)))
}

func blockName(blk ContentBlock) string {
	switch b := blk.(type) {
	case TextBlock:
		return "text"
	case ToolUseBlock:
		return "tool_use"
	case ThinkingBlock:
		return "thinking"
	case RedactedThinkingBlock:
		return "redacted_thinking"
	case UnknownContentBlock:
		return b.Tag
	default:
		return fmt.Sprintf("%T", blk)
	}
}

func eventName(ev StreamEvent) string {
	switch ev.(type) {
	case ContentBlockStartEvent:
		return "content_block_start"
	case ContentBlockDeltaEvent:
		return "content_block_delta"
	case ContentBlockStopEvent:
		return "content_block_stop"
	case MessageDeltaEvent:
		return "message_delta"
	case MessageStopEvent:
		return "message_stop"
	default:
		return fmt.Sprintf("%T", ev)
	}
}
