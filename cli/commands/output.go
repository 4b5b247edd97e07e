package commands

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/petal-labs/iris-messages/messages"
)

const (
	ansiReset  = "\x1b[0m"
	ansiDim    = "\x1b[2m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

// isTerminal reports whether w is a terminal. NO_COLOR disables colour.
func isTerminal(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// printer renders stream events, one line each.
type printer struct {
	w     io.Writer
	color bool
}

func (a *App) newPrinter() *printer {
	return &printer{w: a.stdout, color: a.isTerminal(a.stdout)}
}

func (p *printer) paint(code, s string) string {
	if !p.color {
		return s
	}
	return code + s + ansiReset
}

// event prints a one-line description of ev.
func (p *printer) event(ev messages.StreamEvent) {
	name, detail, code := describe(ev)
	if detail == "" {
		fmt.Fprintln(p.w, p.paint(code, name))
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", p.paint(code, name), detail)
}

// summary prints the accumulated message after the event lines.
func (p *printer) summary(msg *messages.Message) {
	fmt.Fprintln(p.w, p.paint(ansiDim, "--"))
	fmt.Fprintf(p.w, "%s %s\n", p.paint(ansiBold, "stop_reason:"), msg.StopReason)
	fmt.Fprintf(p.w, "%s %d in / %d out\n", p.paint(ansiBold, "usage:"), msg.Usage.InputTokens, msg.Usage.OutputTokens)
	if text := msg.Text(); text != "" {
		fmt.Fprintf(p.w, "%s %s\n", p.paint(ansiBold, "text:"), text)
	}
	for _, tu := range msg.ToolUses() {
		fmt.Fprintf(p.w, "%s %s %s\n", p.paint(ansiBold, "tool_use:"), tu.Name, tu.Input)
	}
}

func describe(ev messages.StreamEvent) (name, detail, color string) {
	switch e := ev.(type) {
	case messages.MessageStartEvent:
		return "message_start", fmt.Sprintf("id=%s model=%s", e.Message.ID, e.Message.Model), ansiGreen
	case messages.ContentBlockStartEvent:
		return "content_block_start", fmt.Sprintf("index=%d %s", e.Index, describeBlock(e.ContentBlock.Value)), ansiCyan
	case messages.ContentBlockDeltaEvent:
		return "content_block_delta", fmt.Sprintf("index=%d %s", e.Index, describeDelta(e.Delta.Value)), ""
	case messages.ContentBlockStopEvent:
		return "content_block_stop", fmt.Sprintf("index=%d", e.Index), ansiCyan
	case messages.MessageDeltaEvent:
		return "message_delta", fmt.Sprintf("stop_reason=%s output_tokens=%d", e.Delta.StopReason, e.Usage.OutputTokens), ansiGreen
	case messages.MessageStopEvent:
		return "message_stop", "", ansiGreen
	case messages.PingEvent:
		return "ping", "", ansiDim
	case messages.ErrorEvent:
		return "error", fmt.Sprintf("%s: %s", e.Error.Type, e.Error.Message), ansiRed
	case messages.UnknownStreamEvent:
		return e.Tag, "(unknown event)", ansiYellow
	default:
		return fmt.Sprintf("%T", ev), "", ansiYellow
	}
}

func describeBlock(b messages.ContentBlock) string {
	switch blk := b.(type) {
	case messages.TextBlock:
		return "text"
	case messages.ToolUseBlock:
		return fmt.Sprintf("tool_use id=%s name=%s", blk.ID, blk.Name)
	case messages.ThinkingBlock:
		return "thinking"
	case messages.RedactedThinkingBlock:
		return "redacted_thinking"
	case messages.UnknownContentBlock:
		return blk.Tag + " (unknown block)"
	default:
		return fmt.Sprintf("%T", b)
	}
}

func describeDelta(d messages.BlockDelta) string {
	switch dl := d.(type) {
	case messages.TextDelta:
		return "text " + quote(dl.Text)
	case messages.InputJSONDelta:
		return "input_json " + quote(dl.PartialJSON)
	case messages.ThinkingDelta:
		return "thinking " + quote(dl.Thinking)
	case messages.SignatureDelta:
		return fmt.Sprintf("signature (%d bytes)", len(dl.Signature))
	case messages.CitationsDelta:
		return fmt.Sprintf("citation %T", dl.Citation.Value)
	case messages.UnknownDelta:
		return dl.Tag + " (unknown delta)"
	default:
		return fmt.Sprintf("%T", d)
	}
}

// quote shortens long fragments so one event stays on one line.
func quote(s string) string {
	const limit = 60
	if r := []rune(s); len(r) > limit {
		s = string(r[:limit]) + "…"
	}
	return fmt.Sprintf("%q", s)
}
