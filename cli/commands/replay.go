package commands

import (
	"bytes"
	"context"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/petal-labs/iris-messages/messages"
	"github.com/petal-labs/iris-messages/stream"
)

func (a *App) newReplayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <file>",
		Short: "Decode a captured SSE transcript",
		Long: `Decode a captured Messages API event stream offline.

Each event is printed on one line as it is decoded, followed by a summary of
the assembled message. A malformed or truncated transcript fails with the
decoder's error. Use "-" to read from stdin.

Examples:
  iris-messages replay testdata/tool_use.sse
  curl -N ... | iris-messages replay -
  iris-messages replay capture.sse --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runReplay(cmd.Context(), args[0])
		},
	}
}

func (a *App) runReplay(ctx context.Context, path string) error {
	var r io.Reader = a.stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return exitWithCode(ExitValidation, err)
		}
		defer f.Close()
		r = f
	}

	s := stream.New(ctx, r, messages.StreamEvents, stream.WithLogger(a.logger))
	defer s.Close()

	p := a.newPrinter()
	var acc messages.Accumulator
	n := 0

	for ev, err := range s.All() {
		if err != nil {
			return err
		}
		n++
		if a.jsonOutput {
			if err := writeEventJSON(a.stdout, ev); err != nil {
				return err
			}
		} else {
			p.event(ev)
		}
		if err := acc.Add(ev); err != nil {
			return err
		}
	}
	a.logger.Debug("replay finished", "path", path, "events", n)

	msg, err := acc.Message()
	if err != nil {
		return err
	}
	if !a.jsonOutput {
		p.summary(msg)
	}
	return nil
}

// writeEventJSON writes ev as one line of JSON. Unknown events keep the
// payload they arrived with, compacted.
func writeEventJSON(w io.Writer, ev messages.StreamEvent) error {
	data, err := messages.StreamEvents.Encode(ev)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err = buf.WriteTo(w)
	return err
}
