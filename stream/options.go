package stream

import (
	"io"
	"log/slog"
)

// Option configures a Stream.
type Option func(*config)

type config struct {
	logger   *slog.Logger
	terminal func(any) error
	maxLine  int
}

func defaultConfig() config {
	return config{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxLine: DefaultMaxLineSize,
	}
}

// WithLogger logs each record at debug level and stream failures at warn.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTerminal installs a check run on every decoded event. A non-nil error
// ends the stream with that error instead of yielding the event; Current still
// returns the offending event afterwards. Events of a type other than T are
// passed through.
func WithTerminal[T any](fn func(T) error) Option {
	return func(c *config) {
		c.terminal = func(v any) error {
			ev, ok := v.(T)
			if !ok {
				return nil
			}
			return fn(ev)
		}
	}
}

// WithMaxLineSize bounds a single line of the stream. Zero or negative
// restores DefaultMaxLineSize.
func WithMaxLineSize(n int) Option {
	return func(c *config) {
		if n <= 0 {
			n = DefaultMaxLineSize
		}
		c.maxLine = n
	}
}
