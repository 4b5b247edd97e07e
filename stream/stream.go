package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"

	"github.com/petal-labs/iris-messages/core"
	"github.com/petal-labs/iris-messages/variant"
)

// Stream yields the events of one server-sent event stream, each decoded
// through a union over T.
type Stream[T any] struct {
	ctx    context.Context
	body   io.Reader
	union  *variant.Union[T]
	frames *framer
	cfg    config

	stopCancel func() bool
	closeOnce  sync.Once
	closeErr   error

	cur   T
	err   error
	done  bool
	count int
}

// New starts reading body. Nothing is read until the first call to Next.
//
// If body is an io.Closer, cancelling ctx closes it so a blocked read returns
// promptly; the stream then ends with a core.ErrCancelled error.
func New[T any](ctx context.Context, body io.Reader, u *variant.Union[T], opts ...Option) *Stream[T] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Stream[T]{
		ctx:    ctx,
		body:   body,
		union:  u,
		frames: newFramer(body, cfg.maxLine),
		cfg:    cfg,
	}
	if c, ok := body.(io.Closer); ok {
		s.stopCancel = context.AfterFunc(ctx, func() { _ = c.Close() })
	}
	return s
}

// Next advances to the next event. It returns false when the stream ends,
// cleanly or not; check Err afterwards.
func (s *Stream[T]) Next() bool {
	if s.done {
		return false
	}
	if err := s.ctx.Err(); err != nil {
		s.fail(cancelled(err))
		return false
	}

	rec, err := s.frames.next()
	if err != nil {
		if ctxErr := s.ctx.Err(); ctxErr != nil {
			s.fail(cancelled(ctxErr))
			return false
		}
		if errors.Is(err, io.EOF) {
			s.finish()
			return false
		}
		var we *core.WireError
		if errors.As(err, &we) || errors.Is(err, ErrLineTooLong) {
			s.fail(err)
		} else {
			s.fail(fmt.Errorf("%w: %w", core.ErrNetwork, err))
		}
		return false
	}

	s.cfg.logger.Debug("stream record",
		"union", s.union.Name(),
		"event", rec.event,
		"id", rec.id,
		"bytes", len(rec.data),
	)

	v, err := s.decode(rec)
	if err != nil {
		s.fail(err)
		return false
	}
	s.cur = v
	s.count++

	if s.cfg.terminal != nil {
		if err := s.cfg.terminal(v); err != nil {
			s.fail(err)
			return false
		}
	}
	return true
}

func (s *Stream[T]) decode(rec record) (T, error) {
	data := []byte(rec.data)

	if rec.event != "" && s.union.Discriminator() != "" {
		if tag, err := s.union.Tag(data); err == nil && tag != rec.event {
			var zero T
			return zero, &core.WireError{
				Kind:   core.ErrProtocolMismatch,
				Union:  s.union.Name(),
				Shape:  tag,
				Reason: fmt.Sprintf("event %q carries a %q payload", rec.event, tag),
			}
		}
	}
	return s.union.Decode(data)
}

// Current returns the event most recently produced by Next.
func (s *Stream[T]) Current() T {
	return s.cur
}

// Err returns the error that ended the stream, or nil after a clean end.
func (s *Stream[T]) Err() error {
	return s.err
}

// Close releases the body. It is safe to call more than once and does not
// change Err.
func (s *Stream[T]) Close() error {
	s.closeOnce.Do(func() {
		s.done = true
		s.release()
		if c, ok := s.body.(io.Closer); ok {
			s.closeErr = c.Close()
		}
	})
	return s.closeErr
}

// All returns an iterator over the remaining events. A failure is yielded
// once, with a zero event, as the final pair. The stream is closed when the
// iteration finishes.
func (s *Stream[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer s.Close()
		for s.Next() {
			if !yield(s.cur, nil) {
				return
			}
		}
		if s.err != nil {
			var zero T
			yield(zero, s.err)
		}
	}
}

func (s *Stream[T]) finish() {
	s.done = true
	s.release()
	s.cfg.logger.Debug("stream finished", "union", s.union.Name(), "events", s.count)
}

func (s *Stream[T]) fail(err error) {
	s.done = true
	s.err = err
	s.release()
	s.cfg.logger.Warn("stream failed", "union", s.union.Name(), "events", s.count, "error", err)
}

func (s *Stream[T]) release() {
	if s.stopCancel != nil {
		s.stopCancel()
	}
}

func cancelled(err error) error {
	return &core.WireError{Kind: core.ErrCancelled, Cause: err}
}
