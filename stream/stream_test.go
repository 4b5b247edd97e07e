package stream_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petal-labs/iris-messages/core"
	"github.com/petal-labs/iris-messages/stream"
	"github.com/petal-labs/iris-messages/variant"
)

type event interface{ isEvent() }

type greeting struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (greeting) isEvent() {}

type failure struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (failure) isEvent() {}

type unknownEvent struct{ variant.Unknown }

func (unknownEvent) isEvent() {}

var events = variant.Extensible("Event", "type",
	func(u variant.Unknown) event { return unknownEvent{u} },
	variant.Struct[greeting, event]("greeting"),
	variant.Struct[failure, event]("failure"),
)

const transcript = "event: greeting\n" +
	"data: {\"type\":\"greeting\",\"text\":\"hello\"}\n" +
	"\n" +
	": heartbeat\n" +
	"event: ping\n" +
	"\n" +
	"event: greeting\r\n" +
	"data: {\"type\":\"greeting\",\r\n" +
	"data:  \"text\":\"world\"}\r\n" +
	"\r\n" +
	"data: {\"type\":\"wave\",\"hand\":\"left\"}\n" +
	"\n"

func collect(t *testing.T, s *stream.Stream[event]) []event {
	t.Helper()
	var out []event
	for s.Next() {
		out = append(out, s.Current())
	}
	return out
}

func TestStreamYieldsEventsInOrder(t *testing.T) {
	s := stream.New(context.Background(), strings.NewReader(transcript), events)
	defer s.Close()

	got := collect(t, s)
	require.NoError(t, s.Err())
	require.Len(t, got, 3)

	assert.Equal(t, greeting{Type: "greeting", Text: "hello"}, got[0])
	assert.Equal(t, greeting{Type: "greeting", Text: "world"}, got[1])

	unk, ok := got[2].(unknownEvent)
	require.True(t, ok)
	assert.Equal(t, "wave", unk.Tag)
	assert.JSONEq(t, `{"type":"wave","hand":"left"}`, string(unk.Raw))
}

func TestStreamOneByteReads(t *testing.T) {
	whole := stream.New(context.Background(), strings.NewReader(transcript), events)
	want := collect(t, whole)
	require.NoError(t, whole.Err())

	split := stream.New(context.Background(), iotest.OneByteReader(strings.NewReader(transcript)), events)
	got := collect(t, split)
	require.NoError(t, split.Err())

	assert.Equal(t, want, got)
}

func TestStreamTruncated(t *testing.T) {
	body := "event: greeting\ndata: {\"type\":\"greeting\",\"text\":\"hi\"}\n\n" +
		"event: greeting\ndata: {\"type\":\"greet"

	s := stream.New(context.Background(), strings.NewReader(body), events)
	got := collect(t, s)

	assert.Len(t, got, 1)
	require.ErrorIs(t, s.Err(), core.ErrTruncatedStream)
	assert.ErrorIs(t, s.Err(), core.ErrDecode)
}

func TestStreamProtocolMismatch(t *testing.T) {
	body := "event: failure\ndata: {\"type\":\"greeting\",\"text\":\"hi\"}\n\n"

	s := stream.New(context.Background(), strings.NewReader(body), events)
	assert.False(t, s.Next())
	require.ErrorIs(t, s.Err(), core.ErrProtocolMismatch)

	var we *core.WireError
	require.ErrorAs(t, s.Err(), &we)
	assert.Equal(t, "greeting", we.Shape)
}

func TestStreamDecodeFailureEndsStream(t *testing.T) {
	body := "data: {\"type\":\"greeting\",\"text\":1}\n\n" +
		"data: {\"type\":\"greeting\",\"text\":\"never\"}\n\n"

	s := stream.New(context.Background(), strings.NewReader(body), events)
	assert.False(t, s.Next())
	require.ErrorIs(t, s.Err(), core.ErrShapeDecode)
	assert.False(t, s.Next(), "a failed stream stays ended")
}

func TestStreamMissingDiscriminator(t *testing.T) {
	s := stream.New(context.Background(), strings.NewReader("data: [1,2]\n\n"), events)
	assert.False(t, s.Next())
	assert.ErrorIs(t, s.Err(), core.ErrMissingDiscriminator)
}

func TestStreamReadError(t *testing.T) {
	boom := errors.New("connection reset by peer")
	body := io.MultiReader(
		strings.NewReader("data: {\"type\":\"greeting\",\"text\":\"a\"}\n\n"),
		iotest.ErrReader(boom),
	)

	s := stream.New(context.Background(), body, events)
	assert.True(t, s.Next())
	assert.False(t, s.Next())
	assert.ErrorIs(t, s.Err(), boom)
	assert.ErrorIs(t, s.Err(), core.ErrNetwork)
}

func TestStreamCancelledBetweenRecords(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pr, pw := io.Pipe()
	go func() {
		_, _ = pw.Write([]byte("data: {\"type\":\"greeting\",\"text\":\"first\"}\n\n"))
	}()

	s := stream.New(ctx, pr, events)
	defer s.Close()

	require.True(t, s.Next())
	assert.Equal(t, greeting{Type: "greeting", Text: "first"}, s.Current())

	cancel()

	assert.False(t, s.Next())
	err := s.Err()
	require.ErrorIs(t, err, core.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, core.ErrDecode)
}

func TestStreamCancelUnblocksPendingRead(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pr, _ := io.Pipe()

	s := stream.New(ctx, pr, events)
	defer s.Close()

	done := make(chan bool, 1)
	go func() { done <- s.Next() }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not return after cancellation")
	}
	assert.ErrorIs(t, s.Err(), core.ErrCancelled)
}

func TestStreamTerminalEvent(t *testing.T) {
	body := "data: {\"type\":\"greeting\",\"text\":\"a\"}\n\n" +
		"data: {\"type\":\"failure\",\"message\":\"overloaded\"}\n\n" +
		"data: {\"type\":\"greeting\",\"text\":\"b\"}\n\n"

	boom := errors.New("server reported failure")
	s := stream.New(context.Background(), strings.NewReader(body), events,
		stream.WithTerminal(func(ev event) error {
			if _, ok := ev.(failure); ok {
				return boom
			}
			return nil
		}),
	)

	got := collect(t, s)
	assert.Len(t, got, 1)
	assert.ErrorIs(t, s.Err(), boom)
	assert.Equal(t, failure{Type: "failure", Message: "overloaded"}, s.Current())
}

func TestStreamAll(t *testing.T) {
	s := stream.New(context.Background(), strings.NewReader(transcript), events)

	var n int
	for ev, err := range s.All() {
		require.NoError(t, err)
		require.NotNil(t, ev)
		n++
	}
	assert.Equal(t, 3, n)
}

func TestStreamAllYieldsFinalError(t *testing.T) {
	body := "data: {\"type\":\"greeting\",\"text\":\"a\"}\n\ndata: {"
	s := stream.New(context.Background(), strings.NewReader(body), events)

	var errs []error
	var n int
	for _, err := range s.All() {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	assert.Equal(t, 1, n)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], core.ErrTruncatedStream)
}

type closeRecorder struct {
	io.Reader
	closed int
}

func (c *closeRecorder) Close() error {
	c.closed++
	return nil
}

func TestStreamCloseIsIdempotent(t *testing.T) {
	body := &closeRecorder{Reader: strings.NewReader(transcript)}
	s := stream.New(context.Background(), body, events)

	require.True(t, s.Next())
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Equal(t, 1, body.closed)
	assert.False(t, s.Next())
	assert.NoError(t, s.Err())
}

func TestStreamLogsRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s := stream.New(context.Background(), strings.NewReader(transcript), events, stream.WithLogger(logger))
	collect(t, s)
	require.NoError(t, s.Err())

	out := buf.String()
	assert.Contains(t, out, "stream record")
	assert.Contains(t, out, "event=greeting")
	assert.Contains(t, out, "stream finished")
}

func TestStreamMaxLineSize(t *testing.T) {
	s := stream.New(context.Background(), strings.NewReader(transcript), events, stream.WithMaxLineSize(16))
	assert.False(t, s.Next())
	assert.ErrorIs(t, s.Err(), stream.ErrLineTooLong)
}
