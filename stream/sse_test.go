package stream

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petal-labs/iris-messages/core"
)

func readAll(t *testing.T, f *framer) ([]record, error) {
	t.Helper()
	var out []record
	for {
		rec, err := f.next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

func TestFramerRecords(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []record
	}{
		{
			name:  "single record",
			input: "event: ping\ndata: {\"type\":\"ping\"}\n\n",
			want:  []record{{event: "ping", data: `{"type":"ping"}`}},
		},
		{
			name:  "crlf line endings",
			input: "event: ping\r\ndata: {}\r\n\r\n",
			want:  []record{{event: "ping", data: "{}"}},
		},
		{
			name:  "multi-line data joined with newline",
			input: "data: {\"a\":\ndata: 1}\n\n",
			want:  []record{{data: "{\"a\":\n1}"}},
		},
		{
			name:  "only one leading space stripped",
			input: "data:  x\n\ndata:y\n\n",
			want:  []record{{data: " x"}, {data: "y"}},
		},
		{
			name:  "comments ignored",
			input: ": keep-alive\nevent: e\n: more\ndata: d\n\n",
			want:  []record{{event: "e", data: "d"}},
		},
		{
			name:  "record without data dropped",
			input: "event: ping\n\ndata: x\n\n",
			want:  []record{{data: "x"}},
		},
		{
			name:  "retry and unknown fields ignored",
			input: "retry: 1000\nfoo: bar\ndata: x\n\n",
			want:  []record{{data: "x"}},
		},
		{
			name:  "field without colon has empty value",
			input: "data\n\n",
			want:  []record{{data: ""}},
		},
		{
			name:  "id kept",
			input: "id: 7\ndata: x\n\n",
			want:  []record{{id: "7", data: "x"}},
		},
		{
			name:  "extra blank lines between records",
			input: "\n\ndata: a\n\n\n\ndata: b\n\n",
			want:  []record{{data: "a"}, {data: "b"}},
		},
		{
			name:  "leading byte order mark",
			input: "\xEF\xBB\xBFdata: a\n\n",
			want:  []record{{data: "a"}},
		},
		{
			name:  "empty stream",
			input: "",
			want:  nil,
		},
		{
			name:  "trailing comment after last record",
			input: "data: a\n\n: bye\n",
			want:  []record{{data: "a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readAll(t, newFramer(strings.NewReader(tt.input), 0))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFramerFragmentationIsInvisible(t *testing.T) {
	input := "event: message_start\r\ndata: {\"type\":\"message_start\"}\r\n\r\n" +
		": ping\n" +
		"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\n" +
		"data: \"index\":0}\n\n" +
		"event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n"

	whole, err := readAll(t, newFramer(strings.NewReader(input), 0))
	require.NoError(t, err)

	bytewise, err := readAll(t, newFramer(iotest.OneByteReader(strings.NewReader(input)), 0))
	require.NoError(t, err)

	halves, err := readAll(t, newFramer(iotest.HalfReader(strings.NewReader(input)), 0))
	require.NoError(t, err)

	require.Len(t, whole, 3)
	assert.Equal(t, whole, bytewise)
	assert.Equal(t, whole, halves)
}

func TestFramerTruncation(t *testing.T) {
	tests := []struct {
		name  string
		input string
		good  int
	}{
		{"data line without terminator", "data: {\"type\":\"ping\"}", 0},
		{"record without blank line", "data: {}\n", 0},
		{"event line only", "event: ping\n", 0},
		{"second record cut off", "data: a\n\nevent: b\ndata: {\"x\":", 1},
		{"crlf cut between cr and lf", "data: a\r", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readAll(t, newFramer(strings.NewReader(tt.input), 0))
			require.ErrorIs(t, err, core.ErrTruncatedStream)
			assert.Len(t, got, tt.good)
		})
	}
}

func TestFramerMaxLineSize(t *testing.T) {
	input := "data: " + strings.Repeat("x", 100) + "\n\n"

	_, err := readAll(t, newFramer(strings.NewReader(input), 32))
	require.ErrorIs(t, err, ErrLineTooLong)

	got, err := readAll(t, newFramer(strings.NewReader(input), 1024))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, got[0].data, 100)
}

func TestFramerLongLineAcrossBuffer(t *testing.T) {
	long := strings.Repeat("y", 10000)
	got, err := readAll(t, newFramer(strings.NewReader("data: "+long+"\n\n"), 0))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, long, got[0].data)
}

func TestFramerPropagatesReadError(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader("data: a\n\n"), iotest.ErrReader(boom))

	f := newFramer(r, 0)
	rec, err := f.next()
	require.NoError(t, err)
	assert.Equal(t, "a", rec.data)

	_, err = f.next()
	assert.ErrorIs(t, err, boom)
}
