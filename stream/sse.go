package stream

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/petal-labs/iris-messages/core"
)

// DefaultMaxLineSize bounds a single line of the event stream.
const DefaultMaxLineSize = 8 << 20

// ErrLineTooLong is returned when a line exceeds the configured maximum.
var ErrLineTooLong = errors.New("stream: line exceeds maximum size")

var bom = []byte("\xEF\xBB\xBF")

// record is one dispatched event: the lines between two blank lines.
type record struct {
	event string
	data  string
	id    string
}

// framer splits a byte stream into records. Lines may end in "\n" or "\r\n".
type framer struct {
	r       *bufio.Reader
	maxLine int
	started bool

	// pending is set once a field line of the current record has been read
	// and cleared when the record is dispatched.
	pending bool
}

func newFramer(r io.Reader, maxLine int) *framer {
	if maxLine <= 0 {
		maxLine = DefaultMaxLineSize
	}
	return &framer{r: bufio.NewReader(r), maxLine: maxLine}
}

// next returns the next record carrying data. It returns io.EOF when the
// stream ends between records.
func (f *framer) next() (record, error) {
	var (
		rec     record
		data    []string
		hasData bool
	)

	for {
		line, err := f.readLine()
		if err != nil && !errors.Is(err, io.EOF) {
			return record{}, err
		}
		if errors.Is(err, io.EOF) {
			if len(line) > 0 {
				return record{}, truncated(fmt.Sprintf("final line %q has no line terminator", clip(line)))
			}
			if f.pending {
				return record{}, truncated("stream ended inside a record")
			}
			return record{}, io.EOF
		}

		line = trimEOL(line)
		if !f.started {
			line = bytes.TrimPrefix(line, bom)
			f.started = true
		}

		if len(line) == 0 {
			f.pending = false
			if hasData {
				rec.data = strings.Join(data, "\n")
				return rec, nil
			}
			rec = record{}
			continue
		}

		if line[0] == ':' {
			continue
		}

		f.pending = true
		name, value := splitField(line)
		switch name {
		case "event":
			rec.event = value
		case "data":
			data = append(data, value)
			hasData = true
		case "id":
			if !strings.ContainsRune(value, 0) {
				rec.id = value
			}
		}
	}
}

// readLine reads through the next '\n'. At EOF it returns whatever partial
// line was read along with io.EOF.
func (f *framer) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := f.r.ReadSlice('\n')
		line = append(line, chunk...)
		if len(line) > f.maxLine {
			return nil, fmt.Errorf("%w (%d bytes)", ErrLineTooLong, f.maxLine)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, err
	}
}

func trimEOL(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r"))
}

func splitField(line []byte) (string, string) {
	name, value, found := bytes.Cut(line, []byte(":"))
	if !found {
		return string(line), ""
	}
	value = bytes.TrimPrefix(value, []byte(" "))
	return string(name), string(value)
}

func truncated(reason string) error {
	return &core.WireError{Kind: core.ErrTruncatedStream, Reason: reason}
}

func clip(b []byte) string {
	const n = 64
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
