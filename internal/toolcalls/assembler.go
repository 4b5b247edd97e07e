// Package toolcalls assembles tool input JSON streamed as partial fragments.
package toolcalls

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/goccy/go-json"
)

var (
	// ErrInvalidJSON is returned when assembled tool input is not valid JSON.
	ErrInvalidJSON = errors.New("tool input invalid json")

	// ErrUnknownCall is returned for fragments addressed to a call that was
	// never started or has already finished.
	ErrUnknownCall = errors.New("tool call not started")
)

// Config controls assembler behavior.
type Config struct {
	// EmptyInputJSON, when set, is used as input when a tool call received
	// no fragments.
	EmptyInputJSON string
}

// Call is one assembled tool call.
type Call struct {
	Index int
	ID    string
	Name  string
	Input json.RawMessage
}

type assemblingCall struct {
	ID    string
	Name  string
	Input strings.Builder
}

// Assembler accumulates fragmented tool input keyed by content block index.
type Assembler struct {
	calls map[int]*assemblingCall
	cfg   Config
}

// NewAssembler creates a tool-call assembler.
func NewAssembler(cfg Config) *Assembler {
	return &Assembler{
		calls: make(map[int]*assemblingCall),
		cfg:   cfg,
	}
}

// StartCall begins tracking the call at index, replacing any earlier one.
func (a *Assembler) StartCall(index int, id, name string) {
	a.calls[index] = &assemblingCall{
		ID:   id,
		Name: name,
	}
}

// Started reports whether a call is being assembled at index.
func (a *Assembler) Started(index int) bool {
	_, ok := a.calls[index]
	return ok
}

// AddInput appends a fragment to the call at index.
func (a *Assembler) AddInput(index int, fragment string) error {
	call, exists := a.calls[index]
	if !exists {
		return fmt.Errorf("%w: index %d", ErrUnknownCall, index)
	}
	call.Input.WriteString(fragment)
	return nil
}

// Finish validates and removes the call at index.
func (a *Assembler) Finish(index int) (Call, error) {
	call, exists := a.calls[index]
	if !exists {
		return Call{}, fmt.Errorf("%w: index %d", ErrUnknownCall, index)
	}
	delete(a.calls, index)

	input := call.Input.String()
	if input == "" && a.cfg.EmptyInputJSON != "" {
		input = a.cfg.EmptyInputJSON
	}
	if !json.Valid([]byte(input)) {
		return Call{}, fmt.Errorf("%w: call %s (%s) at index %d", ErrInvalidJSON, call.ID, call.Name, index)
	}

	return Call{
		Index: index,
		ID:    call.ID,
		Name:  call.Name,
		Input: json.RawMessage(input),
	}, nil
}

// Pending returns the indexes of calls started but not finished, in order.
func (a *Assembler) Pending() []int {
	if len(a.calls) == 0 {
		return nil
	}
	out := make([]int, 0, len(a.calls))
	for idx := range a.calls {
		out = append(out, idx)
	}
	slices.Sort(out)
	return out
}
