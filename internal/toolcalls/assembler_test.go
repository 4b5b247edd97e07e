package toolcalls

import (
	"errors"
	"testing"
)

func TestAssemblerFragments(t *testing.T) {
	a := NewAssembler(Config{})
	a.StartCall(1, "toolu_1", "get_weather")

	for _, frag := range []string{`{"loc`, `ation": "Par`, `is"}`} {
		if err := a.AddInput(1, frag); err != nil {
			t.Fatalf("AddInput() error = %v", err)
		}
	}

	call, err := a.Finish(1)
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if call.Index != 1 || call.ID != "toolu_1" || call.Name != "get_weather" {
		t.Errorf("call = %+v", call)
	}
	if string(call.Input) != `{"location": "Paris"}` {
		t.Errorf("Input = %s", call.Input)
	}
	if a.Started(1) {
		t.Error("finished call should no longer be tracked")
	}
}

func TestAssemblerInvalidJSON(t *testing.T) {
	a := NewAssembler(Config{})
	a.StartCall(0, "bad", "broken")
	_ = a.AddInput(0, `{invalid`)

	_, err := a.Finish(0)
	if !errors.Is(err, ErrInvalidJSON) {
		t.Errorf("err = %v, want ErrInvalidJSON", err)
	}
}

func TestAssemblerEmptyInput(t *testing.T) {
	a := NewAssembler(Config{EmptyInputJSON: "{}"})
	a.StartCall(0, "toolu_1", "no_args")

	call, err := a.Finish(0)
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if string(call.Input) != "{}" {
		t.Errorf("Input = %s, want {}", call.Input)
	}

	b := NewAssembler(Config{})
	b.StartCall(0, "toolu_2", "no_args")
	if _, err := b.Finish(0); !errors.Is(err, ErrInvalidJSON) {
		t.Errorf("empty input without default: err = %v, want ErrInvalidJSON", err)
	}
}

func TestAssemblerUnknownCall(t *testing.T) {
	a := NewAssembler(Config{})

	if err := a.AddInput(3, `{}`); !errors.Is(err, ErrUnknownCall) {
		t.Errorf("AddInput err = %v, want ErrUnknownCall", err)
	}
	if _, err := a.Finish(3); !errors.Is(err, ErrUnknownCall) {
		t.Errorf("Finish err = %v, want ErrUnknownCall", err)
	}
}

func TestAssemblerPending(t *testing.T) {
	a := NewAssembler(Config{EmptyInputJSON: "{}"})
	if got := a.Pending(); got != nil {
		t.Errorf("Pending() = %v, want nil", got)
	}

	a.StartCall(4, "c", "x")
	a.StartCall(0, "a", "x")
	a.StartCall(2, "b", "x")
	if _, err := a.Finish(2); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	got := a.Pending()
	if len(got) != 2 || got[0] != 0 || got[1] != 4 {
		t.Errorf("Pending() = %v, want [0 4]", got)
	}
}
