package commands

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/petal-labs/iris-messages/core"
	"github.com/petal-labs/iris-messages/messages"
)

func TestExitError(t *testing.T) {
	err := exitWithCode(ExitValidation, errors.New("test error"))

	if err.Error() != "test error" {
		t.Errorf("Error() = %q, want 'test error'", err.Error())
	}

	exitErr, ok := err.(*exitError)
	if !ok {
		t.Fatal("expected *exitError type")
	}
	if exitErr.ExitCode() != ExitValidation {
		t.Errorf("ExitCode() = %d, want %d", exitErr.ExitCode(), ExitValidation)
	}

	if again := exitWithCode(ExitProvider, err); again != err {
		t.Error("exitWithCode should keep an existing exit code")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"model required", core.ErrModelRequired, ExitValidation},
		{"field validation", &core.WireError{Kind: core.ErrValidation, Field: "messages.0.content"}, ExitValidation},
		{"network", &core.ProviderError{Provider: "anthropic", Err: core.ErrNetwork}, ExitNetwork},
		{"rate limited", &core.ProviderError{Provider: "anthropic", Status: 429, Err: core.ErrRateLimited}, ExitProvider},
		{"overloaded event", &core.ProviderError{Provider: "anthropic", Code: "overloaded_error", Err: core.ErrOverloaded}, ExitProvider},
		{"truncated", &core.WireError{Kind: core.ErrTruncatedStream}, ExitDecode},
		{"unknown tag", &core.WireError{Kind: core.ErrUnrecognizedDiscriminator}, ExitDecode},
		{"bad sequence", fmt.Errorf("%w: gap", messages.ErrEventSequence), ExitDecode},
		{"incomplete", messages.ErrIncomplete, ExitDecode},
		{"cancelled", &core.WireError{Kind: core.ErrCancelled, Cause: context.Canceled}, ExitCancelled},
		{"usage", errors.New(`unknown flag: --nope`), ExitValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := classify(tt.err); got != tt.want {
				t.Errorf("classify(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestReportProviderError(t *testing.T) {
	app := newTestApp(t, nil, "")

	err := app.report(&core.ProviderError{
		Provider:  "anthropic",
		Status:    429,
		RequestID: "req_123",
		Code:      "rate_limit_error",
		Message:   "Too many requests",
		Err:       core.ErrRateLimited,
	})

	if code := exitCode(t, err); code != ExitProvider {
		t.Errorf("exit code = %d, want %d", code, ExitProvider)
	}
	want := "Error: Too many requests\n  Provider: anthropic, Request ID: req_123\n"
	if app.stderr.String() != want {
		t.Errorf("stderr = %q, want %q", app.stderr, want)
	}
	if !errors.Is(err, core.ErrRateLimited) {
		t.Error("exit error should unwrap to the sentinel")
	}
}

func TestReportNil(t *testing.T) {
	app := newTestApp(t, nil, "")
	if err := app.report(nil); err != nil {
		t.Errorf("report(nil) = %v", err)
	}
	if app.stderr.Len() != 0 {
		t.Error("report(nil) should print nothing")
	}
}
