package commands

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/petal-labs/iris-messages/core"
	"github.com/petal-labs/iris-messages/messages"
)

// Exit codes
const (
	ExitSuccess    = 0
	ExitValidation = 1
	ExitProvider   = 2
	ExitNetwork    = 3
	ExitDecode     = 4
	ExitCancelled  = 5
)

// report prints err to stderr and attaches an exit code. A nil err stays nil.
func (a *App) report(err error) error {
	if err == nil {
		return nil
	}

	code, errType := classify(err)

	var provErr *core.ProviderError
	if errors.As(err, &provErr) {
		if a.jsonOutput {
			a.writeErrorJSON(map[string]any{
				"type":       provErr.Code,
				"message":    provErr.Message,
				"provider":   provErr.Provider,
				"status":     provErr.Status,
				"request_id": provErr.RequestID,
			})
		} else {
			fmt.Fprintf(a.stderr, "Error: %s\n", provErr.Message)
			if provErr.RequestID != "" {
				fmt.Fprintf(a.stderr, "  Provider: %s, Request ID: %s\n", provErr.Provider, provErr.RequestID)
			}
		}
		return exitWithCode(code, err)
	}

	if a.jsonOutput {
		out := map[string]any{"type": errType, "message": err.Error()}
		var we *core.WireError
		if errors.As(err, &we) {
			if we.Union != "" {
				out["union"] = we.Union
			}
			if we.Field != "" {
				out["field"] = we.Field
			}
		}
		a.writeErrorJSON(out)
	} else {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
	}
	return exitWithCode(code, err)
}

// classify maps an error to an exit code and a short type for JSON output.
func classify(err error) (int, string) {
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code, "error"
	}

	switch {
	case errors.Is(err, core.ErrCancelled):
		return ExitCancelled, "cancelled"
	case errors.Is(err, core.ErrNetwork):
		return ExitNetwork, "network_error"
	case errors.Is(err, core.ErrModelRequired),
		errors.Is(err, core.ErrNoMessages),
		errors.Is(err, core.ErrMaxTokensRequired),
		errors.Is(err, core.ErrValidation):
		return ExitValidation, "validation_error"
	case errors.Is(err, core.ErrDecode):
		return ExitDecode, "decode_error"
	case errors.Is(err, messages.ErrEventSequence),
		errors.Is(err, messages.ErrToolInputInvalidJSON),
		errors.Is(err, messages.ErrIncomplete):
		return ExitDecode, "stream_error"
	}

	var provErr *core.ProviderError
	if errors.As(err, &provErr) {
		return ExitProvider, provErr.Code
	}
	return ExitValidation, "error"
}

func (a *App) writeErrorJSON(fields map[string]any) {
	enc := json.NewEncoder(a.stderr)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]any{"error": fields})
}

// exitError wraps an error with an exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func (e *exitError) ExitCode() int {
	return e.code
}

func exitWithCode(code int, err error) error {
	var existing *exitError
	if errors.As(err, &existing) {
		return err
	}
	return &exitError{code: code, err: err}
}
