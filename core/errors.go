package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ProviderError represents an error returned by the API with full context.
type ProviderError struct {
	Provider  string
	Status    int
	RequestID string
	Code      string
	Message   string
	Err       error

	// RetryAfter is the server's retry-after hint, zero when absent.
	RetryAfter time.Duration

	// ShouldRetry is the server's x-should-retry verdict, nil when absent.
	// It overrides the status-based classification in RetryPolicy.
	ShouldRetry *bool
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s: %s (status=%d, code=%s, request_id=%s)",
			e.Provider, e.Message, e.Status, e.Code, e.RequestID)
	}
	return fmt.Sprintf("%s: %s (status=%d, code=%s)",
		e.Provider, e.Message, e.Status, e.Code)
}

// Unwrap returns the underlying error for error chaining.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Sentinel errors for classification.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("not found")
	ErrOverloaded   = errors.New("overloaded")
	ErrServer       = errors.New("server error")
	ErrNetwork      = errors.New("network error")
	ErrDecode       = errors.New("decode error")
)

// Wire error kinds. Every kind except ErrCancelled also matches ErrDecode.
var (
	ErrMissingDiscriminator      = fmt.Errorf("missing discriminator: %w", ErrDecode)
	ErrUnrecognizedDiscriminator = fmt.Errorf("unrecognized discriminator: %w", ErrDecode)
	ErrShapeDecode               = fmt.Errorf("shape decode failed: %w", ErrDecode)
	ErrAllCandidatesFailed       = fmt.Errorf("all candidates failed: %w", ErrDecode)
	ErrValidation                = fmt.Errorf("validation failed: %w", ErrDecode)
	ErrProtocolMismatch          = fmt.Errorf("protocol mismatch: %w", ErrDecode)
	ErrTruncatedStream           = fmt.Errorf("truncated stream: %w", ErrDecode)
	ErrCancelled                 = errors.New("cancelled")
)

// WireError is the structured error surfaced by union decoding, validation and
// stream iteration. Kind is one of the wire error kinds above.
//
// Use errors.Is against the kind sentinels:
//
//	if errors.Is(err, core.ErrTruncatedStream) {
//	    // the server hung up mid-event
//	}
//
// For trial-decode failures, Causes lists one error per candidate shape in
// declared priority order.
type WireError struct {
	Kind   error
	Union  string  // union being decoded, if any
	Shape  string  // candidate shape or discriminator tag
	Field  string  // dotted field path for validation failures
	Reason string  // human-readable detail
	Cause  error   // single underlying error
	Causes []error // per-candidate errors for ErrAllCandidatesFailed
}

// Error implements the error interface.
func (e *WireError) Error() string {
	var b strings.Builder
	b.WriteString(kindLabel(e.Kind))
	if e.Union != "" {
		b.WriteString(" in ")
		b.WriteString(e.Union)
	}
	if e.Shape != "" {
		fmt.Fprintf(&b, " (shape=%s)", e.Shape)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " (field=%s)", e.Field)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	if len(e.Causes) > 0 {
		b.WriteString(": [")
		for i, c := range e.Causes {
			if i > 0 {
				b.WriteString("; ")
			}
			b.WriteString(c.Error())
		}
		b.WriteString("]")
	}
	return b.String()
}

// Unwrap exposes the kind sentinel and the single cause, if any.
// Per-candidate Causes are not unwrapped.
func (e *WireError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func kindLabel(kind error) string {
	switch kind {
	case ErrMissingDiscriminator:
		return "missing discriminator"
	case ErrUnrecognizedDiscriminator:
		return "unrecognized discriminator"
	case ErrShapeDecode:
		return "shape decode failed"
	case ErrAllCandidatesFailed:
		return "all candidates failed"
	case ErrValidation:
		return "validation failed"
	case ErrProtocolMismatch:
		return "protocol mismatch"
	case ErrTruncatedStream:
		return "truncated stream"
	case ErrCancelled:
		return "cancelled"
	case nil:
		return "wire error"
	default:
		return kind.Error()
	}
}

// Validation errors with actionable guidance.
var (
	ErrModelRequired     = errors.New("model required: set MessageNewParams.Model, e.g. \"claude-sonnet-4-5\"")
	ErrNoMessages        = errors.New("no messages: add at least one MessageParam to MessageNewParams.Messages")
	ErrMaxTokensRequired = errors.New("max_tokens required: set MessageNewParams.MaxTokens to a positive value")
)
