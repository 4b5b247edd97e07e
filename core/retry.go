package core

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"time"
)

// RetryPolicy determines retry behavior for failed requests.
// Only request setup is retried; a stream that fails after its first byte is
// never replayed.
type RetryPolicy interface {
	// NextDelay returns the delay before the next retry attempt and whether to retry.
	// attempt starts at 0 for the first retry after the initial failure.
	NextDelay(attempt int, err error) (delay time.Duration, ok bool)
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxRetries int           // Maximum number of retry attempts (default: 2)
	BaseDelay  time.Duration // Delay before the first retry (default: 500ms)
	MaxDelay   time.Duration // Cap on computed backoff (default: 8s)
	Jitter     float64       // Fraction of the delay randomly removed, 0.0-1.0

	// MaxRetryAfter bounds how long a server retry-after hint is honoured.
	// Longer hints fall back to computed backoff (default: 60s).
	MaxRetryAfter time.Duration
}

// DefaultRetryPolicy retries twice, starting at 500ms and doubling up to 8s,
// and honours server retry-after hints up to a minute.
func DefaultRetryPolicy() RetryPolicy {
	return NewRetryPolicy(RetryConfig{Jitter: 0.25})
}

// NewRetryPolicy creates a retry policy with the given configuration. Zero
// fields take their defaults, except Jitter where zero disables it.
func NewRetryPolicy(cfg RetryConfig) RetryPolicy {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 8 * time.Second
	}
	if cfg.Jitter < 0 || cfg.Jitter > 1 {
		cfg.Jitter = 0.25
	}
	if cfg.MaxRetryAfter <= 0 {
		cfg.MaxRetryAfter = time.Minute
	}
	return &backoff{cfg: cfg}
}

type backoff struct {
	cfg RetryConfig
}

func (b *backoff) NextDelay(attempt int, err error) (time.Duration, bool) {
	if attempt >= b.cfg.MaxRetries || !isRetryable(err) {
		return 0, false
	}

	var pe *ProviderError
	if errors.As(err, &pe) && pe.RetryAfter > 0 && pe.RetryAfter <= b.cfg.MaxRetryAfter {
		return pe.RetryAfter, true
	}

	delay := b.cfg.BaseDelay
	for i := 0; i < attempt && delay < b.cfg.MaxDelay; i++ {
		delay *= 2
	}
	if delay > b.cfg.MaxDelay {
		delay = b.cfg.MaxDelay
	}
	// Jitter only shortens the delay so MaxDelay stays a hard cap.
	delay -= time.Duration(rand.Float64() * b.cfg.Jitter * float64(delay))
	return delay, true
}

var (
	permanent = []error{ErrUnauthorized, ErrBadRequest, ErrNotFound, ErrDecode, ErrCancelled}
	transient = []error{ErrNetwork, ErrRateLimited, ErrOverloaded, ErrServer}
)

// isRetryable determines if an error should trigger a retry.
func isRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pe *ProviderError
	if errors.As(err, &pe) && pe.ShouldRetry != nil {
		return *pe.ShouldRetry
	}

	for _, sentinel := range permanent {
		if errors.Is(err, sentinel) {
			return false
		}
	}
	for _, sentinel := range transient {
		if errors.Is(err, sentinel) {
			return true
		}
	}

	if pe != nil {
		return isRetryableStatus(pe.Status)
	}
	return false
}

// isRetryableStatus reports whether a bare status is worth replaying with the
// same idempotency key.
func isRetryableStatus(status int) bool {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusConflict, status == http.StatusTooManyRequests:
		return true
	case status >= 500 && status < 600:
		return true
	}
	return false
}

// Wait blocks for d or until ctx is done, whichever comes first.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
