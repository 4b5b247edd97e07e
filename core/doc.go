// Package core holds the types shared by every layer of iris-messages: the
// error taxonomy, token usage, telemetry hooks, retry policies and the Secret
// wrapper for credentials.
//
// # Error Handling
//
// Errors returned by the API are [ProviderError] values wrapping one of the
// classification sentinels:
//   - [ErrUnauthorized]: Invalid or missing API key
//   - [ErrRateLimited]: Rate limit exceeded
//   - [ErrBadRequest]: Invalid request parameters
//   - [ErrNotFound]: Unknown model or endpoint
//   - [ErrOverloaded]: The API is temporarily overloaded
//   - [ErrServer]: Server error (5xx)
//
// Transport and local failures use [ErrNetwork], [ErrModelRequired],
// [ErrNoMessages] and [ErrMaxTokensRequired].
//
// Decoding a payload or a stream fails with a [WireError] whose Kind is one of
// the wire error kinds. All of them match [ErrDecode] except [ErrCancelled]:
//
//	if errors.Is(err, core.ErrDecode) {
//	    // the server sent something this client cannot represent
//	}
//
// # Telemetry
//
// Implement [TelemetryHook] to observe each request attempt:
//
//	type logHook struct{ log *slog.Logger }
//
//	func (h logHook) OnRequestStart(e core.RequestStartEvent) {}
//
//	func (h logHook) OnRequestEnd(e core.RequestEndEvent) {
//	    h.log.Info("request", "op", e.Operation, "took", e.Duration(), "tokens", e.Usage.Total())
//	}
//
// # Retry Policy
//
// [DefaultRetryPolicy] retries rate limits, overloads, 5xx responses and
// network failures with exponential backoff and jitter. Build a custom one
// with [NewRetryPolicy]:
//
//	policy := core.NewRetryPolicy(core.RetryConfig{
//	    MaxRetries: 5,
//	    BaseDelay:  500 * time.Millisecond,
//	    MaxDelay:   10 * time.Second,
//	})
package core
