// Package normalize turns HTTP failures and in-stream error events into
// core.ProviderError values carrying a classification sentinel.
package normalize

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/petal-labs/iris-messages/core"
)

// StatusOverloaded is the non-standard status the API uses when it is
// temporarily over capacity.
const StatusOverloaded = 529

// APIError normalizes a non-2xx response. The body is expected to be an error
// envelope:
//
//	{"type":"error","error":{"type":"rate_limit_error","message":"..."}}
//
// Missing parts fall back to the HTTP status text and "unknown_error". The
// request-id, retry-after and x-should-retry headers are carried over.
func APIError(provider string, status int, header http.Header, body []byte) error {
	env := gjson.ParseBytes(body)

	message := env.Get("error.message").String()
	code := env.Get("error.type").String()
	if code == "" {
		code = "unknown_error"
	}
	requestID := header.Get("request-id")
	if requestID == "" {
		requestID = env.Get("request_id").String()
	}

	sentinel := SentinelForStatusWithOverrides(status, map[int]error{
		StatusOverloaded: core.ErrOverloaded,
	})

	err := providerError(provider, status, requestID, code, message, sentinel)
	err.RetryAfter = RetryAfter(header, time.Now())
	if v, perr := strconv.ParseBool(header.Get("x-should-retry")); perr == nil {
		err.ShouldRetry = &v
	}
	return err
}

// RetryAfter reads the server's retry hint. retry-after-ms takes precedence
// over retry-after, which may be seconds or an HTTP date. Unparseable or past
// values yield zero.
func RetryAfter(header http.Header, now time.Time) time.Duration {
	if ms, err := strconv.ParseFloat(header.Get("retry-after-ms"), 64); err == nil && ms > 0 {
		return time.Duration(ms * float64(time.Millisecond))
	}
	v := header.Get("retry-after")
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// StreamError normalizes an error event received after the stream started.
// There is no HTTP status, so the sentinel comes from the error type.
func StreamError(provider, requestID, code, message string) error {
	if message == "" {
		message = "stream error"
	}
	return &core.ProviderError{
		Provider:  provider,
		RequestID: requestID,
		Code:      code,
		Message:   message,
		Err:       SentinelForType(code),
	}
}

// NetworkError wraps transport failures as provider-specific network errors.
func NetworkError(provider string, err error) error {
	return &core.ProviderError{
		Provider: provider,
		Message:  err.Error(),
		Err:      core.ErrNetwork,
	}
}

// DecodeError wraps decode/parsing failures as provider-specific decode errors.
func DecodeError(provider string, err error) error {
	return &core.ProviderError{
		Provider: provider,
		Message:  err.Error(),
		Err:      core.ErrDecode,
	}
}

// ProviderError constructs a normalized ProviderError.
// If message is empty, HTTP status text is used.
// If sentinel is nil, default status-based mapping is applied.
func ProviderError(provider string, status int, requestID, code, message string, sentinel error) error {
	return providerError(provider, status, requestID, code, message, sentinel)
}

func providerError(provider string, status int, requestID, code, message string, sentinel error) *core.ProviderError {
	if message == "" {
		message = http.StatusText(status)
	}
	if message == "" {
		message = "unknown error"
	}
	if sentinel == nil {
		sentinel = SentinelForStatus(status)
	}
	return &core.ProviderError{
		Provider:  provider,
		Status:    status,
		RequestID: requestID,
		Code:      code,
		Message:   message,
		Err:       sentinel,
	}
}

// SentinelForStatus maps an HTTP status code to a core sentinel error.
func SentinelForStatus(status int) error {
	return SentinelForStatusWithOverrides(status, nil)
}

// SentinelForStatusWithOverrides maps an HTTP status code to a core sentinel error,
// then applies any exact status overrides from the provided map.
func SentinelForStatusWithOverrides(status int, overrides map[int]error) error {
	if overrides != nil {
		if override, ok := overrides[status]; ok && override != nil {
			return override
		}
	}

	switch {
	case status == http.StatusBadRequest || status == http.StatusRequestEntityTooLarge:
		return core.ErrBadRequest
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return core.ErrUnauthorized
	case status == http.StatusNotFound:
		return core.ErrNotFound
	case status == http.StatusTooManyRequests:
		return core.ErrRateLimited
	case status == StatusOverloaded:
		return core.ErrOverloaded
	default:
		return core.ErrServer
	}
}

// SentinelForType maps an API error type such as "overloaded_error" to a core
// sentinel error.
func SentinelForType(code string) error {
	switch code {
	case "invalid_request_error", "request_too_large":
		return core.ErrBadRequest
	case "authentication_error", "permission_error":
		return core.ErrUnauthorized
	case "not_found_error":
		return core.ErrNotFound
	case "rate_limit_error":
		return core.ErrRateLimited
	case "overloaded_error":
		return core.ErrOverloaded
	default:
		return core.ErrServer
	}
}
