package messages

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/petal-labs/iris-messages/core"
)

// Config holds configuration for the Client.
type Config struct {
	// APIKey is the API key (required).
	APIKey core.Secret

	// BaseURL is the API base URL. Defaults to https://api.anthropic.com
	BaseURL string

	// HTTPClient is the HTTP client to use. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Version is the API version header. Defaults to 2023-06-01.
	Version string

	// Headers contains optional extra headers to include in requests.
	Headers http.Header

	// Timeout bounds a non-streaming call including retries. Streams are
	// bounded by the caller's context only.
	Timeout time.Duration

	// RetryPolicy decides whether a failed request setup is retried.
	// Nil disables retries.
	RetryPolicy core.RetryPolicy

	// Telemetry receives request lifecycle events.
	Telemetry core.TelemetryHook

	// Logger receives retry warnings and stream debug output.
	Logger *slog.Logger

	// MaxLineSize bounds one line of a streaming response.
	MaxLineSize int
}

// DefaultBaseURL is the default API base URL.
const DefaultBaseURL = "https://api.anthropic.com"

// DefaultVersion is the default API version.
const DefaultVersion = "2023-06-01"

// Option configures the Client.
type Option func(*Config)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithVersion sets the API version header.
func WithVersion(version string) Option {
	return func(c *Config) {
		c.Version = version
	}
}

// WithHeader adds an extra header to include in requests.
func WithHeader(key, value string) Option {
	return func(c *Config) {
		if c.Headers == nil {
			c.Headers = make(http.Header)
		}
		c.Headers.Set(key, value)
	}
}

// WithTimeout sets the timeout for non-streaming calls.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithRetryPolicy sets the retry policy. Pass nil to disable retries.
func WithRetryPolicy(p core.RetryPolicy) Option {
	return func(c *Config) {
		c.RetryPolicy = p
	}
}

// WithTelemetry sets the telemetry hook.
func WithTelemetry(h core.TelemetryHook) Option {
	return func(c *Config) {
		if h == nil {
			h = core.NoopTelemetryHook{}
		}
		c.Telemetry = h
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithMaxLineSize bounds one line of a streaming response.
func WithMaxLineSize(n int) Option {
	return func(c *Config) {
		c.MaxLineSize = n
	}
}
