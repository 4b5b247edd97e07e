package messages

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/petal-labs/iris-messages/core"
	"github.com/petal-labs/iris-messages/internal/normalize"
	"github.com/petal-labs/iris-messages/stream"
)

const (
	providerName = "anthropic"
	messagesPath = "/v1/messages"

	opNew    = "messages.new"
	opStream = "messages.stream"
)

// DefaultAPIKeyEnvVar is the environment variable read by NewFromEnv.
const DefaultAPIKeyEnvVar = "ANTHROPIC_API_KEY"

// BaseURLEnvVar optionally overrides the base URL in NewFromEnv.
const BaseURLEnvVar = "ANTHROPIC_BASE_URL"

// ErrAPIKeyNotFound is returned when the API key environment variable is not set.
var ErrAPIKeyNotFound = errors.New("messages: ANTHROPIC_API_KEY environment variable not set")

// Client calls the Messages API. It is safe for concurrent use.
type Client struct {
	config Config
}

// NewClient creates a client with the given API key and options.
func NewClient(apiKey string, opts ...Option) *Client {
	cfg := Config{
		APIKey:      core.NewSecret(apiKey),
		BaseURL:     DefaultBaseURL,
		HTTPClient:  http.DefaultClient,
		Version:     DefaultVersion,
		RetryPolicy: core.DefaultRetryPolicy(),
		Telemetry:   core.NoopTelemetryHook{},
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		MaxLineSize: stream.DefaultMaxLineSize,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return &Client{config: cfg}
}

// NewFromEnv creates a client using the ANTHROPIC_API_KEY environment
// variable, and ANTHROPIC_BASE_URL when set:
//
//	client, err := messages.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Options override the environment.
func NewFromEnv(opts ...Option) (*Client, error) {
	apiKey := os.Getenv(DefaultAPIKeyEnvVar)
	if apiKey == "" {
		return nil, ErrAPIKeyNotFound
	}
	if base := os.Getenv(BaseURLEnvVar); base != "" {
		opts = append([]Option{WithBaseURL(base)}, opts...)
	}
	return NewClient(apiKey, opts...), nil
}

// New sends a non-streaming request and returns the complete message.
func (c *Client) New(ctx context.Context, params MessageNewParams) (*Message, error) {
	params.Stream = false
	if err := params.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, newDecodeError(err)
	}

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	var msg Message
	err = c.withRetry(ctx, opNew, params.Model, func(ctx context.Context, key string) (string, core.TokenUsage, error) {
		resp, err := c.send(ctx, body, key, false)
		if err != nil {
			return "", core.TokenUsage{}, err
		}
		defer resp.Body.Close()

		requestID := resp.Header.Get("request-id")
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return requestID, core.TokenUsage{}, newNetworkError(err)
		}

		msg = Message{}
		if err := json.Unmarshal(respBody, &msg); err != nil {
			return requestID, core.TokenUsage{}, newDecodeError(err)
		}
		return requestID, msg.Usage, nil
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// NewStreaming sends a streaming request. The returned error covers request
// setup only; failures after the response started surface through the
// stream's Err. An error event from the server ends the stream with a
// core.ProviderError.
//
// The caller must Close the stream.
func (c *Client) NewStreaming(ctx context.Context, params MessageNewParams) (*stream.Stream[StreamEvent], error) {
	params.Stream = true
	if err := params.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, newDecodeError(err)
	}

	var resp *http.Response
	err = c.withRetry(ctx, opStream, params.Model, func(ctx context.Context, key string) (string, core.TokenUsage, error) {
		r, err := c.send(ctx, body, key, true)
		if err != nil {
			return "", core.TokenUsage{}, err
		}
		resp = r
		return r.Header.Get("request-id"), core.TokenUsage{}, nil
	})
	if err != nil {
		return nil, err
	}

	requestID := resp.Header.Get("request-id")
	return stream.New(ctx, resp.Body, StreamEvents,
		stream.WithLogger(c.config.Logger.With("request_id", requestID)),
		stream.WithMaxLineSize(c.config.MaxLineSize),
		stream.WithTerminal(func(ev StreamEvent) error {
			if e, ok := ev.(ErrorEvent); ok {
				return normalize.StreamError(providerName, requestID, e.Error.Type, e.Error.Message)
			}
			return nil
		}),
	), nil
}

type attemptFunc func(ctx context.Context, idempotencyKey string) (requestID string, usage core.TokenUsage, err error)

// withRetry runs fn until it succeeds or the retry policy gives up. Every
// attempt shares one idempotency key.
func (c *Client) withRetry(ctx context.Context, op string, model core.ModelID, fn attemptFunc) error {
	key := uuid.NewString()

	for attempt := 0; ; attempt++ {
		start := time.Now()
		c.config.Telemetry.OnRequestStart(core.RequestStartEvent{
			Operation: op,
			Model:     model,
			Attempt:   attempt,
			Start:     start,
		})

		requestID, usage, err := fn(ctx, key)

		c.config.Telemetry.OnRequestEnd(core.RequestEndEvent{
			Operation: op,
			Model:     model,
			Attempt:   attempt,
			RequestID: requestID,
			Start:     start,
			End:       time.Now(),
			Usage:     usage,
			Err:       err,
		})
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return &core.WireError{Kind: core.ErrCancelled, Cause: ctx.Err()}
		}

		if c.config.RetryPolicy == nil {
			return err
		}
		delay, ok := c.config.RetryPolicy.NextDelay(attempt, err)
		if !ok {
			return err
		}
		c.config.Logger.Warn("retrying request",
			"operation", op,
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)
		if werr := core.Wait(ctx, delay); werr != nil {
			return &core.WireError{Kind: core.ErrCancelled, Cause: werr}
		}
	}
}

// send performs one HTTP attempt. A non-2xx response is read, closed and
// returned as a normalized error.
func (c *Client) send(ctx context.Context, body []byte, idempotencyKey string, streaming bool) (*http.Response, error) {
	url := c.config.BaseURL + messagesPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, newNetworkError(err)
	}

	for key, values := range c.buildHeaders() {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	if streaming {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.config.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, newNetworkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, normalize.APIError(providerName, resp.StatusCode, resp.Header, respBody)
	}
	return resp, nil
}

// buildHeaders constructs the HTTP headers for an API request.
func (c *Client) buildHeaders() http.Header {
	headers := make(http.Header)

	headers.Set("x-api-key", c.config.APIKey.Expose())
	headers.Set("anthropic-version", c.config.Version)
	headers.Set("Content-Type", "application/json")

	for key, values := range c.config.Headers {
		for _, v := range values {
			headers.Add(key, v)
		}
	}

	return headers
}

func newNetworkError(err error) error {
	return normalize.NetworkError(providerName, err)
}

func newDecodeError(err error) error {
	return normalize.DecodeError(providerName, err)
}
