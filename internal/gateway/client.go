// Package gateway is a client for an OpenAI-compatible chat completion
// endpoint. Rate limits are retried with exponential backoff; every other
// failure is returned immediately as one of ErrRateLimited, ErrQuotaExceeded
// or ErrUpstream.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL    = "https://openrouter.ai/api/v1"
	DefaultModel      = "google/gemini-2.5-flash"
	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 2
	initialBackoff    = 500 * time.Millisecond
	maxErrorBody      = 2048
)

// Client talks to the chat completion endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	title      string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithMaxRetries sets how many times a rate-limited call is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBackoff sets the initial retry backoff. It doubles on each attempt.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// NewClient creates a gateway client with the given API key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		maxRetries: defaultMaxRetries,
		backoff:    initialBackoff,
		title:      "vibewedding",
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NewClientWithBaseURL creates a client pointing at a custom base URL.
func NewClientWithBaseURL(apiKey, baseURL string, opts ...Option) *Client {
	c := NewClient(apiKey, opts...)
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// Complete sends one chat completion request and returns the content of the
// first choice.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	attempts := c.maxRetries + 1
	var lastErr error
	for attempt := range attempts {
		content, err := c.doComplete(ctx, body)
		if err == nil {
			return content, nil
		}
		if !isRateLimit(err) {
			return "", err
		}

		lastErr = err
		if attempt < attempts-1 {
			backoff := time.Duration(float64(c.backoff) * math.Pow(2, float64(attempt)))
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %w", ErrUpstream, ctx.Err())
			case <-time.After(backoff):
			}
		}
	}

	return "", fmt.Errorf("rate limited after %d attempts: %w", attempts, lastErr)
}

func (c *Client) doComplete(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: executing request: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var out ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decoding response: %w", ErrUpstream, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", ErrUpstream)
	}
	return out.Choices[0].Message.Content, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Title", c.title)
}
