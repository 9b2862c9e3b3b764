package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client is an HTTP client with rate limiting shared across goroutines.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
}

// Option configures the Client.
type Option func(*Client)

// WithRateLimit sets requests per second.
func WithRateLimit(rps float64) Option {
	return func(cl *Client) {
		cl.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithTimeout sets the overall per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.http.Timeout = d }
}

// WithHTTPClient replaces the underlying client, mostly for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(cl *Client) { cl.http = h }
}

// New creates a new HTTP client.
func New(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Response wraps an HTTP response body and metadata.
type Response struct {
	Body       []byte
	StatusCode int
	Latency    time.Duration
}

// Get performs a rate-limited HTTP GET. Status codes >= 400 are errors.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	// Rate limit
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	latency := time.Since(start)

	if resp.StatusCode >= 400 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return &Response{Body: body, StatusCode: resp.StatusCode, Latency: latency}, nil
}

// StatusError is returned by Get for HTTP error statuses.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP GET %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}
