// Package fdtd is the client for the remote FDTD solver.
//
// A Client submits simulation.Simulation values as tasks, tracks each task
// with a Job state machine and fetches the decoded result dataset.
package fdtd

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"fdtd-sdk/services"
	"fdtd-sdk/store"
	"fdtd-sdk/utils"
)

const DefaultBaseURL = "https://fdtd.cloud/api"

// ClientOption is a function that configures a Client
type ClientOption func(*Client)

// HistoryRecorder persists task submissions and state changes.
type HistoryRecorder interface {
	Record(ctx context.Context, rec store.Record) error
}

// Client is the main client for interacting with the solver API
// After creation, the client is immutable and safe for concurrent use
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	// Custom headers to include in all requests
	headers map[string]string

	timeout        time.Duration
	connectTimeout time.Duration
	retryConfig    *RetryConfig
	pollConfig     *PollConfig
	maxGridCells   int64
	history        HistoryRecorder

	Tasks *services.TaskService
}

// RetryConfig configures retry behavior for failed requests
type RetryConfig struct {
	MaxRetries int
	RetryDelay time.Duration
	// MaxDelay caps the exponential backoff, unbounded when zero.
	MaxDelay time.Duration
}

// PollConfig configures Wait.
type PollConfig struct {
	Interval    time.Duration
	MaxInterval time.Duration
	// Timeout bounds the total wait, unbounded when zero.
	Timeout time.Duration
	// MaxFailures is the number of consecutive transient poll errors tolerated.
	MaxFailures int
}

// DefaultPollConfig returns the polling used when none is configured.
func DefaultPollConfig() *PollConfig {
	return &PollConfig{
		Interval:    2 * time.Second,
		MaxInterval: 30 * time.Second,
		MaxFailures: 5,
	}
}

// NewClient creates a new Client with the given options. An empty apiKey is
// accepted; requests then fail with ErrMissingAPIKey.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	client := &Client{
		baseURL:        DefaultBaseURL,
		apiKey:         apiKey,
		headers:        make(map[string]string),
		timeout:        30 * time.Second,
		connectTimeout: 10 * time.Second,
		retryConfig: &RetryConfig{
			MaxRetries: 3,
			RetryDelay: 500 * time.Millisecond,
			MaxDelay:   10 * time.Second,
		},
		pollConfig: DefaultPollConfig(),
	}

	// Apply options
	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{
			Timeout:   client.timeout,
			Transport: newTransport(client.connectTimeout),
		}
	}

	// Initialize services
	client.Tasks = services.NewTaskService(client)

	return client
}

func newTransport(connectTimeout time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = (&net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	t.TLSHandshakeTimeout = connectTimeout
	return t
}

// WithBaseURL sets a custom base URL for the client
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
		if c.httpClient != nil {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithConnectTimeout bounds dialing and the TLS handshake
func WithConnectTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.connectTimeout = timeout
	}
}

// WithRetryConfig sets the retry configuration
func WithRetryConfig(config *RetryConfig) ClientOption {
	return func(c *Client) {
		c.retryConfig = config
	}
}

// WithPollConfig sets how Wait polls
func WithPollConfig(config *PollConfig) ClientOption {
	return func(c *Client) {
		c.pollConfig = config
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader adds a custom header that will be included in all requests
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithHeaders adds multiple custom headers that will be included in all requests
func WithHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithMaxGridCells rejects simulations whose grid exceeds n cells before upload
func WithMaxGridCells(n int64) ClientOption {
	return func(c *Client) {
		c.maxGridCells = n
	}
}

// WithHistory records submissions and terminal states
func WithHistory(h HistoryRecorder) ClientOption {
	return func(c *Client) {
		c.history = h
	}
}

// GetAPIKey returns the configured API key
func (c *Client) GetAPIKey() string {
	return c.apiKey
}

// GetBaseURL returns the configured base URL
func (c *Client) GetBaseURL() string {
	return c.baseURL
}

// Close releases the history store when it holds resources.
func (c *Client) Close() error {
	if closer, ok := c.history.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// NewRequest creates a new HTTP request with auth headers and custom headers
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	url := fmt.Sprintf("%s%s", c.baseURL, path)

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set auth header
	req.Header.Set("X-API-Key", c.apiKey)

	// Set default headers
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	// Set custom headers
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	return req, nil
}

// NewRawRequest creates a request for an absolute URL. No credentials or
// custom headers are attached.
func (c *Client) NewRawRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return req, nil
}

// Do executes an HTTP request with retry logic. Transport errors and 5xx
// responses are retried with capped exponential backoff; the last 5xx
// response is returned to the caller.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	maxRetries := max(c.retryConfig.MaxRetries, 0)
	backoff := utils.Backoff{Initial: c.retryConfig.RetryDelay, Max: c.retryConfig.MaxDelay}
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, berr := req.GetBody()
			if berr != nil {
				return nil, fmt.Errorf("failed to rewind request body: %w", berr)
			}
			req.Body = body
		}

		resp, err = c.httpClient.Do(req)

		// Success or non-retryable error
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}
		if err != nil && req.Context().Err() != nil {
			return nil, &NetworkError{Err: err}
		}

		// Don't retry on last attempt
		if attempt < maxRetries {
			if err == nil {
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				utils.LogDebug("%s %s returned %d, retrying (attempt %d)", req.Method, req.URL.Path, resp.StatusCode, attempt+1)
			} else {
				utils.LogDebug("%s %s failed: %v, retrying (attempt %d)", req.Method, req.URL.Path, err, attempt+1)
			}
			if serr := utils.Sleep(req.Context(), backoff.Delay(attempt)); serr != nil {
				return nil, &NetworkError{Err: serr}
			}
		}
	}

	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	return resp, nil
}
