// ABOUTME: HTTP client for the playground and dynamic-agent backends
// ABOUTME: Owns endpoint resolution, auth header forwarding, and user-facing failure notification

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Notifier surfaces non-blocking, user-visible notices for collaborator
// failures, the counterpart of a UI toast. Implementations must not block.
type Notifier interface {
	Notify(level slog.Level, message string)
}

// logNotifier is the default Notifier: notices go to the structured log.
type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) Notify(level slog.Level, message string) {
	n.logger.Log(context.Background(), level, message)
}

// Client talks to one backend endpoint. It is safe for concurrent use; all
// methods are independent, order-insensitive operations against the backend.
type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	notifier Notifier
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets an opaque bearer token forwarded on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithNotifier overrides where user-visible notices are delivered.
func WithNotifier(n Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// NewClient creates a client for the given base endpoint URL. Pass nil
// logger for default.
func NewClient(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "api")

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Streaming runs hold the connection open for the whole turn, so no
		// overall client timeout; per-request contexts bound everything else.
		http:   &http.Client{},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.notifier == nil {
		c.notifier = logNotifier{logger: logger}
	}
	return c
}

// BaseURL returns the configured endpoint.
func (c *Client) BaseURL() string { return c.baseURL }

// newRequest builds a request with auth and accept headers applied.
func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// getJSON fetches a URL and decodes the JSON response into out. Non-2xx
// statuses are returned as errors; 404 is mapped to errNotFound so read
// paths can translate it into an empty result.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// notifyError reports a collaborator failure to the user without blocking
// the caller.
func (c *Client) notifyError(message string, err error) {
	c.logger.Warn(message, "error", err)
	c.notifier.Notify(slog.LevelError, message)
}

// Status probes the backend and returns the HTTP status code of the
// playground status endpoint.
func (c *Client) Status(ctx context.Context) (int, error) {
	req, err := c.newRequest(ctx, http.MethodGet, statusURL(c.baseURL), nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("checking status: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	return resp.StatusCode, nil
}

// requestTimeout bounds non-streaming collaborator calls.
const requestTimeout = 30 * time.Second
