// ABOUTME: Run start operations: streaming and single-shot turns
// ABOUTME: Routes by target and builds the form or json body each backend expects

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// RunRequest is one outbound turn. SessionID is empty on a brand-new
// conversation; the backend mints one and announces it in the run-started
// event.
type RunRequest struct {
	Message   string
	SessionID string
	UserID    string
	Stream    bool
}

// runURL resolves the run endpoint for a target.
func (c *Client) runURL(t Target) string {
	switch {
	case t.Kind == TargetTeam:
		return teamRunURL(c.baseURL, t.ID)
	case t.Dynamic():
		return dynamicAgentChatURL(c.baseURL, t.ID)
	default:
		return agentRunURL(c.baseURL, t.ID)
	}
}

// buildRunRequest assembles the HTTP request for a turn. The playground
// backend takes a form body; the dynamic-agent backend takes json.
func (c *Client) buildRunRequest(ctx context.Context, t Target, r RunRequest) (*http.Request, error) {
	var (
		body        io.Reader
		contentType string
	)

	if t.Dynamic() {
		payload, err := json.Marshal(map[string]any{
			"message":    r.Message,
			"session_id": r.SessionID,
			"user_id":    r.UserID,
			"stream":     r.Stream,
		})
		if err != nil {
			return nil, fmt.Errorf("encoding run request: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	} else {
		form := url.Values{}
		form.Set("message", r.Message)
		form.Set("stream", strconv.FormatBool(r.Stream))
		if r.SessionID != "" {
			form.Set("session_id", r.SessionID)
		}
		if r.UserID != "" {
			form.Set("user_id", r.UserID)
		}
		body = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.runURL(t), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	if r.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	return req, nil
}

// StartRun opens a streaming turn and returns the raw event stream. The
// caller owns the stream and must close it; the connection stays open for
// the whole turn, so the passed context should cover the turn, not a
// request timeout.
func (c *Client) StartRun(ctx context.Context, t Target, r RunRequest) (io.ReadCloser, error) {
	r.Stream = true
	req, err := c.buildRunRequest(ctx, t, r)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("starting run: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("starting run: unexpected status %s", resp.Status)
	}

	c.logger.Debug("run started", "target", t.ID, "kind", t.Kind, "session_id", r.SessionID)
	return resp.Body, nil
}

// RunOnce executes a non-streaming turn and returns the terminal run payload
// as raw json. Callers fold it into conversation state as if it were the
// final event of a stream.
func (c *Client) RunOnce(ctx context.Context, t Target, r RunRequest) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	r.Stream = false
	req, err := c.buildRunRequest(ctx, t, r)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("running turn: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("running turn: unexpected status %s", resp.Status)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading run response: %w", err)
	}
	return json.RawMessage(payload), nil
}
