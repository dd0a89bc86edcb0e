// ABOUTME: Session list/fetch/delete operations against the backend
// ABOUTME: Routes by conversation target and maps not-found to an empty result

package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dougss/agno-agent-ui/internal/chat"
	"github.com/dougss/agno-agent-ui/internal/session"
)

// errNotFound marks a 404-equivalent from the backend. Read paths translate
// it into an empty result set rather than an error.
var errNotFound = errors.New("not found")

// sessionsListURL resolves the list endpoint for a target.
func (c *Client) sessionsListURL(t Target) string {
	switch {
	case t.Kind == TargetTeam:
		return teamSessionsURL(c.baseURL, t.ID)
	case t.Dynamic():
		return dynamicAgentSessionsURL(c.baseURL, t.ID)
	default:
		return agentSessionsURL(c.baseURL, t.ID)
	}
}

// sessionURL resolves the single-session endpoint for a target.
func (c *Client) sessionURL(t Target, sessionID string) string {
	switch {
	case t.Kind == TargetTeam:
		return teamSessionURL(c.baseURL, t.ID, sessionID)
	case t.Dynamic():
		return dynamicAgentSessionURL(c.baseURL, t.ID, sessionID)
	default:
		return agentSessionURL(c.baseURL, t.ID, sessionID)
	}
}

// ListSessions returns the persisted sessions for a target, newest first.
// Not-found and transport failures both yield an empty list; failures
// additionally raise a notification. The UI render path never sees an error.
func (c *Client) ListSessions(ctx context.Context, t Target) []session.Entry {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var entries []session.Entry
	err := c.getJSON(ctx, c.sessionsListURL(t), &entries)
	if errors.Is(err, errNotFound) {
		return []session.Entry{}
	}
	if err != nil {
		c.notifyError("Error loading sessions", err)
		return []session.Entry{}
	}
	if entries == nil {
		entries = []session.Entry{}
	}
	return entries
}

// GetSession fetches one session's transcript and normalizes it into the
// Message model regardless of which historical shape the backend returned.
// Not-found yields an empty transcript, not an error.
func (c *Client) GetSession(ctx context.Context, t Target, sessionID string) ([]chat.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	raw := transcriptPayload{}
	err := c.getJSON(ctx, c.sessionURL(t, sessionID), &raw)
	if errors.Is(err, errNotFound) {
		return []chat.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching session %s: %w", sessionID, err)
	}

	messages, err := normalizeTranscript(raw)
	if err != nil {
		return nil, fmt.Errorf("normalizing session %s: %w", sessionID, err)
	}
	return messages, nil
}

// DeleteSession removes one session on the backend. The local cache is left
// untouched on failure; callers only update state after success.
func (c *Client) DeleteSession(ctx context.Context, t Target, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodDelete, c.sessionURL(t, sessionID), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.notifier.Notify(slog.LevelError, "Error deleting session")
		return fmt.Errorf("deleting session %s: %w", sessionID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.notifier.Notify(slog.LevelError, "Error deleting session")
		return fmt.Errorf("deleting session %s: unexpected status %s", sessionID, resp.Status)
	}

	c.logger.Debug("session deleted", "session_id", sessionID, "target", t.ID)
	return nil
}
