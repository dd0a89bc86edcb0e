// ABOUTME: Agent and team discovery plus dynamic-agent management
// ABOUTME: Discovery failures degrade to empty lists with a user notification

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
)

// Model describes the backing model of a discovered agent or team.
type Model struct {
	Provider string `json:"provider"`
}

// AgentInfo is one selectable agent or team from discovery. Storage reports
// whether the backend persists sessions for it; targets without storage get
// no session sidebar.
type AgentInfo struct {
	ID      string `json:"value"`
	Name    string `json:"label"`
	Model   Model  `json:"model"`
	Storage bool   `json:"storage"`
}

// ModelConfig describes the model backing a dynamic agent.
type ModelConfig struct {
	ModelID string `json:"model_id,omitempty"`
}

// DynamicAgent is a backend-managed agent definition, editable at runtime.
type DynamicAgent struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	Instructions string       `json:"instructions,omitempty"`
	ModelConfig  *ModelConfig `json:"model_config,omitempty"`
	CreatedAt    int64        `json:"created_at,omitempty"`
}

// wireAgent is the playground discovery response entry.
type wireAgent struct {
	AgentID string `json:"agent_id"`
	TeamID  string `json:"team_id"`
	Name    string `json:"name"`
	Model   Model  `json:"model"`
	Storage bool   `json:"storage"`
}

func (w wireAgent) info() AgentInfo {
	id := w.AgentID
	if id == "" {
		id = w.TeamID
	}
	return AgentInfo{ID: id, Name: w.Name, Model: w.Model, Storage: w.Storage}
}

// listInfos fetches a discovery endpoint, degrading failures to an empty
// list plus a notification so the picker always renders.
func (c *Client) listInfos(ctx context.Context, url, failureNotice string) []AgentInfo {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var wire []wireAgent
	err := c.getJSON(ctx, url, &wire)
	if errors.Is(err, errNotFound) {
		return []AgentInfo{}
	}
	if err != nil {
		c.notifyError(failureNotice, err)
		return []AgentInfo{}
	}

	out := make([]AgentInfo, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.info())
	}
	return out
}

// ListAgents returns the selectable playground agents.
func (c *Client) ListAgents(ctx context.Context) []AgentInfo {
	return c.listInfos(ctx, agentsURL(c.baseURL), "Error loading agents")
}

// ListTeams returns the selectable playground teams.
func (c *Client) ListTeams(ctx context.Context) []AgentInfo {
	return c.listInfos(ctx, teamsURL(c.baseURL), "Error loading teams")
}

// ListDynamicAgents returns the backend-managed dynamic agents, newest
// first. Failures degrade to an empty list with a notification.
func (c *Client) ListDynamicAgents(ctx context.Context) []DynamicAgent {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var wire struct {
		Agents []DynamicAgent `json:"agents"`
	}
	err := c.getJSON(ctx, dynamicAgentsURL(c.baseURL), &wire)
	if errors.Is(err, errNotFound) {
		return []DynamicAgent{}
	}
	if err != nil {
		c.notifyError("Error loading dynamic agents", err)
		return []DynamicAgent{}
	}

	agents := wire.Agents
	if agents == nil {
		agents = []DynamicAgent{}
	}
	slices.SortStableFunc(agents, func(a, b DynamicAgent) int {
		switch {
		case a.CreatedAt > b.CreatedAt:
			return -1
		case a.CreatedAt < b.CreatedAt:
			return 1
		default:
			return 0
		}
	})
	return agents
}

// GetDynamicAgent fetches one dynamic agent definition. The backend returns
// the bare agent object, not a wrapped envelope.
func (c *Client) GetDynamicAgent(ctx context.Context, agentID string) (*DynamicAgent, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var agent DynamicAgent
	if err := c.getJSON(ctx, dynamicAgentURL(c.baseURL, agentID), &agent); err != nil {
		return nil, fmt.Errorf("fetching dynamic agent %s: %w", agentID, err)
	}
	return &agent, nil
}

// UpdateDynamicAgent replaces a dynamic agent's definition on the backend.
func (c *Client) UpdateDynamicAgent(ctx context.Context, agent DynamicAgent) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	payload, err := json.Marshal(agent)
	if err != nil {
		return fmt.Errorf("encoding dynamic agent: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, dynamicAgentURL(c.baseURL, agent.ID), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("updating dynamic agent %s: %w", agent.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("updating dynamic agent %s: unexpected status %s", agent.ID, resp.Status)
	}
	return nil
}

// DeleteDynamicAgent removes a dynamic agent and its sessions on the
// backend.
func (c *Client) DeleteDynamicAgent(ctx context.Context, agentID string) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodDelete, dynamicAgentURL(c.baseURL, agentID), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("deleting dynamic agent %s: %w", agentID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("deleting dynamic agent %s: unexpected status %s", agentID, resp.Status)
	}
	return nil
}
