// ABOUTME: Endpoint URL construction for the playground and dynamic-agent backends
// ABOUTME: One function per route, mirrored off the backend's v1 API surface

package api

import "fmt"

func agentsURL(base string) string {
	return base + "/v1/playground/agents"
}

func teamsURL(base string) string {
	return base + "/v1/playground/teams"
}

func statusURL(base string) string {
	return base + "/v1/playground/status"
}

func agentRunURL(base, agentID string) string {
	return fmt.Sprintf("%s/v1/playground/agents/%s/runs", base, agentID)
}

func teamRunURL(base, teamID string) string {
	return fmt.Sprintf("%s/v1/playground/teams/%s/runs", base, teamID)
}

func agentSessionsURL(base, agentID string) string {
	return fmt.Sprintf("%s/v1/playground/agents/%s/sessions", base, agentID)
}

func agentSessionURL(base, agentID, sessionID string) string {
	return fmt.Sprintf("%s/v1/playground/agents/%s/sessions/%s", base, agentID, sessionID)
}

func teamSessionsURL(base, teamID string) string {
	return fmt.Sprintf("%s/v1/playground/teams/%s/sessions", base, teamID)
}

func teamSessionURL(base, teamID, sessionID string) string {
	return fmt.Sprintf("%s/v1/playground/teams/%s/sessions/%s", base, teamID, sessionID)
}

func dynamicAgentsURL(base string) string {
	return base + "/v1/dynamic-agents"
}

func dynamicAgentURL(base, agentID string) string {
	return fmt.Sprintf("%s/v1/dynamic-agents/%s", base, agentID)
}

func dynamicAgentChatURL(base, agentID string) string {
	return fmt.Sprintf("%s/v1/dynamic-agents/%s/chat", base, agentID)
}

func dynamicAgentSessionsURL(base, agentID string) string {
	return fmt.Sprintf("%s/v1/dynamic-agents/%s/sessions", base, agentID)
}

func dynamicAgentSessionURL(base, agentID, sessionID string) string {
	return fmt.Sprintf("%s/v1/dynamic-agents/%s/sessions/%s", base, agentID, sessionID)
}
