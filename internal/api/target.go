// ABOUTME: Conversation target model and lexical dynamic-agent classification
// ABOUTME: A target is exactly one of team, static agent, or dynamic agent

package api

import (
	"strings"

	"github.com/google/uuid"
)

// TargetKind discriminates the three conversation target types.
type TargetKind string

const (
	TargetTeam  TargetKind = "team"
	TargetAgent TargetKind = "agent"
)

// Target identifies the conversation counterpart. Kind and ID are supplied
// externally; whether an agent target is dynamic is decided lexically from
// the id alone, no backend round-trip needed.
type Target struct {
	Kind TargetKind
	ID   string
}

// TeamTarget returns a team conversation target.
func TeamTarget(id string) Target { return Target{Kind: TargetTeam, ID: id} }

// AgentTarget returns an agent conversation target (static or dynamic).
func AgentTarget(id string) Target { return Target{Kind: TargetAgent, ID: id} }

// Dynamic reports whether this target routes to the dynamic-agent backend.
// Teams are never dynamic regardless of id shape.
func (t Target) Dynamic() bool {
	return t.Kind == TargetAgent && IsDynamicAgent(t.ID)
}

// IsDynamicAgent classifies an agent id by its lexical shape: dynamic agents
// carry a generated 36-character identifier in canonical 8-4-4-4-12
// hexadecimal grouping. Anything else is a statically configured agent.
func IsDynamicAgent(id string) bool {
	if len(id) != 36 || strings.Count(id, "-") != 4 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
