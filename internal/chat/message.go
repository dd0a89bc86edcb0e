// ABOUTME: Transcript message model owned by the conversation reducer
// ABOUTME: One Message per transcript entry with tool calls, reasoning data, and media

package chat

import (
	"encoding/json"

	"github.com/dougss/agno-agent-ui/internal/event"
)

// Role identifies who authored a transcript entry.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Message is one entry in the conversation transcript. Messages are owned
// exclusively by the reducer; observers receive copies and must not mutate
// them.
type Message struct {
	Role           Role
	Content        string
	ToolCalls      []event.ToolCall
	ExtraData      *event.ExtraData
	Images         []json.RawMessage
	Videos         []json.RawMessage
	Audio          json.RawMessage
	ResponseAudio  *event.ResponseAudio
	CreatedAt      int64
	StreamingError bool
}

// clone returns a deep-enough copy for reducer transitions: slices are
// re-sliced so appends on the copy never alias the original, and the extra
// data bag is duplicated.
func (m Message) clone() Message {
	out := m
	if m.ToolCalls != nil {
		out.ToolCalls = append([]event.ToolCall(nil), m.ToolCalls...)
	}
	if m.ExtraData != nil {
		ed := *m.ExtraData
		if ed.ReasoningSteps != nil {
			ed.ReasoningSteps = append([]json.RawMessage(nil), ed.ReasoningSteps...)
		}
		if ed.References != nil {
			ed.References = append([]json.RawMessage(nil), ed.References...)
		}
		out.ExtraData = &ed
	}
	if m.ResponseAudio != nil {
		ra := *m.ResponseAudio
		out.ResponseAudio = &ra
	}
	return out
}
