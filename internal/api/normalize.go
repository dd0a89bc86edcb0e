// ABOUTME: Shape normalization for the two historical transcript formats
// ABOUTME: Exhaustive tagged-variant handling mapping run-log and flat shapes onto Message

package api

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/dougss/agno-agent-ui/internal/chat"
	"github.com/dougss/agno-agent-ui/internal/event"
	"github.com/dougss/agno-agent-ui/internal/render"
)

// transcriptPayload is the undiscriminated wire response of a session fetch.
// Exactly one of the two shapes is populated: run-log (runs, possibly nested
// under memory) or flat role-tagged messages from the dynamic-agent backend.
type transcriptPayload struct {
	SessionID string        `json:"session_id"`
	Runs      []runEntry    `json:"runs"`
	Memory    *memoryBlock  `json:"memory"`
	Messages  []flatMessage `json:"messages"`
}

type memoryBlock struct {
	Runs []runEntry `json:"runs"`
}

// runEntry is one past run: at most one user turn and one agent turn.
type runEntry struct {
	Message  *runMessage  `json:"message"`
	Response *runResponse `json:"response"`
}

type runMessage struct {
	Content   json.RawMessage `json:"content"`
	CreatedAt int64           `json:"created_at"`
}

type runResponse struct {
	Content       json.RawMessage      `json:"content"`
	Tools         []event.ToolCall     `json:"tools"`
	ExtraData     *event.ExtraData     `json:"extra_data"`
	Images        []json.RawMessage    `json:"images"`
	Videos        []json.RawMessage    `json:"videos"`
	Audio         json.RawMessage      `json:"audio"`
	ResponseAudio *event.ResponseAudio `json:"response_audio"`
	CreatedAt     int64                `json:"created_at"`
}

// flatMessage is the dynamic-agent backend's transcript entry.
type flatMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// transcriptShape tags the variant a payload resolved to.
type transcriptShape int

const (
	shapeEmpty transcriptShape = iota
	shapeRunLog
	shapeFlat
)

func (p transcriptPayload) shape() transcriptShape {
	switch {
	case p.Messages != nil:
		return shapeFlat
	case p.Runs != nil || (p.Memory != nil && p.Memory.Runs != nil):
		return shapeRunLog
	default:
		return shapeEmpty
	}
}

// normalizeTranscript maps either historical shape onto the Message model so
// historical and live turns render identically.
func normalizeTranscript(p transcriptPayload) ([]chat.Message, error) {
	switch p.shape() {
	case shapeFlat:
		return normalizeFlat(p.Messages), nil
	case shapeRunLog:
		runs := p.Runs
		if runs == nil {
			runs = p.Memory.Runs
		}
		return normalizeRunLog(runs), nil
	default:
		return []chat.Message{}, nil
	}
}

// normalizeFlat maps role-tagged flat messages one-to-one; there is no tool
// call extraction in this shape.
func normalizeFlat(msgs []flatMessage) []chat.Message {
	out := make([]chat.Message, 0, len(msgs))
	for _, m := range msgs {
		role := chat.RoleAgent
		if m.Role == "user" {
			role = chat.RoleUser
		}
		out = append(out, chat.Message{
			Role:      role,
			Content:   m.Content,
			CreatedAt: m.Timestamp,
		})
	}
	return out
}

// normalizeRunLog flattens past runs into user/agent message pairs. Tool
// messages from the reasoning transcript become ToolCall entries with
// defaulted metrics so they render like live tool calls.
func normalizeRunLog(runs []runEntry) []chat.Message {
	var out []chat.Message
	for _, run := range runs {
		if run.Message != nil {
			out = append(out, chat.Message{
				Role:      chat.RoleUser,
				Content:   renderContent(run.Message.Content),
				CreatedAt: run.Message.CreatedAt,
			})
		}
		if run.Response != nil {
			resp := run.Response
			toolCalls := append([]event.ToolCall(nil), resp.Tools...)
			if resp.ExtraData != nil {
				toolCalls = append(toolCalls, reasoningToolCalls(resp.ExtraData.ReasoningMessages)...)
			}

			out = append(out, chat.Message{
				Role:          chat.RoleAgent,
				Content:       renderContent(resp.Content),
				ToolCalls:     toolCalls,
				ExtraData:     resp.ExtraData,
				Images:        resp.Images,
				Videos:        resp.Videos,
				Audio:         resp.Audio,
				ResponseAudio: resp.ResponseAudio,
				CreatedAt:     resp.CreatedAt,
			})
		}
	}
	if out == nil {
		out = []chat.Message{}
	}
	return out
}

// reasoningToolCalls converts role=tool reasoning messages into ToolCall
// entries, defaulting the metrics and timestamp fields the transcript shape
// omits.
func reasoningToolCalls(msgs []event.ReasoningMessage) []event.ToolCall {
	var out []event.ToolCall
	for _, m := range msgs {
		if m.Role != "tool" {
			continue
		}
		tc := event.ToolCall{
			ToolCallID:    m.ToolCallID,
			ToolName:      m.ToolName,
			ToolArgs:      m.ToolArgs,
			Content:       m.Content,
			ToolCallError: m.ToolCallError,
			Metrics:       m.Metrics,
			Role:          m.Role,
			CreatedAt:     m.CreatedAt,
		}
		if tc.Metrics == nil {
			tc.Metrics = &event.Metrics{}
		}
		if tc.CreatedAt == 0 {
			tc.CreatedAt = time.Now().Unix()
		}
		out = append(out, tc)
	}
	return out
}

// textPart is one element of an array-form content value.
type textPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// renderContent produces the textual form of a historical content value:
// strings pass through, part arrays join their text items, anything else is
// rendered as a stable json block.
func renderContent(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var parts []textPart
	if err := json.Unmarshal(raw, &parts); err == nil {
		texts := make([]string, 0, len(parts))
		for _, p := range parts {
			if p.Type == "text" {
				texts = append(texts, p.Text)
			}
		}
		return strings.Join(texts, " ")
	}

	return render.JSONMarkdown(raw)
}
