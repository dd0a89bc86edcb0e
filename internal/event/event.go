// ABOUTME: Canonical event model for agent run streams
// ABOUTME: Defines the closed set of event kinds plus the wire fragments events carry

package event

import "encoding/json"

// Kind identifies the logical meaning of a stream event. Team-scoped and
// agent-scoped wire events that behave identically map to the same Kind.
type Kind string

const (
	KindRunStarted         Kind = "run_started"
	KindContentDelta       Kind = "content_delta"
	KindToolCallDelta      Kind = "tool_call_delta"
	KindReasoningStep      Kind = "reasoning_step"
	KindReasoningCompleted Kind = "reasoning_completed"
	KindRunError           Kind = "run_error"
	KindRunCancelled       Kind = "run_cancelled"
	KindMemoryUpdate       Kind = "memory_update"
	KindRunCompleted       Kind = "run_completed"
)

// Scope records which backend surface emitted the event. Downstream handling
// is identical for both; the scope is carried for logging and diagnostics.
type Scope string

const (
	ScopeAgent Scope = "agent"
	ScopeTeam  Scope = "team"
)

// Metrics holds tool-call timing reported by the backend.
type Metrics struct {
	Time float64 `json:"time"`
}

// ToolCall is one tool invocation as it appears on the wire, either inside a
// stream event or inside a persisted run log. A call typically arrives twice:
// first as "started" (id, name, args) and later as "completed" (same id plus
// result content and metrics). Optional fields are pointers so that a later
// fragment only overwrites what it actually carries.
type ToolCall struct {
	ToolCallID    string         `json:"tool_call_id,omitempty"`
	ToolName      string         `json:"tool_name,omitempty"`
	ToolArgs      map[string]any `json:"tool_args,omitempty"`
	Content       string         `json:"content,omitempty"`
	ToolCallError *bool          `json:"tool_call_error,omitempty"`
	Metrics       *Metrics       `json:"metrics,omitempty"`
	Role          string         `json:"role,omitempty"`
	CreatedAt     int64          `json:"created_at,omitempty"`
}

// ReasoningMessage is a message from the run log's reasoning transcript.
// Entries with role "tool" are converted into ToolCalls during history
// normalization; other roles are ignored.
type ReasoningMessage struct {
	Role          string         `json:"role"`
	Content       string         `json:"content,omitempty"`
	ToolCallID    string         `json:"tool_call_id,omitempty"`
	ToolName      string         `json:"tool_name,omitempty"`
	ToolArgs      map[string]any `json:"tool_args,omitempty"`
	ToolCallError *bool          `json:"tool_call_error,omitempty"`
	Metrics       *Metrics       `json:"metrics,omitempty"`
	CreatedAt     int64          `json:"created_at,omitempty"`
}

// ExtraData carries reasoning output and citation references attached to an
// event or message. Steps and references are kept as raw JSON: their internal
// shape varies by backend version and the client only accumulates and
// re-renders them.
type ExtraData struct {
	ReasoningSteps    []json.RawMessage  `json:"reasoning_steps,omitempty"`
	ReasoningMessages []ReasoningMessage `json:"reasoning_messages,omitempty"`
	References        []json.RawMessage  `json:"references,omitempty"`
}

// ResponseAudio carries a streamed audio response. Only the transcript is
// interpreted by the client; it accretes across chunks.
type ResponseAudio struct {
	Transcript string `json:"transcript,omitempty"`
}

// Event is one classified stream event. Content is kept raw because backends
// send either a JSON string (possibly cumulative), a structured object, or
// nothing; ContentString distinguishes the textual case.
type Event struct {
	Kind  Kind
	Scope Scope

	SessionID string
	CreatedAt int64

	Content       json.RawMessage
	Tool          *ToolCall
	Tools         []ToolCall
	ExtraData     *ExtraData
	Images        []json.RawMessage
	Videos        []json.RawMessage
	Audio         json.RawMessage
	ResponseAudio *ResponseAudio
}

// ContentString returns the event content as text if the wire value was a
// JSON string. ok is false for absent, null, or structured content.
func (e *Event) ContentString() (text string, ok bool) {
	if len(e.Content) == 0 {
		return "", false
	}
	if err := json.Unmarshal(e.Content, &text); err != nil {
		return "", false
	}
	return text, true
}

// HasContent reports whether the event carried any content value, textual or
// structured. A JSON null counts as no content.
func (e *Event) HasContent() bool {
	return len(e.Content) > 0 && string(e.Content) != "null"
}
