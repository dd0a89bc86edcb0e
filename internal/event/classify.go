// ABOUTME: Classifier mapping decoded stream payloads onto the canonical event model
// ABOUTME: Keys on the payload's event name; unrecognized names are skipped for forward compatibility

package event

import "encoding/json"

// payload is the minimum wire shape of one stream frame. Every field except
// the event name is optional; presence, not type-correctness, drives
// downstream branching.
type payload struct {
	Event         string            `json:"event"`
	SessionID     string            `json:"session_id,omitempty"`
	CreatedAt     int64             `json:"created_at,omitempty"`
	Content       json.RawMessage   `json:"content,omitempty"`
	Tool          *ToolCall         `json:"tool,omitempty"`
	Tools         []ToolCall        `json:"tools,omitempty"`
	ExtraData     *ExtraData        `json:"extra_data,omitempty"`
	Images        []json.RawMessage `json:"images,omitempty"`
	Videos        []json.RawMessage `json:"videos,omitempty"`
	Audio         json.RawMessage   `json:"audio,omitempty"`
	ResponseAudio *ResponseAudio    `json:"response_audio,omitempty"`
}

// kindTable maps wire event names to their logical kind and scope.
// Team-scoped names share semantics with their entity-scoped counterparts.
// ReasoningStarted carries the session id the same way RunStarted does, so
// both classify as run_started.
var kindTable = map[string]struct {
	kind  Kind
	scope Scope
}{
	"RunStarted":                {KindRunStarted, ScopeAgent},
	"TeamRunStarted":            {KindRunStarted, ScopeTeam},
	"ReasoningStarted":          {KindRunStarted, ScopeAgent},
	"TeamReasoningStarted":      {KindRunStarted, ScopeTeam},
	"RunResponse":               {KindContentDelta, ScopeAgent},
	"RunResponseContent":        {KindContentDelta, ScopeAgent},
	"TeamRunResponseContent":    {KindContentDelta, ScopeTeam},
	"ToolCallStarted":           {KindToolCallDelta, ScopeAgent},
	"TeamToolCallStarted":       {KindToolCallDelta, ScopeTeam},
	"ToolCallCompleted":         {KindToolCallDelta, ScopeAgent},
	"TeamToolCallCompleted":     {KindToolCallDelta, ScopeTeam},
	"ReasoningStep":             {KindReasoningStep, ScopeAgent},
	"TeamReasoningStep":         {KindReasoningStep, ScopeTeam},
	"ReasoningCompleted":        {KindReasoningCompleted, ScopeAgent},
	"TeamReasoningCompleted":    {KindReasoningCompleted, ScopeTeam},
	"RunError":                  {KindRunError, ScopeAgent},
	"TeamRunError":              {KindRunError, ScopeTeam},
	"RunCancelled":              {KindRunCancelled, ScopeAgent},
	"TeamRunCancelled":          {KindRunCancelled, ScopeTeam},
	"UpdatingMemory":            {KindMemoryUpdate, ScopeAgent},
	"MemoryUpdateStarted":       {KindMemoryUpdate, ScopeAgent},
	"MemoryUpdateCompleted":     {KindMemoryUpdate, ScopeAgent},
	"TeamMemoryUpdateStarted":   {KindMemoryUpdate, ScopeTeam},
	"TeamMemoryUpdateCompleted": {KindMemoryUpdate, ScopeTeam},
	"RunCompleted":              {KindRunCompleted, ScopeAgent},
	"TeamRunCompleted":          {KindRunCompleted, ScopeTeam},
}

// Classify maps one decoded JSON payload to an Event. It returns ok=false for
// payloads that are not valid JSON objects and for event names outside the
// known set; callers skip those frames.
func Classify(raw json.RawMessage) (*Event, bool) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false
	}

	entry, known := kindTable[p.Event]
	if !known {
		return nil, false
	}

	return &Event{
		Kind:          entry.kind,
		Scope:         entry.scope,
		SessionID:     p.SessionID,
		CreatedAt:     p.CreatedAt,
		Content:       p.Content,
		Tool:          p.Tool,
		Tools:         p.Tools,
		ExtraData:     p.ExtraData,
		Images:        p.Images,
		Videos:        p.Videos,
		Audio:         p.Audio,
		ResponseAudio: p.ResponseAudio,
	}, true
}
