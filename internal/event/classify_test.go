// ABOUTME: Tests for stream payload classification
// ABOUTME: Verifies kind/scope mapping, optional field tolerance, and unknown-event skipping

package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_KindMapping(t *testing.T) {
	tests := []struct {
		name  string
		kind  Kind
		scope Scope
	}{
		{"RunStarted", KindRunStarted, ScopeAgent},
		{"TeamRunStarted", KindRunStarted, ScopeTeam},
		{"ReasoningStarted", KindRunStarted, ScopeAgent},
		{"RunResponseContent", KindContentDelta, ScopeAgent},
		{"RunResponse", KindContentDelta, ScopeAgent},
		{"TeamRunResponseContent", KindContentDelta, ScopeTeam},
		{"ToolCallStarted", KindToolCallDelta, ScopeAgent},
		{"TeamToolCallCompleted", KindToolCallDelta, ScopeTeam},
		{"ReasoningStep", KindReasoningStep, ScopeAgent},
		{"TeamReasoningCompleted", KindReasoningCompleted, ScopeTeam},
		{"RunError", KindRunError, ScopeAgent},
		{"TeamRunCancelled", KindRunCancelled, ScopeTeam},
		{"UpdatingMemory", KindMemoryUpdate, ScopeAgent},
		{"TeamMemoryUpdateCompleted", KindMemoryUpdate, ScopeTeam},
		{"RunCompleted", KindRunCompleted, ScopeAgent},
		{"TeamRunCompleted", KindRunCompleted, ScopeTeam},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := json.RawMessage(`{"event":"` + tt.name + `"}`)
			ev, ok := Classify(raw)
			require.True(t, ok)
			assert.Equal(t, tt.kind, ev.Kind)
			assert.Equal(t, tt.scope, ev.Scope)
		})
	}
}

func TestClassify_UnknownEventSkipped(t *testing.T) {
	ev, ok := Classify(json.RawMessage(`{"event":"SomeFutureEvent","content":"x"}`))
	assert.False(t, ok)
	assert.Nil(t, ev)
}

func TestClassify_MissingEventName(t *testing.T) {
	_, ok := Classify(json.RawMessage(`{"content":"orphan"}`))
	assert.False(t, ok)
}

func TestClassify_InvalidJSON(t *testing.T) {
	_, ok := Classify(json.RawMessage(`{"event":`))
	assert.False(t, ok)
}

func TestClassify_CarriesOptionalFields(t *testing.T) {
	raw := json.RawMessage(`{
		"event": "RunResponseContent",
		"session_id": "s-1",
		"created_at": 1700000000,
		"content": "Hello",
		"tool": {"tool_call_id": "t-1", "tool_name": "search"},
		"tools": [{"tool_name": "fetch", "created_at": 5}],
		"extra_data": {"reasoning_steps": [{"title": "think"}], "references": [{"url": "x"}]},
		"images": [{"url": "img"}],
		"response_audio": {"transcript": "hi"}
	}`)

	ev, ok := Classify(raw)
	require.True(t, ok)
	assert.Equal(t, "s-1", ev.SessionID)
	assert.Equal(t, int64(1700000000), ev.CreatedAt)

	text, isText := ev.ContentString()
	require.True(t, isText)
	assert.Equal(t, "Hello", text)

	require.NotNil(t, ev.Tool)
	assert.Equal(t, "t-1", ev.Tool.ToolCallID)
	require.Len(t, ev.Tools, 1)
	assert.Equal(t, "fetch", ev.Tools[0].ToolName)

	require.NotNil(t, ev.ExtraData)
	assert.Len(t, ev.ExtraData.ReasoningSteps, 1)
	assert.Len(t, ev.ExtraData.References, 1)
	assert.Len(t, ev.Images, 1)
	require.NotNil(t, ev.ResponseAudio)
	assert.Equal(t, "hi", ev.ResponseAudio.Transcript)
}

func TestClassify_MissingOptionalFields(t *testing.T) {
	ev, ok := Classify(json.RawMessage(`{"event":"RunCompleted"}`))
	require.True(t, ok)
	assert.Nil(t, ev.Tool)
	assert.Nil(t, ev.Tools)
	assert.Nil(t, ev.ExtraData)
	assert.False(t, ev.HasContent())
	_, isText := ev.ContentString()
	assert.False(t, isText)
}

func TestEvent_ContentString_Structured(t *testing.T) {
	ev, ok := Classify(json.RawMessage(`{"event":"RunCompleted","content":{"answer":42}}`))
	require.True(t, ok)
	assert.True(t, ev.HasContent())
	_, isText := ev.ContentString()
	assert.False(t, isText)
}

func TestEvent_HasContent_Null(t *testing.T) {
	ev, ok := Classify(json.RawMessage(`{"event":"RunCompleted","content":null}`))
	require.True(t, ok)
	assert.False(t, ev.HasContent())
}
