// ABOUTME: Tool-call merge engine reconciling stream fragments into the accumulated set
// ABOUTME: Identity is the explicit call id, falling back to a name+timestamp derived key

package chat

import (
	"fmt"

	"github.com/dougss/agno-agent-ui/internal/event"
)

// mergeKey derives the identity of a tool-call fragment. Explicit ids win;
// otherwise name and creation time form the key. Fragments with neither have
// no identity and never match an accumulated call.
func mergeKey(tc event.ToolCall) string {
	if tc.ToolCallID != "" {
		return tc.ToolCallID
	}
	if tc.ToolName != "" && tc.CreatedAt != 0 {
		return fmt.Sprintf("%s-%d", tc.ToolName, tc.CreatedAt)
	}
	return ""
}

// overlay applies a later fragment on top of an accumulated call. The overlay
// is additive: only fields the fragment actually carries replace existing
// values, nothing is ever deleted. This is what lets a "started" fragment be
// completed in place by its matching "completed" fragment.
func overlay(base, incoming event.ToolCall) event.ToolCall {
	out := base
	if incoming.ToolCallID != "" {
		out.ToolCallID = incoming.ToolCallID
	}
	if incoming.ToolName != "" {
		out.ToolName = incoming.ToolName
	}
	if incoming.ToolArgs != nil {
		out.ToolArgs = incoming.ToolArgs
	}
	if incoming.Content != "" {
		out.Content = incoming.Content
	}
	if incoming.ToolCallError != nil {
		out.ToolCallError = incoming.ToolCallError
	}
	if incoming.Metrics != nil {
		out.Metrics = incoming.Metrics
	}
	if incoming.Role != "" {
		out.Role = incoming.Role
	}
	if incoming.CreatedAt != 0 {
		out.CreatedAt = incoming.CreatedAt
	}
	return out
}

// MergeToolCalls reconciles incoming fragments against the accumulated
// sequence for the current turn. Matching fragments are overlaid in place;
// new ones are appended preserving arrival order. The input slice is not
// mutated.
func MergeToolCalls(accumulated []event.ToolCall, incoming ...event.ToolCall) []event.ToolCall {
	out := append([]event.ToolCall(nil), accumulated...)

	for _, frag := range incoming {
		key := mergeKey(frag)
		matched := false
		if key != "" {
			for i, existing := range out {
				if mergeKey(existing) == key {
					out[i] = overlay(existing, frag)
					matched = true
					break
				}
			}
		}
		if !matched {
			out = append(out, frag)
		}
	}
	return out
}

// MergeEventToolCalls routes both tool shapes an event can carry: the
// singular current-tool object and the legacy tools array, applied in listed
// order.
func MergeEventToolCalls(accumulated []event.ToolCall, ev *event.Event) []event.ToolCall {
	out := accumulated
	if ev.Tool != nil {
		out = MergeToolCalls(out, *ev.Tool)
	}
	if len(ev.Tools) > 0 {
		out = MergeToolCalls(out, ev.Tools...)
	}
	return out
}
