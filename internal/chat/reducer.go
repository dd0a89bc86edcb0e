// ABOUTME: Conversation reducer applying classified stream events to the transcript
// ABOUTME: Pure state transitions over a single active turn with last-message semantics

package chat

import (
	"log/slog"
	"strings"

	"github.com/dougss/agno-agent-ui/internal/event"
	"github.com/dougss/agno-agent-ui/internal/render"
)

// Phase is the state of the active turn.
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseAwaitingFirstChunk Phase = "awaiting_first_chunk"
	PhaseStreaming          Phase = "streaming"
	PhaseCompleted          Phase = "completed"
	PhaseErrored            Phase = "errored"
)

// Fallback error strings surfaced when the backend reports a failure without
// explanatory content.
const (
	FallbackRunCancelled = "Run cancelled"
	FallbackRunError     = "Error during run"
)

// State is the reducer's value: the ordered transcript plus the bookkeeping
// for the active turn. Transitions return a new State; the Messages slice of
// the input is never mutated.
type State struct {
	Messages []Message
	Phase    Phase

	// SessionID is the session the conversation is currently bound to.
	SessionID string
	// NewSessionID is set when the active turn registered a session that did
	// not exist before the turn; it scopes error-driven eviction.
	NewSessionID string
	// ErrorMessage is the user-visible error for a failed turn.
	ErrorMessage string

	// turnTitle seeds the session title from the triggering user message.
	turnTitle string
	// lastContent is the last-applied cumulative content value, used to
	// compute the unseen suffix of cumulative chunks.
	lastContent string
}

// SessionRegistry is what the reducer needs from the session ledger.
type SessionRegistry interface {
	// Register caches a session, first-write-wins. Returns true if the id was
	// not cached before.
	Register(id, title string, createdAt int64) bool
	// Evict removes a session from the cache.
	Evict(id string) bool
}

// Reducer owns transcript transitions. It is stateless itself; all mutable
// data lives in State so transitions stay directly testable.
type Reducer struct {
	sessions SessionRegistry
	logger   *slog.Logger
}

// NewReducer creates a reducer. sessions may be nil when no ledger is wired
// (session events then only update State.SessionID). Pass nil logger for
// default.
func NewReducer(sessions SessionRegistry, logger *slog.Logger) *Reducer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reducer{
		sessions: sessions,
		logger:   logger.With("component", "reducer"),
	}
}

// StartTurn begins a new turn: the user message is appended followed by an
// empty pending agent message. If the previous turn ended in error, its
// user+agent pair is discarded first — an errored turn is never retained once
// superseded.
func (r *Reducer) StartTurn(s State, content string, now int64) State {
	out := s
	msgs := append([]Message(nil), s.Messages...)

	if s.Phase == PhaseErrored && len(msgs) >= 2 {
		last, secondLast := msgs[len(msgs)-1], msgs[len(msgs)-2]
		if last.Role == RoleAgent && last.StreamingError && secondLast.Role == RoleUser {
			msgs = msgs[:len(msgs)-2]
		}
	}

	msgs = append(msgs,
		Message{Role: RoleUser, Content: content, CreatedAt: now},
		Message{Role: RoleAgent, CreatedAt: now + 1},
	)

	out.Messages = msgs
	out.Phase = PhaseAwaitingFirstChunk
	out.NewSessionID = ""
	out.ErrorMessage = ""
	out.turnTitle = content
	out.lastContent = ""
	return out
}

// Apply performs one state transition for a classified event.
func (r *Reducer) Apply(s State, ev *event.Event) State {
	switch ev.Kind {
	case event.KindRunStarted:
		return r.applyRunStarted(s, ev)
	case event.KindContentDelta:
		return r.applyContentDelta(s, ev)
	case event.KindToolCallDelta:
		return r.withPendingAgent(s, func(m *Message) {
			m.ToolCalls = MergeEventToolCalls(m.ToolCalls, ev)
		})
	case event.KindReasoningStep:
		return r.withPendingAgent(s, func(m *Message) {
			if ev.ExtraData == nil || len(ev.ExtraData.ReasoningSteps) == 0 {
				return
			}
			if m.ExtraData == nil {
				m.ExtraData = &event.ExtraData{}
			}
			m.ExtraData.ReasoningSteps = append(m.ExtraData.ReasoningSteps, ev.ExtraData.ReasoningSteps...)
		})
	case event.KindReasoningCompleted:
		return r.withPendingAgent(s, func(m *Message) {
			if ev.ExtraData == nil || ev.ExtraData.ReasoningSteps == nil {
				return
			}
			if m.ExtraData == nil {
				m.ExtraData = &event.ExtraData{}
			}
			m.ExtraData.ReasoningSteps = ev.ExtraData.ReasoningSteps
		})
	case event.KindMemoryUpdate:
		// Reserved extension point: no transcript mutation.
		return s
	case event.KindRunError, event.KindRunCancelled:
		return r.applyRunFailed(s, ev)
	case event.KindRunCompleted:
		return r.applyRunCompleted(s, ev)
	}
	return s
}

// FailTurn moves the active turn to errored outside of a backend-reported
// event, e.g. on a transport failure mid-stream.
func (r *Reducer) FailTurn(s State, message string) State {
	if message == "" {
		message = FallbackRunError
	}
	out := r.withPendingAgent(s, func(m *Message) {
		m.StreamingError = true
	})
	out.ErrorMessage = message
	out.Phase = PhaseErrored
	r.evictTurnSession(&out)
	return out
}

func (r *Reducer) applyRunStarted(s State, ev *event.Event) State {
	out := s
	out.Phase = PhaseStreaming

	if ev.SessionID != "" && ev.SessionID != s.SessionID {
		out.SessionID = ev.SessionID
		if r.sessions != nil && r.sessions.Register(ev.SessionID, s.turnTitle, ev.CreatedAt) {
			out.NewSessionID = ev.SessionID
			r.logger.Debug("session registered", "session_id", ev.SessionID)
		}
	}
	return out
}

func (r *Reducer) applyContentDelta(s State, ev *event.Event) State {
	if text, ok := ev.ContentString(); ok {
		out := r.withPendingAgent(s, func(m *Message) {
			m.Content += unseenSuffix(s.lastContent, text)
			m.ToolCalls = MergeEventToolCalls(m.ToolCalls, ev)
			applyExtraData(m, ev)
			applyMedia(m, ev)
			if ev.CreatedAt != 0 {
				m.CreatedAt = ev.CreatedAt
			}
		})
		out.lastContent = text
		out.Phase = PhaseStreaming
		return out
	}

	if ev.HasContent() {
		// Content switched to a structured value: render it to a stable
		// textual form and append after the prior text.
		block := render.JSONMarkdown(ev.Content)
		out := r.withPendingAgent(s, func(m *Message) {
			m.Content += block
		})
		out.lastContent = block
		out.Phase = PhaseStreaming
		return out
	}

	if ev.ResponseAudio != nil && ev.ResponseAudio.Transcript != "" {
		out := r.withPendingAgent(s, func(m *Message) {
			if m.ResponseAudio == nil {
				m.ResponseAudio = &event.ResponseAudio{}
			}
			m.ResponseAudio.Transcript += ev.ResponseAudio.Transcript
		})
		out.Phase = PhaseStreaming
		return out
	}

	return s
}

func (r *Reducer) applyRunFailed(s State, ev *event.Event) State {
	message, _ := ev.ContentString()
	if message == "" {
		if ev.Kind == event.KindRunCancelled {
			message = FallbackRunCancelled
		} else {
			message = FallbackRunError
		}
	}

	out := r.withPendingAgent(s, func(m *Message) {
		m.StreamingError = true
	})
	out.ErrorMessage = message
	out.Phase = PhaseErrored
	r.evictTurnSession(&out)
	return out
}

func (r *Reducer) applyRunCompleted(s State, ev *event.Event) State {
	out := r.withPendingAgent(s, func(m *Message) {
		if ev.HasContent() {
			m.Content = render.Stringify(ev.Content)
		}
		m.ToolCalls = MergeEventToolCalls(m.ToolCalls, ev)
		applyExtraData(m, ev)
		applyMedia(m, ev)
		if ev.ResponseAudio != nil {
			ra := *ev.ResponseAudio
			m.ResponseAudio = &ra
		}
		if ev.CreatedAt != 0 {
			m.CreatedAt = ev.CreatedAt
		}
	})
	out.Phase = PhaseCompleted
	return out
}

// withPendingAgent applies fn to a copy of the pending agent message. Events
// arriving with no pending agent message (stale frames after an aborted turn)
// are dropped without effect.
func (r *Reducer) withPendingAgent(s State, fn func(*Message)) State {
	idx := len(s.Messages) - 1
	if idx < 0 || s.Messages[idx].Role != RoleAgent {
		return s
	}

	out := s
	msgs := append([]Message(nil), s.Messages...)
	msg := msgs[idx].clone()
	fn(&msg)
	msgs[idx] = msg
	out.Messages = msgs
	return out
}

// evictTurnSession removes the session registered by this turn, if any.
// Pre-existing sessions are never evicted by a later turn's failure.
func (r *Reducer) evictTurnSession(s *State) {
	if s.NewSessionID == "" || r.sessions == nil {
		return
	}
	if r.sessions.Evict(s.NewSessionID) {
		r.logger.Debug("session evicted after failed turn", "session_id", s.NewSessionID)
	}
	s.NewSessionID = ""
}

// unseenSuffix computes the portion of a chunk not yet applied. Cumulative
// backends resend the full text so far; incremental backends send only the
// new portion. A chunk extending the last applied value contributes its
// suffix, an identical repeat contributes nothing, and anything else is
// treated as a pure delta and appended whole.
func unseenSuffix(last, chunk string) string {
	if chunk == last {
		return ""
	}
	if last != "" && strings.HasPrefix(chunk, last) {
		return chunk[len(last):]
	}
	return chunk
}

// applyExtraData carries reasoning steps and references from an event into
// the pending message. Fields the event carries replace wholesale; absent
// fields keep their accumulated values.
func applyExtraData(m *Message, ev *event.Event) {
	if ev.ExtraData == nil {
		return
	}
	if ev.ExtraData.ReasoningSteps != nil {
		if m.ExtraData == nil {
			m.ExtraData = &event.ExtraData{}
		}
		m.ExtraData.ReasoningSteps = ev.ExtraData.ReasoningSteps
	}
	if ev.ExtraData.References != nil {
		if m.ExtraData == nil {
			m.ExtraData = &event.ExtraData{}
		}
		m.ExtraData.References = ev.ExtraData.References
	}
}

// applyMedia sets media fields wholesale when the event carries them. Media
// is replaced, never merged.
func applyMedia(m *Message, ev *event.Event) {
	if ev.Images != nil {
		m.Images = ev.Images
	}
	if ev.Videos != nil {
		m.Videos = ev.Videos
	}
	if ev.Audio != nil {
		m.Audio = ev.Audio
	}
}
