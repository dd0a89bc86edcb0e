// ABOUTME: Turn orchestration: drives the decode/classify/apply loop for one conversation
// ABOUTME: Owns the single-active-turn rule and fans out state snapshots to subscribers

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/dougss/agno-agent-ui/internal/event"
	"github.com/dougss/agno-agent-ui/internal/sse"
)

// ErrTurnActive is returned when a new turn is requested while the previous
// one is still streaming. One turn at a time per conversation.
var ErrTurnActive = errors.New("a turn is already active")

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 64
	// readBufferSize is the stream read chunk size. Chunk boundaries are
	// arbitrary; the decoder reassembles lines across them.
	readBufferSize = 4096
)

// TurnRunner opens turns against the backend for one fixed conversation
// target. The service does not know how requests are routed; it only drives
// the returned stream.
type TurnRunner interface {
	// StartRun opens a streaming turn and returns the raw event stream.
	StartRun(ctx context.Context, message, sessionID string) (io.ReadCloser, error)
	// RunOnce executes a non-streaming turn, returning the terminal run
	// payload.
	RunOnce(ctx context.Context, message, sessionID string) (json.RawMessage, error)
}

// Service drives one conversation: it admits turns, pumps the event stream
// through decode/classify/apply, and publishes a state snapshot to all
// subscribers after every transition. Safe for concurrent use.
type Service struct {
	runner  TurnRunner
	reducer *Reducer
	logger  *slog.Logger

	mu     sync.Mutex
	state  State
	active bool
	cancel context.CancelFunc

	subMu       sync.RWMutex
	subscribers map[string]chan State
}

// NewService creates a service for one conversation target. Pass nil logger
// for default.
func NewService(runner TurnRunner, reducer *Reducer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		runner:      runner,
		reducer:     reducer,
		logger:      logger.With("component", "chat"),
		subscribers: make(map[string]chan State),
	}
}

// State returns a snapshot of the current conversation state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LoadTranscript replaces the conversation with a historical transcript,
// binding it to the given session. Refused while a turn is active.
func (s *Service) LoadTranscript(messages []Message, sessionID string) error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return ErrTurnActive
	}
	s.state = State{
		Messages:  append([]Message(nil), messages...),
		Phase:     PhaseIdle,
		SessionID: sessionID,
	}
	s.mu.Unlock()

	s.publish()
	return nil
}

// Reset clears the conversation to an empty, unbound state. Refused while a
// turn is active.
func (s *Service) Reset() error {
	return s.LoadTranscript(nil, "")
}

// Subscribe registers for state snapshots, delivered after every transition.
// The returned id unsubscribes; the subscription is also cleaned up when ctx
// is cancelled. Snapshots are dropped for subscribers that fall behind.
func (s *Service) Subscribe(ctx context.Context) (<-chan State, string) {
	subID := uuid.New().String()
	ch := make(chan State, subscriberBufferSize)

	s.subMu.Lock()
	s.subscribers[subID] = ch
	s.subMu.Unlock()

	go func() {
		<-ctx.Done()
		s.Unsubscribe(subID)
	}()

	return ch, subID
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Service) Unsubscribe(subID string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	ch, ok := s.subscribers[subID]
	if !ok {
		return
	}
	delete(s.subscribers, subID)
	close(ch)
}

// publish sends the current state snapshot to all subscribers without
// blocking.
func (s *Service) publish() {
	snapshot := s.State()

	s.subMu.RLock()
	targets := make([]chan State, 0, len(s.subscribers))
	for _, ch := range s.subscribers {
		targets = append(targets, ch)
	}
	s.subMu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- snapshot:
		default:
			s.logger.Debug("dropped snapshot for slow subscriber")
		}
	}
}

// SendMessage starts a streaming turn. It returns once the turn is admitted
// and the request is on its way; progress and the outcome arrive through
// subscriptions and State. Returns ErrTurnActive if a turn is already
// running.
func (s *Service) SendMessage(ctx context.Context, content string, now int64) error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return ErrTurnActive
	}
	s.active = true
	turnCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = s.reducer.StartTurn(s.state, content, now)
	sessionID := s.state.SessionID
	s.mu.Unlock()

	s.publish()

	go s.runTurn(turnCtx, content, sessionID)
	return nil
}

// CancelTurn aborts the active streaming turn, if any. The turn settles as
// cancelled through the normal failure path.
func (s *Service) CancelTurn() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// runTurn pumps one streaming turn to completion.
func (s *Service) runTurn(ctx context.Context, content, sessionID string) {
	defer s.finishTurn()

	stream, err := s.runner.StartRun(ctx, content, sessionID)
	if err != nil {
		s.logger.Warn("turn start failed", "error", err)
		s.failTurn(ctx, err)
		return
	}
	defer stream.Close()

	decoder := sse.NewDecoder(s.logger)
	buf := make([]byte, readBufferSize)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			s.applyFrames(decoder.Feed(buf[:n]))
		}
		if err == io.EOF {
			s.applyFrames(decoder.Close())
			s.settleEOF(ctx)
			return
		}
		if err != nil {
			s.logger.Warn("stream read failed", "error", err)
			s.failTurn(ctx, err)
			return
		}
	}
}

// applyFrames classifies decoded frames and applies each in arrival order.
// Unknown events were already skipped during classification.
func (s *Service) applyFrames(frames []json.RawMessage) {
	for _, raw := range frames {
		ev, ok := event.Classify(raw)
		if !ok {
			continue
		}

		s.mu.Lock()
		s.state = s.reducer.Apply(s.state, ev)
		s.mu.Unlock()

		s.publish()
	}
}

// settleEOF handles a stream that ended without a terminal event: the turn
// is failed rather than left hanging. A locally cancelled turn settles as
// cancelled even when the stream closes cleanly before the read errors.
func (s *Service) settleEOF(ctx context.Context) {
	message := FallbackRunError
	if ctx.Err() != nil {
		message = FallbackRunCancelled
	}

	s.mu.Lock()
	settled := s.state.Phase == PhaseCompleted || s.state.Phase == PhaseErrored
	if !settled {
		s.state = s.reducer.FailTurn(s.state, message)
	}
	s.mu.Unlock()

	if !settled {
		s.logger.Warn("stream ended without terminal event")
		s.publish()
	}
}

// failTurn settles the active turn as errored, or cancelled when the turn
// context was cancelled locally. A turn that already completed stays
// completed; a read error on the drained connection must not re-mark the
// message or evict the session the turn registered.
func (s *Service) failTurn(ctx context.Context, err error) {
	message := FallbackRunError
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		message = FallbackRunCancelled
	}

	s.mu.Lock()
	if s.state.Phase == PhaseCompleted {
		s.mu.Unlock()
		return
	}
	s.state = s.reducer.FailTurn(s.state, message)
	s.mu.Unlock()

	s.publish()
}

// finishTurn releases the single-turn admission slot.
func (s *Service) finishTurn() {
	s.mu.Lock()
	s.active = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
}

// SendMessageOnce executes a non-streaming turn: the terminal run payload is
// folded into state as if it were the final event of a stream. Blocks until
// the backend responds. Returns ErrTurnActive if a streaming turn is
// running.
func (s *Service) SendMessageOnce(ctx context.Context, content string, now int64) error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return ErrTurnActive
	}
	s.active = true
	s.state = s.reducer.StartTurn(s.state, content, now)
	sessionID := s.state.SessionID
	s.mu.Unlock()

	defer s.finishTurn()
	s.publish()

	payload, err := s.runner.RunOnce(ctx, content, sessionID)
	if err != nil {
		s.failTurn(ctx, err)
		return err
	}

	ev, ok := event.Classify(payload)
	if !ok {
		ev, ok = synthesizeCompleted(payload)
	}
	if !ok {
		err := errors.New("unrecognized run response")
		s.failTurn(ctx, err)
		return err
	}

	s.mu.Lock()
	// A single-shot turn never sees a run-started event, so session binding
	// is derived from the terminal payload before it is applied.
	if ev.SessionID != "" && ev.SessionID != s.state.SessionID {
		s.state = s.reducer.Apply(s.state, &event.Event{
			Kind:      event.KindRunStarted,
			Scope:     ev.Scope,
			SessionID: ev.SessionID,
			CreatedAt: ev.CreatedAt,
		})
	}
	s.state = s.reducer.Apply(s.state, ev)
	s.mu.Unlock()

	s.publish()
	return nil
}

// synthesizeCompleted builds a terminal event from an untagged single-shot
// response body. The dynamic-agent backend returns the run result as a bare
// object with no event name; its text lives in content, response, or
// message, checked in that order. Bodies carrying none of those and no
// session id are not a run result.
func synthesizeCompleted(payload json.RawMessage) (*event.Event, bool) {
	var body struct {
		Content   json.RawMessage `json:"content"`
		Response  json.RawMessage `json:"response"`
		Message   json.RawMessage `json:"message"`
		SessionID string          `json:"session_id"`
		CreatedAt int64           `json:"created_at"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, false
	}

	var content json.RawMessage
	for _, candidate := range []json.RawMessage{body.Content, body.Response, body.Message} {
		if len(candidate) > 0 && string(candidate) != "null" {
			content = candidate
			break
		}
	}
	if content == nil && body.SessionID == "" {
		return nil, false
	}

	return &event.Event{
		Kind:      event.KindRunCompleted,
		Scope:     event.ScopeAgent,
		SessionID: body.SessionID,
		CreatedAt: body.CreatedAt,
		Content:   content,
	}, true
}
