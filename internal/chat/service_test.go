// ABOUTME: Tests for turn orchestration: admission, streaming loop, and fan-out

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRunner serves a fixed SSE body for streaming turns and a fixed
// payload for single-shot turns.
type scriptedRunner struct {
	body     string
	startErr error
	readErr  error
	once     string
	onceErr  error

	started chan struct{}
	release chan struct{}
}

func (r *scriptedRunner) StartRun(_ context.Context, _, _ string) (io.ReadCloser, error) {
	if r.started != nil {
		close(r.started)
	}
	if r.startErr != nil {
		return nil, r.startErr
	}
	var rd io.Reader = strings.NewReader(r.body)
	if r.release != nil {
		rd = io.MultiReader(rd, blockUntil{r.release})
	}
	if r.readErr != nil {
		rd = io.MultiReader(rd, errReader{r.readErr})
	}
	return io.NopCloser(rd), nil
}

func (r *scriptedRunner) RunOnce(_ context.Context, _, _ string) (json.RawMessage, error) {
	if r.onceErr != nil {
		return nil, r.onceErr
	}
	return json.RawMessage(r.once), nil
}

// blockUntil is a reader that blocks until its channel closes, then EOFs.
// Used to hold a turn open while admission is asserted.
type blockUntil struct {
	release chan struct{}
}

func (b blockUntil) Read([]byte) (int, error) {
	<-b.release
	return 0, io.EOF
}

// errReader fails the first read with a fixed error, standing in for a
// connection dropped mid-stream.
type errReader struct {
	err error
}

func (e errReader) Read([]byte) (int, error) {
	return 0, e.err
}

func frame(payload string) string {
	return "data: " + payload + "\n"
}

func newTestService(runner TurnRunner) (*Service, *fakeRegistry) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := newFakeRegistry()
	return NewService(runner, NewReducer(reg, logger), logger), reg
}

// awaitPhase drains snapshots until the conversation reaches the wanted
// phase.
func awaitPhase(t *testing.T, ch <-chan State, want Phase) State {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case snap, ok := <-ch:
			require.True(t, ok, "subscription closed before reaching phase %s", want)
			if snap.Phase == want {
				return snap
			}
		case <-deadline:
			t.Fatalf("timed out waiting for phase %s", want)
		}
	}
}

func TestSendMessageStreamsToCompletion(t *testing.T) {
	runner := &scriptedRunner{body: frame(`{"event":"RunStarted","session_id":"s1","created_at":100}`) +
		frame(`{"event":"RunResponseContent","content":"Hel"}`) +
		frame(`{"event":"RunResponseContent","content":"Hello"}`) +
		frame(`{"event":"RunCompleted","content":"Hello"}`)}
	svc, reg := newTestService(runner)

	ctx := context.Background()
	ch, _ := svc.Subscribe(ctx)

	require.NoError(t, svc.SendMessage(ctx, "greet me", 10))

	final := awaitPhase(t, ch, PhaseCompleted)
	require.Len(t, final.Messages, 2)
	assert.Equal(t, RoleUser, final.Messages[0].Role)
	assert.Equal(t, "greet me", final.Messages[0].Content)
	assert.Equal(t, RoleAgent, final.Messages[1].Role)
	assert.Equal(t, "Hello", final.Messages[1].Content)
	assert.Equal(t, "s1", final.SessionID)
	assert.Equal(t, "greet me", reg.registered["s1"])
}

func TestSendMessageRejectsConcurrentTurn(t *testing.T) {
	runner := &scriptedRunner{
		body:    frame(`{"event":"RunStarted","session_id":"s1"}`),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc, _ := newTestService(runner)

	ctx := context.Background()
	ch, _ := svc.Subscribe(ctx)
	require.NoError(t, svc.SendMessage(ctx, "first", 10))
	<-runner.started

	err := svc.SendMessage(ctx, "second", 11)
	assert.ErrorIs(t, err, ErrTurnActive)

	close(runner.release)
	// EOF without a terminal event settles the turn as errored.
	awaitPhase(t, ch, PhaseErrored)
}

func TestSendMessageStartFailureSettlesErrored(t *testing.T) {
	runner := &scriptedRunner{startErr: errors.New("connection refused")}
	svc, _ := newTestService(runner)

	ctx := context.Background()
	ch, _ := svc.Subscribe(ctx)
	require.NoError(t, svc.SendMessage(ctx, "hi", 10))

	final := awaitPhase(t, ch, PhaseErrored)
	assert.Equal(t, FallbackRunError, final.ErrorMessage)
	require.Len(t, final.Messages, 2)
	assert.True(t, final.Messages[1].StreamingError)

	// The slot is released: a retry is admitted.
	runner.startErr = nil
	runner.body = frame(`{"event":"RunStarted","session_id":"s1"}`) +
		frame(`{"event":"RunCompleted","content":"ok"}`)
	require.NoError(t, svc.SendMessage(ctx, "retry", 20))
	final = awaitPhase(t, ch, PhaseCompleted)
	// The errored pair was discarded when superseded.
	require.Len(t, final.Messages, 2)
	assert.Equal(t, "retry", final.Messages[0].Content)
}

func TestStreamEndWithoutTerminalEventErrors(t *testing.T) {
	runner := &scriptedRunner{body: frame(`{"event":"RunStarted","session_id":"s9"}`) +
		frame(`{"event":"RunResponseContent","content":"partial"}`)}
	svc, reg := newTestService(runner)

	ctx := context.Background()
	ch, _ := svc.Subscribe(ctx)
	require.NoError(t, svc.SendMessage(ctx, "hi", 10))

	final := awaitPhase(t, ch, PhaseErrored)
	assert.Equal(t, FallbackRunError, final.ErrorMessage)
	// The session minted by this turn is evicted with it.
	assert.Contains(t, reg.evicted, "s9")
}

func TestCancelTurnSettlesCancelled(t *testing.T) {
	runner := &scriptedRunner{
		body:    frame(`{"event":"RunStarted","session_id":"s1"}`),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc, _ := newTestService(runner)

	ctx := context.Background()
	ch, _ := svc.Subscribe(ctx)
	require.NoError(t, svc.SendMessage(ctx, "hi", 10))
	<-runner.started

	svc.CancelTurn()
	close(runner.release)

	final := awaitPhase(t, ch, PhaseErrored)
	// Local cancellation reports the cancelled fallback, not a generic error.
	assert.Equal(t, FallbackRunCancelled, final.ErrorMessage)
}

func TestReadErrorAfterCompletionKeepsTurnCompleted(t *testing.T) {
	// The connection dropping after the terminal event was applied must not
	// re-mark the message as failed or evict the session this turn created.
	runner := &scriptedRunner{
		body: frame(`{"event":"RunStarted","session_id":"s5"}`) +
			frame(`{"event":"RunCompleted","content":"done"}`),
		readErr: errors.New("connection reset"),
	}
	svc, reg := newTestService(runner)

	ctx := context.Background()
	ch, _ := svc.Subscribe(ctx)
	require.NoError(t, svc.SendMessage(ctx, "hi", 10))

	awaitPhase(t, ch, PhaseCompleted)

	// The read error arrives after settlement; no errored snapshot follows.
	select {
	case snap := <-ch:
		assert.NotEqual(t, PhaseErrored, snap.Phase)
	case <-time.After(200 * time.Millisecond):
	}

	final := svc.State()
	assert.Equal(t, PhaseCompleted, final.Phase)
	require.Len(t, final.Messages, 2)
	assert.False(t, final.Messages[1].StreamingError)
	assert.Equal(t, "done", final.Messages[1].Content)
	assert.NotContains(t, reg.evicted, "s5")
	assert.Contains(t, reg.registered, "s5")
}

func TestSendMessageOnce(t *testing.T) {
	runner := &scriptedRunner{once: `{"event":"RunCompleted","session_id":"s7","content":"final answer","created_at":50}`}
	svc, reg := newTestService(runner)

	ctx := context.Background()
	require.NoError(t, svc.SendMessageOnce(ctx, "question", 10))

	final := svc.State()
	assert.Equal(t, PhaseCompleted, final.Phase)
	require.Len(t, final.Messages, 2)
	assert.Equal(t, "final answer", final.Messages[1].Content)
	assert.Equal(t, "s7", final.SessionID)
	assert.Equal(t, "question", reg.registered["s7"])
}

func TestSendMessageOnceUntaggedPayload(t *testing.T) {
	// The dynamic-agent backend's single-shot response carries no event
	// name; the bare object still settles the turn as completed.
	runner := &scriptedRunner{once: `{"content":"final answer","session_id":"s7","created_at":50}`}
	svc, reg := newTestService(runner)

	require.NoError(t, svc.SendMessageOnce(context.Background(), "question", 10))

	final := svc.State()
	assert.Equal(t, PhaseCompleted, final.Phase)
	require.Len(t, final.Messages, 2)
	assert.Equal(t, "final answer", final.Messages[1].Content)
	assert.Equal(t, "s7", final.SessionID)
	assert.Equal(t, "question", reg.registered["s7"])
}

func TestSendMessageOnceResponseFieldFallback(t *testing.T) {
	runner := &scriptedRunner{once: `{"response":"from response field"}`}
	svc, _ := newTestService(runner)

	require.NoError(t, svc.SendMessageOnce(context.Background(), "question", 10))

	final := svc.State()
	assert.Equal(t, PhaseCompleted, final.Phase)
	require.Len(t, final.Messages, 2)
	assert.Equal(t, "from response field", final.Messages[1].Content)
}

func TestSendMessageOnceUndecodablePayload(t *testing.T) {
	// A body with no recognizable run-result fields still errors the turn.
	runner := &scriptedRunner{once: `{"detail":"internal error"}`}
	svc, _ := newTestService(runner)

	err := svc.SendMessageOnce(context.Background(), "question", 10)
	require.Error(t, err)
	assert.Equal(t, PhaseErrored, svc.State().Phase)
}

func TestLoadTranscriptRefusedWhileActive(t *testing.T) {
	runner := &scriptedRunner{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc, _ := newTestService(runner)

	ctx := context.Background()
	ch, _ := svc.Subscribe(ctx)
	require.NoError(t, svc.SendMessage(ctx, "hi", 10))
	<-runner.started

	err := svc.LoadTranscript([]Message{{Role: RoleUser, Content: "old"}}, "s2")
	assert.ErrorIs(t, err, ErrTurnActive)

	close(runner.release)
	awaitPhase(t, ch, PhaseErrored)

	require.NoError(t, svc.LoadTranscript([]Message{{Role: RoleUser, Content: "old"}}, "s2"))
	loaded := svc.State()
	assert.Equal(t, "s2", loaded.SessionID)
	assert.Equal(t, PhaseIdle, loaded.Phase)
	require.Len(t, loaded.Messages, 1)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	svc, _ := newTestService(&scriptedRunner{})

	ch, id := svc.Subscribe(context.Background())
	svc.Unsubscribe(id)

	_, ok := <-ch
	assert.False(t, ok)
}
