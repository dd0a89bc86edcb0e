// ABOUTME: Thread-safe client-side cache of the session list for one conversation target
// ABOUTME: Registers sessions first-write-wins and evicts those created by failed turns

package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// persistTimeout bounds best-effort write-through to the local cache store.
const persistTimeout = 5 * time.Second

// Entry is one cached session: an opaque id, a title derived from the
// triggering user message, and the creation timestamp. Entries are never
// mutated after registration; they are only removed.
type Entry struct {
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
	CreatedAt int64  `json:"created_at"`
}

// Persister is an optional write-through store behind the ledger. Failures
// are logged, never surfaced: the in-memory cache is the source of truth for
// the UI and local persistence is best-effort.
type Persister interface {
	SaveSession(ctx context.Context, e Entry) error
	DeleteSession(ctx context.Context, sessionID string) error
}

// Ledger maintains the incremental session-list cache shared between the
// active-turn path and the session-list UI. All mutations are atomic:
// registration dedupes by id (first write wins) and eviction removes exactly
// one entry. Concurrent list refreshes and turn-driven registrations are
// safe.
type Ledger struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]Entry

	store  Persister
	logger *slog.Logger
}

// New creates a ledger. store may be nil to keep the cache memory-only. Pass
// nil logger for default.
func New(store Persister, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		entries: make(map[string]Entry),
		store:   store,
		logger:  logger.With("component", "sessions"),
	}
}

// Register caches a session if its id is not already known. Returns true if
// the session was newly registered. Same-id registration is a no-op and
// returns false; the first write wins.
func (l *Ledger) Register(id, title string, createdAt int64) bool {
	if id == "" {
		return false
	}

	l.mu.Lock()
	if _, exists := l.entries[id]; exists {
		l.mu.Unlock()
		return false
	}
	e := Entry{SessionID: id, Title: title, CreatedAt: createdAt}
	l.entries[id] = e
	// Newest first, matching backend list ordering.
	l.order = append([]string{id}, l.order...)
	l.mu.Unlock()

	l.persist(e)
	return true
}

// Evict removes a session from the cache. Returns true if it was present.
// Callers are responsible for the scoping rule: only the turn that registered
// a session may evict it on failure.
func (l *Ledger) Evict(id string) bool {
	l.mu.Lock()
	_, exists := l.entries[id]
	if exists {
		delete(l.entries, id)
		for i, key := range l.order {
			if key == id {
				l.order = append(l.order[:i:i], l.order[i+1:]...)
				break
			}
		}
	}
	l.mu.Unlock()

	if exists {
		l.unpersist(id)
	}
	return exists
}

// Replace swaps the cache contents wholesale, typically after a backend list
// refresh. Duplicate ids keep the first occurrence. Replace does not touch
// the persistent store; refreshes reflect backend state, not local writes.
func (l *Ledger) Replace(entries []Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = make(map[string]Entry, len(entries))
	l.order = l.order[:0]
	for _, e := range entries {
		if e.SessionID == "" {
			continue
		}
		if _, dup := l.entries[e.SessionID]; dup {
			continue
		}
		l.entries[e.SessionID] = e
		l.order = append(l.order, e.SessionID)
	}
}

// Entries returns a copy of the cached sessions, newest first.
func (l *Ledger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.entries[id])
	}
	return out
}

// Contains reports whether a session id is cached.
func (l *Ledger) Contains(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[id]
	return ok
}

// persist writes a registration through to the local store with its own
// timeout so a slow disk never stalls the stream path.
func (l *Ledger) persist(e Entry) {
	if l.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := l.store.SaveSession(ctx, e); err != nil {
		l.logger.Error("failed to persist session", "error", err, "session_id", e.SessionID)
	}
}

func (l *Ledger) unpersist(id string) {
	if l.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := l.store.DeleteSession(ctx, id); err != nil {
		l.logger.Error("failed to delete persisted session", "error", err, "session_id", id)
	}
}
