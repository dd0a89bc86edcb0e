// ABOUTME: SQLite-backed local cache of session lists using modernc.org/sqlite
// ABOUTME: Keeps the sidebar usable across restarts and before the backend responds

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/dougss/agno-agent-ui/internal/session"
)

// SessionCache persists session-list entries per conversation target in a
// local SQLite database. It is a cache, not the source of truth: the backend
// list wins on refresh, and write failures are tolerated by callers.
type SessionCache struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSessionCache opens (or creates) the cache database at the given path.
// Parent directories are created if needed.
func OpenSessionCache(path string, logger *slog.Logger) (*SessionCache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// WAL keeps reads cheap while a turn is writing through.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	c := &SessionCache{db: db, logger: logger}
	if err := c.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Debug("session cache opened", "path", path)
	return c, nil
}

func (c *SessionCache) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			target TEXT NOT NULL,
			session_id TEXT NOT NULL,
			title TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (target, session_id)
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_target_created
			ON sessions(target, created_at DESC);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Load returns the cached sessions for a target, newest first.
func (c *SessionCache) Load(ctx context.Context, target string) ([]session.Entry, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT session_id, title, created_at FROM sessions
		 WHERE target = ? ORDER BY created_at DESC`, target)
	if err != nil {
		return nil, fmt.Errorf("loading cached sessions: %w", err)
	}
	defer rows.Close()

	entries := []session.Entry{}
	for rows.Next() {
		var e session.Entry
		if err := rows.Scan(&e.SessionID, &e.Title, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning cached session: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ReplaceAll swaps a target's cached entries for the authoritative backend
// list, atomically.
func (c *SessionCache) ReplaceAll(ctx context.Context, target string, entries []session.Entry) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning cache replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE target = ?`, target); err != nil {
		return fmt.Errorf("clearing cached sessions: %w", err)
	}
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO sessions (target, session_id, title, created_at)
			 VALUES (?, ?, ?, ?)`, target, e.SessionID, e.Title, e.CreatedAt); err != nil {
			return fmt.Errorf("caching session %s: %w", e.SessionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing cache replace: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (c *SessionCache) Close() error {
	return c.db.Close()
}

// ForTarget binds the cache to one conversation target, yielding the
// write-through store the session ledger expects.
func (c *SessionCache) ForTarget(target string) *TargetCache {
	return &TargetCache{cache: c, target: target}
}

// TargetCache is the per-target view of a SessionCache.
type TargetCache struct {
	cache  *SessionCache
	target string
}

// SaveSession upserts one session entry for the bound target.
func (t *TargetCache) SaveSession(ctx context.Context, e session.Entry) error {
	_, err := t.cache.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (target, session_id, title, created_at)
		 VALUES (?, ?, ?, ?)`, t.target, e.SessionID, e.Title, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving session %s: %w", e.SessionID, err)
	}
	return nil
}

// DeleteSession removes one session entry for the bound target.
func (t *TargetCache) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := t.cache.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE target = ? AND session_id = ?`, t.target, sessionID)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", sessionID, err)
	}
	return nil
}
