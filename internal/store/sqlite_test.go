// ABOUTME: Tests for the SQLite session cache

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dougss/agno-agent-ui/internal/session"
)

func newTestCache(t *testing.T) *SessionCache {
	t.Helper()
	c, err := OpenSessionCache(filepath.Join(t.TempDir(), "sessions.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSessionCacheSaveAndLoad(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	tc := c.ForTarget("agent:research-agent")
	require.NoError(t, tc.SaveSession(ctx, session.Entry{SessionID: "s1", Title: "first", CreatedAt: 10}))
	require.NoError(t, tc.SaveSession(ctx, session.Entry{SessionID: "s2", Title: "second", CreatedAt: 20}))

	entries, err := c.Load(ctx, "agent:research-agent")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Newest first.
	assert.Equal(t, "s2", entries[0].SessionID)
	assert.Equal(t, "s1", entries[1].SessionID)
}

func TestSessionCacheTargetsAreIsolated(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.ForTarget("agent:a").SaveSession(ctx, session.Entry{SessionID: "s1", Title: "a", CreatedAt: 1}))
	require.NoError(t, c.ForTarget("team:b").SaveSession(ctx, session.Entry{SessionID: "s1", Title: "b", CreatedAt: 2}))

	a, err := c.Load(ctx, "agent:a")
	require.NoError(t, err)
	require.Len(t, a, 1)
	assert.Equal(t, "a", a[0].Title)

	b, err := c.Load(ctx, "team:b")
	require.NoError(t, err)
	require.Len(t, b, 1)
	assert.Equal(t, "b", b[0].Title)
}

func TestSessionCacheSaveIsUpsert(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	tc := c.ForTarget("agent:a")
	require.NoError(t, tc.SaveSession(ctx, session.Entry{SessionID: "s1", Title: "old", CreatedAt: 1}))
	require.NoError(t, tc.SaveSession(ctx, session.Entry{SessionID: "s1", Title: "new", CreatedAt: 1}))

	entries, err := c.Load(ctx, "agent:a")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].Title)
}

func TestSessionCacheDelete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	tc := c.ForTarget("agent:a")
	require.NoError(t, tc.SaveSession(ctx, session.Entry{SessionID: "s1", Title: "one", CreatedAt: 1}))
	require.NoError(t, tc.DeleteSession(ctx, "s1"))

	entries, err := c.Load(ctx, "agent:a")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSessionCacheReplaceAll(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	tc := c.ForTarget("agent:a")
	require.NoError(t, tc.SaveSession(ctx, session.Entry{SessionID: "stale", Title: "stale", CreatedAt: 1}))

	require.NoError(t, c.ReplaceAll(ctx, "agent:a", []session.Entry{
		{SessionID: "s1", Title: "one", CreatedAt: 5},
		{SessionID: "s2", Title: "two", CreatedAt: 6},
	}))

	entries, err := c.Load(ctx, "agent:a")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "s2", entries[0].SessionID)
	assert.Equal(t, "s1", entries[1].SessionID)
}

func TestSessionCacheEmptyLoad(t *testing.T) {
	c := newTestCache(t)

	entries, err := c.Load(context.Background(), "agent:unknown")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}
