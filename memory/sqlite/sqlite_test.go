package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxworks/lux/core"
)

// Interface compliance
var _ core.MemoryStore = (*Store)(nil)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteAddAndRecent(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	mem, err := store.Open(ctx, "notes")
	require.NoError(t, err)

	require.NoError(t, mem.Add(ctx, "first", "user", nil))
	require.NoError(t, mem.Add(ctx, "second", "assistant", map[string]any{"model": "gpt-4o"}))

	entries, err := mem.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Content)
	assert.Equal(t, "assistant", entries[0].Kind)
	assert.Equal(t, "gpt-4o", entries[0].Metadata["model"])
	assert.Equal(t, "first", entries[1].Content)
	assert.Nil(t, entries[1].Metadata)
	assert.NotEmpty(t, entries[0].ID)
}

func TestSQLiteInstanceIsolation(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	a, err := store.Open(ctx, "agent-a")
	require.NoError(t, err)
	b, err := store.Open(ctx, "agent-b")
	require.NoError(t, err)

	require.NoError(t, a.Add(ctx, "only for a", "user", nil))

	entries, err := b.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = a.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "only for a", entries[0].Content)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "memory.db")

	store, err := Open(path)
	require.NoError(t, err)
	mem, err := store.Open(ctx, "durable")
	require.NoError(t, err)
	require.NoError(t, mem.Add(ctx, "survives restarts", "user", nil))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	mem, err = reopened.Open(ctx, "durable")
	require.NoError(t, err)
	entries, err := mem.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "survives restarts", entries[0].Content)
}

func TestSQLiteEmptyInstanceName(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Open(context.Background(), "")
	assert.ErrorContains(t, err, "instance name is required")
}

func TestSQLiteRecentLimits(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	mem, err := store.Open(ctx, "limited")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, mem.Add(ctx, "entry", "user", nil))
	}

	entries, err := mem.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	entries, err = mem.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSQLiteConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	mem, err := store.Open(ctx, "busy")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				assert.NoError(t, mem.Add(ctx, "entry", "user", nil))
			}
		}()
	}
	wg.Wait()

	entries, err := mem.Recent(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, entries, 40)
}
