package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxworks/lux/core"
)

// Interface compliance
var _ core.MemoryStore = (*InMemoryStore)(nil)

func TestInMemoryAddAndRecent(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	mem, err := store.Open(ctx, "notes")
	require.NoError(t, err)

	require.NoError(t, mem.Add(ctx, "first", "user", nil))
	require.NoError(t, mem.Add(ctx, "second", "assistant", map[string]any{"tokens": 12}))
	require.NoError(t, mem.Add(ctx, "third", "user", nil))

	entries, err := mem.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// newest first
	assert.Equal(t, "third", entries[0].Content)
	assert.Equal(t, "second", entries[1].Content)
	assert.Equal(t, "assistant", entries[1].Kind)
	assert.Equal(t, 12, entries[1].Metadata["tokens"])
	assert.False(t, entries[0].CreatedAt.IsZero())

	// asking for more than exists returns everything
	all, err := mem.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// zero or negative is empty, not an error
	none, err := mem.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInMemoryReattachByName(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	mem, err := store.Open(ctx, "durable")
	require.NoError(t, err)
	require.NoError(t, mem.Add(ctx, "before restart", "user", nil))
	require.NoError(t, mem.Close())

	// same name re-attaches to the same entries
	again, err := store.Open(ctx, "durable")
	require.NoError(t, err)
	entries, err := again.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "before restart", entries[0].Content)

	// different names stay isolated
	other, err := store.Open(ctx, "other")
	require.NoError(t, err)
	entries, err = other.Recent(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInMemoryMetadataIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	mem, err := store.Open(ctx, "iso")
	require.NoError(t, err)

	metadata := map[string]any{"k": "original"}
	require.NoError(t, mem.Add(ctx, "entry", "user", metadata))
	metadata["k"] = "mutated"

	entries, err := mem.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "original", entries[0].Metadata["k"])
}

func TestInMemoryConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	mem, err := store.Open(ctx, "busy")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_ = mem.Add(ctx, "entry", "user", nil)
				_, _ = mem.Recent(ctx, 3)
			}
		}()
	}
	wg.Wait()

	entries, err := mem.Recent(ctx, 500)
	require.NoError(t, err)
	assert.Len(t, entries, 200)
}
