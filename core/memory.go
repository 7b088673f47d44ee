package core

import (
	"context"
	"time"
)

// MemoryEntry is one persisted interaction fragment.
type MemoryEntry struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Kind      string         `json:"kind"` // "user", "assistant", ...
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// MemoryStore hands out named memory instances. Opening the same name twice
// returns the same underlying instance, which is how a restarted agent
// re-attaches to memory already running under its configured name.
type MemoryStore interface {
	Open(ctx context.Context, name string) (Memory, error)
}

// Memory is one live memory instance, exclusively owned by the agent actor
// that opened it.
type Memory interface {
	// Add appends an entry. Kind tags the conversational role.
	Add(ctx context.Context, content, kind string, metadata map[string]any) error

	// Recent returns up to n entries, newest first. Callers wanting
	// chronological order reverse the slice.
	Recent(ctx context.Context, n int) ([]MemoryEntry, error)

	// Close releases the agent's handle. The backing instance may outlive
	// the handle so a later Open under the same name can reuse it.
	Close() error
}
