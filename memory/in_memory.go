// Package memory provides memory-store backends for agents: a process-local
// in-memory store suitable for tests and demos, and a durable SQLite store
// in the sqlite subpackage.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/luxworks/lux/core"
)

// InMemoryStore is a volatile core.MemoryStore keeping named instances in a
// process-local map. Opening the same name twice returns a handle onto the
// same instance, so a restarted agent re-attaches to its running memory.
// Safe for concurrent access.
type InMemoryStore struct {
	mu        sync.Mutex
	instances map[string]*inMemoryInstance
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{instances: make(map[string]*inMemoryInstance)}
}

// Open returns the instance registered under name, creating it lazily.
func (s *InMemoryStore) Open(_ context.Context, name string) (core.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[name]
	if !ok {
		inst = &inMemoryInstance{name: name}
		s.instances[name] = inst
	}
	return inst, nil
}

// inMemoryInstance is one append-only entry log.
type inMemoryInstance struct {
	mu      sync.RWMutex
	name    string
	entries []core.MemoryEntry
	nextID  int
}

// Add appends an entry stamped with the current time.
func (m *inMemoryInstance) Add(_ context.Context, content, kind string, metadata map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.entries = append(m.entries, core.MemoryEntry{
		ID:        m.name + "-" + strconv.Itoa(m.nextID),
		Content:   content,
		Kind:      kind,
		Metadata:  cloneMetadata(metadata),
		CreatedAt: time.Now(),
	})
	return nil
}

// Recent returns up to n entries, newest first.
func (m *inMemoryInstance) Recent(_ context.Context, n int) ([]core.MemoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n <= 0 || len(m.entries) == 0 {
		return []core.MemoryEntry{}, nil
	}
	if n > len(m.entries) {
		n = len(m.entries)
	}
	out := make([]core.MemoryEntry, 0, n)
	for i := len(m.entries) - 1; i >= len(m.entries)-n; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

// Close is a no-op; the instance stays resident for later re-attachment.
func (m *inMemoryInstance) Close() error { return nil }

func cloneMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
