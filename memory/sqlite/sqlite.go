// Package sqlite provides a durable memory-store backend on SQLite. All
// named instances share one database file; each entry row carries its
// instance name so agents stay isolated.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/luxworks/lux/core"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS memory_entries (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	instance   TEXT NOT NULL,
	content    TEXT NOT NULL,
	kind       TEXT NOT NULL,
	metadata   TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_memory_entries_instance ON memory_entries(instance, id);
`

// Store is a core.MemoryStore backed by a SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite memory: open %s: %w", path, err)
	}
	// modernc.org/sqlite serializes writes per connection; a single
	// connection avoids SQLITE_BUSY under concurrent agents.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite memory: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Open returns a handle onto the named instance. Instances are rows sharing
// an instance name, so re-opening a name re-attaches to its entries.
func (s *Store) Open(_ context.Context, name string) (core.Memory, error) {
	if name == "" {
		return nil, fmt.Errorf("sqlite memory: instance name is required")
	}
	return &instance{db: s.db, name: name}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

type instance struct {
	db   *sql.DB
	name string
}

// Add inserts one entry.
func (m *instance) Add(ctx context.Context, content, kind string, metadata map[string]any) error {
	var meta any
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("sqlite memory: marshal metadata: %w", err)
		}
		meta = string(raw)
	}
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO memory_entries (instance, content, kind, metadata, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.name, content, kind, meta, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite memory: insert: %w", err)
	}
	return nil
}

// Recent returns up to n entries for this instance, newest first.
func (m *instance) Recent(ctx context.Context, n int) ([]core.MemoryEntry, error) {
	if n <= 0 {
		return []core.MemoryEntry{}, nil
	}
	rows, err := m.db.QueryContext(ctx,
		`SELECT id, content, kind, metadata, created_at FROM memory_entries WHERE instance = ? ORDER BY id DESC LIMIT ?`,
		m.name, n,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite memory: query: %w", err)
	}
	defer rows.Close()

	entries := make([]core.MemoryEntry, 0, n)
	for rows.Next() {
		var (
			id        int64
			entry     core.MemoryEntry
			meta      sql.NullString
			createdAt time.Time
		)
		if err := rows.Scan(&id, &entry.Content, &entry.Kind, &meta, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite memory: scan: %w", err)
		}
		entry.ID = strconv.FormatInt(id, 10)
		entry.CreatedAt = createdAt
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &entry.Metadata); err != nil {
				return nil, fmt.Errorf("sqlite memory: unmarshal metadata: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Close releases the handle; the database stays open for other instances.
func (m *instance) Close() error { return nil }
