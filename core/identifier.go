package core

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// IdentifierGenerator produces unique ids for agents, objectives and
// signals. It is pluggable so tests can inject deterministic ids.
type IdentifierGenerator interface {
	NewID() string
}

// UUIDGenerator issues random (version 4) UUIDs. The default generator.
type UUIDGenerator struct{}

// NewID returns a new UUID string.
func (UUIDGenerator) NewID() string { return uuid.NewString() }

// ULIDGenerator issues lexicographically sortable ULIDs with monotonic
// entropy, useful when id ordering should follow creation order.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewULIDGenerator constructs a ULIDGenerator seeded from wall-clock time.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// NewID returns a new ULID string.
func (g *ULIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// SequenceGenerator issues "<prefix>-1", "<prefix>-2", ... Deterministic,
// for tests.
type SequenceGenerator struct {
	Prefix string
	n      atomic.Uint64
}

// NewID returns the next id in the sequence.
func (g *SequenceGenerator) NewID() string {
	return fmt.Sprintf("%s-%d", g.Prefix, g.n.Add(1))
}
