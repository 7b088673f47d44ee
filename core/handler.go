package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/luxworks/lux/logging"
)

// HandlerKind classifies a handler at registration time. The dispatcher
// switches on the declared kind instead of probing for methods, so an
// unknown kind is a local dispatch failure (ErrInvalidModule), never a
// crash of the owning agent.
type HandlerKind int

const (
	// HandlerKindUnknown is the zero value; dispatching it fails with
	// ErrInvalidModule.
	HandlerKindUnknown HandlerKind = iota
	// HandlerKindPrism marks a single-shot handler.
	HandlerKindPrism
	// HandlerKindBeam marks a multi-step workflow with the same external
	// contract as a prism.
	HandlerKindBeam
)

// String returns the lower-case kind name used in logs.
func (k HandlerKind) String() string {
	switch k {
	case HandlerKindPrism:
		return "prism"
	case HandlerKindBeam:
		return "beam"
	default:
		return "unknown"
	}
}

// Handler is the common contract of prisms and beams: input plus the owning
// agent's context in, a result or an error out. A returned error is a
// domain-level failure; panics are faults and are contained by the
// supervised execution cell, not by the handler.
type Handler interface {
	// Name identifies the handler in scheduled-action registrations,
	// signal-handler tables and logs.
	Name() string

	// Kind declares how the dispatcher should treat this handler.
	Kind() HandlerKind

	// Handle executes the handler. Implementations should respect ctx
	// cancellation; the supervised cell enforces the per-action timeout
	// through it.
	Handle(ctx context.Context, input map[string]any, hctx *HandlerContext) (any, error)
}

// HandlerContext carries the owning agent's identity into a handler
// invocation. It is the Go rendering of the "context = agent" argument of
// the handler contract.
type HandlerContext struct {
	AgentID   string
	AgentName string
	Goal      string
	Logger    logging.Logger

	// Lenses are the read-only data sources attached to the owning agent.
	Lenses []Lens

	// Fetcher resolves lens fetches. Nil when the runtime has none
	// configured.
	Fetcher LensFetcher
}

// ErrNoLensFetcher reports a lens fetch on an agent without a fetcher.
var ErrNoLensFetcher = errors.New("no lens fetcher configured")

// FetchLens fetches through the named lens of the owning agent.
func (c *HandlerContext) FetchLens(ctx context.Context, name string, params map[string]any) (map[string]any, error) {
	if c.Fetcher == nil {
		return nil, ErrNoLensFetcher
	}
	for _, l := range c.Lenses {
		if l.Name == name {
			return c.Fetcher.Fetch(ctx, l, params)
		}
	}
	return nil, fmt.Errorf("agent %s has no lens %q", c.AgentID, name)
}

// Lens describes a read-only external data fetcher attached to an agent.
// Fetching itself is an external collaborator; the runtime only carries the
// descriptor and the narrow Fetcher seam.
type Lens struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	URL         string            `json:"url"`
	Method      string            `json:"method,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
}

// LensFetcher retrieves data for a lens. Implemented outside this core.
type LensFetcher interface {
	Fetch(ctx context.Context, lens Lens, params map[string]any) (map[string]any, error)
}
