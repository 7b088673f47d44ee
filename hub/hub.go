// Package hub provides the in-process signal router: named hubs deliver
// schema-tagged signals to attached agents and to correlation subscribers
// awaiting replies. Cross-process transports implement the same core.Router
// contract outside this module.
package hub

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/luxworks/lux/core"
	"github.com/luxworks/lux/logging"
)

// DeliverFunc receives a signal on behalf of an attached agent. It is called
// on a dedicated goroutine; panics are recovered and logged.
type DeliverFunc func(ctx context.Context, sig core.Signal)

// Options configure a Hub.
type Options struct {
	// Logger defaults to NoOp.
	Logger logging.Logger
	// SubscriberBuffer is the reply channel buffer per subscription.
	SubscriberBuffer int
}

type subscription struct {
	id uint64
	ch chan core.Signal
}

// Hub is a goroutine-safe in-process signal router.
type Hub struct {
	name   string
	logger logging.Logger
	buffer int

	mu     sync.RWMutex
	agents map[string]DeliverFunc
	subs   map[string][]subscription
	closed bool
	nextID atomic.Uint64
	wg     sync.WaitGroup
}

// New creates a hub with the given name.
func New(name string, optFns ...func(o *Options)) *Hub {
	opts := Options{Logger: logging.NoOpLogger{}, SubscriberBuffer: 8}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Hub{
		name:   name,
		logger: opts.Logger,
		buffer: opts.SubscriberBuffer,
		agents: make(map[string]DeliverFunc),
		subs:   make(map[string][]subscription),
	}
}

// Name returns the hub's registry name.
func (h *Hub) Name() string { return h.name }

// Attach registers an agent's delivery function. Attaching an id twice is an
// error; the agent runtime guarantees one live actor per identity.
func (h *Hub) Attach(agentID string, deliver DeliverFunc) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.agents[agentID]; exists {
		return fmt.Errorf("hub %s: agent %s already attached", h.name, agentID)
	}
	h.agents[agentID] = deliver
	return nil
}

// Detach removes an agent. Unknown ids are ignored.
func (h *Hub) Detach(agentID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.agents, agentID)
}

// Subscribe registers interest in replies correlated to the given id. The
// cancel function releases the subscription; it is safe to call twice.
func (h *Hub) Subscribe(correlationID string) (<-chan core.Signal, func()) {
	id := h.nextID.Add(1)
	sub := subscription{id: id, ch: make(chan core.Signal, h.buffer)}

	h.mu.Lock()
	h.subs[correlationID] = append(h.subs[correlationID], sub)
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			subs := h.subs[correlationID]
			for i, s := range subs {
				if s.id == id {
					h.subs[correlationID] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			if len(h.subs[correlationID]) == 0 {
				delete(h.subs, correlationID)
			}
		})
	}
	return sub.ch, cancel
}

// Route delivers a signal. Signals carrying a ReplyTo go to every matching
// correlation subscriber; signals carrying a Recipient go to that agent's
// mailbox. A signal consumed by neither is an error.
func (h *Hub) Route(ctx context.Context, sig core.Signal) error {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return fmt.Errorf("hub %s: closed", h.name)
	}
	var correlated []subscription
	if sig.ReplyTo != "" {
		correlated = append(correlated, h.subs[sig.ReplyTo]...)
	}
	deliver, hasAgent := h.agents[sig.Recipient]
	dispatching := sig.Recipient != "" && hasAgent
	if dispatching {
		// Counted while still holding the lock, so Close cannot start
		// waiting between the closed check and the add.
		h.wg.Add(1)
	}
	h.mu.RUnlock()

	delivered := false
	for _, sub := range correlated {
		select {
		case sub.ch <- sig:
		default:
			h.logger.Warn("dropping reply for slow subscriber",
				"hub", h.name, "signal_id", sig.ID, "reply_to", sig.ReplyTo)
		}
		delivered = true
	}

	if dispatching {
		h.dispatch(ctx, sig, deliver)
		delivered = true
	}

	if !delivered {
		return fmt.Errorf("hub %s: no route for signal %s to %q", h.name, sig.ID, sig.Recipient)
	}
	return nil
}

// dispatch hands the signal to the agent on its own goroutine so Route never
// blocks on a busy mailbox. Panicking delivery functions are recovered. The
// caller has already counted the delivery in the wait group.
func (h *Hub) dispatch(ctx context.Context, sig core.Signal, deliver DeliverFunc) {
	go func() {
		defer h.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("signal delivery panicked",
					"hub", h.name, "signal_id", sig.ID, "recipient", sig.Recipient, "panic", r)
			}
		}()
		deliver(ctx, sig)
	}()
}

// Close prevents new routing and waits for in-flight deliveries. Idempotent.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.mu.Unlock()
	h.wg.Wait()
}

// DefaultName is the name of the hub a fresh registry starts with.
const DefaultName = "default"

// Registry resolves hub names to hubs. Remote agent references name the hub
// their signals should travel through.
type Registry struct {
	mu   sync.RWMutex
	hubs map[string]*Hub
}

// NewRegistry creates a registry pre-populated with a default hub.
func NewRegistry(optFns ...func(o *Options)) *Registry {
	return &Registry{hubs: map[string]*Hub{
		DefaultName: New(DefaultName, optFns...),
	}}
}

// Add registers a hub under its name. Duplicate names are an error.
func (r *Registry) Add(h *Hub) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.hubs[h.Name()]; exists {
		return fmt.Errorf("hub %s already registered", h.Name())
	}
	r.hubs[h.Name()] = h
	return nil
}

// Get returns the named hub.
func (r *Registry) Get(name string) (*Hub, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hubs[name]
	return h, ok
}

// Default returns the default hub.
func (r *Registry) Default() *Hub {
	h, _ := r.Get(DefaultName)
	return h
}

// RouterFor resolves the router an agent reference should be reached
// through: the named hub for remote references, the default hub otherwise.
func (r *Registry) RouterFor(ref core.AgentRef) (core.Router, error) {
	if !ref.Remote() {
		return r.Default(), nil
	}
	h, ok := r.Get(ref.Hub)
	if !ok {
		return nil, fmt.Errorf("unknown hub %q", ref.Hub)
	}
	return h, nil
}

// Close closes every hub in the registry.
func (r *Registry) Close() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.hubs {
		h.Close()
	}
}
