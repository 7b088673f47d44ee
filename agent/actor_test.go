package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxworks/lux/core"
)

// captureRouter records every routed signal and exposes them on a channel.
type captureRouter struct {
	mu     sync.Mutex
	routed []core.Signal
	ch     chan core.Signal
}

func newCaptureRouter() *captureRouter {
	return &captureRouter{ch: make(chan core.Signal, 16)}
}

func (r *captureRouter) Subscribe(string) (<-chan core.Signal, func()) {
	return nil, func() {}
}

func (r *captureRouter) Route(_ context.Context, sig core.Signal) error {
	r.mu.Lock()
	r.routed = append(r.routed, sig)
	r.mu.Unlock()
	r.ch <- sig
	return nil
}

func awaitSignal(t *testing.T, router *captureRouter, timeout time.Duration) (core.Signal, bool) {
	t.Helper()
	select {
	case sig := <-router.ch:
		return sig, true
	case <-time.After(timeout):
		return core.Signal{}, false
	}
}

func startActor(t *testing.T, def Definition, optFns ...func(o *Options)) *Actor {
	t.Helper()
	actor, err := NewActor(def, optFns...)
	require.NoError(t, err)
	require.NoError(t, actor.Start(context.Background()))
	t.Cleanup(func() { _ = actor.Stop() })
	return actor
}

func TestActorLifecycle(t *testing.T) {
	actor, err := NewActor(Definition{Name: "a"}, func(o *Options) {
		o.IDGenerator = &core.SequenceGenerator{Prefix: "agent"}
	})
	require.NoError(t, err)
	assert.Equal(t, "agent-1", actor.ID())

	require.NoError(t, actor.Start(context.Background()))
	assert.ErrorIs(t, actor.Start(context.Background()), ErrAlreadyRunning)
	require.NoError(t, actor.Stop())
	assert.ErrorIs(t, actor.Stop(), ErrNotRunning)

	_, err = actor.Chat(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestActorHandlesSignalAndReplies(t *testing.T) {
	router := newCaptureRouter()
	actor := startActor(t, Definition{
		Name: "echo-agent",
		SignalHandlers: []SignalHandler{
			{SchemaID: "test.echo", Handler: echoHandler("echo")},
		},
	}, func(o *Options) {
		o.Router = router
	})

	sig := core.Signal{
		ID:        "req-1",
		SchemaID:  "test.echo",
		Payload:   map[string]any{"ping": "pong"},
		Sender:    "requester",
		Recipient: actor.ID(),
	}
	actor.Deliver(context.Background(), sig)

	reply, ok := awaitSignal(t, router, time.Second)
	require.True(t, ok, "expected a correlated reply")
	assert.Equal(t, "req-1", reply.ReplyTo)
	assert.Equal(t, "requester", reply.Recipient)
	assert.Equal(t, "pong", reply.Payload["ping"])
}

type staticFetcher struct{ data map[string]any }

func (f staticFetcher) Fetch(_ context.Context, lens core.Lens, _ map[string]any) (map[string]any, error) {
	return map[string]any{"url": lens.URL, "data": f.data}, nil
}

func TestActorHandlerFetchesThroughLens(t *testing.T) {
	router := newCaptureRouter()
	lookup := &fakeHandler{
		name: "lookup",
		kind: core.HandlerKindPrism,
		fn: func(ctx context.Context, _ map[string]any, hctx *core.HandlerContext) (any, error) {
			return hctx.FetchLens(ctx, "prices", nil)
		},
	}
	actor := startActor(t, Definition{
		Name:           "informed",
		Lenses:         []core.Lens{{Name: "prices", URL: "https://example.com/prices"}},
		SignalHandlers: []SignalHandler{{SchemaID: "test.lookup", Handler: lookup}},
	}, func(o *Options) {
		o.Router = router
		o.LensFetcher = staticFetcher{data: map[string]any{"gold": 42}}
	})

	actor.Deliver(context.Background(), core.Signal{
		ID: "req-1", SchemaID: "test.lookup", Sender: "requester", Recipient: actor.ID(),
	})

	reply, ok := awaitSignal(t, router, time.Second)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/prices", reply.Payload["url"])
	assert.Equal(t, map[string]any{"gold": 42}, reply.Payload["data"])
}

func TestActorIgnoresUnmatchedSchema(t *testing.T) {
	router := newCaptureRouter()
	actor := startActor(t, Definition{
		Name: "picky-agent",
		SignalHandlers: []SignalHandler{
			{SchemaID: "test.echo", Handler: echoHandler("echo")},
		},
	}, func(o *Options) {
		o.Router = router
	})

	actor.Deliver(context.Background(), core.Signal{
		ID:        "req-1",
		SchemaID:  "test.unknown",
		Recipient: actor.ID(),
	})

	// no reply for the unknown schema, and the actor stays responsive
	_, ok := awaitSignal(t, router, 100*time.Millisecond)
	assert.False(t, ok)

	actor.Deliver(context.Background(), core.Signal{
		ID:        "req-2",
		SchemaID:  "test.echo",
		Payload:   map[string]any{"still": "alive"},
		Sender:    "requester",
		Recipient: actor.ID(),
	})
	reply, ok := awaitSignal(t, router, time.Second)
	require.True(t, ok)
	assert.Equal(t, "req-2", reply.ReplyTo)
}

func TestActorContainsPanickingHandler(t *testing.T) {
	router := newCaptureRouter()
	bomb := &fakeHandler{
		name: "bomb",
		kind: core.HandlerKindPrism,
		fn: func(context.Context, map[string]any, *core.HandlerContext) (any, error) {
			panic("boom")
		},
	}
	actor := startActor(t, Definition{
		Name: "sturdy-agent",
		SignalHandlers: []SignalHandler{
			{SchemaID: "test.bomb", Handler: bomb},
			{SchemaID: "test.echo", Handler: echoHandler("echo")},
		},
	}, func(o *Options) {
		o.Router = router
	})

	actor.Deliver(context.Background(), core.Signal{
		ID: "req-1", SchemaID: "test.bomb", Recipient: actor.ID(),
	})
	actor.Deliver(context.Background(), core.Signal{
		ID: "req-2", SchemaID: "test.echo",
		Payload: map[string]any{"ok": true}, Sender: "requester", Recipient: actor.ID(),
	})

	reply, ok := awaitSignal(t, router, time.Second)
	require.True(t, ok, "actor should survive the panic")
	assert.Equal(t, "req-2", reply.ReplyTo)
}

func TestActorRejectsUnknownHandlerKind(t *testing.T) {
	router := newCaptureRouter()
	unknown := &fakeHandler{
		name: "mystery",
		kind: core.HandlerKindUnknown,
		fn: func(context.Context, map[string]any, *core.HandlerContext) (any, error) {
			return map[string]any{"should": "never run"}, nil
		},
	}
	actor := startActor(t, Definition{
		Name: "strict-agent",
		SignalHandlers: []SignalHandler{
			{SchemaID: "test.mystery", Handler: unknown},
		},
	}, func(o *Options) {
		o.Router = router
	})

	actor.Deliver(context.Background(), core.Signal{
		ID: "req-1", SchemaID: "test.mystery", Sender: "requester", Recipient: actor.ID(),
	})

	// dispatch fails with ErrInvalidModule, so no reply is ever routed
	_, ok := awaitSignal(t, router, 150*time.Millisecond)
	assert.False(t, ok)
}

type failingStore struct{ err error }

func (s failingStore) Open(context.Context, string) (core.Memory, error) {
	return nil, s.err
}

func TestActorStartFailsWhenMemoryAttachFails(t *testing.T) {
	boom := errors.New("disk gone")
	actor, err := NewActor(Definition{
		Name:   "forgetful",
		Memory: &MemoryConfig{Store: failingStore{err: boom}},
	})
	require.NoError(t, err)

	err = actor.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	// a failed start leaves the actor stopped
	assert.ErrorIs(t, actor.Stop(), ErrNotRunning)
}

func TestActorStartFailsWithoutMemoryStore(t *testing.T) {
	actor, err := NewActor(Definition{
		Name:   "storeless",
		Memory: &MemoryConfig{Name: "notes"},
	})
	require.NoError(t, err)
	assert.ErrorContains(t, actor.Start(context.Background()), "without a store")
}

func TestActorParallelismAcrossActors(t *testing.T) {
	router := newCaptureRouter()

	gate := make(chan struct{})
	slow := &fakeHandler{
		name: "slow",
		kind: core.HandlerKindPrism,
		fn: func(ctx context.Context, input map[string]any, _ *core.HandlerContext) (any, error) {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return map[string]any{"from": "slow"}, nil
		},
	}

	slowActor := startActor(t, Definition{
		ID: "slow-agent", Name: "slow-agent",
		SignalHandlers: []SignalHandler{{SchemaID: "test.slow", Handler: slow}},
	}, func(o *Options) { o.Router = router })
	fastActor := startActor(t, Definition{
		ID: "fast-agent", Name: "fast-agent",
		SignalHandlers: []SignalHandler{{SchemaID: "test.echo", Handler: echoHandler("echo")}},
	}, func(o *Options) { o.Router = router })

	slowActor.Deliver(context.Background(), core.Signal{
		ID: "req-slow", SchemaID: "test.slow", Sender: "requester", Recipient: slowActor.ID(),
	})
	fastActor.Deliver(context.Background(), core.Signal{
		ID: "req-fast", SchemaID: "test.echo",
		Payload: map[string]any{}, Sender: "requester", Recipient: fastActor.ID(),
	})

	// the fast actor answers while the slow one is still blocked
	reply, ok := awaitSignal(t, router, time.Second)
	require.True(t, ok)
	assert.Equal(t, "req-fast", reply.ReplyTo)

	close(gate)
	reply, ok = awaitSignal(t, router, time.Second)
	require.True(t, ok)
	assert.Equal(t, "req-slow", reply.ReplyTo)
}
