package lux

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxworks/lux/agent"
	"github.com/luxworks/lux/company"
	"github.com/luxworks/lux/core"
	"github.com/luxworks/lux/model"
	"github.com/luxworks/lux/protocol"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	r := New(func(o *Options) {
		o.IDGenerator = &core.SequenceGenerator{Prefix: "id"}
	})
	t.Cleanup(func() { r.Shutdown(context.Background()) })
	return r
}

func spawnResponder(t *testing.T, r *Runtime, name string, extra ...agent.SignalHandler) *agent.Actor {
	t.Helper()
	handlers := append([]agent.SignalHandler{
		{SchemaID: protocol.SchemaAgentInitialize, Handler: protocol.NewInitializationHandler()},
	}, extra...)
	actor, err := r.SpawnAgent(context.Background(), agent.Definition{
		Name:           name,
		SignalHandlers: handlers,
	})
	require.NoError(t, err)
	return actor
}

func TestRuntimeSpawnAndStopAgent(t *testing.T) {
	r := newTestRuntime(t)

	actor := spawnResponder(t, r, "worker")
	got, ok := r.Agent(actor.ID())
	require.True(t, ok)
	assert.Same(t, actor, got)

	// one live actor per identity
	_, err := r.SpawnAgent(context.Background(), agent.Definition{ID: actor.ID(), Name: "clone"})
	assert.ErrorContains(t, err, "already running")

	require.NoError(t, r.StopAgent(actor.ID()))
	_, ok = r.Agent(actor.ID())
	assert.False(t, ok)
	assert.Error(t, r.StopAgent(actor.ID()))

	// the identity is free again
	respawned, err := r.SpawnAgent(context.Background(), agent.Definition{ID: actor.ID(), Name: "respawn"})
	require.NoError(t, err)
	assert.Equal(t, actor.ID(), respawned.ID())
}

func TestRuntimeObjectiveLifecycleEndToEnd(t *testing.T) {
	r := newTestRuntime(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// CEO approves only at full progress
	ceo := spawnResponder(t, r, "ceo", agent.SignalHandler{
		SchemaID: protocol.SchemaObjectiveEvaluate,
		Handler: protocol.NewEvaluationHandler(
			func(_ context.Context, req protocol.EvaluationRequest, _ *core.HandlerContext) (protocol.EvaluationResult, error) {
				if req.Progress < 100 {
					return protocol.EvaluationResult{Approved: false, Reason: "not finished"}, nil
				}
				return protocol.EvaluationResult{Approved: true}, nil
			}),
	})
	worker := spawnResponder(t, r, "worker")

	c, err := company.NewBuilder("Acme").
		WithCEO(company.Role{ID: "ceo", Name: "Chief"}).
		WithRole(company.Role{ID: "builder", Name: "Builder"}).
		WithObjective(company.Objective{ID: "obj-1", Name: "Ship"}).
		Build()
	require.NoError(t, err)

	orch, err := r.HireCompany(c)
	require.NoError(t, err)

	_, err = orch.AssignAgent(ctx, "ceo", core.LocalRef(ceo.ID()))
	require.NoError(t, err)
	_, err = orch.AssignAgent(ctx, "builder", core.LocalRef(worker.ID()))
	require.NoError(t, err)

	require.NoError(t, orch.InitializeAgents(ctx))

	_, err = orch.AssignAgentToObjective(ctx, "obj-1", worker.ID())
	require.NoError(t, err)
	started, err := orch.StartObjectives(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"obj-1"}, started)

	_, err = orch.UpdateObjectiveProgress(ctx, "obj-1", 50)
	require.NoError(t, err)

	// premature completion is rejected but leaves the objective running
	_, err = orch.CompleteObjective(ctx, "obj-1")
	var rejected *company.CompletionRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "not finished", rejected.Reason)

	obj, err := orch.Objective(ctx, "obj-1")
	require.NoError(t, err)
	assert.Equal(t, company.StatusInProgress, obj.Status)

	_, err = orch.UpdateObjectiveProgress(ctx, "obj-1", 100)
	require.NoError(t, err)
	obj, err = orch.CompleteObjective(ctx, "obj-1")
	require.NoError(t, err)
	assert.Equal(t, company.StatusCompleted, obj.Status)
	assert.Equal(t, ceo.ID(), obj.Metadata["approved_by"])
}

func TestRuntimeInitializeFailsForUnresponsiveAgent(t *testing.T) {
	r := newTestRuntime(t)
	ctx := context.Background()

	ceo := spawnResponder(t, r, "ceo")
	// mute registers no initialization handler, so the exchange times out
	mute, err := r.SpawnAgent(ctx, agent.Definition{Name: "mute"})
	require.NoError(t, err)

	c, err := company.NewBuilder("Acme").
		WithCEO(company.Role{ID: "ceo", Name: "Chief"}).
		WithRole(company.Role{ID: "silent", Name: "Silent"}).
		Build()
	require.NoError(t, err)

	orch, err := r.HireCompany(c, func(o *company.Options) {
		o.InitializeTimeout = 100 * time.Millisecond
	})
	require.NoError(t, err)

	_, err = orch.AssignAgent(ctx, "ceo", core.LocalRef(ceo.ID()))
	require.NoError(t, err)
	_, err = orch.AssignAgent(ctx, "silent", core.LocalRef(mute.ID()))
	require.NoError(t, err)

	err = orch.InitializeAgents(ctx)
	var initErr *company.InitializationError
	require.ErrorAs(t, err, &initErr)
	require.Contains(t, initErr.Failed, "silent")
	assert.ErrorIs(t, initErr.Failed["silent"], protocol.ErrTimeout)
}

func TestRuntimeHireCompanyTwice(t *testing.T) {
	r := newTestRuntime(t)

	c, err := company.NewBuilder("Acme").
		WithCEO(company.Role{Name: "Chief"}).
		Build()
	require.NoError(t, err)
	c.ID = "acme"

	_, err = r.HireCompany(c)
	require.NoError(t, err)
	_, err = r.HireCompany(c)
	assert.ErrorContains(t, err, "already running")

	require.NoError(t, r.StopCompany("acme"))
	_, ok := r.Company("acme")
	assert.False(t, ok)
}

func TestRuntimeDefaultMemoryStoreSubstitution(t *testing.T) {
	r := newTestRuntime(t)
	ctx := context.Background()

	actor, err := r.SpawnAgent(ctx, agent.Definition{
		Name:   "remembers",
		Memory: &agent.MemoryConfig{Name: "shared-notes"},
	}, func(o *AgentOptions) {
		o.Model = staticModel{text: "noted"}
	})
	require.NoError(t, err)

	_, err = actor.Chat(ctx, "remember this", func(o *agent.ChatOptions) {
		o.UseMemory = true
	})
	require.NoError(t, err)

	// the exchange landed in the runtime's default store
	mem, err := r.store.Open(ctx, "shared-notes")
	require.NoError(t, err)
	entries, err := mem.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRuntimeUnknownHub(t *testing.T) {
	r := newTestRuntime(t)
	_, err := r.SpawnAgent(context.Background(), agent.Definition{Name: "lost"},
		func(o *AgentOptions) { o.Hub = "nowhere" })
	assert.ErrorContains(t, err, "not registered")
}

func TestModelFromConfig(t *testing.T) {
	m, err := ModelFromConfig(model.Config{Provider: "openai", Model: "gpt-4o-mini", APIKey: "sk-test"})
	require.NoError(t, err)
	assert.NotNil(t, m)

	m, err = ModelFromConfig(model.Config{Provider: "anthropic", Model: "claude-sonnet-4-5", APIKey: "sk-test"})
	require.NoError(t, err)
	assert.NotNil(t, m)

	_, err = ModelFromConfig(model.Config{})
	assert.ErrorContains(t, err, "no provider")

	_, err = ModelFromConfig(model.Config{Provider: "acme-llm"})
	assert.ErrorContains(t, err, "unsupported llm provider")
}

type staticModel struct{ text string }

func (m staticModel) Call(context.Context, model.Request) (*model.Response, error) {
	return &model.Response{Text: m.text}, nil
}

func TestRuntimeShutdownIsIdempotent(t *testing.T) {
	r := New()
	actor := spawnResponder(t, r, "worker")

	r.Shutdown(context.Background())
	r.Shutdown(context.Background())

	_, ok := r.Agent(actor.ID())
	assert.False(t, ok)
}
