// Package lux is an agent runtime: autonomous agents built from prisms
// (single-shot handlers), beams (multi-step workflows) and lenses (data
// source descriptors), exchanging signals over in-process hubs, organized
// into companies whose objectives a CEO agent gates to completion.
//
// The Runtime is the assembly point. It owns the hub registry, the default
// memory store and the id generator, spawns agent actors, hires company
// actors, and tears everything down on Shutdown.
package lux

import (
	"context"
	"fmt"
	"sync"

	"github.com/luxworks/lux/agent"
	"github.com/luxworks/lux/company"
	"github.com/luxworks/lux/core"
	"github.com/luxworks/lux/hub"
	"github.com/luxworks/lux/logging"
	"github.com/luxworks/lux/memory"
	"github.com/luxworks/lux/model"
	"github.com/luxworks/lux/model/anthropic"
	"github.com/luxworks/lux/model/openai"
)

// Options configure a Runtime.
type Options struct {
	// Hubs is the signal router registry. Defaults to a fresh registry
	// with one default hub.
	Hubs *hub.Registry

	// MemoryStore backs agents whose memory config names no store.
	// Defaults to the in-memory store.
	MemoryStore core.MemoryStore

	// Logger defaults to NoOp.
	Logger logging.Logger

	// IDGenerator mints agent, company and signal ids. Defaults to UUIDs.
	IDGenerator core.IdentifierGenerator
}

// Runtime wires agents, companies and hubs together and tracks what it
// spawned. One live actor per agent identity: spawning an id that is
// already live fails.
type Runtime struct {
	hubs   *hub.Registry
	store  core.MemoryStore
	logger logging.Logger
	idgen  core.IdentifierGenerator

	mu        sync.Mutex
	agents    map[string]*spawnedAgent
	companies map[string]*company.Actor
}

type spawnedAgent struct {
	actor *agent.Actor
	hub   *hub.Hub
}

// New constructs a runtime with in-memory defaults.
func New(optFns ...func(o *Options)) *Runtime {
	opts := Options{
		Logger:      logging.NoOpLogger{},
		IDGenerator: core.UUIDGenerator{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Hubs == nil {
		opts.Hubs = hub.NewRegistry(func(o *hub.Options) {
			o.Logger = opts.Logger
		})
	}
	if opts.MemoryStore == nil {
		opts.MemoryStore = memory.NewInMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.IDGenerator == nil {
		opts.IDGenerator = core.UUIDGenerator{}
	}

	return &Runtime{
		hubs:      opts.Hubs,
		store:     opts.MemoryStore,
		logger:    opts.Logger,
		idgen:     opts.IDGenerator,
		agents:    make(map[string]*spawnedAgent),
		companies: make(map[string]*company.Actor),
	}
}

// Hubs exposes the router registry, e.g. to hand to remote transports.
func (r *Runtime) Hubs() *hub.Registry { return r.hubs }

// AgentOptions tune one SpawnAgent call.
type AgentOptions struct {
	// Hub names the hub the agent attaches to. Defaults to the default
	// hub.
	Hub string

	// Model overrides the model built from the definition's LLM config.
	Model model.Model

	// LensFetcher resolves fetches through the definition's lenses.
	LensFetcher core.LensFetcher

	// MailboxSize is the actor's command buffer.
	MailboxSize int
}

// SpawnAgent builds, starts and attaches an agent actor. The definition's
// LLM config is turned into a live model unless one is supplied; a memory
// config naming no store gets the runtime's default store.
func (r *Runtime) SpawnAgent(ctx context.Context, def agent.Definition, optFns ...func(o *AgentOptions)) (*agent.Actor, error) {
	var opts AgentOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	h, err := r.resolveHub(opts.Hub)
	if err != nil {
		return nil, err
	}

	m := opts.Model
	if m == nil && def.LLM.Provider != "" {
		m, err = ModelFromConfig(def.LLM)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", def.Name, err)
		}
	}

	if def.Memory != nil && def.Memory.Store == nil {
		mc := *def.Memory
		mc.Store = r.store
		def.Memory = &mc
	}

	actor, err := agent.NewActor(def, func(o *agent.Options) {
		o.Model = m
		o.Router = h
		o.Logger = r.logger
		o.IDGenerator = r.idgen
		o.LensFetcher = opts.LensFetcher
		o.MailboxSize = opts.MailboxSize
	})
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if _, live := r.agents[actor.ID()]; live {
		r.mu.Unlock()
		return nil, fmt.Errorf("agent %s is already running", actor.ID())
	}
	r.agents[actor.ID()] = &spawnedAgent{actor: actor, hub: h}
	r.mu.Unlock()

	if err := actor.Start(ctx); err != nil {
		r.forget(actor.ID())
		return nil, err
	}
	if err := h.Attach(actor.ID(), actor.Deliver); err != nil {
		_ = actor.Stop()
		r.forget(actor.ID())
		return nil, err
	}
	return actor, nil
}

// StopAgent detaches and stops a spawned agent.
func (r *Runtime) StopAgent(agentID string) error {
	r.mu.Lock()
	sp, ok := r.agents[agentID]
	if ok {
		delete(r.agents, agentID)
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("agent %s is not running", agentID)
	}
	sp.hub.Detach(agentID)
	return sp.actor.Stop()
}

// Agent returns a live agent actor by id.
func (r *Runtime) Agent(agentID string) (*agent.Actor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sp, ok := r.agents[agentID]
	if !ok {
		return nil, false
	}
	return sp.actor, true
}

// HireCompany builds and starts a company actor wired to the runtime's
// hubs, id generator and logger.
func (r *Runtime) HireCompany(c company.Company, optFns ...func(o *company.Options)) (*company.Actor, error) {
	actor := company.NewActor(c, func(o *company.Options) {
		o.Routers = r.hubs
		o.Logger = r.logger
		o.IDGenerator = r.idgen
		for _, fn := range optFns {
			fn(o)
		}
	})

	r.mu.Lock()
	if _, live := r.companies[actor.ID()]; live {
		r.mu.Unlock()
		return nil, fmt.Errorf("company %s is already running", actor.ID())
	}
	r.companies[actor.ID()] = actor
	r.mu.Unlock()

	if err := actor.Start(); err != nil {
		r.mu.Lock()
		delete(r.companies, actor.ID())
		r.mu.Unlock()
		return nil, err
	}
	return actor, nil
}

// Company returns a live company actor by id.
func (r *Runtime) Company(companyID string) (*company.Actor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	actor, ok := r.companies[companyID]
	return actor, ok
}

// StopCompany stops a hired company.
func (r *Runtime) StopCompany(companyID string) error {
	r.mu.Lock()
	actor, ok := r.companies[companyID]
	if ok {
		delete(r.companies, companyID)
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("company %s is not running", companyID)
	}
	return actor.Stop()
}

// Shutdown stops every company and agent the runtime spawned, then closes
// the hubs. Individual stop errors are logged, not returned; shutdown
// always runs to completion.
func (r *Runtime) Shutdown(ctx context.Context) {
	r.mu.Lock()
	companies := r.companies
	agents := r.agents
	r.companies = make(map[string]*company.Actor)
	r.agents = make(map[string]*spawnedAgent)
	r.mu.Unlock()

	for id, actor := range companies {
		if err := actor.Stop(); err != nil {
			r.logger.Warn("company stop failed", "company_id", id, "error", err)
		}
	}
	for id, sp := range agents {
		sp.hub.Detach(id)
		if err := sp.actor.Stop(); err != nil {
			r.logger.Warn("agent stop failed", "agent_id", id, "error", err)
		}
	}
	r.hubs.Close()
}

func (r *Runtime) resolveHub(name string) (*hub.Hub, error) {
	if name == "" {
		return r.hubs.Default(), nil
	}
	h, ok := r.hubs.Get(name)
	if !ok {
		return nil, fmt.Errorf("hub %s is not registered", name)
	}
	return h, nil
}

func (r *Runtime) forget(agentID string) {
	r.mu.Lock()
	delete(r.agents, agentID)
	r.mu.Unlock()
}

// ModelFromConfig builds a live model from a durable llm config.
func ModelFromConfig(cfg model.Config) (model.Model, error) {
	switch cfg.Provider {
	case "openai":
		return openai.FromConfig(cfg), nil
	case "anthropic":
		return anthropic.FromConfig(cfg), nil
	case "":
		return nil, fmt.Errorf("llm config has no provider")
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}
