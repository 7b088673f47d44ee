package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/luxworks/lux/core"
	"github.com/luxworks/lux/logging"
	"github.com/luxworks/lux/model"
)

// ErrAlreadyRunning reports a second Start on a live actor.
var ErrAlreadyRunning = errors.New("agent actor is already running")

// ErrNotRunning reports an operation against a stopped actor.
var ErrNotRunning = errors.New("agent actor is not running")

// Options configure an Actor beyond its definition.
type Options struct {
	// Model serves Chat. Leaving it nil is fine for agents that only run
	// handlers; Chat then fails with a configuration error.
	Model model.Model

	// Router lets the actor send reply signals for handled requests. Reply
	// emission is skipped when nil.
	Router core.Router

	// Logger defaults to NoOp.
	Logger logging.Logger

	// IDGenerator mints the agent id (when the definition has none) and
	// reply signal ids. Defaults to UUIDs.
	IDGenerator core.IdentifierGenerator

	// LensFetcher resolves fetches through the definition's lenses.
	// Handlers see it on their context; FetchLens fails when nil.
	LensFetcher core.LensFetcher

	// MailboxSize is the command channel buffer.
	MailboxSize int
}

// Actor owns one agent's identity, configuration and runtime state, and
// processes an ordered mailbox of commands one at a time. Exactly one live
// actor may exist per agent identity in a process; the lux.Runtime registry
// enforces this for actors it spawns.
type Actor struct {
	def     Definition
	model   model.Model
	router  core.Router
	logger  logging.Logger
	idgen   core.IdentifierGenerator
	fetcher core.LensFetcher

	handlers    map[string]core.Handler
	tools       []model.ToolDefinition
	mailboxSize int

	mu      sync.Mutex
	running bool
	mailbox chan command
	done    chan struct{}
	wg      sync.WaitGroup

	// memory is owned by the actor; attached lazily during Start, released
	// on Stop. No other component touches it.
	memory core.Memory
}

type command interface{ isCommand() }

type chatCommand struct {
	ctx   context.Context
	text  string
	opts  ChatOptions
	reply chan chatResult
}

type chatResult struct {
	text string
	err  error
}

type signalCommand struct {
	ctx context.Context
	sig core.Signal
}

// fireCommand is a scheduled-action fire. finished is closed once the
// supervised cell completes, which is what re-arms the timer.
type fireCommand struct {
	action   ScheduledAction
	finished chan struct{}
}

func (chatCommand) isCommand()   {}
func (signalCommand) isCommand() {}
func (fireCommand) isCommand()   {}

// NewActor constructs an actor from a definition. The actor is inert until
// Start.
func NewActor(def Definition, optFns ...func(o *Options)) (*Actor, error) {
	opts := Options{
		Logger:      logging.NoOpLogger{},
		IDGenerator: core.UUIDGenerator{},
		MailboxSize: 32,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.IDGenerator == nil {
		opts.IDGenerator = core.UUIDGenerator{}
	}
	if opts.MailboxSize <= 0 {
		opts.MailboxSize = 32
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	if def.ID == "" {
		def.ID = opts.IDGenerator.NewID()
	}

	handlers := make(map[string]core.Handler, len(def.SignalHandlers))
	for _, sh := range def.SignalHandlers {
		handlers[sh.SchemaID] = sh.Handler
	}

	return &Actor{
		def:         def,
		model:       opts.Model,
		router:      opts.Router,
		logger:      logging.WithAgent(opts.Logger, def.ID),
		idgen:       opts.IDGenerator,
		fetcher:     opts.LensFetcher,
		handlers:    handlers,
		tools:       def.toolList(),
		mailboxSize: opts.MailboxSize,
	}, nil
}

// ID returns the agent's identity.
func (a *Actor) ID() string { return a.def.ID }

// Name returns the agent's human-readable name.
func (a *Actor) Name() string { return a.def.Name }

// Definition returns the durable definition the actor was built from.
func (a *Actor) Definition() Definition { return a.def }

// Start spawns the mailbox loop, attaches the configured memory instance and
// arms one timer per scheduled action. A memory attachment failure fails the
// whole start.
func (a *Actor) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return ErrAlreadyRunning
	}

	if a.def.Memory != nil {
		store := a.def.Memory.Store
		if store == nil {
			return fmt.Errorf("agent %s: memory configured without a store", a.def.ID)
		}
		name := a.def.Memory.Name
		if name == "" {
			name = a.def.ID + "-memory"
		}
		mem, err := store.Open(ctx, name)
		if err != nil {
			return fmt.Errorf("agent %s: attach memory %q: %w", a.def.ID, name, err)
		}
		a.memory = mem
	}

	a.mailbox = make(chan command, a.mailboxSize)
	a.done = make(chan struct{})
	a.running = true

	a.wg.Add(1)
	go a.loop()

	for i := range a.def.ScheduledActions {
		a.wg.Add(1)
		go a.runScheduledAction(a.def.ScheduledActions[i])
	}

	a.logger.Info("agent started",
		"name", a.def.Name, "scheduled_actions", len(a.def.ScheduledActions))
	return nil
}

// Stop halts the mailbox, waits for in-flight supervised cells, and releases
// the memory handle.
func (a *Actor) Stop() error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return ErrNotRunning
	}
	a.running = false
	close(a.done)
	a.mu.Unlock()

	a.wg.Wait()

	if a.memory != nil {
		if err := a.memory.Close(); err != nil {
			a.logger.Warn("releasing memory handle failed", "error", err)
		}
		a.memory = nil
	}
	a.logger.Info("agent stopped")
	return nil
}

// Deliver enqueues an inbound signal; it is the hub-facing mailbox entry
// point. Signals for a stopped actor are dropped with a log line.
func (a *Actor) Deliver(ctx context.Context, sig core.Signal) {
	mailbox, done, ok := a.channels()
	if !ok {
		a.logger.Warn("dropping signal for stopped agent", "signal_id", sig.ID)
		return
	}
	select {
	case mailbox <- signalCommand{ctx: ctx, sig: sig}:
	case <-done:
		a.logger.Warn("dropping signal for stopped agent", "signal_id", sig.ID)
	case <-ctx.Done():
	}
}

// channels snapshots the live mailbox under the state lock.
func (a *Actor) channels() (chan command, chan struct{}, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return nil, nil, false
	}
	return a.mailbox, a.done, true
}

// loop processes commands strictly sequentially. Handler executions are
// spawned into supervised cells, so the loop itself never blocks on them.
func (a *Actor) loop() {
	defer a.wg.Done()
	for {
		select {
		case <-a.done:
			return
		case cmd := <-a.mailbox:
			switch c := cmd.(type) {
			case chatCommand:
				text, err := a.handleChat(c.ctx, c.text, c.opts)
				c.reply <- chatResult{text: text, err: err}
			case signalCommand:
				a.handleSignal(c.sig)
			case fireCommand:
				a.handleScheduledFire(c)
			}
		}
	}
}

// handleSignal looks the signal's schema up against the registered handler
// table. Unmatched schemas are logged and ignored, never an error. Matched
// handlers run through the supervised cell; a map-shaped result is routed
// back as a correlated reply when the signal came from a requester.
func (a *Actor) handleSignal(sig core.Signal) {
	handler, ok := a.handlers[sig.SchemaID]
	if !ok {
		a.logger.Debug("ignoring signal with unhandled schema",
			"signal_id", sig.ID, "schema_id", sig.SchemaID)
		return
	}

	a.superviseAsync(cell{
		name:    "signal:" + sig.SchemaID,
		handler: handler,
		input:   sig.Payload,
		timeout: DefaultActionTimeout,
		onResult: func(result any) {
			a.replyTo(sig, result)
		},
	}, nil)
}

// replyTo routes a handled signal's result back to the requester.
func (a *Actor) replyTo(sig core.Signal, result any) {
	if a.router == nil || sig.ID == "" {
		return
	}
	payload, ok := result.(map[string]any)
	if !ok {
		return
	}
	reply := sig.Reply(a.idgen.NewID(), payload)
	if err := a.router.Route(context.Background(), reply); err != nil {
		a.logger.Warn("routing reply failed",
			"signal_id", sig.ID, "schema_id", sig.SchemaID, "error", err)
	}
}

// handleScheduledFire dispatches one scheduled-action fire into a supervised
// cell. The result is discarded; scheduled actions are fire-and-forget. The
// fire's finished channel closes when the cell completes, re-arming the
// timer regardless of outcome.
func (a *Actor) handleScheduledFire(c fireCommand) {
	timeout := c.action.Timeout
	if timeout <= 0 {
		timeout = DefaultActionTimeout
	}
	a.superviseAsync(cell{
		name:    c.action.name(),
		handler: c.action.Handler,
		input:   c.action.Input,
		timeout: timeout,
	}, c.finished)
}

func (a *Actor) handlerContext() *core.HandlerContext {
	return &core.HandlerContext{
		AgentID:   a.def.ID,
		AgentName: a.def.Name,
		Goal:      a.def.Goal,
		Logger:    a.logger,
		Lenses:    a.def.Lenses,
		Fetcher:   a.fetcher,
	}
}
