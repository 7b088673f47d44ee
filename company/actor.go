package company

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/luxworks/lux/core"
	"github.com/luxworks/lux/logging"
	"github.com/luxworks/lux/protocol"
)

// RouterResolver resolves the router an agent reference is reached through.
// The hub registry implements it; tests substitute stubs.
type RouterResolver interface {
	RouterFor(ref core.AgentRef) (core.Router, error)
}

// Options configure a company Actor.
type Options struct {
	// Routers resolves hubs for protocol exchanges. Required for
	// CompleteObjective and InitializeAgents.
	Routers RouterResolver

	// Logger defaults to NoOp.
	Logger logging.Logger

	// IDGenerator mints protocol signal ids. Defaults to UUIDs.
	IDGenerator core.IdentifierGenerator

	// InitializeTimeout bounds one agent initialization exchange.
	InitializeTimeout time.Duration

	// EvaluationTimeout bounds the CEO evaluation exchange. While waiting,
	// the actor's mailbox is intentionally blocked; see CompleteObjective.
	EvaluationTimeout time.Duration

	// Clock stamps transitions. Defaults to time.Now; tests inject a fixed
	// clock.
	Clock func() time.Time

	// MailboxSize is the operation channel buffer.
	MailboxSize int
}

// Actor owns one Company and serializes every operation through its
// mailbox, giving linearizable reads and writes over the aggregate. No two
// operations on the same company ever run concurrently.
type Actor struct {
	company *Company // owned by the loop goroutine after Start
	routers RouterResolver
	logger  logging.Logger
	idgen   core.IdentifierGenerator
	clock   func() time.Time

	initTimeout time.Duration
	evalTimeout time.Duration
	mailboxSize int

	mu      sync.Mutex
	running bool
	calls   chan call
	done    chan struct{}
	wg      sync.WaitGroup
}

type call struct {
	fn    func(c *Company) (any, error)
	reply chan callResult
}

type callResult struct {
	value any
	err   error
}

// NewActor constructs an actor owning the given company. The company value
// is taken over; callers must not touch it afterwards.
func NewActor(c Company, optFns ...func(o *Options)) *Actor {
	opts := Options{
		Logger:            logging.NoOpLogger{},
		IDGenerator:       core.UUIDGenerator{},
		InitializeTimeout: protocol.DefaultInitializeTimeout,
		EvaluationTimeout: protocol.DefaultEvaluationTimeout,
		Clock:             time.Now,
		MailboxSize:       16,
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
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.MailboxSize <= 0 {
		opts.MailboxSize = 16
	}

	if c.ID == "" {
		c.ID = opts.IDGenerator.NewID()
	}
	if c.CEO.Type == "" {
		c.CEO.Type = RoleCEO
	}

	return &Actor{
		company:     &c,
		routers:     opts.Routers,
		logger:      logging.WithCompany(opts.Logger, c.ID),
		idgen:       opts.IDGenerator,
		clock:       opts.Clock,
		initTimeout: opts.InitializeTimeout,
		evalTimeout: opts.EvaluationTimeout,
		mailboxSize: opts.MailboxSize,
	}
}

// ID returns the company id.
func (a *Actor) ID() string { return a.company.ID }

// Start spawns the mailbox loop.
func (a *Actor) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return errors.New("company actor is already running")
	}
	a.calls = make(chan call, a.mailboxSize)
	a.done = make(chan struct{})
	a.running = true

	a.wg.Add(1)
	go a.loop()
	a.logger.Info("company started", "name", a.company.Name)
	return nil
}

// Stop halts the mailbox loop.
func (a *Actor) Stop() error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return errors.New("company actor is not running")
	}
	a.running = false
	close(a.done)
	a.mu.Unlock()

	a.wg.Wait()
	a.logger.Info("company stopped")
	return nil
}

func (a *Actor) loop() {
	defer a.wg.Done()
	for {
		select {
		case <-a.done:
			return
		case c := <-a.calls:
			value, err := c.fn(a.company)
			c.reply <- callResult{value: value, err: err}
		}
	}
}

// do submits one operation to the mailbox and awaits its result.
func (a *Actor) do(ctx context.Context, fn func(c *Company) (any, error)) (any, error) {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil, errors.New("company actor is not running")
	}
	calls, done := a.calls, a.done
	a.mu.Unlock()

	reply := make(chan callResult, 1)
	select {
	case calls <- call{fn: fn, reply: reply}:
	case <-done:
		return nil, errors.New("company actor is not running")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-reply:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Roles lists the CEO followed by the member roles.
func (a *Actor) Roles(ctx context.Context) ([]Role, error) {
	v, err := a.do(ctx, func(c *Company) (any, error) {
		return c.AllRoles(), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Role), nil
}

// Role fetches one role by id.
func (a *Actor) Role(ctx context.Context, roleID string) (Role, error) {
	v, err := a.do(ctx, func(c *Company) (any, error) {
		role := c.findRole(roleID)
		if role == nil {
			return nil, ErrRoleNotFound
		}
		return *role, nil
	})
	if err != nil {
		return Role{}, err
	}
	return v.(Role), nil
}

// AssignAgent binds an agent reference to a role. Local versus remote is
// inferred from the reference's shape; the role's hub is re-derived from it.
func (a *Actor) AssignAgent(ctx context.Context, roleID string, ref core.AgentRef) (Role, error) {
	v, err := a.do(ctx, func(c *Company) (any, error) {
		role := c.findRole(roleID)
		if role == nil {
			return nil, ErrRoleNotFound
		}
		*role = role.WithAgent(ref)
		a.logger.Info("agent assigned to role",
			"role_id", roleID, "agent_id", ref.ID, "remote", ref.Remote())
		return *role, nil
	})
	if err != nil {
		return Role{}, err
	}
	return v.(Role), nil
}

// Objectives lists the company's objectives.
func (a *Actor) Objectives(ctx context.Context) ([]Objective, error) {
	v, err := a.do(ctx, func(c *Company) (any, error) {
		out := make([]Objective, len(c.Objectives))
		copy(out, c.Objectives)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Objective), nil
}

// Objective fetches one objective by id.
func (a *Actor) Objective(ctx context.Context, objectiveID string) (Objective, error) {
	v, err := a.do(ctx, func(c *Company) (any, error) {
		obj := c.findObjective(objectiveID)
		if obj == nil {
			return nil, ErrObjectiveNotFound
		}
		return *obj, nil
	})
	if err != nil {
		return Objective{}, err
	}
	return v.(Objective), nil
}

// ObjectiveStatus returns just the lifecycle status of an objective.
func (a *Actor) ObjectiveStatus(ctx context.Context, objectiveID string) (ObjectiveStatus, error) {
	obj, err := a.Objective(ctx, objectiveID)
	if err != nil {
		return "", err
	}
	return obj.Status, nil
}

// AssignAgentToObjective adds an agent to an objective's assignment set.
// The agent must already hold a seat: an id matching no role's agent
// reference fails with ErrAgentNotFound.
func (a *Actor) AssignAgentToObjective(ctx context.Context, objectiveID, agentID string) (Objective, error) {
	v, err := a.do(ctx, func(c *Company) (any, error) {
		if !c.hasAgent(agentID) {
			return nil, ErrAgentNotFound
		}
		obj := c.findObjective(objectiveID)
		if obj == nil {
			return nil, ErrObjectiveNotFound
		}
		updated, err := obj.AssignAgent(agentID)
		if err != nil {
			return nil, err
		}
		*obj = updated
		return updated, nil
	})
	if err != nil {
		return Objective{}, err
	}
	return v.(Objective), nil
}

// StartObjective transitions one objective to in_progress.
func (a *Actor) StartObjective(ctx context.Context, objectiveID string) (Objective, error) {
	return a.transition(ctx, objectiveID, func(o Objective) (Objective, error) {
		return o.Start(a.clock())
	})
}

// UpdateObjectiveProgress sets the progress of an in-progress objective.
func (a *Actor) UpdateObjectiveProgress(ctx context.Context, objectiveID string, value int) (Objective, error) {
	return a.transition(ctx, objectiveID, func(o Objective) (Objective, error) {
		return o.UpdateProgress(value)
	})
}

// FailObjective transitions one objective to failed, recording the reason.
func (a *Actor) FailObjective(ctx context.Context, objectiveID, reason string) (Objective, error) {
	return a.transition(ctx, objectiveID, func(o Objective) (Objective, error) {
		return o.Fail(reason, a.clock())
	})
}

func (a *Actor) transition(ctx context.Context, objectiveID string, fn func(o Objective) (Objective, error)) (Objective, error) {
	v, err := a.do(ctx, func(c *Company) (any, error) {
		obj := c.findObjective(objectiveID)
		if obj == nil {
			return nil, ErrObjectiveNotFound
		}
		updated, err := fn(*obj)
		if err != nil {
			return nil, err
		}
		*obj = updated
		return updated, nil
	})
	if err != nil {
		return Objective{}, err
	}
	return v.(Objective), nil
}

// CompleteObjective gates completion behind the CEO's evaluation. The
// exchange runs inside the mailbox, so the whole company is unavailable for
// up to the evaluation timeout while waiting.
//
// Outcomes:
//   - approved: the objective transitions to completed (progress 100) and
//     metadata records the approver under "approved_by".
//   - rejected: the objective stays in_progress, metadata records the
//     reason under "completion_rejected_reason", and the call returns
//     *CompletionRejectedError.
//   - protocol failure: the objective is untouched and the call returns
//     *EvaluationError wrapping the cause.
func (a *Actor) CompleteObjective(ctx context.Context, objectiveID string) (Objective, error) {
	v, err := a.do(ctx, func(c *Company) (any, error) {
		obj := c.findObjective(objectiveID)
		if obj == nil {
			return nil, ErrObjectiveNotFound
		}
		if obj.Status != StatusInProgress {
			return nil, ErrInvalidStatus
		}
		ceoRef := c.CEO.Agent
		if ceoRef.IsZero() {
			return nil, ErrNoCEOAgent
		}
		router, err := a.routerFor(ceoRef)
		if err != nil {
			return nil, &EvaluationError{Err: err}
		}

		result, err := protocol.EvaluateCompletion(ctx, router, ceoRef, protocol.EvaluationRequest{
			CompanyID:       c.ID,
			ObjectiveID:     obj.ID,
			Name:            obj.Name,
			Description:     obj.Description,
			SuccessCriteria: obj.SuccessCriteria,
			Steps:           obj.Steps,
			Progress:        obj.Progress,
			Metadata:        obj.Metadata,
		}, func(o *protocol.Options) {
			o.Timeout = a.evalTimeout
			o.IDGenerator = a.idgen
			o.Requester = "company:" + c.ID
		})
		if err != nil {
			a.logger.Warn("ceo evaluation failed",
				"objective_id", obj.ID, "error", err)
			return nil, &EvaluationError{Err: err}
		}

		if !result.Approved {
			obj.Metadata = withMetadata(obj.Metadata, "completion_rejected_reason", result.Reason)
			a.logger.Info("objective completion rejected",
				"objective_id", obj.ID, "reason", result.Reason)
			return nil, &CompletionRejectedError{Reason: result.Reason}
		}

		updated, err := obj.Complete(a.clock())
		if err != nil {
			return nil, err
		}
		updated.Metadata = withMetadata(updated.Metadata, "approved_by", ceoRef.ID)
		*obj = updated
		a.logger.Info("objective completed", "objective_id", obj.ID, "approved_by", ceoRef.ID)
		return updated, nil
	})
	if err != nil {
		return Objective{}, err
	}
	return v.(Objective), nil
}

// InitializeAgents initializes the CEO's agent first; only if that succeeds
// are the remaining bound roles attempted. Any failure is reported as
// *InitializationError keyed by role id.
func (a *Actor) InitializeAgents(ctx context.Context) error {
	_, err := a.do(ctx, func(c *Company) (any, error) {
		if c.CEO.Agent.IsZero() {
			return nil, ErrNoCEOAgent
		}
		if err := a.initializeRole(ctx, c, c.CEO); err != nil {
			return nil, &InitializationError{Failed: map[string]error{c.CEO.ID: err}}
		}

		failed := make(map[string]error)
		for _, role := range c.Roles {
			if role.Agent.IsZero() {
				continue
			}
			if err := a.initializeRole(ctx, c, role); err != nil {
				failed[role.ID] = err
			}
		}
		if len(failed) > 0 {
			return nil, &InitializationError{Failed: failed}
		}
		return nil, nil
	})
	return err
}

func (a *Actor) initializeRole(ctx context.Context, c *Company, role Role) error {
	router, err := a.routerFor(role.Agent)
	if err != nil {
		return err
	}
	return protocol.InitializeAgent(ctx, router, role.Agent, c.ID, func(o *protocol.Options) {
		o.Timeout = a.initTimeout
		o.IDGenerator = a.idgen
		o.Requester = "company:" + c.ID
	})
}

// StartObjectives attempts to start every objective whose guard allows it,
// best-effort with no short-circuit. It returns the ids that started; a
// non-nil *StartObjectivesError reports the ones that did not.
func (a *Actor) StartObjectives(ctx context.Context) ([]string, error) {
	v, err := a.do(ctx, func(c *Company) (any, error) {
		var started []string
		failed := make(map[string]error)
		for i := range c.Objectives {
			obj := &c.Objectives[i]
			if !obj.CanStart() {
				continue
			}
			updated, err := obj.Start(a.clock())
			if err != nil {
				failed[obj.ID] = err
				continue
			}
			*obj = updated
			started = append(started, obj.ID)
		}
		if len(failed) > 0 {
			return started, &StartObjectivesError{Failed: failed}
		}
		return started, nil
	})
	started, _ := v.([]string)
	return started, err
}

// Snapshot returns a consistent copy of the aggregate.
func (a *Actor) Snapshot(ctx context.Context) (Company, error) {
	v, err := a.do(ctx, func(c *Company) (any, error) {
		out := *c
		out.Roles = make([]Role, len(c.Roles))
		copy(out.Roles, c.Roles)
		out.Objectives = make([]Objective, len(c.Objectives))
		copy(out.Objectives, c.Objectives)
		return out, nil
	})
	if err != nil {
		return Company{}, err
	}
	return v.(Company), nil
}

func (a *Actor) routerFor(ref core.AgentRef) (core.Router, error) {
	if a.routers == nil {
		return nil, fmt.Errorf("no router resolver configured")
	}
	return a.routers.RouterFor(ref)
}
