// Package agent implements the per-agent actor runtime: an ordered mailbox
// processed by a single goroutine, recurring scheduled actions that re-arm
// after each run, and supervised execution cells that contain handler faults
// so a crashing prism or beam never takes down its owning agent.
package agent

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/luxworks/lux/core"
	"github.com/luxworks/lux/model"
)

// MemoryConfig selects the memory backend and instance name for an agent.
type MemoryConfig struct {
	// Store is the backend handing out instances. The runtime substitutes
	// its default store when nil.
	Store core.MemoryStore

	// Name is the instance name. An agent restarting under the same name
	// re-attaches to its earlier memory. Defaults to "<agent id>-memory".
	Name string
}

// SignalHandler binds an accepted signal schema to the handler that serves
// it. Signals with a schema outside this set are logged and ignored.
type SignalHandler struct {
	SchemaID string
	Handler  core.Handler
}

// ScheduledAction is a recurring registration: a handler, an interval (or
// cron expression), an input payload and per-action options.
type ScheduledAction struct {
	// Name identifies the action in logs. Defaults to the handler name.
	Name string

	// Handler is the dispatch target, classified by its declared kind.
	Handler core.Handler

	// Every is the fixed re-arm interval. Ignored when Cron is set.
	Every time.Duration

	// Cron optionally schedules by standard 5-field cron expression. The
	// next fire is computed after each run completes, so a slow run still
	// never overlaps itself.
	Cron string

	// Input is passed to the handler on every fire.
	Input map[string]any

	// Timeout bounds one execution. Defaults to DefaultActionTimeout.
	Timeout time.Duration
}

func (s ScheduledAction) name() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Handler != nil {
		return s.Handler.Name()
	}
	return "scheduled-action"
}

// Definition is the durable description an agent actor is constructed from.
// Runtime-only state (the live memory handle, armed timers) never lives
// here.
type Definition struct {
	// ID uniquely identifies the agent. Generated when empty.
	ID          string
	Name        string
	Description string
	Goal        string

	// Behavior set. Prisms, beams and lenses travel with every model call
	// as the request's tool list.
	Prisms         []core.Handler
	Beams          []core.Handler
	Lenses         []core.Lens
	SignalHandlers []SignalHandler

	// LLM is the durable llm_config. The runtime (or the caller via
	// actor options) turns it into a live model.Model.
	LLM model.Config

	// Memory, when non-nil, attaches a memory instance at actor start.
	Memory *MemoryConfig

	ScheduledActions []ScheduledAction
}

// Validate checks the definition for problems that would otherwise only
// surface mid-run: nil handlers, duplicate signal schemas, unschedulable
// actions.
func (d Definition) Validate() error {
	for _, h := range d.Prisms {
		if h == nil {
			return fmt.Errorf("agent %s: nil prism in behavior set", d.Name)
		}
	}
	for _, h := range d.Beams {
		if h == nil {
			return fmt.Errorf("agent %s: nil beam in behavior set", d.Name)
		}
	}
	seen := make(map[string]struct{}, len(d.SignalHandlers))
	for _, sh := range d.SignalHandlers {
		if sh.SchemaID == "" {
			return fmt.Errorf("agent %s: signal handler with empty schema id", d.Name)
		}
		if sh.Handler == nil {
			return fmt.Errorf("agent %s: signal handler %s has no handler", d.Name, sh.SchemaID)
		}
		if _, dup := seen[sh.SchemaID]; dup {
			return fmt.Errorf("agent %s: duplicate signal handler for schema %s", d.Name, sh.SchemaID)
		}
		seen[sh.SchemaID] = struct{}{}
	}
	for _, action := range d.ScheduledActions {
		if action.Handler == nil {
			return fmt.Errorf("agent %s: scheduled action %s has no handler", d.Name, action.name())
		}
		if action.Cron != "" {
			if _, err := cron.ParseStandard(action.Cron); err != nil {
				return fmt.Errorf("agent %s: scheduled action %s: bad cron spec %q: %w",
					d.Name, action.name(), action.Cron, err)
			}
		} else if action.Every <= 0 {
			return fmt.Errorf("agent %s: scheduled action %s needs a positive interval or a cron spec",
				d.Name, action.name())
		}
	}
	return nil
}
