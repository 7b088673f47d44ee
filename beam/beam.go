// Package beam implements multi-step workflows. A beam has the same external
// contract as a prism (input + agent context in, result or error out) but
// internally sequences named steps, threading each step's output into the
// next step's input.
package beam

import (
	"context"
	"fmt"

	"github.com/luxworks/lux/core"
)

// Step is one unit of work inside a beam. The handler is usually a prism but
// any handler works, including a nested beam.
type Step struct {
	// Name identifies the step in errors and logs. Defaults to the
	// handler's name when empty.
	Name string

	// Handler executes the step.
	Handler core.Handler

	// OutputKey stores the step's raw result under this key in the input
	// map passed to subsequent steps. When the result is itself a
	// map[string]any its fields are merged instead, and OutputKey is
	// ignored. Defaults to "result".
	OutputKey string
}

func (s Step) name() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Handler != nil {
		return s.Handler.Name()
	}
	return "step"
}

// Beam sequences steps in declaration order, failing fast on the first step
// error. Beams are immutable after construction and safe for concurrent use.
type Beam struct {
	name        string
	description string
	steps       []Step
}

// New constructs a Beam from ordered steps.
func New(name, description string, steps ...Step) *Beam {
	return &Beam{name: name, description: description, steps: steps}
}

// Name returns the beam name used in registrations and logs.
func (b *Beam) Name() string { return b.name }

// Description returns the human-readable purpose of the beam.
func (b *Beam) Description() string { return b.description }

// Kind declares this handler as a beam.
func (b *Beam) Kind() core.HandlerKind { return core.HandlerKindBeam }

// Steps returns a copy of the configured steps.
func (b *Beam) Steps() []Step {
	out := make([]Step, len(b.steps))
	copy(out, b.steps)
	return out
}

// Handle runs all steps in order. Each step sees the original input plus the
// accumulated outputs of earlier steps. The final step's result is the
// beam's result.
func (b *Beam) Handle(ctx context.Context, input map[string]any, hctx *core.HandlerContext) (any, error) {
	if len(b.steps) == 0 {
		return nil, &StepError{Beam: b.name, Step: "", Err: fmt.Errorf("beam has no steps")}
	}

	acc := make(map[string]any, len(input))
	for k, v := range input {
		acc[k] = v
	}

	var result any
	for _, step := range b.steps {
		if step.Handler == nil {
			return nil, &StepError{Beam: b.name, Step: step.name(), Err: core.ErrInvalidModule}
		}
		if err := ctx.Err(); err != nil {
			return nil, &StepError{Beam: b.name, Step: step.name(), Err: err}
		}

		out, err := step.Handler.Handle(ctx, acc, hctx)
		if err != nil {
			return nil, &StepError{Beam: b.name, Step: step.name(), Err: err}
		}
		result = out

		if m, ok := out.(map[string]any); ok {
			for k, v := range m {
				acc[k] = v
			}
			continue
		}
		key := step.OutputKey
		if key == "" {
			key = "result"
		}
		acc[key] = out
	}
	return result, nil
}

// StepError wraps a failure of one step, naming the beam and step for
// diagnosis.
type StepError struct {
	Beam string
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("beam %s: step %s: %v", e.Beam, e.Step, e.Err)
}

// Unwrap exposes the underlying step failure.
func (e *StepError) Unwrap() error { return e.Err }
