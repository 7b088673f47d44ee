package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/luxworks/lux/core"
)

// DefaultActionTimeout bounds a supervised handler execution when the
// registration does not specify its own timeout.
const DefaultActionTimeout = 60 * time.Second

// cell describes one supervised handler invocation.
type cell struct {
	name    string
	handler core.Handler
	input   map[string]any
	timeout time.Duration

	// onResult runs after a successful execution. Errors and faults never
	// reach it; they are logged and discarded.
	onResult func(result any)
}

// superviseAsync runs the cell on its own goroutine. The cell enforces the
// timeout, catches any fault at its boundary and reports the outcome by
// logging; nothing propagates to the mailbox loop. finished (if non-nil) is
// closed once the cell has settled, regardless of outcome.
func (a *Actor) superviseAsync(c cell, finished chan struct{}) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if finished != nil {
			defer close(finished)
		}
		a.runCell(c)
	}()
}

type execResult struct {
	value any
	err   error
}

func (a *Actor) runCell(c cell) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	resCh := make(chan execResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resCh <- execResult{err: fmt.Errorf("handler panicked: %v", r)}
			}
		}()
		value, err := a.dispatch(ctx, c.handler, c.input)
		resCh <- execResult{value: value, err: err}
	}()

	select {
	case res := <-resCh:
		if res.err != nil {
			a.logger.Error("action failed", "action", c.name, "error", res.err)
			return
		}
		a.logger.Debug("action completed", "action", c.name)
		if c.onResult != nil {
			c.onResult(res.value)
		}
	case <-ctx.Done():
		a.logger.Error("action timed out", "action", c.name, "timeout", c.timeout)
	case <-a.done:
		a.logger.Warn("abandoning action on agent stop", "action", c.name)
	}
}

// dispatch invokes the target according to its declared kind. Targets that
// declare neither prism nor beam fail locally with ErrInvalidModule.
func (a *Actor) dispatch(ctx context.Context, h core.Handler, input map[string]any) (any, error) {
	if h == nil {
		return nil, core.ErrInvalidModule
	}
	switch h.Kind() {
	case core.HandlerKindPrism, core.HandlerKindBeam:
		return h.Handle(ctx, input, a.handlerContext())
	default:
		return nil, core.ErrInvalidModule
	}
}
