// Package prism implements single-shot handlers: pure input → result
// functions with a declared input schema, consistent error codes and the
// handler contract shared with beams.
package prism

import (
	"context"
	"errors"
	"fmt"

	"github.com/luxworks/lux/core"
	"github.com/luxworks/lux/internal/util"
)

// Func is the user supplied implementation of a prism. A returned error is a
// domain-level failure surfaced to the dispatcher; panics are contained by
// the supervised execution cell.
type Func func(ctx context.Context, input map[string]any, hctx *core.HandlerContext) (any, error)

// Prism adapts a plain Go function into a handler.
//
// Responsibilities:
//   - Holds a lightweight JSON-Schema-like input specification
//   - Validates supplied input against that schema before execution
//   - Normalizes error handling so callers receive *HandlerError with
//     consistent codes:
//     VALIDATION_ERROR -> schema / input mismatch
//     EXECUTION_ERROR  -> the wrapped function returned a plain error
//     (custom codes preserved if the function returns *HandlerError directly)
//
// A Prism has no mutable state after construction and is safe for concurrent
// use by multiple goroutines.
type Prism struct {
	name        string
	description string
	schema      map[string]any
	fn          Func
}

// New constructs a Prism from an explicit schema and function. The schema
// may be nil when the prism accepts arbitrary input.
func New(name, description string, schema map[string]any, fn Func) *Prism {
	return &Prism{name: name, description: description, schema: schema, fn: fn}
}

// NewFromStruct derives the input schema from a struct via reflection, a
// convenience for simple input containers.
//
// Example:
//
//	type SummarizeInput struct {
//	  Text     string `json:"text" description:"Text to summarize"`
//	  MaxWords int    `json:"max_words,omitempty"`
//	}
//
//	p := prism.NewFromStruct("summarize", "Summarize a text", SummarizeInput{}, summarize)
func NewFromStruct(name, description string, structType any, fn Func) *Prism {
	return New(name, description, util.SchemaFromStruct(structType), fn)
}

// Name returns the unique prism name used in registrations and logs.
func (p *Prism) Name() string { return p.name }

// Description returns the human-readable purpose of the prism.
func (p *Prism) Description() string { return p.description }

// Kind declares this handler as a prism.
func (p *Prism) Kind() core.HandlerKind { return core.HandlerKindPrism }

// Schema returns the declared input schema (may be nil).
func (p *Prism) Schema() map[string]any { return p.schema }

// Handle validates the input and invokes the wrapped function.
func (p *Prism) Handle(ctx context.Context, input map[string]any, hctx *core.HandlerContext) (any, error) {
	if input == nil {
		input = map[string]any{}
	}
	if p.schema != nil {
		if err := util.ValidateInput(input, p.schema); err != nil {
			return nil, &HandlerError{Prism: p.name, Message: err.Error(), Code: "VALIDATION_ERROR"}
		}
	}

	result, err := p.fn(ctx, input, hctx)
	if err != nil {
		var herr *HandlerError
		if errors.As(err, &herr) {
			return nil, herr
		}
		return nil, &HandlerError{Prism: p.name, Message: err.Error(), Code: "EXECUTION_ERROR"}
	}
	return result, nil
}

// HandlerError represents errors that occur during prism execution.
type HandlerError struct {
	Prism   string `json:"prism"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (e *HandlerError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("prism error [%s] in %s: %s", e.Code, e.Prism, e.Message)
	}
	return fmt.Sprintf("prism error in %s: %s", e.Prism, e.Message)
}
