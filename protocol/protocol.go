// Package protocol layers synchronous-style request/response exchanges over
// the asynchronous signal bus: subscribe for the correlation id, send, await
// a single reply with a hard timeout. Two instances of the pattern are
// provided: agent initialization (short timeout) and objective-completion
// evaluation (long timeout). This layer never retries; retry policy belongs
// to the caller.
package protocol

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/luxworks/lux/core"
)

// Signal schemas used by the built-in exchanges.
const (
	// SchemaAgentInitialize asks an agent to prepare itself for company work.
	SchemaAgentInitialize = "lux.agent.initialize"
	// SchemaObjectiveEvaluate asks an approving agent to judge an
	// objective's completion.
	SchemaObjectiveEvaluate = "lux.objective.evaluate"
)

// Default await windows.
const (
	DefaultInitializeTimeout = 5 * time.Second
	DefaultEvaluationTimeout = 30 * time.Second
)

// ErrTimeout reports that no correlated reply arrived inside the window.
var ErrTimeout = errors.New("timed out waiting for reply")

// ErrInvalidResponse reports a reply whose payload misses expected fields.
var ErrInvalidResponse = errors.New("invalid response payload")

// Options tune one exchange.
type Options struct {
	// Timeout overrides the exchange's default await window.
	Timeout time.Duration
	// IDGenerator mints the request signal id. Defaults to UUIDs.
	IDGenerator core.IdentifierGenerator
	// Requester identifies the asking party in the signal's Sender field.
	Requester string
}

func buildOptions(defaultTimeout time.Duration, optFns []func(o *Options)) Options {
	opts := Options{Timeout: defaultTimeout, IDGenerator: core.UUIDGenerator{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.IDGenerator == nil {
		opts.IDGenerator = core.UUIDGenerator{}
	}
	return opts
}

// Request performs one subscribe → send → await cycle and returns the reply
// payload. The subscription exists before the send so a reply can never win
// the race against it. Exactly one reply is consumed.
func Request(ctx context.Context, router core.Router, sig core.Signal, timeout time.Duration) (map[string]any, error) {
	replies, cancel := router.Subscribe(sig.ID)
	defer cancel()

	if err := router.Route(ctx, sig); err != nil {
		return nil, fmt.Errorf("send signal %s: %w", sig.ID, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case reply := <-replies:
		return reply.Payload, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InitializeAgent asks the referenced agent to initialize for the company.
// The reply must carry `initialized: true`; anything else fails the
// exchange.
func InitializeAgent(ctx context.Context, router core.Router, ref core.AgentRef, companyID string, optFns ...func(o *Options)) error {
	opts := buildOptions(DefaultInitializeTimeout, optFns)

	sig := core.Signal{
		ID:       opts.IDGenerator.NewID(),
		SchemaID: SchemaAgentInitialize,
		Payload: map[string]any{
			"company_id": companyID,
		},
		Sender:    opts.Requester,
		Recipient: ref.ID,
		Hub:       ref.Hub,
		Timestamp: time.Now(),
	}

	payload, err := Request(ctx, router, sig, opts.Timeout)
	if err != nil {
		return err
	}
	initialized, ok := payload["initialized"].(bool)
	if !ok {
		return ErrInvalidResponse
	}
	if !initialized {
		return fmt.Errorf("agent %s declined initialization", ref.ID)
	}
	return nil
}

// EvaluationRequest is the context handed to the approving agent when a
// company asks whether an objective may complete.
type EvaluationRequest struct {
	CompanyID       string         `json:"company_id"`
	ObjectiveID     string         `json:"objective_id"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	SuccessCriteria string         `json:"success_criteria"`
	Steps           []string       `json:"steps"`
	Progress        int            `json:"progress"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// EvaluationResult is the approving agent's verdict.
type EvaluationResult struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// EvaluateCompletion asks the approving agent to judge an objective. A
// parsed verdict is returned even when rejected; the caller decides what a
// rejection means. Timeout and malformed replies are protocol failures.
func EvaluateCompletion(ctx context.Context, router core.Router, approver core.AgentRef, req EvaluationRequest, optFns ...func(o *Options)) (*EvaluationResult, error) {
	opts := buildOptions(DefaultEvaluationTimeout, optFns)

	sig := core.Signal{
		ID:       opts.IDGenerator.NewID(),
		SchemaID: SchemaObjectiveEvaluate,
		Payload: map[string]any{
			"company_id":       req.CompanyID,
			"objective_id":     req.ObjectiveID,
			"name":             req.Name,
			"description":      req.Description,
			"success_criteria": req.SuccessCriteria,
			"steps":            req.Steps,
			"progress":         req.Progress,
			"metadata":         req.Metadata,
		},
		Sender:    opts.Requester,
		Recipient: approver.ID,
		Hub:       approver.Hub,
		Timestamp: time.Now(),
	}

	payload, err := Request(ctx, router, sig, opts.Timeout)
	if err != nil {
		return nil, err
	}

	approved, ok := payload["approved"].(bool)
	if !ok {
		return nil, ErrInvalidResponse
	}
	reason, _ := payload["reason"].(string)
	return &EvaluationResult{Approved: approved, Reason: reason}, nil
}

// ParseEvaluationRequest recovers an EvaluationRequest from a signal
// payload, tolerating the loosely typed values a transport produces.
func ParseEvaluationRequest(payload map[string]any) EvaluationRequest {
	req := EvaluationRequest{
		CompanyID:       stringField(payload, "company_id"),
		ObjectiveID:     stringField(payload, "objective_id"),
		Name:            stringField(payload, "name"),
		Description:     stringField(payload, "description"),
		SuccessCriteria: stringField(payload, "success_criteria"),
	}
	switch steps := payload["steps"].(type) {
	case []string:
		req.Steps = steps
	case []any:
		for _, s := range steps {
			if str, ok := s.(string); ok {
				req.Steps = append(req.Steps, str)
			}
		}
	}
	switch progress := payload["progress"].(type) {
	case int:
		req.Progress = progress
	case float64:
		req.Progress = int(progress)
	}
	if metadata, ok := payload["metadata"].(map[string]any); ok {
		req.Metadata = metadata
	}
	return req
}

func stringField(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}
