package protocol

import (
	"context"

	"github.com/luxworks/lux/core"
	"github.com/luxworks/lux/prism"
)

// EvaluatorFunc judges an objective-completion request on behalf of an
// approving agent.
type EvaluatorFunc func(ctx context.Context, req EvaluationRequest, hctx *core.HandlerContext) (EvaluationResult, error)

// NewInitializationHandler builds the prism an agent registers under
// SchemaAgentInitialize. Its map result becomes the reply signal the
// requesting company awaits.
func NewInitializationHandler() core.Handler {
	return prism.New("agent_initialize", "Acknowledge company initialization", nil,
		func(_ context.Context, input map[string]any, hctx *core.HandlerContext) (any, error) {
			return map[string]any{
				"initialized": true,
				"agent_id":    hctx.AgentID,
				"company_id":  stringField(input, "company_id"),
			}, nil
		})
}

// NewEvaluationHandler builds the prism an approving agent registers under
// SchemaObjectiveEvaluate, delegating the verdict to the supplied function.
func NewEvaluationHandler(eval EvaluatorFunc) core.Handler {
	return prism.New("objective_evaluate", "Judge an objective completion request", nil,
		func(ctx context.Context, input map[string]any, hctx *core.HandlerContext) (any, error) {
			result, err := eval(ctx, ParseEvaluationRequest(input), hctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"approved": result.Approved,
				"reason":   result.Reason,
			}, nil
		})
}
