package company

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// State-guard rejections. All transitions are total functions returning
// either the new value or one of these; nothing mutates in place on failure.
var (
	// ErrInvalidStatus rejects a transition from a status that does not
	// permit it.
	ErrInvalidStatus = errors.New("invalid objective status")
	// ErrInvalidProgress rejects progress values outside 0..100.
	ErrInvalidProgress = errors.New("progress must be between 0 and 100")
	// ErrNoAgentsAssigned rejects starting an objective nobody works on.
	ErrNoAgentsAssigned = errors.New("no agents assigned to objective")
	// ErrAlreadyAssigned rejects assigning the same agent twice.
	ErrAlreadyAssigned = errors.New("agent already assigned")
)

// Configuration errors: local lookups that failed. Never retried
// automatically.
var (
	ErrRoleNotFound      = errors.New("role not found")
	ErrObjectiveNotFound = errors.New("objective not found")
	// ErrAgentNotFound reports an agent id matching no role's agent
	// reference.
	ErrAgentNotFound = errors.New("agent not found among company roles")
	// ErrNoCEOAgent reports a completion request while the CEO role has no
	// resolvable agent.
	ErrNoCEOAgent = errors.New("company has no ceo agent")
)

// CompletionRejectedError reports a successful evaluation exchange where the
// approver said no. The objective stays in progress; the reason is also
// persisted to its metadata for audit.
type CompletionRejectedError struct {
	Reason string
}

func (e *CompletionRejectedError) Error() string {
	return fmt.Sprintf("completion rejected: %s", e.Reason)
}

// EvaluationError reports that the evaluation exchange itself broke
// (timeout, send failure, malformed reply). The objective is untouched.
type EvaluationError struct {
	Err error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("ceo evaluation failed: %v", e.Err)
}

// Unwrap exposes the protocol failure.
func (e *EvaluationError) Unwrap() error { return e.Err }

// InitializationError reports that bulk agent initialization failed for at
// least one role.
type InitializationError struct {
	// Failed maps role ids to their initialization failure.
	Failed map[string]error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("agent initialization failed for roles %s", joinKeys(e.Failed))
}

// StartObjectivesError reports that bulk objective start failed for at
// least one objective. The remaining objectives were still attempted.
type StartObjectivesError struct {
	Failed map[string]error
}

func (e *StartObjectivesError) Error() string {
	return fmt.Sprintf("objective start failed for %s", joinKeys(e.Failed))
}

func joinKeys(m map[string]error) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
