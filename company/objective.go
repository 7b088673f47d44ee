package company

import (
	"time"
)

// ObjectiveStatus is the lifecycle state of an objective.
type ObjectiveStatus string

// Objective lifecycle: pending → in_progress → {completed, failed}. The
// terminal states absorb; no transition leaves them.
const (
	StatusPending    ObjectiveStatus = "pending"
	StatusInProgress ObjectiveStatus = "in_progress"
	StatusCompleted  ObjectiveStatus = "completed"
	StatusFailed     ObjectiveStatus = "failed"
)

// Objective is a unit of work a company tracks to completion. All mutation
// goes through the transition methods below, which are total functions over
// values: they return the updated objective or a typed rejection, never a
// partial in-place change.
type Objective struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description,omitempty"`
	SuccessCriteria string         `json:"success_criteria,omitempty"`
	Steps           []string       `json:"steps,omitempty"`
	Progress        int            `json:"progress"`
	Status          ObjectiveStatus `json:"status"`
	AssignedAgents  []string       `json:"assigned_agents,omitempty"`
	StartedAt       *time.Time     `json:"started_at,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// NewObjective constructs a pending objective.
func NewObjective(id, name string) Objective {
	return Objective{ID: id, Name: name, Status: StatusPending}
}

// AssignAgent prepends the agent id to the assignment set. Assigning an id
// already present fails with ErrAlreadyAssigned.
func (o Objective) AssignAgent(agentID string) (Objective, error) {
	for _, existing := range o.AssignedAgents {
		if existing == agentID {
			return o, ErrAlreadyAssigned
		}
	}
	assigned := make([]string, 0, len(o.AssignedAgents)+1)
	assigned = append(assigned, agentID)
	assigned = append(assigned, o.AssignedAgents...)
	o.AssignedAgents = assigned
	return o, nil
}

// Start transitions pending → in_progress and stamps StartedAt. It fails
// with ErrInvalidStatus outside pending and ErrNoAgentsAssigned when nobody
// is assigned.
func (o Objective) Start(now time.Time) (Objective, error) {
	if o.Status != StatusPending {
		return o, ErrInvalidStatus
	}
	if len(o.AssignedAgents) == 0 {
		return o, ErrNoAgentsAssigned
	}
	o.Status = StatusInProgress
	o.StartedAt = &now
	return o, nil
}

// UpdateProgress sets progress on an in-progress objective. Values outside
// 0..100 fail with ErrInvalidProgress; any status but in_progress fails
// with ErrInvalidStatus.
func (o Objective) UpdateProgress(value int) (Objective, error) {
	if o.Status != StatusInProgress {
		return o, ErrInvalidStatus
	}
	if value < 0 || value > 100 {
		return o, ErrInvalidProgress
	}
	o.Progress = value
	return o, nil
}

// Complete transitions in_progress → completed, forcing progress to 100 and
// stamping CompletedAt.
func (o Objective) Complete(now time.Time) (Objective, error) {
	if o.Status != StatusInProgress {
		return o, ErrInvalidStatus
	}
	o.Status = StatusCompleted
	o.Progress = 100
	o.CompletedAt = &now
	return o, nil
}

// Fail transitions in_progress → failed, recording the reason in metadata
// and stamping CompletedAt.
func (o Objective) Fail(reason string, now time.Time) (Objective, error) {
	if o.Status != StatusInProgress {
		return o, ErrInvalidStatus
	}
	o.Status = StatusFailed
	o.Metadata = withMetadata(o.Metadata, "failure_reason", reason)
	o.CompletedAt = &now
	return o, nil
}

// CanStart reports whether Start would succeed.
func (o Objective) CanStart() bool {
	return o.Status == StatusPending && len(o.AssignedAgents) > 0
}

// Active reports whether the objective is in progress.
func (o Objective) Active() bool { return o.Status == StatusInProgress }

// Completed reports whether the objective finished successfully.
func (o Objective) Completed() bool { return o.Status == StatusCompleted }

// Failed reports whether the objective failed.
func (o Objective) Failed() bool { return o.Status == StatusFailed }

// Duration returns the elapsed time since start (to completion when
// finished, to now otherwise), or nil if the objective never started.
func (o Objective) Duration(now time.Time) *time.Duration {
	if o.StartedAt == nil {
		return nil
	}
	end := now
	if o.CompletedAt != nil {
		end = *o.CompletedAt
	}
	d := end.Sub(*o.StartedAt)
	return &d
}

// withMetadata returns a copy of metadata with one entry set, so transition
// functions stay pure over shared values.
func withMetadata(metadata map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		out[k] = v
	}
	out[key] = value
	return out
}
