package company

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var objectiveClock = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

func startedObjective(t *testing.T) Objective {
	t.Helper()
	obj := NewObjective("obj-1", "Ship the feature")
	obj, err := obj.AssignAgent("agent-1")
	require.NoError(t, err)
	obj, err = obj.Start(objectiveClock)
	require.NoError(t, err)
	return obj
}

func TestObjectiveLifecycle(t *testing.T) {
	obj := NewObjective("obj-1", "Ship the feature")
	assert.Equal(t, StatusPending, obj.Status)
	assert.True(t, obj.CanStart())

	obj, err := obj.AssignAgent("agent-1")
	require.NoError(t, err)

	obj, err = obj.Start(objectiveClock)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, obj.Status)
	require.NotNil(t, obj.StartedAt)
	assert.Equal(t, objectiveClock, *obj.StartedAt)
	assert.True(t, obj.Active())

	obj, err = obj.UpdateProgress(60)
	require.NoError(t, err)
	assert.Equal(t, 60, obj.Progress)

	done := objectiveClock.Add(2 * time.Hour)
	obj, err = obj.Complete(done)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, obj.Status)
	assert.Equal(t, 100, obj.Progress)
	require.NotNil(t, obj.CompletedAt)
	assert.Equal(t, done, *obj.CompletedAt)

	d := obj.Duration(done.Add(time.Hour))
	require.NotNil(t, d)
	assert.Equal(t, 2*time.Hour, *d)
}

func TestObjectiveAssignAgent(t *testing.T) {
	obj := NewObjective("obj-1", "Ship the feature")

	obj, err := obj.AssignAgent("agent-1")
	require.NoError(t, err)
	obj, err = obj.AssignAgent("agent-2")
	require.NoError(t, err)

	// newest assignment first
	assert.Equal(t, []string{"agent-2", "agent-1"}, obj.AssignedAgents)

	_, err = obj.AssignAgent("agent-1")
	assert.ErrorIs(t, err, ErrAlreadyAssigned)
}

func TestObjectiveStartRejections(t *testing.T) {
	obj := NewObjective("obj-1", "Ship the feature")
	_, err := obj.Start(objectiveClock)
	assert.ErrorIs(t, err, ErrNoAgentsAssigned)

	started := startedObjective(t)
	_, err = started.Start(objectiveClock)
	assert.ErrorIs(t, err, ErrInvalidStatus)
	// rejection leaves the value untouched
	assert.Equal(t, StatusInProgress, started.Status)
}

func TestObjectiveProgressBounds(t *testing.T) {
	obj := startedObjective(t)

	for _, valid := range []int{0, 100} {
		updated, err := obj.UpdateProgress(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, updated.Progress)
	}
	for _, invalid := range []int{-1, 101} {
		_, err := obj.UpdateProgress(invalid)
		assert.ErrorIs(t, err, ErrInvalidProgress, "progress %d", invalid)
	}

	pending := NewObjective("obj-2", "Not started")
	_, err := pending.UpdateProgress(10)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestObjectiveFail(t *testing.T) {
	obj := startedObjective(t)

	failed, err := obj.Fail("budget exhausted", objectiveClock)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "budget exhausted", failed.Metadata["failure_reason"])
	assert.True(t, failed.Failed())

	// terminal states absorb
	_, err = failed.Fail("again", objectiveClock)
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = failed.Complete(objectiveClock)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestObjectiveCompleteOnlyInProgress(t *testing.T) {
	pending := NewObjective("obj-1", "Ship the feature")
	_, err := pending.Complete(objectiveClock)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	obj := startedObjective(t)
	completed, err := obj.Complete(objectiveClock)
	require.NoError(t, err)
	_, err = completed.Complete(objectiveClock)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
