package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreateAction(t *testing.T) {
	action, err := NewCreateAction("pre-upgrade", "before the 7.2 rollout")
	require.NoError(t, err)
	assert.Equal(t, ActionCreate, action.Kind)
	assert.Equal(t, "pre-upgrade", action.Name)
	assert.Equal(t, "before the 7.2 rollout", action.Description)
}

func TestNewCreateActionRequiresName(t *testing.T) {
	_, err := NewCreateAction("", "description only")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestNewRemoveAction(t *testing.T) {
	action, err := NewRemoveAction(3)
	require.NoError(t, err)
	assert.Equal(t, ActionRemove, action.Kind)
	assert.Equal(t, 3, action.MaxRetained)
}

func TestNewRemoveActionRejectsNegative(t *testing.T) {
	_, err := NewRemoveAction(-1)
	require.Error(t, err)
}

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, JobPending.Terminal())
	assert.False(t, JobRunning.Terminal())
	assert.True(t, JobSucceeded.Terminal())
	assert.True(t, JobFailed.Terminal())
}

func TestBatchResultFailed(t *testing.T) {
	result := BatchResult{
		"vm-c": {Status: OutcomeFailed},
		"vm-a": {Status: OutcomeFailed, Diagnostic: "boom"},
		"vm-b": {Status: OutcomeSuccess},
	}
	assert.Equal(t, []string{"vm-a", "vm-c"}, result.Failed())
}

func TestBatchResultCounts(t *testing.T) {
	result := BatchResult{
		"vm-a": {Status: OutcomeSuccess},
		"vm-b": {Status: OutcomeSuccess},
		"vm-c": {Status: OutcomeFailed},
	}
	succeeded, failed := result.Counts()
	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 1, failed)
}

func TestBatchResultEmpty(t *testing.T) {
	result := BatchResult{}
	assert.Empty(t, result.Failed())
	succeeded, failed := result.Counts()
	assert.Zero(t, succeeded)
	assert.Zero(t, failed)
}
