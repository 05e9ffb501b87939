package orchestrator

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/EpicMandM/vsphere-snapbatch/internal/logger"
	"github.com/EpicMandM/vsphere-snapbatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator(client *fakeClient) *validator {
	return &validator{
		client: client,
		logger: logger.NewWithWriter(io.Discard),
		settle: time.Millisecond,
	}
}

func mustCreateAction(t *testing.T, name string) models.Action {
	t.Helper()
	action, err := models.NewCreateAction(name, "")
	require.NoError(t, err)
	return action
}

func TestValidateMarksPresentSnapshotsSuccess(t *testing.T) {
	client := newFakeClient(target("vm-a", models.PoweredOn))
	client.snapshots["vm-a"] = []models.Snapshot{{ID: "snapshot-1", Name: "X", Created: time.Now()}}
	v := newTestValidator(client)

	result := v.validate(context.Background(), client.targets, mustCreateAction(t, "X"), models.BatchResult{})

	assert.Equal(t, models.OutcomeSuccess, result["vm-a"].Status)
	assert.Empty(t, client.createCalls, "no retry when everything validated")
}

func TestValidateRetriesOnlyFailedTargets(t *testing.T) {
	client := newFakeClient(
		target("vm-a", models.PoweredOn),
		target("vm-b", models.PoweredOn),
	)
	client.snapshots["vm-a"] = []models.Snapshot{{ID: "snapshot-1", Name: "X", Created: time.Now()}}
	// vm-b has no snapshot named X.
	v := newTestValidator(client)

	result := v.validate(context.Background(), client.targets, mustCreateAction(t, "X"), models.BatchResult{})

	assert.Equal(t, models.OutcomeSuccess, result["vm-a"].Status)
	assert.Equal(t, models.OutcomeFailed, result["vm-b"].Status)
	assert.Contains(t, result["vm-b"].Diagnostic, "not present")

	require.Len(t, client.createCalls, 1, "exactly one retry submission per failed target")
	assert.Equal(t, "vm-b", client.createCalls[0].target)
	assert.Equal(t, "X", client.createCalls[0].name)
}

func TestValidateRetryIsNotRevalidated(t *testing.T) {
	client := newFakeClient(target("vm-a", models.PoweredOn))
	v := newTestValidator(client)

	result := v.validate(context.Background(), client.targets, mustCreateAction(t, "X"), models.BatchResult{})

	// The retry submission itself created the snapshot, but the result
	// still reflects the pre-retry observation.
	assert.Equal(t, models.OutcomeFailed, result["vm-a"].Status)
	assert.Len(t, client.createCalls, 1)
}

func TestValidateConfirmGateDeclinesRetry(t *testing.T) {
	client := newFakeClient(target("vm-a", models.PoweredOn))
	v := newTestValidator(client)
	v.confirm = func(failed int) bool {
		assert.Equal(t, 1, failed)
		return false
	}

	result := v.validate(context.Background(), client.targets, mustCreateAction(t, "X"), models.BatchResult{})

	assert.Equal(t, models.OutcomeFailed, result["vm-a"].Status)
	assert.Empty(t, client.createCalls, "declined retry must submit nothing")
}

func TestValidateUnreachableTargetFails(t *testing.T) {
	client := newFakeClient(target("vm-a", models.PoweredOn))
	client.listSnapErr["vm-a"] = errors.New("connection reset")
	v := newTestValidator(client)
	v.confirm = func(int) bool { return false }

	result := v.validate(context.Background(), client.targets, mustCreateAction(t, "X"), models.BatchResult{})

	assert.Equal(t, models.OutcomeFailed, result["vm-a"].Status)
	assert.Contains(t, result["vm-a"].Diagnostic, "validation")
}

func TestValidateNoTargets(t *testing.T) {
	v := newTestValidator(newFakeClient())
	seed := models.BatchResult{"vm-x": {Status: models.OutcomeFailed}}
	result := v.validate(context.Background(), nil, mustCreateAction(t, "X"), seed)
	assert.Equal(t, seed, result)
}
