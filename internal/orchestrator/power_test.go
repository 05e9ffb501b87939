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
)

func newTestPowerManager(client *fakeClient) *PowerManager {
	return &PowerManager{
		client:  client,
		logger:  logger.NewWithWriter(io.Discard),
		poll:    time.Millisecond,
		timeout: 50 * time.Millisecond,
	}
}

func TestEnsureOffSkipsAlreadyOffTargets(t *testing.T) {
	client := newFakeClient(target("vm-a", models.PoweredOff))
	pm := newTestPowerManager(client)

	poweredOff, skipped := pm.EnsureOff(context.Background(), client.targets)

	assert.Empty(t, poweredOff, "already-off targets are never tracked for restoration")
	assert.Empty(t, skipped)
	assert.Empty(t, client.shutdownCalls, "no shutdown request for already-off targets")
}

func TestEnsureOffShutsDownRunningTargets(t *testing.T) {
	client := newFakeClient(
		target("vm-a", models.PoweredOn),
		target("vm-b", models.PoweredOff),
	)
	pm := newTestPowerManager(client)

	poweredOff, skipped := pm.EnsureOff(context.Background(), client.targets)

	assert.Equal(t, []string{"vm-a"}, poweredOff)
	assert.Empty(t, skipped)
	assert.Equal(t, []string{"vm-a"}, client.shutdownCalls)
}

func TestEnsureOffResolvesUnknownState(t *testing.T) {
	client := newFakeClient(target("vm-a", models.PowerStateUnknown))
	client.states["vm-a"] = models.PoweredOff
	pm := newTestPowerManager(client)

	poweredOff, skipped := pm.EnsureOff(context.Background(), client.targets)

	assert.Empty(t, poweredOff)
	assert.Empty(t, skipped)
	assert.Empty(t, client.shutdownCalls)
}

func TestEnsureOffSkipsOnShutdownError(t *testing.T) {
	client := newFakeClient(target("vm-a", models.PoweredOn))
	client.shutdownErr["vm-a"] = errors.New("guest tools unavailable")
	pm := newTestPowerManager(client)

	poweredOff, skipped := pm.EnsureOff(context.Background(), client.targets)

	assert.Empty(t, poweredOff)
	assert.Equal(t, []string{"vm-a"}, skipped)
}

func TestEnsureOffSkipsOnConfirmationTimeout(t *testing.T) {
	client := newFakeClient(target("vm-a", models.PoweredOn))
	client.shutdownNoop = true // shutdown request accepted, state never changes
	pm := newTestPowerManager(client)

	poweredOff, skipped := pm.EnsureOff(context.Background(), client.targets)

	assert.Empty(t, poweredOff)
	assert.Equal(t, []string{"vm-a"}, skipped)
}

func TestRestore(t *testing.T) {
	client := newFakeClient()
	pm := newTestPowerManager(client)

	pm.Restore(context.Background(), []string{"vm-a", "vm-b"})
	assert.Equal(t, []string{"vm-a", "vm-b"}, client.powerOnCalls)
}

func TestRestoreEmptySetIsNoop(t *testing.T) {
	client := newFakeClient()
	pm := newTestPowerManager(client)

	pm.Restore(context.Background(), nil)
	assert.Empty(t, client.powerOnCalls)
}
