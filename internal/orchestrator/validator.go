package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/EpicMandM/vsphere-snapbatch/internal/logger"
	"github.com/EpicMandM/vsphere-snapbatch/internal/models"
	"github.com/EpicMandM/vsphere-snapbatch/internal/service"
)

// validator re-checks created snapshots after a settle delay and runs
// the single retry pass for targets missing the expected snapshot.
type validator struct {
	client   service.Client
	logger   *logger.Logger
	settle   time.Duration
	progress func(models.Event)
	confirm  func(failed int) bool
}

// validate re-queries each target's snapshot list for the expected name
// and overwrites the result map with the observed state. Retries are
// fire-and-forget: their outcome is not re-validated.
func (v *validator) validate(ctx context.Context, targets []models.Target, action models.Action, result models.BatchResult) models.BatchResult {
	if len(targets) == 0 {
		return result
	}

	v.logger.Info("Waiting for remote state to settle", logger.Phase(PhaseValidate), logger.F("SETTLE", v.settle))
	select {
	case <-ctx.Done():
		return result
	case <-time.After(v.settle):
	}

	var failed []string
	for _, t := range targets {
		snapshots, err := v.client.ListSnapshots(ctx, t.ID)
		if err != nil {
			v.logger.Error("Failed to list snapshots during validation", logger.Target(t.ID), logger.Error(err))
			v.emit(t.ID, PhaseValidate, "unreachable")
			result[t.ID] = models.Outcome{Status: models.OutcomeFailed, Diagnostic: fmt.Sprintf("validation: %v", err)}
			failed = append(failed, t.ID)
			continue
		}
		if hasSnapshotNamed(snapshots, action.Name) {
			v.emit(t.ID, PhaseValidate, "validated")
			result[t.ID] = models.Outcome{Status: models.OutcomeSuccess}
			continue
		}
		v.emit(t.ID, PhaseValidate, "missing")
		result[t.ID] = models.Outcome{
			Status:     models.OutcomeFailed,
			Diagnostic: fmt.Sprintf("snapshot %q not present after settle delay", action.Name),
		}
		failed = append(failed, t.ID)
	}

	if len(failed) == 0 {
		return result
	}

	v.logger.Warn("Validation found failed targets", logger.Phase(PhaseValidate), logger.Failed(len(failed)))
	if v.confirm != nil && !v.confirm(len(failed)) {
		v.logger.Info("Retry pass declined by operator", logger.Phase(PhaseValidate))
		return result
	}

	// Exactly one retry submission per failed target.
	for _, id := range failed {
		if _, err := v.client.CreateSnapshot(ctx, id, action.Name, action.Description); err != nil {
			v.logger.Error("Retry submission failed", logger.Target(id), logger.Error(err))
			v.emit(id, PhaseValidate, "retry_failed")
			continue
		}
		v.emit(id, PhaseValidate, "retry_submitted")
	}
	return result
}

func hasSnapshotNamed(snapshots []models.Snapshot, name string) bool {
	for _, snap := range snapshots {
		if snap.Name == name {
			return true
		}
	}
	return false
}

func (v *validator) emit(target, phase, status string) {
	if v.progress != nil {
		v.progress(models.Event{Target: target, Phase: phase, Status: status})
	}
}
