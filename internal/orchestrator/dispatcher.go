package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/EpicMandM/vsphere-snapbatch/internal/logger"
	"github.com/EpicMandM/vsphere-snapbatch/internal/models"
	"github.com/EpicMandM/vsphere-snapbatch/internal/service"
	"golang.org/x/sync/errgroup"
)

// jobSpec describes one job before submission. For remove actions the
// victims slice carries the snapshots to delete, oldest first.
type jobSpec struct {
	target  string
	action  models.Action
	victims []models.Snapshot
}

// dispatcher submits one asynchronous remote operation per target under
// an admission cap and polls each to a terminal state.
type dispatcher struct {
	client   service.Client
	logger   *logger.Logger
	limit    int
	poll     time.Duration
	timeout  time.Duration
	progress func(models.Event)
}

// run processes the specs in order. The errgroup limit is the admission
// gate: at most limit jobs are in flight, and the submission loop blocks
// until a slot frees, so jobs are submitted in input order.
func (d *dispatcher) run(ctx context.Context, specs []jobSpec) models.BatchResult {
	result := make(models.BatchResult, len(specs))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(d.limit)
	for _, spec := range specs {
		g.Go(func() error {
			outcome := d.execute(ctx, spec)
			mu.Lock()
			result[spec.target] = outcome
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return result
}

func (d *dispatcher) execute(ctx context.Context, spec jobSpec) models.Outcome {
	job := models.Job{
		Target:      spec.target,
		Kind:        spec.action.Kind,
		Submitted:   time.Now(),
		Status:      models.JobPending,
		RemoveCount: len(spec.victims),
	}

	d.emit(spec.target, PhaseDispatch, "submitting")
	handle, err := d.submit(ctx, spec)
	if err != nil {
		d.logger.Error("Job submission failed", logger.Target(spec.target), logger.Error(err))
		d.emit(spec.target, PhaseDispatch, "submit_failed")
		return models.Outcome{Status: models.OutcomeFailed, Diagnostic: fmt.Sprintf("submit: %v", err)}
	}
	d.emit(spec.target, PhaseDispatch, "submitted")

	job.Status, err = d.await(ctx, handle)
	switch {
	case errors.Is(err, errWaitTimeout):
		d.logger.Error("Job did not finish in time", logger.Target(spec.target))
		d.emit(spec.target, PhaseDispatch, "timed_out")
		return models.Outcome{Status: models.OutcomeFailed, Diagnostic: "remote job did not finish in time"}
	case err != nil:
		d.logger.Error("Job status poll failed", logger.Target(spec.target), logger.Error(err))
		d.emit(spec.target, PhaseDispatch, "unreachable")
		return models.Outcome{Status: models.OutcomeFailed, Diagnostic: fmt.Sprintf("poll: %v", err)}
	case job.Status != models.JobSucceeded:
		d.logger.Error("Remote job failed", logger.Target(spec.target), logger.Status(string(job.Status)))
		d.emit(spec.target, PhaseDispatch, "failed")
		return models.Outcome{Status: models.OutcomeFailed, Diagnostic: fmt.Sprintf("remote job ended %s", job.Status)}
	}

	d.emit(spec.target, PhaseDispatch, "succeeded")
	return models.Outcome{Status: models.OutcomeSuccess}
}

func (d *dispatcher) submit(ctx context.Context, spec jobSpec) (service.JobHandle, error) {
	switch spec.action.Kind {
	case models.ActionCreate:
		return d.client.CreateSnapshot(ctx, spec.target, spec.action.Name, spec.action.Description)
	case models.ActionRemove:
		return d.client.DeleteSnapshots(ctx, spec.target, spec.victims)
	default:
		return nil, fmt.Errorf("unknown action kind %q", spec.action.Kind)
	}
}

// await polls the handle until the job reaches a terminal state. The
// last observed status is returned alongside any wait error.
func (d *dispatcher) await(ctx context.Context, handle service.JobHandle) (models.JobStatus, error) {
	last := models.JobPending
	err := waitUntil(ctx, d.poll, d.timeout, func(ctx context.Context) (bool, error) {
		status, err := handle.Status(ctx)
		if err != nil {
			return false, err
		}
		last = status
		return status.Terminal(), nil
	})
	return last, err
}

func (d *dispatcher) emit(target, phase, status string) {
	if d.progress != nil {
		d.progress(models.Event{Target: target, Phase: phase, Status: status})
	}
}
