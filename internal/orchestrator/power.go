package orchestrator

import (
	"context"
	"time"

	"github.com/EpicMandM/vsphere-snapbatch/internal/logger"
	"github.com/EpicMandM/vsphere-snapbatch/internal/models"
	"github.com/EpicMandM/vsphere-snapbatch/internal/service"
)

// PowerManager transitions targets to powered-off ahead of a batch and
// restores them afterwards. It only ever tracks targets it powered off
// itself; targets found already off are left alone.
type PowerManager struct {
	client   service.Client
	logger   *logger.Logger
	poll     time.Duration
	timeout  time.Duration
	progress func(models.Event)
}

// EnsureOff shuts down the given targets and polls until each is
// confirmed off. It returns the ids powered off by this call and the
// ids whose transition failed; failed ids must be excluded from the
// rest of the run and are never restored.
func (p *PowerManager) EnsureOff(ctx context.Context, targets []models.Target) (poweredOff, skipped []string) {
	for _, t := range targets {
		state := t.PowerState
		if state == models.PowerStateUnknown {
			current, err := p.client.PowerState(ctx, t.ID)
			if err != nil {
				p.logger.Error("Failed to read power state", logger.Target(t.ID), logger.Error(err))
				p.emit(t.ID, PhasePower, "state_unknown")
				skipped = append(skipped, t.ID)
				continue
			}
			state = current
		}

		if state == models.PoweredOff {
			p.emit(t.ID, PhasePower, "already_off")
			continue
		}

		if err := p.client.ShutdownGuest(ctx, t.ID); err != nil {
			p.logger.Error("Failed to request shutdown", logger.Target(t.ID), logger.Error(err))
			p.emit(t.ID, PhasePower, "shutdown_failed")
			skipped = append(skipped, t.ID)
			continue
		}
		p.emit(t.ID, PhasePower, "shutdown_requested")

		err := waitUntil(ctx, p.poll, p.timeout, func(ctx context.Context) (bool, error) {
			current, err := p.client.PowerState(ctx, t.ID)
			if err != nil {
				return false, err
			}
			return current == models.PoweredOff, nil
		})
		if err != nil {
			p.logger.Error("Shutdown not confirmed", logger.Target(t.ID), logger.Error(err))
			p.emit(t.ID, PhasePower, "shutdown_unconfirmed")
			skipped = append(skipped, t.ID)
			continue
		}

		p.emit(t.ID, PhasePower, "powered_off")
		poweredOff = append(poweredOff, t.ID)
	}
	return poweredOff, skipped
}

// Restore requests power-on for each tracked target without waiting on
// completion. Errors are logged only; restoration is best effort.
func (p *PowerManager) Restore(ctx context.Context, ids []string) {
	for _, id := range ids {
		if err := p.client.PowerOn(ctx, id); err != nil {
			p.logger.Error("Failed to power on target", logger.Target(id), logger.Error(err))
			continue
		}
		p.emit(id, PhaseRestore, "power_on_requested")
	}
}

func (p *PowerManager) emit(target, phase, status string) {
	if p.progress != nil {
		p.progress(models.Event{Target: target, Phase: phase, Status: status})
	}
}
