package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/EpicMandM/vsphere-snapbatch/internal/config"
	"github.com/EpicMandM/vsphere-snapbatch/internal/logger"
	"github.com/EpicMandM/vsphere-snapbatch/internal/models"
	"github.com/EpicMandM/vsphere-snapbatch/internal/service"
)

// Progress event phases.
const (
	PhaseInventory = "inventory"
	PhaseRetention = "retention"
	PhasePower     = "power"
	PhaseDispatch  = "dispatch"
	PhaseValidate  = "validate"
	PhaseRestore   = "restore"
)

// Options carries the timing and concurrency knobs for one run. Zero
// fields fall back to the reference cadences in the config package.
type Options struct {
	Concurrency       int
	PowerPollInterval time.Duration
	PowerTimeout      time.Duration
	TaskPollInterval  time.Duration
	JobPollInterval   time.Duration
	JobTimeout        time.Duration
	SettleDelay       time.Duration
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = config.DefaultConcurrency
	}
	if o.PowerPollInterval <= 0 {
		o.PowerPollInterval = config.DefaultPowerPoll
	}
	if o.PowerTimeout <= 0 {
		o.PowerTimeout = config.DefaultPowerTimeout
	}
	if o.TaskPollInterval <= 0 {
		o.TaskPollInterval = config.DefaultTaskPoll
	}
	if o.JobPollInterval <= 0 {
		o.JobPollInterval = config.DefaultJobPoll
	}
	if o.JobTimeout <= 0 {
		o.JobTimeout = config.DefaultJobTimeout
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = config.DefaultSettleDelay
	}
	return o
}

// Orchestrator coordinates one bulk snapshot batch: inventory, power
// prerequisites, dispatch under the admission cap, validation and
// power restoration.
type Orchestrator struct {
	Client  service.Client
	Logger  *logger.Logger
	Options Options

	// Progress receives one event per target phase transition. Optional.
	Progress func(models.Event)
	// Confirm gates the create-path retry pass. When nil the retry
	// proceeds without an operator acknowledgment.
	Confirm func(failed int) bool
}

// RunCreate snapshots every target carrying the tag, shutting down the
// targets named in mustShutdown first and restoring them afterwards.
func (o *Orchestrator) RunCreate(ctx context.Context, tag, name, description string, mustShutdown []string) (models.BatchResult, error) {
	action, err := models.NewCreateAction(name, description)
	if err != nil {
		return nil, err
	}

	targets, err := o.resolveInventory(ctx, tag)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		o.Logger.Info("No targets matched tag", logger.Tag(tag))
		return models.BatchResult{}, nil
	}

	targets, sensitive := applyShutdownSet(targets, mustShutdown)

	pm := o.powerManager()
	poweredOff, skipped := pm.EnsureOff(ctx, sensitive)
	defer pm.Restore(context.Background(), poweredOff)

	dispatchTargets := excludeTargets(targets, skipped)
	specs := make([]jobSpec, 0, len(dispatchTargets))
	for _, t := range dispatchTargets {
		specs = append(specs, jobSpec{target: t.ID, action: action})
	}

	opts := o.Options.withDefaults()
	result := o.newDispatcher(opts.TaskPollInterval).run(ctx, specs)
	result = o.newValidator().validate(ctx, dispatchTargets, action, result)
	recordSkipped(result, skipped)

	o.logSummary(string(action.Kind), result)
	return result, nil
}

// RunRemove prunes each tagged target down to maxRetained snapshots,
// deleting the oldest first. When no target exceeds the policy the run
// returns a noop reason and performs no power or dispatch work.
func (o *Orchestrator) RunRemove(ctx context.Context, tag string, maxRetained int, mustShutdown []string) (models.BatchResult, string, error) {
	action, err := models.NewRemoveAction(maxRetained)
	if err != nil {
		return nil, "", err
	}

	targets, err := o.resolveInventory(ctx, tag)
	if err != nil {
		return nil, "", err
	}
	if len(targets) == 0 {
		o.Logger.Info("No targets matched tag", logger.Tag(tag))
		return models.BatchResult{}, NoopNoTargets, nil
	}

	plan, snapshots, result := o.buildPrunePlan(ctx, targets, maxRetained)
	if !plan.NeedsWork() {
		o.Logger.Info("No excess snapshots, nothing to do", logger.Tag(tag), logger.Phase(PhaseRetention))
		return result, NoopNoExcessSnapshots, nil
	}
	o.Logger.Info("Prune plan computed", logger.Phase(PhaseRetention),
		logger.Count(len(plan.Excess)), logger.Excess(plan.Total))

	// Only targets with strictly positive excess are dispatched, and
	// only those intersect the declared shutdown set.
	dispatchTargets := filterTargets(targets, func(t models.Target) bool {
		return plan.ExcessFor(t.ID) > 0
	})
	dispatchTargets, sensitive := applyShutdownSet(dispatchTargets, mustShutdown)

	pm := o.powerManager()
	poweredOff, skipped := pm.EnsureOff(ctx, sensitive)
	defer pm.Restore(context.Background(), poweredOff)

	dispatchTargets = excludeTargets(dispatchTargets, skipped)
	specs := make([]jobSpec, 0, len(dispatchTargets))
	for _, t := range dispatchTargets {
		specs = append(specs, jobSpec{
			target:  t.ID,
			action:  action,
			victims: OldestExcess(snapshots[t.ID], maxRetained),
		})
	}

	opts := o.Options.withDefaults()
	for id, outcome := range o.newDispatcher(opts.JobPollInterval).run(ctx, specs) {
		result[id] = outcome
	}
	recordSkipped(result, skipped)

	o.logSummary(string(action.Kind), result)
	return result, "", nil
}

// PlanRemove computes the prune plan without mutating anything. Used by
// the dry-run path of the CLI.
func (o *Orchestrator) PlanRemove(ctx context.Context, tag string, maxRetained int) (PrunePlan, error) {
	if _, err := models.NewRemoveAction(maxRetained); err != nil {
		return PrunePlan{}, err
	}
	targets, err := o.resolveInventory(ctx, tag)
	if err != nil {
		return PrunePlan{}, err
	}
	plan, _, _ := o.buildPrunePlan(ctx, targets, maxRetained)
	return plan, nil
}

func (o *Orchestrator) resolveInventory(ctx context.Context, tag string) ([]models.Target, error) {
	o.Logger.Info("Resolving inventory", logger.Phase(PhaseInventory), logger.Tag(tag))
	targets, err := o.Client.ListByTag(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInventoryUnavailable, err)
	}
	sort.SliceStable(targets, func(i, j int) bool { return targets[i].ID < targets[j].ID })
	o.Logger.Info("Inventory resolved", logger.Phase(PhaseInventory), logger.Tag(tag), logger.Count(len(targets)))
	return targets, nil
}

// buildPrunePlan fetches each target's snapshot list and derives the
// per-target excess. Targets that cannot be queried are recorded as
// failed and excluded from the plan.
func (o *Orchestrator) buildPrunePlan(ctx context.Context, targets []models.Target, maxRetained int) (PrunePlan, map[string][]models.Snapshot, models.BatchResult) {
	counts := make(map[string]int, len(targets))
	snapshots := make(map[string][]models.Snapshot, len(targets))
	result := models.BatchResult{}

	for _, t := range targets {
		snaps, err := o.Client.ListSnapshots(ctx, t.ID)
		if err != nil {
			o.Logger.Error("Failed to list snapshots", logger.Target(t.ID), logger.Error(err))
			result[t.ID] = models.Outcome{Status: models.OutcomeFailed, Diagnostic: fmt.Sprintf("list snapshots: %v", err)}
			continue
		}
		counts[t.ID] = len(snaps)
		snapshots[t.ID] = snaps
	}

	return NewPrunePlan(counts, maxRetained), snapshots, result
}

func (o *Orchestrator) powerManager() *PowerManager {
	opts := o.Options.withDefaults()
	return &PowerManager{
		client:   o.Client,
		logger:   o.Logger,
		poll:     opts.PowerPollInterval,
		timeout:  opts.PowerTimeout,
		progress: o.Progress,
	}
}

func (o *Orchestrator) newDispatcher(poll time.Duration) *dispatcher {
	opts := o.Options.withDefaults()
	return &dispatcher{
		client:   o.Client,
		logger:   o.Logger,
		limit:    opts.Concurrency,
		poll:     poll,
		timeout:  opts.JobTimeout,
		progress: o.Progress,
	}
}

func (o *Orchestrator) newValidator() *validator {
	opts := o.Options.withDefaults()
	return &validator{
		client:   o.Client,
		logger:   o.Logger,
		settle:   opts.SettleDelay,
		progress: o.Progress,
		confirm:  o.Confirm,
	}
}

func (o *Orchestrator) logSummary(kind string, result models.BatchResult) {
	succeeded, failed := result.Counts()
	if failed > 0 {
		o.Logger.Error("Batch finished with failures", logger.Action(kind),
			logger.Succeeded(succeeded), logger.Failed(failed))
		return
	}
	o.Logger.Info("Batch finished", logger.Action(kind), logger.Succeeded(succeeded))
}

// applyShutdownSet marks the targets named in mustShutdown and returns
// the marked list plus the sensitive subset, both in input order.
func applyShutdownSet(targets []models.Target, mustShutdown []string) ([]models.Target, []models.Target) {
	names := make(map[string]bool, len(mustShutdown))
	for _, id := range mustShutdown {
		names[id] = true
	}

	marked := make([]models.Target, len(targets))
	var sensitive []models.Target
	for i, t := range targets {
		t.MustShutdown = names[t.ID]
		marked[i] = t
		if t.MustShutdown {
			sensitive = append(sensitive, t)
		}
	}
	return marked, sensitive
}

func excludeTargets(targets []models.Target, ids []string) []models.Target {
	if len(ids) == 0 {
		return targets
	}
	excluded := make(map[string]bool, len(ids))
	for _, id := range ids {
		excluded[id] = true
	}
	return filterTargets(targets, func(t models.Target) bool { return !excluded[t.ID] })
}

func filterTargets(targets []models.Target, keep func(models.Target) bool) []models.Target {
	var kept []models.Target
	for _, t := range targets {
		if keep(t) {
			kept = append(kept, t)
		}
	}
	return kept
}

// recordSkipped reports targets dropped by a failed power transition.
func recordSkipped(result models.BatchResult, skipped []string) {
	for _, id := range skipped {
		result[id] = models.Outcome{Status: models.OutcomeFailed, Diagnostic: "shutdown not confirmed, target skipped"}
	}
}
