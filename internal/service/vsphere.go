package service

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"

	"github.com/EpicMandM/vsphere-snapbatch/internal/config"
	"github.com/EpicMandM/vsphere-snapbatch/internal/logger"
	"github.com/EpicMandM/vsphere-snapbatch/internal/models"
	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/property"
	"github.com/vmware/govmomi/vapi/rest"
	"github.com/vmware/govmomi/vapi/tags"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/soap"
	"github.com/vmware/govmomi/vim25/types"
)

// VSphereService implements Client against a vCenter endpoint.
type VSphereService struct {
	client *govmomi.Client
	rest   *rest.Client
	tags   *tags.Manager
	finder *find.Finder
	logger *logger.Logger
}

func NewVSphereService(ctx context.Context, cfg *config.Config, log *logger.Logger) (*VSphereService, error) {
	if log == nil {
		log = logger.NewWithWriter(io.Discard)
	}
	u, err := soap.ParseURL(cfg.VCenterURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	u.User = url.UserPassword(cfg.VCenterUsername, cfg.VCenterPassword)

	client, err := govmomi.NewClient(ctx, u, cfg.VCenterInsecure)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	// Tag queries go through the vAPI endpoint, which needs its own session.
	rc := rest.NewClient(client.Client)
	if err := rc.Login(ctx, u.User); err != nil {
		return nil, fmt.Errorf("failed to login to vAPI endpoint: %w", err)
	}

	finder := find.NewFinder(client.Client, true)
	dc, err := finder.DefaultDatacenter(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get datacenter: %w", err)
	}
	finder.SetDatacenter(dc)

	return &VSphereService{
		client: client,
		rest:   rc,
		tags:   tags.NewManager(rc),
		finder: finder,
		logger: log,
	}, nil
}

func (s *VSphereService) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if s.rest != nil {
		if err := s.rest.Logout(ctx); err != nil {
			s.logger.Warn("Failed to logout from vAPI endpoint", logger.Error(err))
		}
	}
	return s.client.Logout(ctx)
}

// ListByTag resolves the VMs attached to the named tag, with their
// current power state, sorted by name.
func (s *VSphereService) ListByTag(ctx context.Context, tag string) ([]models.Target, error) {
	t, err := s.tags.GetTag(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tag %q: %w", tag, err)
	}

	attached, err := s.tags.ListAttachedObjects(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects attached to tag %q: %w", tag, err)
	}

	var refs []types.ManagedObjectReference
	for _, obj := range attached {
		if obj.Reference().Type == "VirtualMachine" {
			refs = append(refs, obj.Reference())
		}
	}
	if len(refs) == 0 {
		return nil, nil
	}

	pc := property.DefaultCollector(s.client.Client)
	var mvms []mo.VirtualMachine
	if err := pc.Retrieve(ctx, refs, []string{"name", "runtime.powerState"}, &mvms); err != nil {
		return nil, fmt.Errorf("failed to retrieve VM properties: %w", err)
	}

	targets := make([]models.Target, 0, len(mvms))
	for _, mvm := range mvms {
		targets = append(targets, models.Target{
			ID:         mvm.Name,
			PowerState: powerStateFrom(mvm.Runtime.PowerState),
		})
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].ID < targets[j].ID })
	return targets, nil
}

func (s *VSphereService) PowerState(ctx context.Context, id string) (models.PowerState, error) {
	vm, err := s.finder.VirtualMachine(ctx, id)
	if err != nil {
		return models.PowerStateUnknown, fmt.Errorf("VM not found: %w", err)
	}
	state, err := vm.PowerState(ctx)
	if err != nil {
		return models.PowerStateUnknown, fmt.Errorf("failed to read power state: %w", err)
	}
	return powerStateFrom(state), nil
}

func (s *VSphereService) ShutdownGuest(ctx context.Context, id string) error {
	vm, err := s.finder.VirtualMachine(ctx, id)
	if err != nil {
		return fmt.Errorf("VM not found: %w", err)
	}
	if err := vm.ShutdownGuest(ctx); err != nil {
		return fmt.Errorf("failed to request guest shutdown: %w", err)
	}
	return nil
}

func (s *VSphereService) PowerOn(ctx context.Context, id string) error {
	vm, err := s.finder.VirtualMachine(ctx, id)
	if err != nil {
		return fmt.Errorf("VM not found: %w", err)
	}
	// Power-on restoration does not block on the task.
	if _, err := vm.PowerOn(ctx); err != nil {
		return fmt.Errorf("failed to request power on: %w", err)
	}
	return nil
}

func (s *VSphereService) ListSnapshots(ctx context.Context, id string) ([]models.Snapshot, error) {
	vm, err := s.finder.VirtualMachine(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("VM not found: %w", err)
	}

	var mvm mo.VirtualMachine
	if err := vm.Properties(ctx, vm.Reference(), []string{"snapshot"}, &mvm); err != nil {
		return nil, fmt.Errorf("failed to get VM properties: %w", err)
	}
	if mvm.Snapshot == nil {
		return nil, nil
	}
	return flattenSnapshotTree(mvm.Snapshot.RootSnapshotList), nil
}

func (s *VSphereService) CreateSnapshot(ctx context.Context, id, name, description string) (JobHandle, error) {
	vm, err := s.finder.VirtualMachine(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("VM not found: %w", err)
	}
	task, err := vm.CreateSnapshot(ctx, name, description, false, false)
	if err != nil {
		return nil, fmt.Errorf("failed to submit snapshot creation: %w", err)
	}
	return &taskHandle{
		pc:   property.DefaultCollector(s.client.Client),
		refs: []types.ManagedObjectReference{task.Reference()},
	}, nil
}

// DeleteSnapshots submits one removal task per snapshot and returns a
// handle over the whole set.
func (s *VSphereService) DeleteSnapshots(ctx context.Context, id string, snapshots []models.Snapshot) (JobHandle, error) {
	vm, err := s.finder.VirtualMachine(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("VM not found: %w", err)
	}

	var refs []types.ManagedObjectReference
	for _, snap := range snapshots {
		task, err := vm.RemoveSnapshot(ctx, snap.ID, false, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to submit removal of snapshot %q: %w", snap.Name, err)
		}
		refs = append(refs, task.Reference())
	}
	return &taskHandle{
		pc:   property.DefaultCollector(s.client.Client),
		refs: refs,
	}, nil
}

// taskHandle polls one or more vSphere tasks through the property
// collector and reports a combined status.
type taskHandle struct {
	pc   *property.Collector
	refs []types.ManagedObjectReference
}

func (h *taskHandle) Status(ctx context.Context) (models.JobStatus, error) {
	if len(h.refs) == 0 {
		return models.JobSucceeded, nil
	}
	var tasks []mo.Task
	if err := h.pc.Retrieve(ctx, h.refs, []string{"info"}, &tasks); err != nil {
		return models.JobPending, fmt.Errorf("failed to retrieve task info: %w", err)
	}
	states := make([]types.TaskInfoState, 0, len(tasks))
	for _, t := range tasks {
		states = append(states, t.Info.State)
	}
	return combineTaskStates(states), nil
}

// combineTaskStates folds several task states into a single job status.
// Any error fails the job; the job only succeeds once every task has.
func combineTaskStates(states []types.TaskInfoState) models.JobStatus {
	allSuccess := true
	anyRunning := false
	for _, state := range states {
		switch state {
		case types.TaskInfoStateError:
			return models.JobFailed
		case types.TaskInfoStateRunning:
			anyRunning = true
			allSuccess = false
		case types.TaskInfoStateQueued:
			allSuccess = false
		}
	}
	switch {
	case allSuccess:
		return models.JobSucceeded
	case anyRunning:
		return models.JobRunning
	default:
		return models.JobPending
	}
}

func powerStateFrom(state types.VirtualMachinePowerState) models.PowerState {
	switch state {
	case types.VirtualMachinePowerStatePoweredOn:
		return models.PoweredOn
	case types.VirtualMachinePowerStatePoweredOff:
		return models.PoweredOff
	default:
		return models.PowerStateUnknown
	}
}

// flattenSnapshotTree walks the snapshot tree depth-first and returns a
// flat list ordered as encountered.
func flattenSnapshotTree(tree []types.VirtualMachineSnapshotTree) []models.Snapshot {
	var result []models.Snapshot
	for _, snapshot := range tree {
		result = append(result, models.Snapshot{
			ID:          snapshot.Snapshot.Value,
			Name:        snapshot.Name,
			Description: snapshot.Description,
			Created:     snapshot.CreateTime,
		})
		if len(snapshot.ChildSnapshotList) > 0 {
			result = append(result, flattenSnapshotTree(snapshot.ChildSnapshotList)...)
		}
	}
	return result
}
