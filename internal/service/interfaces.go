package service

import (
	"context"

	"github.com/EpicMandM/vsphere-snapbatch/internal/models"
)

// JobHandle tracks one submitted asynchronous remote operation.
type JobHandle interface {
	// Status re-queries the remote task state. Errors indicate the
	// management plane could not be reached, not a failed task.
	Status(ctx context.Context) (models.JobStatus, error)
}

// Client abstracts the management plane for testability. Implementations
// are assumed to hold an already-authenticated session.
type Client interface {
	// ListByTag returns the targets carrying the given tag, sorted by id.
	ListByTag(ctx context.Context, tag string) ([]models.Target, error)

	PowerState(ctx context.Context, id string) (models.PowerState, error)
	// ShutdownGuest requests a graceful guest shutdown. Asynchronous;
	// callers poll PowerState for confirmation.
	ShutdownGuest(ctx context.Context, id string) error
	// PowerOn requests power-on without waiting for completion.
	PowerOn(ctx context.Context, id string) error

	ListSnapshots(ctx context.Context, id string) ([]models.Snapshot, error)
	CreateSnapshot(ctx context.Context, id, name, description string) (JobHandle, error)
	DeleteSnapshots(ctx context.Context, id string, snapshots []models.Snapshot) (JobHandle, error)

	Close(ctx context.Context) error
}
