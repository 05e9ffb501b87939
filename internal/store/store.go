package store

import (
	"github.com/EpicMandM/vsphere-snapbatch/internal/models"
)

// Store defines the interface for run-history persistence.
type Store interface {
	SaveRun(run *models.Run) error
	GetRunByID(id string) (*models.Run, error)
	ListRuns(limit int) ([]*models.Run, error)

	Close() error
}
