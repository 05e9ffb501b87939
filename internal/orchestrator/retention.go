package orchestrator

import (
	"sort"

	"github.com/EpicMandM/vsphere-snapbatch/internal/models"
)

// PrunePlan holds the per-target snapshot pruning work for one batch.
type PrunePlan struct {
	Excess map[string]int
	Total  int
}

// NewPrunePlan computes how many snapshots each target must lose to
// satisfy the retention policy.
func NewPrunePlan(counts map[string]int, maxRetained int) PrunePlan {
	plan := PrunePlan{Excess: make(map[string]int, len(counts))}
	for id, count := range counts {
		if excess := SnapshotExcess(count, maxRetained); excess > 0 {
			plan.Excess[id] = excess
			plan.Total += excess
		}
	}
	return plan
}

// NeedsWork reports whether any target exceeds the retention policy.
func (p PrunePlan) NeedsWork() bool {
	return p.Total > 0
}

// ExcessFor returns the number of snapshots to remove for one target.
func (p PrunePlan) ExcessFor(id string) int {
	return p.Excess[id]
}

// SnapshotExcess is the number of snapshots beyond the retention limit.
func SnapshotExcess(count, maxRetained int) int {
	if excess := count - maxRetained; excess > 0 {
		return excess
	}
	return 0
}

// OldestExcess selects the snapshots to delete for a target: the excess
// oldest by creation time, ties broken by snapshot id. The newest
// maxRetained snapshots are always kept.
func OldestExcess(snapshots []models.Snapshot, maxRetained int) []models.Snapshot {
	excess := SnapshotExcess(len(snapshots), maxRetained)
	if excess == 0 {
		return nil
	}
	sorted := make([]models.Snapshot, len(snapshots))
	copy(sorted, snapshots)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Created.Equal(sorted[j].Created) {
			return sorted[i].Created.Before(sorted[j].Created)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted[:excess]
}
