package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EpicMandM/vsphere-snapbatch/internal/models"
)

func TestSnapshotExcess(t *testing.T) {
	tests := []struct {
		name        string
		count       int
		maxRetained int
		want        int
	}{
		{"under retention", 1, 3, 0},
		{"at retention", 3, 3, 0},
		{"over retention", 5, 3, 2},
		{"zero retention removes all", 4, 0, 4},
		{"no snapshots", 0, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SnapshotExcess(tt.count, tt.maxRetained))
		})
	}
}

func TestNewPrunePlan(t *testing.T) {
	counts := map[string]int{"vm-a": 5, "vm-b": 1, "vm-c": 2}
	plan := NewPrunePlan(counts, 2)

	assert.True(t, plan.NeedsWork())
	assert.Equal(t, 3, plan.Total)
	assert.Equal(t, 3, plan.ExcessFor("vm-a"))
	assert.Equal(t, 0, plan.ExcessFor("vm-b"), "under-retention targets contribute zero")
	assert.Equal(t, 0, plan.ExcessFor("vm-c"))

	_, listed := plan.Excess["vm-b"]
	assert.False(t, listed, "zero-excess targets are excluded from the plan")
}

func TestNewPrunePlanNoWork(t *testing.T) {
	plan := NewPrunePlan(map[string]int{"vm-a": 2, "vm-b": 0}, 3)
	assert.False(t, plan.NeedsWork())
	assert.Zero(t, plan.Total)
}

func TestOldestExcessSelectsOldestByCreation(t *testing.T) {
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	snaps := []models.Snapshot{
		{ID: "snapshot-3", Name: "wed", Created: base.Add(48 * time.Hour)},
		{ID: "snapshot-1", Name: "mon", Created: base},
		{ID: "snapshot-5", Name: "fri", Created: base.Add(96 * time.Hour)},
		{ID: "snapshot-2", Name: "tue", Created: base.Add(24 * time.Hour)},
		{ID: "snapshot-4", Name: "thu", Created: base.Add(72 * time.Hour)},
	}

	victims := OldestExcess(snaps, 3)
	require.Len(t, victims, 2, "5 snapshots with max=3 means the 2 oldest go")
	assert.Equal(t, "snapshot-1", victims[0].ID)
	assert.Equal(t, "snapshot-2", victims[1].ID)
}

func TestOldestExcessBreaksTiesByID(t *testing.T) {
	created := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	snaps := []models.Snapshot{
		{ID: "snapshot-9", Created: created},
		{ID: "snapshot-2", Created: created},
		{ID: "snapshot-5", Created: created},
	}

	victims := OldestExcess(snaps, 2)
	require.Len(t, victims, 1)
	assert.Equal(t, "snapshot-2", victims[0].ID)
}

func TestOldestExcessNoExcess(t *testing.T) {
	snaps := []models.Snapshot{{ID: "snapshot-1", Created: time.Now()}}
	assert.Nil(t, OldestExcess(snaps, 3))
	assert.Nil(t, OldestExcess(nil, 0))
}

func TestOldestExcessDoesNotMutateInput(t *testing.T) {
	base := time.Now()
	snaps := []models.Snapshot{
		{ID: "snapshot-2", Created: base.Add(time.Hour)},
		{ID: "snapshot-1", Created: base},
	}
	_ = OldestExcess(snaps, 1)
	assert.Equal(t, "snapshot-2", snaps[0].ID, "input order preserved")
}
