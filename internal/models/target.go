package models

import "time"

// PowerState is the reported power state of a target VM.
type PowerState string

const (
	PoweredOn         PowerState = "poweredOn"
	PoweredOff        PowerState = "poweredOff"
	PowerStateUnknown PowerState = "unknown"
)

// Target is one managed virtual machine acted upon by a batch.
// The ID is the VM display name; vCenter inventories in this lab
// keep those unique per datacenter.
type Target struct {
	ID           string     `json:"id"`
	PowerState   PowerState `json:"power_state"`
	MustShutdown bool       `json:"must_shutdown"`
}

// Snapshot represents a snapshot of a virtual machine.
type Snapshot struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Created     time.Time `json:"created"`
}
