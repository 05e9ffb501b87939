package models

import "time"

// JobStatus is the lifecycle state of one outstanding remote operation.
// Transitions are Pending -> Running -> Succeeded|Failed; a job never
// returns to Pending.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// Job is one outstanding asynchronous operation against one target.
type Job struct {
	Target      string
	Kind        ActionKind
	Submitted   time.Time
	Status      JobStatus
	RemoveCount int
}
