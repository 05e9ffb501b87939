package models

import "time"

// Run is the persisted record of one completed batch invocation.
type Run struct {
	ID       string      `json:"id"`
	Kind     string      `json:"kind"`
	Tag      string      `json:"tag"`
	Started  time.Time   `json:"started"`
	Finished time.Time   `json:"finished"`
	Noop     string      `json:"noop,omitempty"`
	Results  BatchResult `json:"results"`
}
