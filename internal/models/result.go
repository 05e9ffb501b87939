package models

import "sort"

// OutcomeStatus classifies one target's terminal batch result.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailed  OutcomeStatus = "failed"
)

// Outcome is the terminal result for one target, with an optional
// diagnostic for failures.
type Outcome struct {
	Status     OutcomeStatus `json:"status"`
	Diagnostic string        `json:"diagnostic,omitempty"`
}

// BatchResult maps target id to outcome for one batch invocation.
type BatchResult map[string]Outcome

// Failed returns the ids of failed targets in stable sorted order.
func (r BatchResult) Failed() []string {
	var ids []string
	for id, outcome := range r {
		if outcome.Status == OutcomeFailed {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Counts returns the number of succeeded and failed targets.
func (r BatchResult) Counts() (succeeded, failed int) {
	for _, outcome := range r {
		if outcome.Status == OutcomeSuccess {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

// Event is a structured progress notification emitted by the core as
// targets move between phases. Rendering is the caller's concern.
type Event struct {
	Target string
	Phase  string
	Status string
}
