package orchestrator

import "errors"

// ErrInventoryUnavailable marks a failed inventory resolution. It is
// fatal to the run; no partial inventory is acted upon.
var ErrInventoryUnavailable = errors.New("inventory unavailable")

var errWaitTimeout = errors.New("timed out waiting for remote state")

// Noop reasons returned by RunRemove when no mutation happens.
const (
	NoopNoTargets         = "no targets matched tag"
	NoopNoExcessSnapshots = "no excess snapshots"
)
