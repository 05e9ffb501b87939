package orchestrator

import (
	"context"
	"time"
)

// waitUntil polls cond on a ticker until it reports done, the timeout
// elapses, or ctx is cancelled. A cond error ends the wait immediately.
func waitUntil(ctx context.Context, interval, timeout time.Duration, cond func(context.Context) (bool, error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return errWaitTimeout
		case <-ticker.C:
			done, err := cond(ctx)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}
