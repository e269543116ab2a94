// Package retry provides the generic status-polling driver used while a
// customer waits for a payment provider to reach a terminal state.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultInitialDelay is the first sleep between attempts when callers pass 0.
const DefaultInitialDelay = 2 * time.Second

// PollUntilTerminal repeatedly invokes fetch until isTerminal reports true or
// the attempt budget is exhausted. The delay between attempts starts at
// initialDelay and doubles each retry.
//
// An error from fetch is treated as a transient failure: it consumes an
// attempt with the same backoff instead of aborting. When the budget runs out
// the last observed status is returned with a nil error; callers must treat
// a non-terminal result as "still pending, rely on the webhook". The error is
// propagated only when no status was ever obtained.
func PollUntilTerminal[S any](
	ctx context.Context,
	fetch func(context.Context) (S, error),
	isTerminal func(S) bool,
	maxAttempts int,
	initialDelay time.Duration,
) (S, error) {
	var (
		last       S
		lastErr    error
		haveStatus bool
	)

	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if initialDelay <= 0 {
		initialDelay = DefaultInitialDelay
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = 5 * time.Minute
	bo.MaxElapsedTime = 0 // attempts are the budget, not wall clock
	bo.Reset()

	for attempt := 1; ; attempt++ {
		status, err := fetch(ctx)
		if err != nil {
			lastErr = err
		} else {
			last = status
			haveStatus = true
			lastErr = nil
			if isTerminal(status) {
				return status, nil
			}
		}

		if attempt >= maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			if haveStatus {
				return last, nil
			}
			return last, ctx.Err()
		case <-time.After(bo.NextBackOff()):
		}
	}

	if !haveStatus {
		return last, lastErr
	}
	return last, nil
}
