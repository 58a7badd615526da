// Package timeout bounds the duration of a single call attempt.
package timeout

import (
	"context"
	"time"

	"content-gateway/internal/resilience/failure"
)

// Operation is a single attempt of the underlying call.
type Operation func(ctx context.Context) (any, error)

// Wrap races op against a deadline of d. If the deadline fires first the
// attempt fails with a TimedOutError and the operation is abandoned:
// cancellation is best-effort via the attempt context, so the remote call
// may still complete, in which case its result is discarded. If op finishes
// first its result or error is propagated unchanged.
//
// A non-positive d disables the guard. Cancellation of the parent context
// is surfaced as the context error, not as a timeout.
func Wrap(ctx context.Context, d time.Duration, destination string, op Operation) (any, error) {
	if d <= 0 {
		return op(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		result any
		err    error
	}
	// Buffered so the abandoned goroutine can always complete its send.
	done := make(chan outcome, 1)

	go func() {
		result, err := op(attemptCtx)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-attemptCtx.Done():
		if err := ctx.Err(); err != nil {
			// The caller canceled, not the per-attempt deadline.
			return nil, err
		}
		return nil, &failure.TimedOutError{Destination: destination, Timeout: d}
	}
}
