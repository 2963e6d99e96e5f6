// Package waitfor provides a bounded poll-until primitive.
//
// Remote collections (DynamoDB tables, S3 buckets) transition between states
// asynchronously after provisioning calls. Instead of duplicating
// sleep-and-describe loops at every call site, callers describe the target
// state as a predicate and this package polls it with a fixed interval until
// it holds or an overall timeout elapses.
package waitfor

import (
	"context"
	"fmt"
	"time"
)

// Predicate reports whether the awaited state has been reached.
//
// Returning an error aborts the wait immediately; transient probe failures
// that should keep the wait alive must be swallowed by the predicate itself.
type Predicate func(ctx context.Context) (bool, error)

// Condition polls pred every interval until it returns true, the timeout
// elapses, or the context is cancelled.
//
// The predicate is evaluated once immediately before the first sleep, so
// states that are already reached do not cost an interval.
func Condition(ctx context.Context, interval, timeout time.Duration, pred Predicate) error {
	if interval <= 0 {
		return fmt.Errorf("waitfor: interval must be positive, got %v", interval)
	}
	if timeout <= 0 {
		return fmt.Errorf("waitfor: timeout must be positive, got %v", timeout)
	}

	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := pred(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("waitfor: condition not reached within %v: %w", timeout, context.DeadlineExceeded)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
