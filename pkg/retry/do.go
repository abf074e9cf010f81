package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tessium/ingestkit/pkg/types"
)

// Func is the function type executed under retry.
type Func[T any] func(ctx context.Context) (T, error)

// Notify observes each failed attempt before the back-off wait. The attempt
// argument counts from 1. Useful for per-run retry counters and logging.
type Notify func(attempt int, err error)

// RetryError reports that every attempt the policy allowed has failed.
// It wraps the error of the last attempt and matches
// types.ErrRetriesExhausted under errors.Is.
type RetryError struct {
	// Attempts is the total number of attempts made, including the first.
	Attempts int

	// Err is the error returned by the last attempt.
	Err error
}

// Error implements the error interface
func (e *RetryError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap returns the last attempt's error
func (e *RetryError) Unwrap() error {
	return e.Err
}

// Is matches types.ErrRetriesExhausted as well as the wrapped error
func (e *RetryError) Is(target error) bool {
	if target == types.ErrRetriesExhausted {
		return true
	}
	return errors.Is(e.Err, target)
}

// Do executes fn until it succeeds, the policy gives up, or ctx is done.
//
// The loop is iterative with an explicit attempt counter; delays come from
// policy.NextDelay and are waited through clock so tests can advance them.
// A nil notify is allowed.
func Do[T any](ctx context.Context, clock types.Clock, policy Policy, fn Func[T], notify Notify) (T, error) {
	var zero T
	if clock == nil {
		clock = types.NewRealClock()
	}

	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		if !policy.ShouldRetry(err, attempt) {
			return zero, &RetryError{Attempts: attempt + 1, Err: err}
		}

		if notify != nil {
			notify(attempt+1, err)
		}

		if delay := policy.NextDelay(attempt); delay > 0 {
			if err := sleep(ctx, clock, delay); err != nil {
				return zero, err
			}
		}
	}
}

func sleep(ctx context.Context, clock types.Clock, d time.Duration) error {
	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C():
		return nil
	}
}
