/*
Package retry provides the retry policies and the execution loop used by the
batch processor to absorb transient failures of remote operations.

A Policy decides whether a failed attempt should be retried and how long to
wait before the next attempt. Do runs a function under a policy with an
explicit attempt counter, waiting between attempts through the injected
Clock so tests can drive the delays with a mock clock.

	policy := retry.NewExponentialBackoff(3, time.Second)
	value, err := retry.Do(ctx, clock, policy, fetch, nil)

When every allowed attempt fails, Do returns a *RetryError that wraps the
last attempt's error and matches types.ErrRetriesExhausted under errors.Is.
*/
package retry
