package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessium/ingestkit/pkg/types"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	policy := NewExponentialBackoff(3, time.Millisecond)
	calls := 0

	value, err := Do(context.Background(), nil, policy,
		func(ctx context.Context) (int, error) {
			calls++
			return 42, nil
		}, nil)

	require.NoError(t, err)
	assert.Equal(t, 42, value)
	assert.Equal(t, 1, calls)
}

func TestDoFailThenSucceed(t *testing.T) {
	policy := NewExponentialBackoff(3, time.Millisecond)
	var calls int32
	var notified []int

	value, err := Do(context.Background(), nil, policy,
		func(ctx context.Context) (string, error) {
			if atomic.AddInt32(&calls, 1) <= 2 {
				return "", errors.New("transient")
			}
			return "ok", nil
		},
		func(attempt int, err error) {
			notified = append(notified, attempt)
		})

	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []int{1, 2}, notified)
}

func TestDoBackoffPacing(t *testing.T) {
	// Base 20ms, two retries before success: waits ~20ms then ~40ms.
	policy := NewExponentialBackoff(3, 20*time.Millisecond)
	var calls int32

	start := time.Now()
	_, err := Do(context.Background(), nil, policy,
		func(ctx context.Context) (struct{}, error) {
			if atomic.AddInt32(&calls, 1) <= 2 {
				return struct{}{}, errors.New("transient")
			}
			return struct{}{}, nil
		}, nil)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestDoRetriesExhausted(t *testing.T) {
	policy := NewExponentialBackoff(2, time.Millisecond)
	cause := errors.New("still broken")
	calls := 0

	_, err := Do(context.Background(), nil, policy,
		func(ctx context.Context) (int, error) {
			calls++
			return 0, cause
		}, nil)

	require.Error(t, err)
	assert.Equal(t, 3, calls) // first attempt + 2 retries

	var retryErr *RetryError
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, 3, retryErr.Attempts)
	assert.True(t, errors.Is(err, types.ErrRetriesExhausted))
	assert.True(t, errors.Is(err, cause))
}

func TestDoZeroRetriesFailsImmediately(t *testing.T) {
	policy := NewExponentialBackoff(0, time.Millisecond)
	calls := 0

	_, err := Do(context.Background(), nil, policy,
		func(ctx context.Context) (int, error) {
			calls++
			return 0, errors.New("boom")
		}, nil)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, errors.Is(err, types.ErrRetriesExhausted))
}

func TestDoContextCancelledDuringWait(t *testing.T) {
	policy := NewExponentialBackoff(3, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, nil, policy,
			func(ctx context.Context) (int, error) {
				return 0, errors.New("transient")
			}, nil)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("Do did not return after context cancellation")
	}
}

func TestDoContextCancelledBeforeAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Do(ctx, nil, NewExponentialBackoff(3, time.Millisecond),
		func(ctx context.Context) (int, error) {
			calls++
			return 0, nil
		}, nil)

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, calls)
}
