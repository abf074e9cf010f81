package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoffDelays(t *testing.T) {
	policy := NewExponentialBackoff(5, time.Second)

	assert.Equal(t, 1*time.Second, policy.NextDelay(0))
	assert.Equal(t, 2*time.Second, policy.NextDelay(1))
	assert.Equal(t, 4*time.Second, policy.NextDelay(2))
	assert.Equal(t, 8*time.Second, policy.NextDelay(3))
}

func TestExponentialBackoffMaxDelay(t *testing.T) {
	policy := NewExponentialBackoff(10, time.Second, WithMaxDelay(3*time.Second))

	assert.Equal(t, 3*time.Second, policy.NextDelay(5))
}

func TestExponentialBackoffMultiplier(t *testing.T) {
	policy := NewExponentialBackoff(5, time.Second,
		WithMultiplier(3.0), WithMaxDelay(time.Minute))

	assert.Equal(t, 1*time.Second, policy.NextDelay(0))
	assert.Equal(t, 3*time.Second, policy.NextDelay(1))
	assert.Equal(t, 9*time.Second, policy.NextDelay(2))
}

func TestExponentialBackoffJitter(t *testing.T) {
	policy := NewExponentialBackoff(5, time.Second, WithJitter(0.5))

	for i := 0; i < 100; i++ {
		delay := policy.NextDelay(0)
		assert.GreaterOrEqual(t, delay, 500*time.Millisecond)
		assert.LessOrEqual(t, delay, 1500*time.Millisecond)
	}
}

func TestShouldRetryRespectsLimit(t *testing.T) {
	err := errors.New("transient")

	tests := []struct {
		name       string
		maxRetries int
		attempt    int
		want       bool
	}{
		{"first retry allowed", 3, 0, true},
		{"last retry allowed", 3, 2, true},
		{"limit reached", 3, 3, false},
		{"past limit", 3, 5, false},
		{"zero retries", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := NewExponentialBackoff(tt.maxRetries, time.Millisecond)
			assert.Equal(t, tt.want, policy.ShouldRetry(err, tt.attempt))
		})
	}
}

func TestDefaultCondition(t *testing.T) {
	assert.False(t, DefaultCondition(nil))
	assert.False(t, DefaultCondition(context.Canceled))
	assert.False(t, DefaultCondition(context.DeadlineExceeded))
	assert.True(t, DefaultCondition(errors.New("transient")))
}

func TestCustomCondition(t *testing.T) {
	permanent := errors.New("permanent")
	policy := NewExponentialBackoff(3, time.Millisecond,
		WithCondition(func(err error) bool {
			return !errors.Is(err, permanent)
		}))

	assert.False(t, policy.ShouldRetry(permanent, 0))
	assert.True(t, policy.ShouldRetry(errors.New("other"), 0))
}

func TestFixedDelay(t *testing.T) {
	policy := NewFixedDelay(2, 50*time.Millisecond)

	assert.Equal(t, 50*time.Millisecond, policy.NextDelay(0))
	assert.Equal(t, 50*time.Millisecond, policy.NextDelay(3))
	assert.Equal(t, 2, policy.MaxRetries())
	assert.True(t, policy.ShouldRetry(errors.New("x"), 1))
	assert.False(t, policy.ShouldRetry(errors.New("x"), 2))
}
