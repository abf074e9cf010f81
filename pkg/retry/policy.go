package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Policy defines the retry strategy interface.
//
// The attempt argument counts retries already consumed: it is 0 when the
// first attempt has just failed and the first retry is being considered.
type Policy interface {
	// ShouldRetry determines whether to retry after a failed attempt
	ShouldRetry(err error, attempt int) bool

	// NextDelay returns the delay before retry number attempt+1
	NextDelay(attempt int) time.Duration

	// MaxRetries returns the maximum number of retries beyond the first attempt
	MaxRetries() int
}

// Condition decides whether an error is worth retrying.
type Condition func(error) bool

// DefaultCondition retries every failure except context cancellation,
// which signals that the caller has already given up.
func DefaultCondition(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// ExponentialBackoff doubles (by default) the delay on every retry:
// delay = base x multiplier^attempt, capped at maxDelay.
type ExponentialBackoff struct {
	maxRetries int
	base       time.Duration
	multiplier float64
	maxDelay   time.Duration
	jitter     float64
	condition  Condition
}

// NewExponentialBackoff creates an exponential back-off policy with the
// given retry limit and base delay.
func NewExponentialBackoff(maxRetries int, base time.Duration, opts ...Option) *ExponentialBackoff {
	p := &ExponentialBackoff{
		maxRetries: maxRetries,
		base:       base,
		multiplier: 2.0,
		maxDelay:   30 * time.Second,
		condition:  DefaultCondition,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ShouldRetry determines whether to retry
func (p *ExponentialBackoff) ShouldRetry(err error, attempt int) bool {
	if attempt >= p.maxRetries {
		return false
	}
	return p.condition(err)
}

// NextDelay returns the delay before the next retry
func (p *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	delay := time.Duration(float64(p.base) * math.Pow(p.multiplier, float64(attempt)))
	if delay > p.maxDelay {
		delay = p.maxDelay
	}
	return applyJitter(delay, p.jitter)
}

// MaxRetries returns the maximum number of retries
func (p *ExponentialBackoff) MaxRetries() int {
	return p.maxRetries
}

// FixedDelay waits the same duration before every retry.
type FixedDelay struct {
	maxRetries int
	delay      time.Duration
	condition  Condition
}

// NewFixedDelay creates a fixed-delay retry policy.
func NewFixedDelay(maxRetries int, delay time.Duration) *FixedDelay {
	return &FixedDelay{
		maxRetries: maxRetries,
		delay:      delay,
		condition:  DefaultCondition,
	}
}

// ShouldRetry determines whether to retry
func (p *FixedDelay) ShouldRetry(err error, attempt int) bool {
	if attempt >= p.maxRetries {
		return false
	}
	return p.condition(err)
}

// NextDelay returns the delay before the next retry
func (p *FixedDelay) NextDelay(attempt int) time.Duration {
	return p.delay
}

// MaxRetries returns the maximum number of retries
func (p *FixedDelay) MaxRetries() int {
	return p.maxRetries
}

// Option configures an ExponentialBackoff policy.
type Option func(*ExponentialBackoff)

// WithMultiplier sets the delay growth factor (default 2.0).
func WithMultiplier(multiplier float64) Option {
	return func(p *ExponentialBackoff) {
		if multiplier > 1.0 {
			p.multiplier = multiplier
		}
	}
}

// WithMaxDelay caps the delay between retries (default 30s).
func WithMaxDelay(maxDelay time.Duration) Option {
	return func(p *ExponentialBackoff) {
		if maxDelay > 0 {
			p.maxDelay = maxDelay
		}
	}
}

// WithJitter spreads delays by up to factor (0..1) in both directions to
// avoid synchronized retry storms across concurrent items.
func WithJitter(factor float64) Option {
	return func(p *ExponentialBackoff) {
		if factor >= 0 && factor <= 1.0 {
			p.jitter = factor
		}
	}
}

// WithCondition sets the retry condition (default DefaultCondition).
func WithCondition(condition Condition) Option {
	return func(p *ExponentialBackoff) {
		if condition != nil {
			p.condition = condition
		}
	}
}

func applyJitter(delay time.Duration, factor float64) time.Duration {
	if factor <= 0 {
		return delay
	}

	spread := float64(delay) * factor
	jittered := delay + time.Duration((rand.Float64()-0.5)*2*spread)
	if jittered < 0 {
		return delay / 2
	}
	return jittered
}
