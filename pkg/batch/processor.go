package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tessium/ingestkit/pkg/retry"
	"github.com/tessium/ingestkit/pkg/types"
)

// ItemFunc processes a single item. It must be idempotent under
// re-invocation: retry may call it more than once for the same item.
type ItemFunc[T any] func(ctx context.Context, item T) error

// ProgressFunc observes run progress after each completed batch.
type ProgressFunc func(percent float64, metrics RunSnapshot)

// Config contains batch processor configuration.
type Config struct {
	// BatchSize is the number of items per batch.
	BatchSize int

	// ConcurrentBatches bounds how many batches run at once.
	ConcurrentBatches int

	// MaxRetries is the number of retries per item beyond the first
	// attempt.
	MaxRetries int

	// RetryDelay is the base back-off delay; it doubles on every retry.
	RetryDelay time.Duration

	// RetryCondition decides whether a failed attempt is retried. Default
	// is retry.DefaultCondition, which retries everything except context
	// cancellation and deadline errors. Item functions whose failures
	// wrap context errors from their own internal deadlines need a custom
	// condition to have those failures retried.
	RetryCondition retry.Condition

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// Logger for run events (optional, defaults to slog.Default)
	Logger *slog.Logger
}

// DefaultConfig returns the default processor configuration.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:         10,
		ConcurrentBatches: 3,
		MaxRetries:        3,
		RetryDelay:        time.Second,
	}
}

// Processor fans item collections out across bounded concurrency with
// per-item retry, keeping per-run metrics keyed by run id.
type Processor struct {
	cfg    *Config
	clock  types.Clock
	logger *slog.Logger
	policy retry.Policy

	mu   sync.Mutex
	runs map[string]*runState
}

// NewProcessor creates a batch processor.
func NewProcessor(cfg *Config) (*Processor, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.ConcurrentBatches <= 0 {
		return nil, fmt.Errorf("concurrent batches must be positive, got %d", cfg.ConcurrentBatches)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries must be non-negative, got %d", cfg.MaxRetries)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = types.NewRealClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var policyOpts []retry.Option
	if cfg.RetryCondition != nil {
		policyOpts = append(policyOpts, retry.WithCondition(cfg.RetryCondition))
	}

	return &Processor{
		cfg:    cfg,
		clock:  clock,
		logger: logger.With("component", "batch-processor"),
		policy: retry.NewExponentialBackoff(cfg.MaxRetries, cfg.RetryDelay, policyOpts...),
		runs:   make(map[string]*runState),
	}, nil
}

// Metrics returns a snapshot of the run with the given id.
func (p *Processor) Metrics(runID string) (RunSnapshot, bool) {
	p.mu.Lock()
	run, ok := p.runs[runID]
	p.mu.Unlock()
	if !ok {
		return RunSnapshot{}, false
	}
	return run.snapshot(), true
}

// ResetMetrics clears the counters for a completed run. Resetting a run
// that is still in flight fails.
func (p *Processor) ResetMetrics(runID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	run, ok := p.runs[runID]
	if !ok {
		return nil
	}
	if !run.snapshot().Completed {
		return fmt.Errorf("run %q is still in flight", runID)
	}
	delete(p.runs, runID)
	return nil
}

// RunOption configures a single run.
type RunOption func(*runOptions)

type runOptions struct {
	runID    string
	progress ProgressFunc
}

// WithRunID names the run. Default is a time-derived id.
func WithRunID(id string) RunOption {
	return func(o *runOptions) {
		o.runID = id
	}
}

// WithProgress registers a progress callback, invoked after each completed
// batch.
func WithProgress(fn ProgressFunc) RunOption {
	return func(o *runOptions) {
		o.progress = fn
	}
}

// Process drives every item to a terminal state and returns the run's
// metrics. The returned error covers argument problems and run-id
// collisions only; item failures are reported through the metrics, never
// as an error.
//
// Cancelling ctx stops retry waits and unstarted items, which then count
// as failed; in-flight invocations of fn are not forcibly aborted.
func Process[T any](p *Processor, ctx context.Context, items []T, fn ItemFunc[T], opts ...RunOption) (RunSnapshot, error) {
	if fn == nil {
		return RunSnapshot{}, fmt.Errorf("item function cannot be nil")
	}

	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.runID == "" {
		o.runID = fmt.Sprintf("run-%d", p.clock.Now().UnixNano())
	}

	totalBatches := (len(items) + p.cfg.BatchSize - 1) / p.cfg.BatchSize
	run := newRunState(o.runID, len(items), totalBatches, p.clock.Now(), o.progress)

	p.mu.Lock()
	if prev, ok := p.runs[o.runID]; ok && !prev.snapshot().Completed {
		p.mu.Unlock()
		return RunSnapshot{}, fmt.Errorf("run %q is already in flight", o.runID)
	}
	p.runs[o.runID] = run
	p.mu.Unlock()

	if len(items) == 0 {
		run.complete(p.clock.Now())
		return run.snapshot(), nil
	}

	p.logger.Info("run started",
		"run", o.runID, "items", len(items), "batches", totalBatches)

	sem := make(chan struct{}, p.cfg.ConcurrentBatches)
	var wg sync.WaitGroup

	for start := 0; start < len(items); start += p.cfg.BatchSize {
		end := start + p.cfg.BatchSize
		if end > len(items) {
			end = len(items)
		}

		wg.Add(1)
		go func(start int, batch []T) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			processBatch(p, ctx, run, start, batch, fn)
			run.batchCompleted()
		}(start, items[start:end])
	}

	wg.Wait()
	run.complete(p.clock.Now())

	s := run.snapshot()
	p.logger.Info("run finished",
		"run", o.runID, "processed", s.ProcessedItems, "failed", s.FailedItems,
		"retries", s.RetriedAttempts, "avg_item_latency", s.AvgItemLatency)

	return s, nil
}

// processBatch runs one batch's items concurrently, each under the retry
// policy. offset maps batch-local indices back to input positions.
func processBatch[T any](p *Processor, ctx context.Context, run *runState, offset int, items []T, fn ItemFunc[T]) {
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		go func(index int, item T) {
			defer wg.Done()

			started := p.clock.Now()
			_, err := retry.Do(ctx, p.clock, p.policy,
				func(ctx context.Context) (struct{}, error) {
					return struct{}{}, fn(ctx, item)
				},
				func(attempt int, err error) {
					run.recordRetry()
					p.logger.Warn("item failed, retrying",
						"run", run.runID, "item", index, "attempt", attempt, "error", err)
				})
			latency := p.clock.Since(started)

			if err != nil {
				run.recordFailed(index, err, latency)
				p.logger.Error("item failed terminally",
					"run", run.runID, "item", index, "error", err)
				return
			}
			run.recordProcessed(latency)
		}(offset+i, item)
	}

	wg.Wait()
}
