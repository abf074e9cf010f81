package batch

import (
	"sync"
	"time"
)

// ItemFailure identifies one item that exhausted its retries.
type ItemFailure struct {
	// Index is the item's position in the input collection.
	Index int

	// Err is the terminal error, a *retry.RetryError wrapping the last
	// attempt's failure.
	Err error
}

// RunSnapshot is a read-only copy of a run's counters. Once the run has
// completed it no longer changes until the run is reset.
type RunSnapshot struct {
	RunID string

	TotalItems     int
	ProcessedItems int
	FailedItems    int

	// RetriedAttempts counts individual retry attempts across all items.
	RetriedAttempts int

	Failures []ItemFailure

	StartedAt   time.Time
	CompletedAt time.Time

	// TotalItemLatency accumulates per-item wall time including retries;
	// AvgItemLatency is its mean over terminal items.
	TotalItemLatency time.Duration
	AvgItemLatency   time.Duration

	Completed bool
}

// runState holds the live counters for one run. It is mutated only by the
// run's own item and batch completions; concurrent runs each own a
// distinct runState keyed by run id.
type runState struct {
	mu sync.Mutex

	runID        string
	totalItems   int
	totalBatches int

	processed    int
	failed       int
	retried      int
	failures     []ItemFailure
	totalLatency time.Duration

	completedBatches int

	startedAt   time.Time
	completedAt time.Time
	completed   bool

	// cbMu serializes progress callbacks so percentages arrive in order.
	cbMu     sync.Mutex
	progress ProgressFunc
}

func newRunState(runID string, totalItems, totalBatches int, startedAt time.Time, progress ProgressFunc) *runState {
	return &runState{
		runID:        runID,
		totalItems:   totalItems,
		totalBatches: totalBatches,
		startedAt:    startedAt,
		progress:     progress,
	}
}

func (r *runState) recordProcessed(latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed++
	r.totalLatency += latency
}

func (r *runState) recordFailed(index int, err error, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed++
	r.failures = append(r.failures, ItemFailure{Index: index, Err: err})
	r.totalLatency += latency
}

func (r *runState) recordRetry() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retried++
}

// batchCompleted bumps the completed-batch counter and fires the progress
// callback. The callback mutex is taken first so concurrent batch
// completions report strictly increasing percentages.
func (r *runState) batchCompleted() {
	if r.progress == nil {
		r.mu.Lock()
		r.completedBatches++
		r.mu.Unlock()
		return
	}

	r.cbMu.Lock()
	defer r.cbMu.Unlock()

	r.mu.Lock()
	r.completedBatches++
	pct := float64(r.completedBatches) / float64(r.totalBatches) * 100
	r.mu.Unlock()

	r.progress(pct, r.snapshot())
}

func (r *runState) complete(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completedAt = now
	r.completed = true
}

func (r *runState) snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := RunSnapshot{
		RunID:            r.runID,
		TotalItems:       r.totalItems,
		ProcessedItems:   r.processed,
		FailedItems:      r.failed,
		RetriedAttempts:  r.retried,
		Failures:         append([]ItemFailure(nil), r.failures...),
		StartedAt:        r.startedAt,
		CompletedAt:      r.completedAt,
		TotalItemLatency: r.totalLatency,
		Completed:        r.completed,
	}
	if terminal := r.processed + r.failed; terminal > 0 {
		s.AvgItemLatency = r.totalLatency / time.Duration(terminal)
	}
	return s
}
