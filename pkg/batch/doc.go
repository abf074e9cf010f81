/*
Package batch drives a large item collection through a per-item processing
function with bounded concurrency and automatic retry.

Items are partitioned into fixed-size batches in input order. Up to
ConcurrentBatches batches run at once, gated by a semaphore, and items
within a batch run concurrently, so total concurrency is bounded by
BatchSize x ConcurrentBatches. Each item is wrapped with exponential
back-off retry; an item that exhausts its retries is recorded as failed and
never aborts the batch or the run. Partial success is the expected steady
state for large runs.

	proc, _ := batch.NewProcessor(batch.DefaultConfig())
	metrics, err := batch.Process(proc, ctx, chunks, embedAndStore,
		batch.WithRunID("backfill-2024"),
		batch.WithProgress(func(pct float64, m batch.RunSnapshot) {
			log.Printf("%.0f%% (%d failed)", pct, m.FailedItems)
		}))

By default a failed attempt is retried unless its error wraps
context.Canceled or context.DeadlineExceeded, which are read as the caller
giving up. An item function that surfaces context errors from its own
internal deadlines should set Config.RetryCondition to classify those
failures as retryable.

Process returns once every item has reached a terminal state, with
ProcessedItems + FailedItems == TotalItems. The progress callback fires
after each batch completes rather than after each item, serially and with
monotonically increasing percentages ending at 100.

The processor imposes no per-item timeout: a processing function that never
settles is bounded only by the caller's own timeout discipline, because
forced cancellation composes poorly with retry back-off. Callers that need
a hard per-task deadline should route the work through the pool package.
*/
package batch
