package types

import "time"

// Result is the outcome of an asynchronous execution.
type Result[R any] struct {
	// Value is the execution result
	Value R

	// Error is the execution error
	Error error

	// Duration is the time from submission to completion
	Duration time.Duration
}

// TaskType tags a unit of work with the handler that executes it.
// Callers define their own constants:
//
//	const TaskEmbed pool.TaskType = "embed"
type TaskType string

// PoolMetrics is a point-in-time snapshot of worker pool state.
type PoolMetrics struct {
	// ActiveWorkers is the number of workers currently executing a task
	ActiveWorkers int

	// IdleWorkers is the number of workers waiting for a task
	IdleWorkers int

	// QueuedTasks is the number of tasks waiting for dispatch
	QueuedTasks int

	// CompletedTasks is the number of tasks that resolved successfully
	CompletedTasks int64

	// FailedTasks is the number of tasks that resolved with an error,
	// including timeouts and recovered handler panics
	FailedTasks int64

	// AvgLatency is the mean time from submission to completion
	AvgLatency time.Duration
}
