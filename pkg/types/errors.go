package types

import (
	"errors"
	"fmt"
)

// Predefined errors of the task-execution substrate.
var (
	// ErrHandlerNotFound indicates a task was submitted for a task type
	// with no registered handler. This is a caller error reported at
	// submission time; it never enters the pool.
	ErrHandlerNotFound = errors.New("no handler registered for task type")

	// ErrTaskTimeout indicates the pool-enforced per-task deadline expired
	// before the handler returned.
	ErrTaskTimeout = errors.New("task timeout")

	// ErrPoolShutdown indicates a submission was rejected because the pool
	// is draining or already stopped.
	ErrPoolShutdown = errors.New("worker pool is shut down")

	// ErrQueueFull indicates the task queue is at capacity and the pool is
	// already at its maximum worker count.
	ErrQueueFull = errors.New("task queue is full")

	// ErrRetriesExhausted indicates an item failed on every attempt the
	// retry policy allowed.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// TaskError describes a failure of a single task. It carries enough
// context to tell which task failed and why without inspecting logs.
type TaskError struct {
	// TaskID is the id assigned at submission.
	TaskID string

	// TaskType is the registered type tag of the task.
	TaskType string

	// Cause is the underlying error.
	Cause error

	// Context holds optional diagnostic details (worker id, stack trace).
	Context map[string]any
}

// Error implements the error interface
func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s (%s) failed: %v", e.TaskID, e.TaskType, e.Cause)
}

// Unwrap returns the underlying error
func (e *TaskError) Unwrap() error {
	return e.Cause
}

// Is reports whether the underlying error matches target
func (e *TaskError) Is(target error) bool {
	return errors.Is(e.Cause, target)
}

// NewTaskError creates a new task error
func NewTaskError(taskID, taskType string, cause error) *TaskError {
	return &TaskError{
		TaskID:   taskID,
		TaskType: taskType,
		Cause:    cause,
		Context:  make(map[string]any),
	}
}

// WithContext attaches a diagnostic detail and returns the error for chaining
func (e *TaskError) WithContext(key string, value any) *TaskError {
	e.Context[key] = value
	return e
}
