/*
Package pool provides a dynamically-sized worker pool that executes
heterogeneous tasks with bounded parallelism, per-task timeouts, and
isolated failure handling.

# Overview

A Pool owns a set of worker goroutines between a configured minimum and
maximum. Callers register a handler per task type, then submit tasks by
type tag and payload:

	p, err := pool.New(pool.DefaultConfig())
	p.RegisterHandler("embed", embedHandler)
	fut, err := p.Submit("embed", chunk)
	value, err := fut.Wait(ctx)

Submission returns a Future resolved with the handler's result or rejected
with the task's error. Tasks are dispatched to idle workers in FIFO order;
when no worker is idle and the pool is below its maximum, a new worker is
created before dispatch. A periodic sweep retires workers that have been
idle longer than the idle timeout, back toward the minimum.

# Coordination model

A single dispatcher goroutine owns the task queue, the idle set, and the
worker table. Workers report completions to the dispatcher over a channel;
no pool state is mutated outside the dispatcher. This keeps the invariant
that a task is dispatched to at most one worker, and that the idle set
never contains a worker that is executing a task.

# Failure semantics

Handler errors resolve the task's Future and never affect the pool. A task
that exceeds the configured timeout fails with types.ErrTaskTimeout and the
worker that ran it is retired and replaced, because an execution context
abandoned mid-task cannot be safely reused. Handler panics are recovered at
the worker boundary, surfaced as a *types.TaskError carrying the stack
trace, and also trigger worker replacement. Replacement is invisible to
callers except through the failure count in Metrics.
*/
package pool
