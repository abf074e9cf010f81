package pool

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/tessium/ingestkit/pkg/types"
)

// task is one unit of work flowing from Submit through the dispatcher to a
// worker. The handler is resolved at submission time so an unregistered
// type never enters the pool.
type task struct {
	id         string
	taskType   types.TaskType
	payload    any
	handler    Handler
	enqueuedAt time.Time
	future     *Future
}

// completion is the worker-to-dispatcher message sent after every task.
type completion struct {
	worker  *worker
	latency time.Duration
	failed  bool

	// faulted marks the worker as unusable: it has either abandoned a
	// timed-out task or recovered a handler panic, and will exit on its
	// own. The dispatcher removes and replaces it.
	faulted bool
}

// worker is a single execution context bound to the pool. It is either
// idle, waiting on its task channel, or busy running exactly one task.
type worker struct {
	id    int
	tasks chan *task
	quit  chan struct{}
	done  chan struct{}
	pool  *Pool
}

func newWorker(id int, p *Pool) *worker {
	return &worker{
		id: id,
		// Capacity 1 so the dispatcher never blocks on dispatch.
		tasks: make(chan *task, 1),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
		pool:  p,
	}
}

func (w *worker) run() {
	defer close(w.done)

	for {
		select {
		case <-w.quit:
			return
		case t := <-w.tasks:
			c := w.execute(t)
			w.pool.completions <- c
			if c.faulted {
				return
			}
		}
	}
}

type outcome struct {
	value    any
	err      error
	panicked bool
}

// execute runs the task's handler in a child goroutine and races it against
// the pool's task timeout. On expiry the handler context is cancelled, the
// future fails with types.ErrTaskTimeout, and the worker reports itself
// faulted: whatever the abandoned handler does afterwards is discarded by
// the future's resolve-once semantics.
func (w *worker) execute(t *task) completion {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outcomeCh := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var buf [4096]byte
				n := runtime.Stack(buf[:], false)

				err := types.NewTaskError(t.id, string(t.taskType), fmt.Errorf("handler panic: %v", r))
				err.WithContext("stack_trace", string(buf[:n]))
				err.WithContext("worker_id", w.id)

				outcomeCh <- outcome{err: err, panicked: true}
			}
		}()

		value, err := t.handler(ctx, t.payload)
		outcomeCh <- outcome{value: value, err: err}
	}()

	timer := w.pool.clock.NewTimer(w.pool.cfg.TaskTimeout)
	defer timer.Stop()

	select {
	case out := <-outcomeCh:
		latency := w.pool.clock.Since(t.enqueuedAt)
		t.future.resolve(out.value, out.err, latency)

		if out.panicked {
			w.pool.logger.Error("handler panicked, replacing worker",
				"worker", w.id, "task", t.id, "type", t.taskType)
		}

		return completion{
			worker:  w,
			latency: latency,
			failed:  out.err != nil,
			faulted: out.panicked,
		}

	case <-timer.C():
		cancel()
		latency := w.pool.clock.Since(t.enqueuedAt)
		t.future.resolve(nil, types.NewTaskError(t.id, string(t.taskType), types.ErrTaskTimeout), latency)

		w.pool.logger.Warn("task timed out, replacing worker",
			"worker", w.id, "task", t.id, "type", t.taskType,
			"timeout", w.pool.cfg.TaskTimeout)

		return completion{worker: w, latency: latency, failed: true, faulted: true}
	}
}

// stop asks an idle worker to exit. Only the dispatcher calls this, and
// only for workers that are not executing a task.
func (w *worker) stop() {
	close(w.quit)
}
