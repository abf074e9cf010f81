package pool

import (
	"context"
	"sync"
	"time"

	"github.com/tessium/ingestkit/pkg/types"
)

// Future is the pending outcome of a submitted task. It is resolved exactly
// once, either with the handler's result or with the task's error.
type Future struct {
	done chan struct{}
	once sync.Once

	res types.Result[any]
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Done returns a channel that is closed when the task reaches a terminal
// state.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the task completes and returns its outcome.
func (f *Future) Result() (any, error) {
	<-f.done
	return f.res.Value, f.res.Error
}

// Outcome blocks until the task completes and returns the full result,
// including the time from submission to completion.
func (f *Future) Outcome() types.Result[any] {
	<-f.done
	return f.res
}

// Wait blocks until the task completes or ctx is done, whichever happens
// first. The task keeps running if ctx expires; only the wait is abandoned.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.res.Value, f.res.Error
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolve settles the future. Later calls are no-ops, which makes the
// timeout path and a late handler return race-safe.
func (f *Future) resolve(value any, err error, duration time.Duration) {
	f.once.Do(func() {
		f.res = types.Result[any]{Value: value, Error: err, Duration: duration}
		close(f.done)
	})
}
