package pool

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tessium/ingestkit/pkg/types"
)

// TaskType tags a task with the handler that executes it.
type TaskType = types.TaskType

// Handler executes one task. It must be safe for concurrent invocation and
// should honor ctx cancellation promptly: the pool cancels ctx when the
// task's deadline expires.
type Handler func(ctx context.Context, payload any) (any, error)

// Config contains worker pool configuration.
type Config struct {
	// MinWorkers is the number of workers created eagerly at construction
	// and kept alive through idle trimming.
	MinWorkers int

	// MaxWorkers bounds lazy growth under load.
	MaxWorkers int

	// QueueSize is the capacity of the pending-task queue. When every
	// worker is busy, the pool is at MaxWorkers, and the queue is full,
	// Submit fails with types.ErrQueueFull.
	QueueSize int

	// TaskTimeout is the hard per-task deadline.
	TaskTimeout time.Duration

	// IdleTimeout is how long a worker beyond MinWorkers may sit idle
	// before the sweep retires it.
	IdleTimeout time.Duration

	// SweepInterval is how often the idle sweep runs.
	SweepInterval time.Duration

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// Logger for pool events (optional, defaults to slog.Default)
	Logger *slog.Logger
}

// DefaultConfig returns the default pool configuration.
func DefaultConfig() *Config {
	return &Config{
		MinWorkers:    2,
		MaxWorkers:    runtime.NumCPU() * 2,
		QueueSize:     100,
		TaskTimeout:   30 * time.Second,
		IdleTimeout:   30 * time.Second,
		SweepInterval: 10 * time.Second,
	}
}

// Pool executes submitted tasks with bounded parallelism. See the package
// documentation for the coordination model.
type Pool struct {
	cfg    *Config
	clock  types.Clock
	logger *slog.Logger

	handlerMu sync.RWMutex
	handlers  map[TaskType]Handler

	// submissions doubles as the FIFO task queue: the dispatcher only
	// receives from it when a worker is idle or the pool can grow.
	submissions chan *task
	completions chan completion

	lifecycleMu  sync.RWMutex
	shuttingDown bool
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	drained      chan struct{}

	metricsMu    sync.Mutex
	activeCount  int
	idleCount    int
	completed    int64
	failed       int64
	totalLatency time.Duration
}

// New creates a pool, eagerly starts MinWorkers workers, and begins
// dispatching. The pool runs until Shutdown.
func New(cfg *Config) (*Pool, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if cfg.MinWorkers <= 0 {
		return nil, fmt.Errorf("min workers must be positive, got %d", cfg.MinWorkers)
	}
	if cfg.MaxWorkers < cfg.MinWorkers {
		return nil, fmt.Errorf("max workers (%d) must be >= min workers (%d)",
			cfg.MaxWorkers, cfg.MinWorkers)
	}
	if cfg.QueueSize <= 0 {
		return nil, fmt.Errorf("queue size must be positive, got %d", cfg.QueueSize)
	}
	if cfg.TaskTimeout <= 0 {
		return nil, fmt.Errorf("task timeout must be positive, got %v", cfg.TaskTimeout)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = types.NewRealClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pool{
		cfg:         cfg,
		clock:       clock,
		logger:      logger.With("component", "worker-pool"),
		handlers:    make(map[TaskType]Handler),
		submissions: make(chan *task, cfg.QueueSize),
		completions: make(chan completion),
		shutdownCh:  make(chan struct{}),
		drained:     make(chan struct{}),
	}

	go p.dispatch()

	return p, nil
}

// RegisterHandler associates a task type with the function that executes
// it. Registering an already-registered type replaces the handler; the
// last registration wins.
func (p *Pool) RegisterHandler(taskType TaskType, h Handler) error {
	if h == nil {
		return fmt.Errorf("handler for task type %q cannot be nil", taskType)
	}

	p.lifecycleMu.RLock()
	defer p.lifecycleMu.RUnlock()
	if p.shuttingDown {
		return types.ErrPoolShutdown
	}

	p.handlerMu.Lock()
	p.handlers[taskType] = h
	p.handlerMu.Unlock()
	return nil
}

// Submit enqueues a task and returns a Future resolved with the handler's
// result or rejected with the task's error. Submission itself fails with
// types.ErrHandlerNotFound for an unregistered type, types.ErrPoolShutdown
// while draining, or types.ErrQueueFull when the queue is at capacity.
func (p *Pool) Submit(taskType TaskType, payload any) (*Future, error) {
	p.handlerMu.RLock()
	handler, ok := p.handlers[taskType]
	p.handlerMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrHandlerNotFound, taskType)
	}

	t := &task{
		id:         uuid.NewString(),
		taskType:   taskType,
		payload:    payload,
		handler:    handler,
		enqueuedAt: p.clock.Now(),
		future:     newFuture(),
	}

	// The read lock orders accepted submissions before the shutdown drain:
	// Shutdown flips shuttingDown under the write lock, so any task that
	// makes it into the queue here is guaranteed to be executed.
	p.lifecycleMu.RLock()
	defer p.lifecycleMu.RUnlock()
	if p.shuttingDown {
		return nil, types.ErrPoolShutdown
	}

	select {
	case p.submissions <- t:
		return t.future, nil
	default:
		return nil, types.ErrQueueFull
	}
}

// Shutdown stops accepting submissions, waits for every queued and
// in-flight task to finish, then terminates all workers. It is idempotent
// and safe to call concurrently; ctx bounds only the wait, not the drain.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() {
		p.lifecycleMu.Lock()
		p.shuttingDown = true
		p.lifecycleMu.Unlock()
		close(p.shutdownCh)
	})

	select {
	case <-p.drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Metrics returns a snapshot of pool state.
func (p *Pool) Metrics() types.PoolMetrics {
	p.metricsMu.Lock()
	defer p.metricsMu.Unlock()

	m := types.PoolMetrics{
		ActiveWorkers:  p.activeCount,
		IdleWorkers:    p.idleCount,
		QueuedTasks:    len(p.submissions),
		CompletedTasks: p.completed,
		FailedTasks:    p.failed,
	}
	if total := p.completed + p.failed; total > 0 {
		m.AvgLatency = p.totalLatency / time.Duration(total)
	}
	return m
}

// idleWorker is a dispatcher-side record of a worker waiting for work.
type idleWorker struct {
	w     *worker
	since time.Time
}

// dispatch is the single goroutine that owns the worker table, the idle
// set, and dequeuing. All pool state transitions happen here.
func (p *Pool) dispatch() {
	var (
		workers  = make(map[int]*worker)
		idle     []idleWorker
		busy     int
		nextID   int
		draining bool
	)

	spawn := func() *worker {
		w := newWorker(nextID, p)
		nextID++
		workers[w.id] = w
		go w.run()
		return w
	}

	assign := func(w *worker, t *task) {
		w.tasks <- t
		busy++
	}

	for i := 0; i < p.cfg.MinWorkers; i++ {
		w := spawn()
		idle = append(idle, idleWorker{w: w, since: p.clock.Now()})
	}

	sweep := p.clock.NewTicker(p.cfg.SweepInterval)
	defer sweep.Stop()

	shutdownCh := p.shutdownCh

	for {
		// Only accept queued tasks when one can actually be dispatched,
		// so the submissions channel itself stays the FIFO queue.
		var submissions <-chan *task
		if len(idle) > 0 || len(workers) < p.cfg.MaxWorkers {
			submissions = p.submissions
		}

		select {
		case t := <-submissions:
			var w *worker
			if len(idle) > 0 {
				w = idle[0].w
				idle = idle[1:]
			} else {
				w = spawn()
			}
			assign(w, t)

		case c := <-p.completions:
			busy--
			if c.faulted {
				// The worker already exited; replace it when the pool
				// would otherwise sink below its minimum or leave
				// queued work stranded.
				delete(workers, c.worker.id)
				if len(workers) < p.cfg.MinWorkers ||
					(len(p.submissions) > 0 && len(workers) < p.cfg.MaxWorkers) {
					w := spawn()
					idle = append(idle, idleWorker{w: w, since: p.clock.Now()})
				}
			} else {
				idle = append(idle, idleWorker{w: c.worker, since: p.clock.Now()})
			}
			p.recordCompletion(c)

		case <-sweep.C():
			if draining {
				continue
			}
			now := p.clock.Now()
			kept := idle[:0]
			for _, iw := range idle {
				if len(workers) > p.cfg.MinWorkers && now.Sub(iw.since) >= p.cfg.IdleTimeout {
					iw.w.stop()
					delete(workers, iw.w.id)
					p.logger.Debug("retired idle worker", "worker", iw.w.id)
					continue
				}
				kept = append(kept, iw)
			}
			idle = kept

		case <-shutdownCh:
			draining = true
			shutdownCh = nil
		}

		p.updateGauges(busy, len(idle))

		if draining && busy == 0 && len(p.submissions) == 0 {
			break
		}
	}

	// Reject anything that raced into the queue during the final loop
	// iteration, then retire the remaining workers.
	for {
		select {
		case t := <-p.submissions:
			t.future.resolve(nil, types.ErrPoolShutdown, p.clock.Since(t.enqueuedAt))
			continue
		default:
		}
		break
	}

	for _, w := range workers {
		w.stop()
	}
	for _, w := range workers {
		<-w.done
	}

	p.updateGauges(0, 0)
	close(p.drained)
}

func (p *Pool) recordCompletion(c completion) {
	p.metricsMu.Lock()
	defer p.metricsMu.Unlock()

	if c.failed {
		p.failed++
	} else {
		p.completed++
	}
	p.totalLatency += c.latency
}

func (p *Pool) updateGauges(active, idle int) {
	p.metricsMu.Lock()
	p.activeCount = active
	p.idleCount = idle
	p.metricsMu.Unlock()
}
