package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/tessium/ingestkit/pkg/types"
)

// highWaterFraction is the fill level an eviction pass drains down to.
const highWaterFraction = 0.7

// Config contains cache configuration.
type Config struct {
	// TTL is the default entry lifetime. Zero means entries never expire.
	TTL time.Duration

	// Capacity is the entry count that triggers a bulk eviction pass.
	Capacity int

	// SweepInterval is how often the background sweep removes expired
	// entries while the cache is started.
	SweepInterval time.Duration

	// Enabled toggles the cache. A disabled cache always misses and
	// GetOrFetch goes straight to the fetch function.
	Enabled bool

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// Logger for sweep and eviction events (optional, defaults to slog.Default)
	Logger *slog.Logger
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() *Config {
	return &Config{
		TTL:           15 * time.Minute,
		Capacity:      1000,
		SweepInterval: time.Minute,
		Enabled:       true,
	}
}

type entry[V any] struct {
	value       V
	createdAt   time.Time
	expiresAt   time.Time // zero means no expiry
	accessCount uint64
	lastAccess  time.Time
}

func (e *entry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Cache is a concurrency-safe key/value store with TTL expiry and bulk
// least-accessed eviction. The zero value is not usable; construct with New.
type Cache[V any] struct {
	cfg    *Config
	clock  types.Clock
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry[V]

	hits         uint64
	misses       uint64
	totalLatency time.Duration

	lifecycleMu sync.Mutex
	running     bool
	sweepStop   chan struct{}
	sweepDone   chan struct{}
}

// New creates a cache.
func New[V any](cfg *Config) (*Cache[V], error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive, got %d", cfg.Capacity)
	}
	if cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %v", cfg.SweepInterval)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = types.NewRealClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Cache[V]{
		cfg:     cfg,
		clock:   clock,
		logger:  logger.With("component", "cache"),
		entries: make(map[string]*entry[V]),
	}, nil
}

// Start launches the background expiry sweep. Calling Start on a running
// cache is a no-op.
func (c *Cache[V]) Start() {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.running || !c.cfg.Enabled {
		return
	}
	c.running = true
	c.sweepStop = make(chan struct{})
	c.sweepDone = make(chan struct{})

	go c.sweepLoop(c.sweepStop, c.sweepDone)
}

// Stop halts the background sweep and waits for it to exit. Calling Stop
// on a stopped cache is a no-op. Entries are retained.
func (c *Cache[V]) Stop() {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if !c.running {
		return
	}
	close(c.sweepStop)
	<-c.sweepDone
	c.running = false
}

func (c *Cache[V]) sweepLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := c.clock.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			if removed := c.removeExpired(); removed > 0 {
				c.logger.Debug("swept expired entries", "removed", removed)
			}
		}
	}
}

func (c *Cache[V]) removeExpired() int {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Get returns the value stored under key. An entry read after its TTL has
// elapsed is removed and reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	if !c.cfg.Enabled {
		return zero, false
	}

	started := c.clock.Now()

	c.mu.Lock()
	defer func() {
		c.totalLatency += c.clock.Since(started)
		c.mu.Unlock()
	}()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return zero, false
	}
	if e.expired(started) {
		delete(c.entries, key)
		c.misses++
		return zero, false
	}

	e.accessCount++
	e.lastAccess = started
	c.hits++
	return e.value, true
}

// Set stores value under key with the configured default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetTTL(key, value, c.cfg.TTL)
}

// SetTTL stores value under key with a per-entry TTL override. A zero ttl
// means the entry never expires.
func (c *Cache[V]) SetTTL(key string, value V, ttl time.Duration) {
	if !c.cfg.Enabled {
		return
	}

	now := c.clock.Now()
	e := &entry[V]{
		value:      value,
		createdAt:  now,
		lastAccess: now,
	}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = e
	if len(c.entries) > c.cfg.Capacity {
		c.evictLocked()
	}
}

// evictLocked removes the lowest-access-count entries in one pass, down to
// the high-water mark. Ties break toward the least recently accessed.
// Caller holds c.mu.
func (c *Cache[V]) evictLocked() {
	target := int(float64(c.cfg.Capacity) * highWaterFraction)

	type candidate struct {
		key string
		e   *entry[V]
	}
	candidates := make([]candidate, 0, len(c.entries))
	for key, e := range c.entries {
		candidates = append(candidates, candidate{key: key, e: e})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].e.accessCount != candidates[j].e.accessCount {
			return candidates[i].e.accessCount < candidates[j].e.accessCount
		}
		return candidates[i].e.lastAccess.Before(candidates[j].e.lastAccess)
	})

	evicted := 0
	for _, cand := range candidates {
		if len(c.entries) <= target {
			break
		}
		delete(c.entries, cand.key)
		evicted++
	}

	c.logger.Debug("evicted entries past capacity",
		"evicted", evicted, "capacity", c.cfg.Capacity, "remaining", len(c.entries))
}

// Delete removes the entry under key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[V])
}

// Len returns the current entry count.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetOrFetch returns the cached value under key, or invokes fetch on a
// miss, stores the result with the default TTL, and returns it. Only
// fetch's own error is ever returned. Concurrent callers for the same
// missing key are not deduplicated; each may invoke fetch independently.
func (c *Cache[V]) GetOrFetch(ctx context.Context, key string, fetch func(ctx context.Context) (V, error)) (V, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}

	value, err := fetch(ctx)
	if err != nil {
		var zero V
		return zero, err
	}

	c.Set(key, value)
	return value, nil
}

// Metrics is a snapshot of cache effectiveness, used by operators to size
// capacity and TTL.
type Metrics struct {
	Hits             uint64
	Misses           uint64
	HitRate          float64
	MissRate         float64
	TotalQueries     uint64
	AvgAccessLatency time.Duration
	Size             int
}

// Metrics returns a snapshot of hit/miss counters.
func (c *Cache[V]) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := Metrics{
		Hits:         c.hits,
		Misses:       c.misses,
		TotalQueries: c.hits + c.misses,
		Size:         len(c.entries),
	}
	if m.TotalQueries > 0 {
		m.HitRate = float64(m.Hits) / float64(m.TotalQueries)
		m.MissRate = float64(m.Misses) / float64(m.TotalQueries)
		m.AvgAccessLatency = c.totalLatency / time.Duration(m.TotalQueries)
	}
	return m
}
