package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessium/ingestkit/internal/testutils"
)

func testConfig() *Config {
	return &Config{
		TTL:           time.Minute,
		Capacity:      100,
		SweepInterval: time.Minute,
		Enabled:       true,
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name        string
		config      *Config
		expectError bool
	}{
		{
			name:        "nil config uses defaults",
			config:      nil,
			expectError: false,
		},
		{
			name:        "valid config",
			config:      testConfig(),
			expectError: false,
		},
		{
			name: "zero capacity",
			config: &Config{
				TTL: time.Minute, Capacity: 0, SweepInterval: time.Minute, Enabled: true,
			},
			expectError: true,
		},
		{
			name: "zero sweep interval",
			config: &Config{
				TTL: time.Minute, Capacity: 10, SweepInterval: 0, Enabled: true,
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New[string](tt.config)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	c, err := New[string](testConfig())
	require.NoError(t, err)

	c.Set("a", "alpha")

	value, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "alpha", value)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestSetOverwrites(t *testing.T) {
	c, err := New[int](testConfig())
	require.NoError(t, err)

	c.Set("k", 1)
	c.Set("k", 2)

	value, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, value)
	assert.Equal(t, 1, c.Len())
}

func TestTTLExpiry(t *testing.T) {
	mock := testutils.NewMockClock(t)
	cfg := testConfig()
	cfg.TTL = 10 * time.Minute
	cfg.Clock = testutils.NewClockWrapper(mock)
	c, err := New[string](cfg)
	require.NoError(t, err)

	c.Set("k", "v")

	mock.Advance(5 * time.Minute)
	_, ok := c.Get("k")
	assert.True(t, ok, "entry alive before TTL")

	mock.Advance(6 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry expired past TTL")
	assert.Zero(t, c.Len(), "expired entry removed on read")
}

func TestSetTTLOverride(t *testing.T) {
	mock := testutils.NewMockClock(t)
	cfg := testConfig()
	cfg.TTL = time.Minute
	cfg.Clock = testutils.NewClockWrapper(mock)
	c, err := New[string](cfg)
	require.NoError(t, err)

	c.SetTTL("short", "v", time.Second)
	c.SetTTL("forever", "v", 0)

	mock.Advance(2 * time.Second)
	_, ok := c.Get("short")
	assert.False(t, ok)

	mock.Advance(240 * time.Hour)
	_, ok = c.Get("forever")
	assert.True(t, ok, "zero ttl never expires")
}

func TestEvictionKeepsMostAccessed(t *testing.T) {
	cfg := testConfig()
	cfg.Capacity = 10
	c, err := New[int](cfg)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	// Heat up three entries.
	for i := 0; i < 5; i++ {
		c.Get("k1")
		c.Get("k4")
		c.Get("k7")
	}

	// The 11th insert trips the eviction pass.
	c.Set("k10", 10)

	assert.Equal(t, 7, c.Len(), "eviction drains to 70% of capacity")
	for _, key := range []string{"k1", "k4", "k7"} {
		_, ok := c.Get(key)
		assert.True(t, ok, "hot entry %s survived eviction", key)
	}
}

func TestEvictionTieBreaksOnRecency(t *testing.T) {
	mock := testutils.NewMockClock(t)
	cfg := testConfig()
	cfg.Capacity = 4
	cfg.TTL = 0
	cfg.Clock = testutils.NewClockWrapper(mock)
	c, err := New[int](cfg)
	require.NoError(t, err)

	// All entries have zero accesses; older lastAccess evicts first.
	for i := 0; i < 4; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
		mock.Advance(time.Second)
	}
	c.Set("k4", 4)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("k4")
	assert.True(t, ok, "newest entry survives")
	_, ok = c.Get("k0")
	assert.False(t, ok, "oldest untouched entry evicted first")
}

func TestDeleteAndClear(t *testing.T) {
	c, err := New[int](testConfig())
	require.NoError(t, err)

	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Zero(t, c.Len())
}

func TestGetOrFetch(t *testing.T) {
	c, err := New[string](testConfig())
	require.NoError(t, err)

	var calls int64
	fetch := func(ctx context.Context) (string, error) {
		atomic.AddInt64(&calls, 1)
		return "fetched", nil
	}

	value, err := c.GetOrFetch(context.Background(), "k", fetch)
	require.NoError(t, err)
	assert.Equal(t, "fetched", value)

	value, err = c.GetOrFetch(context.Background(), "k", fetch)
	require.NoError(t, err)
	assert.Equal(t, "fetched", value)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls), "second call served from cache")
}

func TestGetOrFetchError(t *testing.T) {
	c, err := New[string](testConfig())
	require.NoError(t, err)

	boom := errors.New("fetch failed")
	_, err = c.GetOrFetch(context.Background(), "k", func(ctx context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)

	// Failed fetches are not cached.
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestDisabledCache(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	c, err := New[string](cfg)
	require.NoError(t, err)

	c.Set("k", "v")
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Len())

	var calls int64
	for i := 0; i < 2; i++ {
		value, err := c.GetOrFetch(context.Background(), "k", func(ctx context.Context) (string, error) {
			atomic.AddInt64(&calls, 1)
			return "fetched", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "fetched", value)
	}
	assert.Equal(t, int64(2), atomic.LoadInt64(&calls), "disabled cache always fetches")

	// Lifecycle is a no-op when disabled.
	c.Start()
	c.Stop()
}

func TestMetrics(t *testing.T) {
	c, err := New[string](testConfig())
	require.NoError(t, err)

	c.Set("a", "1")
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	m := c.Metrics()
	assert.Equal(t, uint64(2), m.Hits)
	assert.Equal(t, uint64(1), m.Misses)
	assert.Equal(t, uint64(3), m.TotalQueries)
	assert.InDelta(t, 2.0/3.0, m.HitRate, 0.001)
	assert.InDelta(t, 1.0/3.0, m.MissRate, 0.001)
	assert.Equal(t, 1, m.Size)
}

func TestBackgroundSweep(t *testing.T) {
	cfg := testConfig()
	cfg.TTL = 10 * time.Millisecond
	cfg.SweepInterval = 5 * time.Millisecond
	c, err := New[string](cfg)
	require.NoError(t, err)

	c.Set("a", "1")
	c.Set("b", "2")

	c.Start()
	defer c.Stop()

	assert.Eventually(t, func() bool {
		return c.Len() == 0
	}, time.Second, 5*time.Millisecond, "sweep removes expired entries without reads")
}

func TestStartStopIdempotent(t *testing.T) {
	c, err := New[string](testConfig())
	require.NoError(t, err)

	c.Start()
	c.Start()
	c.Stop()
	c.Stop()

	// Restart works after a stop.
	c.Start()
	c.Stop()
}
