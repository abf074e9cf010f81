/*
Package cache provides a TTL and capacity-bounded in-memory key/value store
used to avoid repeating expensive remote lookups.

A Cache is an explicitly constructed, owned instance: the background expiry
sweep only runs between Start and Stop, and nothing in this package keeps
process-wide state. Keys are derived deterministically from the logical
request (see Key and QueryKey) so semantically identical lookups collide on
the same entry.

	c, _ := cache.New[string](cache.DefaultConfig())
	c.Start()
	defer c.Stop()

	text, err := c.GetOrFetch(ctx, cache.Key("transcript", videoID),
		func(ctx context.Context) (string, error) {
			return transcriber.Transcribe(ctx, audio)
		})

When the entry count exceeds capacity, one eviction pass removes the
lowest-access-count entries down to 70% of capacity, rather than evicting
a single entry per insert, to avoid thrashing under sustained
near-capacity load.

The cache is an optimization layer, never a source of failures: its own
operations do not return errors, and GetOrFetch only propagates errors
from the caller's fetch function. Concurrent GetOrFetch calls for the same
missing key are not deduplicated; each may invoke its fetch function
independently.
*/
package cache
