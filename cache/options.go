package cache

import "context"

// Metrics exposes cache-level observability hooks. Implementations must be
// safe for concurrent use; hooks are invoked outside the cache lock and may
// interleave with later operations. NoopMetrics is used when nil.
type Metrics interface {
	// Hit is called for each Get that found its key.
	Hit()
	// Miss is called for each Get that did not.
	Miss()
	// Evict is called once per entry evicted by capacity pressure.
	Evict()
	// SizeDelta reports the net change in resident entries after an
	// operation (+1 plain insert, -1 removal, -n purge; an insert that also
	// evicted reports nothing, the size did not change). Deltas commute, so
	// gauge-style consumers stay correct even when multiple shards report
	// concurrently.
	SizeDelta(d int)
}

// Options configures a cache. Zero values are safe except Capacity, which is
// required; defaults are applied in New/NewSharded:
//   - nil Metrics => NoopMetrics
//   - Shards <= 0 => auto (2*GOMAXPROCS rounded up to a power of two)
type Options[K comparable, V any] struct {
	// Capacity is the maximum number of resident entries, in [1, MaxInt32].
	// It is fixed for the lifetime of the cache.
	Capacity int

	// Shards is the number of partitions used by NewSharded (rounded up to a
	// power of two; 0 = auto). Ignored by New.
	Shards int

	// OnEvict observes entries evicted by capacity pressure, and entries
	// dropped by Purge. It runs with no cache lock held, so it may call back
	// into the cache. Entries deleted by Remove are not reported.
	OnEvict func(k K, v V)

	// Metrics receives Hit/Miss/Evict/SizeDelta signals.
	Metrics Metrics

	// Loader fetches a value on cache miss. Used by GetOrLoad; never invoked
	// while a cache lock is held.
	Loader func(ctx context.Context, k K) (V, error)
}
