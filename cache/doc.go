// Package cache provides a generic, fixed-capacity, thread-safe LRU cache.
//
// # Design
//
//   - Storage: entries live in a slot arena pre-allocated at construction.
//     A map[K]int32 indexes keys to slot handles, and recency order is an
//     intrusive doubly linked list threaded through the slots via prev/next
//     indices (head = most recently used, tail = least recently used).
//     Freed slots are recycled through an explicit free list, so a cache
//     never allocates per entry after construction. All operations are O(1)
//     expected time.
//
//   - Concurrency: one RWMutex guards the index and the arena jointly; they
//     are never observed or mutated independently. Get takes the WRITE lock:
//     promoting the entry to MRU mutates the ordering structure, so there is
//     no shared-read mode for it. Only operations that leave recency order
//     untouched (Len, Peek, Contains, Keys, Values, Stats) use the read lock.
//
//   - Eviction: inserting into a full cache evicts exactly the current LRU
//     entry. Updating an existing key never evicts. Eviction is silent;
//     Options.OnEvict observes evicted pairs. Callbacks and loaders always
//     run with no cache lock held.
//
//   - Sharding: NewSharded partitions keys over power-of-two many independent
//     LRU engines by FNV-1a hash to reduce lock contention. Recency order is
//     then per shard, not global.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/SizeDelta signals.
//     NoopMetrics is the default; metrics/prom exports to Prometheus.
//
// # Basic usage
//
//	c, err := cache.New[string, []byte](cache.Options[string, []byte]{Capacity: 10_000})
//	if err != nil {
//	    // non-positive capacity
//	}
//	c.Set("a", []byte("1"))
//	if v, ok := c.Get("a"); ok {
//	    _ = v // use value
//	}
//	c.Remove("a")
//
// # With GetOrLoad (singleflight)
//
//	c, _ := cache.New[string, string](cache.Options[string, string]{
//	    Capacity: 1024,
//	    Loader: func(ctx context.Context, k string) (string, error) {
//	        // e.g. fetch from DB
//	        return "v:" + k, nil
//	    },
//	})
//	v, err := c.GetOrLoad(context.Background(), "key")
//
// # Sharded
//
//	c, _ := cache.NewSharded[string, string](cache.Options[string, string]{
//	    Capacity: 100_000,
//	    Shards:   64,
//	})
//
// # Exporting metrics
//
//	m := prom.New(nil, "myapp", "cache", nil) // implements cache.Metrics
//	c, _ := cache.New[string, []byte](cache.Options[string, []byte]{
//	    Capacity: 10_000,
//	    Metrics:  m,
//	})
package cache
