package cache

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/IvanBrykalov/lrucache/internal/singleflight"
	"github.com/IvanBrykalov/lrucache/internal/util"
)

// Sharded partitions keys over several independent LRU engines to reduce
// lock contention under parallel load. Each shard is a complete single-lock
// cache with its own capacity slice and recency order; there is no state
// spanning shards besides the key hash, so every per-shard guarantee carries
// over unchanged. Recency order (and therefore eviction) is per shard, not
// global.
type Sharded[K comparable, V any] struct {
	shards []*LRU[K, V]
	hash   func(K) uint64
	closed atomic.Bool

	loader func(ctx context.Context, k K) (V, error)
	sf     singleflight.Group[K, V]
}

// NewSharded constructs a sharded cache from opt. The shard count is rounded
// up to a power of two (Shards <= 0 picks an automatic value from GOMAXPROCS)
// and Capacity is split evenly across shards, rounding up, so the effective
// total capacity may slightly exceed Options.Capacity.
// Returns ErrInvalidCapacity unless 1 <= Capacity <= math.MaxInt32.
func NewSharded[K comparable, V any](opt Options[K, V]) (*Sharded[K, V], error) {
	if opt.Capacity <= 0 || opt.Capacity > math.MaxInt32 {
		return nil, ErrInvalidCapacity
	}

	sh := opt.Shards
	if sh <= 0 {
		sh = util.ReasonableShardCount()
	} else {
		sh = int(util.NextPow2(uint64(sh)))
	}

	// Shards share nothing, so the loader and singleflight group live on the
	// wrapper: one coalesced load per key across the whole cache.
	perShard := opt
	perShard.Capacity = (opt.Capacity + sh - 1) / sh
	perShard.Shards = 0
	perShard.Loader = nil

	c := &Sharded[K, V]{
		shards: make([]*LRU[K, V], sh),
		hash:   util.Fnv64a[K],
		loader: opt.Loader,
	}
	for i := range c.shards {
		s, err := New(perShard)
		if err != nil {
			return nil, err
		}
		c.shards[i] = s
	}
	return c, nil
}

// shardFor picks the shard owning k.
func (c *Sharded[K, V]) shardFor(k K) *LRU[K, V] {
	return c.shards[util.ShardIndex(c.hash(k), len(c.shards))]
}

// Add inserts k→v only if absent. Returns false on duplicate.
func (c *Sharded[K, V]) Add(k K, v V) bool {
	if c.closed.Load() {
		return false
	}
	return c.shardFor(k).Add(k, v)
}

// Set inserts or updates k→v in the owning shard and promotes it there.
func (c *Sharded[K, V]) Set(k K, v V) {
	if c.closed.Load() {
		return
	}
	c.shardFor(k).Set(k, v)
}

// Get returns the value for k, promoting it within its shard on a hit.
func (c *Sharded[K, V]) Get(k K) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}
	return c.shardFor(k).Get(k)
}

// Peek returns the value for k without promoting it.
func (c *Sharded[K, V]) Peek(k K) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}
	return c.shardFor(k).Peek(k)
}

// Contains reports whether k is resident, without promoting it.
func (c *Sharded[K, V]) Contains(k K) bool {
	if c.closed.Load() {
		return false
	}
	return c.shardFor(k).Contains(k)
}

// Remove deletes k if present and reports whether an entry was removed.
func (c *Sharded[K, V]) Remove(k K) bool {
	if c.closed.Load() {
		return false
	}
	return c.shardFor(k).Remove(k)
}

// Keys returns resident keys grouped by shard; within each shard the order
// is least to most recently used.
func (c *Sharded[K, V]) Keys() []K {
	keys := make([]K, 0, c.Len())
	for _, s := range c.shards {
		keys = append(keys, s.Keys()...)
	}
	return keys
}

// Len returns the total number of resident entries across all shards.
// Shards are read one at a time, so the total is a moving snapshot under
// concurrent writes.
func (c *Sharded[K, V]) Len() int {
	total := 0
	for _, s := range c.shards {
		total += s.Len()
	}
	return total
}

// Purge drops every resident entry in every shard.
func (c *Sharded[K, V]) Purge() {
	if c.closed.Load() {
		return
	}
	for _, s := range c.shards {
		s.Purge()
	}
}

// Stats returns counters aggregated across all shards.
func (c *Sharded[K, V]) Stats() Stats {
	var agg Stats
	for _, s := range c.shards {
		st := s.Stats()
		agg.Hits += st.Hits
		agg.Misses += st.Misses
		agg.Evictions += st.Evictions
		agg.Len += st.Len
	}
	return agg
}

// Close marks the cache and all shards closed. Always returns nil.
func (c *Sharded[K, V]) Close() error {
	c.closed.Store(true)
	for _, s := range c.shards {
		_ = s.Close()
	}
	return nil
}

// GetOrLoad returns the value for k, loading it via Options.Loader on miss.
// Loads are coalesced per key across the whole cache, not per shard.
func (c *Sharded[K, V]) GetOrLoad(ctx context.Context, k K) (V, error) {
	if c.closed.Load() {
		var zero V
		return zero, ErrClosed
	}
	if v, ok := c.Get(k); ok {
		return v, nil
	}
	if c.loader == nil {
		var zero V
		return zero, ErrNoLoader
	}
	return c.sf.Do(ctx, k, func() (V, error) {
		if v, ok := c.Get(k); ok {
			return v, nil
		}
		v, err := c.loader(ctx, k)
		if err == nil {
			c.Set(k, v)
		}
		return v, err
	})
}
