package cache

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/IvanBrykalov/lrucache/internal/singleflight"
	"github.com/IvanBrykalov/lrucache/internal/util"
)

// LRU is a single-lock, fixed-capacity cache with least-recently-used
// eviction. All methods are safe for concurrent use.
//
// One RWMutex guards the key index and the slot arena jointly; the two are a
// single logical structure and are never touched independently. Get holds the
// write lock because promotion mutates recency order.
type LRU[K comparable, V any] struct {
	// ---- guarded by mu ----
	mu    sync.RWMutex
	index map[K]int32  // key -> slot handle
	slots []slot[K, V] // arena, len == cap
	head  int32        // MRU
	tail  int32        // LRU
	free  int32        // free-list head
	size  int          // resident entries, always <= cap
	cap   int

	onEvict func(K, V)
	metrics Metrics
	loader  func(ctx context.Context, k K) (V, error)

	sf     singleflight.Group[K, V]
	closed atomic.Bool

	// ---- hot counters (own cache lines to avoid false sharing) ----
	_      util.CacheLinePad
	hits   util.PaddedAtomicUint64
	misses util.PaddedAtomicUint64
	evicts util.PaddedAtomicUint64
}

// New constructs an empty LRU cache from opt. Options.Shards is ignored.
// Returns ErrInvalidCapacity unless 1 <= Capacity <= math.MaxInt32 (slot
// handles are int32).
func New[K comparable, V any](opt Options[K, V]) (*LRU[K, V], error) {
	if opt.Capacity <= 0 || opt.Capacity > math.MaxInt32 {
		return nil, ErrInvalidCapacity
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	c := &LRU[K, V]{
		index:   make(map[K]int32, opt.Capacity),
		slots:   make([]slot[K, V], opt.Capacity),
		cap:     opt.Capacity,
		onEvict: opt.OnEvict,
		metrics: opt.Metrics,
		loader:  opt.Loader,
	}
	c.resetArena()
	return c, nil
}

// Set inserts or updates k→v and promotes the entry to MRU.
// Inserting into a full cache evicts the current LRU entry first, so at most
// one eviction happens per call; updates never evict.
func (c *LRU[K, V]) Set(k K, v V) {
	if c.closed.Load() {
		return
	}
	var (
		evictedK K
		evictedV V
		evicted  bool
	)

	c.mu.Lock()
	if i, ok := c.index[k]; ok {
		c.slots[i].val = v
		c.moveToFront(i)
		c.mu.Unlock()
		return
	}
	if c.size == c.cap {
		evictedK, evictedV = c.deleteSlot(c.tail)
		evicted = true
	}
	i := c.allocSlot()
	c.slots[i].key, c.slots[i].val = k, v
	c.pushFront(i)
	c.index[k] = i
	c.size++
	c.mu.Unlock()

	// Metrics and callbacks run outside the lock: both are caller-supplied
	// code, and the eviction callback may legally re-enter the cache.
	if evicted {
		c.evicts.Add(1)
		c.metrics.Evict()
		if cb := c.onEvict; cb != nil {
			cb(evictedK, evictedV)
		}
	} else {
		c.metrics.SizeDelta(1)
	}
}

// Add inserts k→v only if k is absent. Unlike Set, a duplicate key is left
// untouched (no update, no promotion) and Add returns false.
func (c *LRU[K, V]) Add(k K, v V) bool {
	if c.closed.Load() {
		return false
	}
	var (
		evictedK K
		evictedV V
		evicted  bool
	)

	c.mu.Lock()
	if _, exists := c.index[k]; exists {
		c.mu.Unlock()
		return false
	}
	if c.size == c.cap {
		evictedK, evictedV = c.deleteSlot(c.tail)
		evicted = true
	}
	i := c.allocSlot()
	c.slots[i].key, c.slots[i].val = k, v
	c.pushFront(i)
	c.index[k] = i
	c.size++
	c.mu.Unlock()

	if evicted {
		c.evicts.Add(1)
		c.metrics.Evict()
		if cb := c.onEvict; cb != nil {
			cb(evictedK, evictedV)
		}
	} else {
		c.metrics.SizeDelta(1)
	}
	return true
}

// Get returns the value for k and promotes the entry to MRU on a hit.
// Promotion mutates the recency list, which is why Get takes the write lock;
// a read lock here would race concurrent Gets on the list links.
func (c *LRU[K, V]) Get(k K) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}
	c.mu.Lock()
	i, ok := c.index[k]
	if !ok {
		c.mu.Unlock()
		c.misses.Add(1)
		c.metrics.Miss()
		var zero V
		return zero, false
	}
	c.moveToFront(i)
	v := c.slots[i].val
	c.mu.Unlock()

	c.hits.Add(1)
	c.metrics.Hit()
	return v, true
}

// Peek returns the value for k without promoting it and without touching
// hit/miss statistics. Peek does not count as a use of the entry.
func (c *LRU[K, V]) Peek(k K) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i, ok := c.index[k]; ok {
		return c.slots[i].val, true
	}
	var zero V
	return zero, false
}

// Contains reports whether k is resident, without promoting it.
func (c *LRU[K, V]) Contains(k K) bool {
	if c.closed.Load() {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.index[k]
	return ok
}

// Remove deletes k if present and reports whether an entry was removed.
// Removing an absent key is a no-op. Explicit removal is not an eviction:
// OnEvict is not invoked and the eviction counter does not move.
func (c *LRU[K, V]) Remove(k K) bool {
	if c.closed.Load() {
		return false
	}
	c.mu.Lock()
	i, ok := c.index[k]
	if !ok {
		c.mu.Unlock()
		return false
	}
	c.deleteSlot(i)
	c.mu.Unlock()

	c.metrics.SizeDelta(-1)
	return true
}

// GetOldest returns the current LRU entry without promoting or removing it.
func (c *LRU[K, V]) GetOldest() (K, V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tail == noSlot {
		var (
			zeroK K
			zeroV V
		)
		return zeroK, zeroV, false
	}
	s := &c.slots[c.tail]
	return s.key, s.val, true
}

// RemoveOldest pops the current LRU entry and returns it. Like Remove, this
// is an explicit deletion: the pair goes to the caller, not to OnEvict.
func (c *LRU[K, V]) RemoveOldest() (K, V, bool) {
	if c.closed.Load() {
		var (
			zeroK K
			zeroV V
		)
		return zeroK, zeroV, false
	}
	c.mu.Lock()
	if c.tail == noSlot {
		c.mu.Unlock()
		var (
			zeroK K
			zeroV V
		)
		return zeroK, zeroV, false
	}
	k, v := c.deleteSlot(c.tail)
	c.mu.Unlock()

	c.metrics.SizeDelta(-1)
	return k, v, true
}

// Keys returns resident keys ordered least to most recently used.
func (c *LRU[K, V]) Keys() []K {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]K, 0, c.size)
	for i := c.tail; i != noSlot; i = c.slots[i].prev {
		keys = append(keys, c.slots[i].key)
	}
	return keys
}

// Values returns resident values ordered least to most recently used.
func (c *LRU[K, V]) Values() []V {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vals := make([]V, 0, c.size)
	for i := c.tail; i != noSlot; i = c.slots[i].prev {
		vals = append(vals, c.slots[i].val)
	}
	return vals
}

// Len returns the number of resident entries. It never exceeds the capacity
// given at construction.
func (c *LRU[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.size
}

// Purge drops every resident entry and reports each dropped pair to OnEvict
// (after the lock is released), oldest first.
func (c *LRU[K, V]) Purge() {
	if c.closed.Load() {
		return
	}
	type pair struct {
		k K
		v V
	}
	var dropped []pair

	c.mu.Lock()
	n := c.size
	if n == 0 {
		c.mu.Unlock()
		return
	}
	if c.onEvict != nil {
		dropped = make([]pair, 0, n)
		for i := c.tail; i != noSlot; i = c.slots[i].prev {
			dropped = append(dropped, pair{c.slots[i].key, c.slots[i].val})
		}
	}
	c.resetArena()
	c.mu.Unlock()

	c.metrics.SizeDelta(-n)
	for _, p := range dropped {
		c.onEvict(p.k, p.v)
	}
}

// Stats returns a snapshot of the cache counters.
func (c *LRU[K, V]) Stats() Stats {
	c.mu.RLock()
	n := c.size
	c.mu.RUnlock()
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evicts.Load(),
		Len:       n,
	}
}

// Close marks the cache closed: writes become no-ops and reads miss.
// Soft close, always returns nil.
func (c *LRU[K, V]) Close() error {
	c.closed.Store(true)
	return nil
}

// GetOrLoad returns the value for k; on miss it loads via Options.Loader,
// coalescing concurrent loads for the same key (singleflight). The loader
// runs with no cache lock held.
func (c *LRU[K, V]) GetOrLoad(ctx context.Context, k K) (V, error) {
	if c.closed.Load() {
		var zero V
		return zero, ErrClosed
	}
	// fast path
	if v, ok := c.Get(k); ok {
		return v, nil
	}
	if c.loader == nil {
		var zero V
		return zero, ErrNoLoader
	}
	return c.sf.Do(ctx, k, func() (V, error) {
		// double-check after flight join
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
