package cache

import (
	"context"
	"errors"
)

var (
	// ErrInvalidCapacity is returned by New/NewSharded when Options.Capacity
	// is outside [1, math.MaxInt32]. A non-positive capacity is rejected
	// rather than clamped: silently shrinking to 1 hides caller bugs.
	ErrInvalidCapacity = errors.New("cache: capacity must be in [1, MaxInt32]")

	// ErrNoLoader is returned by GetOrLoad when no Loader was configured.
	ErrNoLoader = errors.New("cache: no Loader provided")

	// ErrClosed is returned by GetOrLoad after Close. Plain operations on a
	// closed cache degrade to no-ops/misses instead of erroring.
	ErrClosed = errors.New("cache: closed")
)

// Cache is an in-memory key/value cache with LRU eviction.
// All methods are safe for concurrent use by multiple goroutines.
//
// Typical complexity is amortized O(1): a map lookup plus constant-time
// adjustments to the recency list under a lock.
type Cache[K comparable, V any] interface {
	// Add inserts k→v only if k is not present.
	// Returns false if the key already exists (no update, no promotion).
	Add(k K, v V) bool

	// Set inserts or updates k→v and promotes the entry to most recently
	// used. Inserting into a full cache evicts the least recently used
	// entry; updating an existing key never evicts.
	Set(k K, v V)

	// Get returns the value for k and a presence flag.
	// A hit promotes the entry to most recently used.
	Get(k K) (V, bool)

	// Peek returns the value for k without promoting it.
	// Peek does not count toward hit/miss statistics.
	Peek(k K) (V, bool)

	// Contains reports whether k is present, without promoting it.
	Contains(k K) bool

	// Remove deletes k if present and reports whether an entry was removed.
	// Removing an absent key is a no-op.
	Remove(k K) bool

	// Keys returns resident keys ordered least to most recently used.
	// For a sharded cache the order holds per shard only.
	Keys() []K

	// Len returns the number of resident entries. It never exceeds the
	// configured capacity.
	Len() int

	// Purge drops every resident entry. Options.OnEvict is invoked for each
	// dropped pair.
	Purge()

	// Stats returns a snapshot of hit/miss/eviction counters and Len.
	Stats() Stats

	// Close marks the cache closed. Subsequent writes are ignored and reads
	// miss. Close is a soft close and always returns nil.
	Close() error

	// GetOrLoad returns the value for k, loading it via Options.Loader on
	// miss. Concurrent loads for the same key are coalesced (singleflight).
	// Returns ErrNoLoader if no Loader was configured, ErrClosed after Close.
	GetOrLoad(ctx context.Context, k K) (V, error)
}

// Compile-time checks: both engines satisfy the interface.
var (
	_ Cache[string, int] = (*LRU[string, int])(nil)
	_ Cache[string, int] = (*Sharded[string, int])(nil)
)
