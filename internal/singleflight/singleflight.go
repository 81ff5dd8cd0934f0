// Package singleflight coalesces concurrent function calls per key so that
// the underlying work runs at most once while callers share the result.
package singleflight

import (
	"context"
	"sync"
)

// Group deduplicates concurrent calls keyed by K. The first caller for a key
// becomes the leader and executes fn; later callers for the same key block
// until the leader publishes its result.
//
// Memory ordering: (val, err) are written before close(done), so any reader
// that returns from <-done observes the final values.
type Group[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*call[V]
}

type call[V any] struct {
	done chan struct{} // closed once val/err are published
	val  V
	err  error
}

// Do runs fn at most once for concurrent calls sharing key. Followers whose
// ctx is cancelled return ctx.Err() without affecting the leader; cancelling
// the actual work requires fn itself to honor ctx.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func() (V, error)) (V, error) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[K]*call[V])
	}
	if c, ok := g.m[key]; ok {
		// Follower: wait for the leader, respecting ctx.
		done := c.done
		g.mu.Unlock()
		select {
		case <-done:
			return c.val, c.err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}
	c := &call[V]{done: make(chan struct{})}
	g.m[key] = c
	g.mu.Unlock()

	// Leader: run fn outside the lock, publish, wake followers.
	c.val, c.err = fn()
	close(c.done)

	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()

	return c.val, c.err
}
