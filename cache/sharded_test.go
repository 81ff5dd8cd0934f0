package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

func mustNewSharded[K comparable, V any](t *testing.T, opt Options[K, V]) *Sharded[K, V] {
	t.Helper()
	c, err := NewSharded(opt)
	if err != nil {
		t.Fatalf("NewSharded: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// With Shards:1 the sharded wrapper behaves exactly like a single engine, so
// LRU ordering is global and deterministic.
func TestSharded_SingleShardEviction(t *testing.T) {
	t.Parallel()

	c := mustNewSharded(t, Options[string, int]{Capacity: 2, Shards: 1})

	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok { // promote a
		t.Fatal("expect hit for a")
	}
	c.Set("c", 3) // evicts b

	if _, ok := c.Get("b"); ok {
		t.Fatal("b must be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a must survive (promoted)")
	}
}

// Shard counts round up to a power of two and capacity splits evenly.
func TestSharded_ShardSizing(t *testing.T) {
	t.Parallel()

	c := mustNewSharded(t, Options[int, int]{Capacity: 100, Shards: 6})
	if got := len(c.shards); got != 8 {
		t.Fatalf("shards = %d, want 8 (rounded up)", got)
	}
	for i, s := range c.shards {
		if s.cap != 13 { // ceil(100/8)
			t.Fatalf("shard %d capacity = %d, want 13", i, s.cap)
		}
	}
}

// Every written key lands in exactly one shard and stays retrievable; Len and
// Stats aggregate across shards.
func TestSharded_SpreadAndAggregation(t *testing.T) {
	t.Parallel()

	const n = 1000
	c := mustNewSharded(t, Options[string, int]{Capacity: 2 * n, Shards: 16})

	for i := 0; i < n; i++ {
		c.Set("k:"+strconv.Itoa(i), i)
	}
	if got := c.Len(); got != n {
		t.Fatalf("Len = %d, want %d", got, n)
	}
	for i := 0; i < n; i++ {
		if v, ok := c.Get("k:" + strconv.Itoa(i)); !ok || v != i {
			t.Fatalf("k:%d = %v ok=%v", i, v, ok)
		}
	}

	c.Get("nope")
	st := c.Stats()
	if st.Hits != n || st.Misses != 1 || st.Len != n {
		t.Fatalf("Stats = %+v", st)
	}

	if got := len(c.Keys()); got != n {
		t.Fatalf("Keys lists %d, want %d", got, n)
	}

	c.Purge()
	if got := c.Len(); got != 0 {
		t.Fatalf("Len after Purge = %d", got)
	}
	for _, s := range c.shards {
		if err := s.checkInvariants(); err != nil {
			t.Fatal(err)
		}
	}
}

// Per-shard invariants hold after a concurrent mixed workload.
func TestSharded_ConcurrentInvariants(t *testing.T) {
	c := mustNewSharded(t, Options[string, int]{Capacity: 512, Shards: 8})

	var g errgroup.Group
	for w := 0; w < 8; w++ {
		id := w
		g.Go(func() error {
			for i := 0; i < 5_000; i++ {
				k := "w" + strconv.Itoa(id) + ":" + strconv.Itoa(i%300)
				switch i % 5 {
				case 0:
					c.Remove(k)
				case 1:
					c.Add(k, i)
				default:
					c.Set(k, i)
					c.Get(k)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	total := 0
	for _, s := range c.shards {
		if err := s.checkInvariants(); err != nil {
			t.Fatal(err)
		}
		total += s.Len()
	}
	if got := c.Len(); got != total || got > 8*c.shards[0].cap {
		t.Fatalf("Len = %d, per-shard sum = %d", got, total)
	}
}

// GetOrLoad without a configured Loader fails fast.
func TestGetOrLoad_NoLoader(t *testing.T) {
	t.Parallel()

	c := mustNew(t, Options[string, string]{Capacity: 4})
	if _, err := c.GetOrLoad(context.Background(), "k"); !errors.Is(err, ErrNoLoader) {
		t.Fatalf("want ErrNoLoader, got %v", err)
	}
}

// Concurrent GetOrLoad calls for one key run the loader exactly once;
// subsequent calls are pure cache hits.
func TestGetOrLoad_Singleflight(t *testing.T) {
	var calls int64

	c := mustNew(t, Options[string, string]{
		Capacity: 64,
		Loader: func(_ context.Context, k string) (string, error) {
			atomic.AddInt64(&calls, 1)
			time.Sleep(5 * time.Millisecond) // simulate I/O
			return "v:" + k, nil
		},
	})

	const n = 64
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			v, err := c.GetOrLoad(ctx, "k")
			if err != nil {
				return err
			}
			if v != "v:k" {
				return fmt.Errorf("got %q", v)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("loader must run exactly once, got %d", got)
	}
	if v, err := c.GetOrLoad(context.Background(), "k"); err != nil || v != "v:k" {
		t.Fatalf("second GetOrLoad failed: v=%q err=%v", v, err)
	}
}

// Loader errors propagate to every waiter and nothing is cached.
func TestGetOrLoad_LoaderError(t *testing.T) {
	t.Parallel()

	boom := errors.New("backend down")
	c := mustNew(t, Options[string, string]{
		Capacity: 4,
		Loader: func(context.Context, string) (string, error) {
			return "", boom
		},
	})

	if _, err := c.GetOrLoad(context.Background(), "k"); !errors.Is(err, boom) {
		t.Fatalf("want loader error, got %v", err)
	}
	if c.Contains("k") {
		t.Fatal("failed load must not be cached")
	}
}

// Sharded GetOrLoad coalesces across the whole cache, one load per key.
func TestSharded_GetOrLoad(t *testing.T) {
	var calls int64

	c := mustNewSharded(t, Options[string, string]{
		Capacity: 1024,
		Shards:   8,
		Loader: func(_ context.Context, k string) (string, error) {
			atomic.AddInt64(&calls, 1)
			time.Sleep(2 * time.Millisecond)
			return "v:" + k, nil
		},
	})

	const goroutines = 100
	key := "same-key"
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := c.GetOrLoad(context.Background(), key)
			if err != nil {
				t.Errorf("GetOrLoad: %v", err)
				return
			}
			if v != "v:"+key {
				t.Errorf("unexpected value %q", v)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := atomic.LoadInt64(&calls); got > 1 {
		t.Fatalf("loader should run at most once, got %d", got)
	}
}
