package cache

import "fmt"

// checkInvariants verifies that the index and the recency list describe the
// same set of entries and that arena accounting adds up. A non-nil result is
// an implementation defect, never a runtime condition; this exists for tests
// and is not called on any production path.
func (c *LRU[K, V]) checkInvariants() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.size > c.cap {
		return fmt.Errorf("size %d exceeds capacity %d", c.size, c.cap)
	}
	if len(c.index) != c.size {
		return fmt.Errorf("index holds %d keys, size is %d", len(c.index), c.size)
	}

	// Walk MRU->LRU: links must be symmetric and every node's key must map
	// back to exactly its own slot (bijection).
	seen := 0
	prev := noSlot
	for i := c.head; i != noSlot; i = c.slots[i].next {
		if c.slots[i].prev != prev {
			return fmt.Errorf("slot %d: prev link is %d, want %d", i, c.slots[i].prev, prev)
		}
		j, ok := c.index[c.slots[i].key]
		if !ok {
			return fmt.Errorf("slot %d: key missing from index", i)
		}
		if j != i {
			return fmt.Errorf("slot %d: index maps its key to slot %d", i, j)
		}
		prev = i
		seen++
		if seen > c.size {
			return fmt.Errorf("recency list longer than size %d", c.size)
		}
	}
	if seen != c.size {
		return fmt.Errorf("recency list holds %d entries, size is %d", seen, c.size)
	}
	if c.tail != prev {
		return fmt.Errorf("tail is %d, last list node is %d", c.tail, prev)
	}

	// Every slot not resident must be on the free list exactly once.
	nfree := 0
	for i := c.free; i != noSlot; i = c.slots[i].next {
		nfree++
		if nfree > c.cap {
			return fmt.Errorf("free list longer than capacity %d", c.cap)
		}
	}
	if nfree != c.cap-c.size {
		return fmt.Errorf("free list holds %d slots, want %d", nfree, c.cap-c.size)
	}
	return nil
}
