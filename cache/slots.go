package cache

// noSlot marks the absence of a slot handle (empty list ends, free-list end).
const noSlot = int32(-1)

// slot is one arena cell. Recency order is threaded through prev/next slot
// indices instead of pointers: handles stay valid for the cache lifetime and
// entries never allocate after construction. head = MRU, tail = LRU.
// Free slots are chained through next only.
type slot[K comparable, V any] struct {
	key  K
	val  V
	prev int32
	next int32
}

// All list/arena helpers below require c.mu to be held for writing.

// pushFront links slot i in at MRU.
func (c *LRU[K, V]) pushFront(i int32) {
	s := &c.slots[i]
	s.prev = noSlot
	s.next = c.head
	if c.head != noSlot {
		c.slots[c.head].prev = i
	}
	c.head = i
	if c.tail == noSlot {
		c.tail = i
	}
}

// unlink detaches slot i from the recency list.
func (c *LRU[K, V]) unlink(i int32) {
	s := &c.slots[i]
	if s.prev != noSlot {
		c.slots[s.prev].next = s.next
	} else {
		c.head = s.next
	}
	if s.next != noSlot {
		c.slots[s.next].prev = s.prev
	} else {
		c.tail = s.prev
	}
	s.prev, s.next = noSlot, noSlot
}

// moveToFront promotes slot i to MRU.
func (c *LRU[K, V]) moveToFront(i int32) {
	if i == c.head {
		return
	}
	c.unlink(i)
	c.pushFront(i)
}

// allocSlot pops a handle off the free list. The caller must guarantee a free
// slot exists (size < cap, or an eviction just freed one).
func (c *LRU[K, V]) allocSlot() int32 {
	i := c.free
	c.free = c.slots[i].next
	c.slots[i].next = noSlot
	return i
}

// freeSlot zeroes slot i and pushes it onto the free list. Zeroing matters:
// a retired slot must not pin the old key/value for the GC.
func (c *LRU[K, V]) freeSlot(i int32) {
	var (
		zeroK K
		zeroV V
	)
	s := &c.slots[i]
	s.key, s.val = zeroK, zeroV
	s.prev = noSlot
	s.next = c.free
	c.free = i
}

// deleteSlot unlinks slot i, drops its index entry, recycles the slot, and
// returns the evicted pair.
func (c *LRU[K, V]) deleteSlot(i int32) (K, V) {
	k, v := c.slots[i].key, c.slots[i].val
	c.unlink(i)
	delete(c.index, k)
	c.freeSlot(i)
	c.size--
	return k, v
}

// resetArena restores the empty state: no resident entries, every slot on the
// free list in ascending order.
func (c *LRU[K, V]) resetArena() {
	clear(c.index)
	var (
		zeroK K
		zeroV V
	)
	for i := range c.slots {
		c.slots[i].key, c.slots[i].val = zeroK, zeroV
		c.slots[i].prev = noSlot
		c.slots[i].next = int32(i + 1)
	}
	c.slots[len(c.slots)-1].next = noSlot
	c.free = 0
	c.head, c.tail = noSlot, noSlot
	c.size = 0
}
