package cache

import (
	"strings"
	"testing"
)

// Fuzz basic Set/Get/Remove semantics under arbitrary string inputs.
// Guards against panics and checks the structural invariants after each
// phase. Key/value lengths are capped to keep fuzzing memory bounded; the
// cap does not weaken the invariants being checked.
func FuzzLRU_SetGetRemove(f *testing.F) {
	f.Add("", "")
	f.Add("a", "1")
	f.Add("b", "2")
	f.Add("αβγ", "δ")
	f.Add("emoji🙂", "🙂🙂")
	f.Add("long", strings.Repeat("x", 1024))

	f.Fuzz(func(t *testing.T, k, v string) {
		const limit = 1 << 12
		if len(k) > limit {
			k = k[:limit]
		}
		if len(v) > limit {
			v = v[:limit]
		}

		c, err := New(Options[string, string]{Capacity: 16})
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = c.Close() })

		// Set -> Get must return the same value.
		c.Set(k, v)
		got, ok := c.Get(k)
		if !ok || got != v {
			t.Fatalf("after Set/Get: want %q, got %q ok=%v", v, got, ok)
		}

		// Add on a resident key must not overwrite.
		if c.Add(k, "other") {
			t.Fatal("Add duplicate returned true")
		}
		if got2, ok := c.Get(k); !ok || got2 != v {
			t.Fatalf("after duplicate Add: want %q, got %q ok=%v", v, got2, ok)
		}

		// Remove deletes exactly once.
		if !c.Remove(k) {
			t.Fatal("Remove must return true")
		}
		if c.Remove(k) {
			t.Fatal("second Remove must be a no-op")
		}
		if _, ok := c.Get(k); ok {
			t.Fatal("key must be absent after Remove")
		}

		// After removal, Add succeeds again.
		if !c.Add(k, v) {
			t.Fatal("Add after Remove must return true")
		}

		if err := c.checkInvariants(); err != nil {
			t.Fatal(err)
		}
	})
}
