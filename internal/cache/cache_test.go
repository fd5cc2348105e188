package cache

import "testing"

func TestPutUpdatesExistingEntryWithoutGrowing(t *testing.T) {
	c := NewLRUCache[string, string](2)

	c.Put("alpha", "x")
	c.Put("beta", "value")
	c.Put("alpha", "y")

	if c.Len() != 2 {
		t.Fatalf("expected two entries, got %d", c.Len())
	}
	if v, ok := c.Get("alpha"); !ok || v != "y" {
		t.Fatalf("expected updated alpha, got %q (%v)", v, ok)
	}
	if v, ok := c.Get("beta"); !ok || v != "value" {
		t.Fatalf("expected beta to remain, got %q (%v)", v, ok)
	}
}

type previewKey struct {
	index, width int
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[previewKey, string](2)

	c.Put(previewKey{0, 80}, "a")
	c.Put(previewKey{1, 80}, "b")
	c.Get(previewKey{0, 80})
	c.Put(previewKey{2, 80}, "c")

	if _, ok := c.Get(previewKey{1, 80}); ok {
		t.Fatalf("expected the least recently used entry to be evicted")
	}
	if _, ok := c.Get(previewKey{0, 80}); !ok {
		t.Fatalf("expected the recently read entry to survive")
	}
	if c.Len() != 2 {
		t.Fatalf("expected two entries, got %d", c.Len())
	}
}

func TestSizeBelowOne(t *testing.T) {
	c := NewLRUCache[int, int](0)
	c.Put(1, 1)
	c.Put(2, 2)
	if c.Len() != 1 {
		t.Fatalf("expected a single entry, got %d", c.Len())
	}
}
