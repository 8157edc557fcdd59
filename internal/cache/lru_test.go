package cache

import (
	"testing"
	"time"
)

func TestGetSetRoundTrip(t *testing.T) {
	c := NewLRUCache[string](4, time.Minute)

	c.Set("a", "alpha")
	got, ok := c.Get("a")
	if !ok || got != "alpha" {
		t.Errorf("Get(a) = %q, %v; want alpha, true", got, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) reported a hit")
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now most recently used
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive eviction")
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestExpiredEntryMisses(t *testing.T) {
	c := NewLRUCache[int](4, time.Millisecond)

	c.Set("a", 1)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Error("expected expired entry to miss")
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d after expired read, want 0", c.Size())
	}
}

func TestSetOverwritesExistingKey(t *testing.T) {
	c := NewLRUCache[int](4, time.Minute)

	c.Set("a", 1)
	c.Set("a", 2)

	got, _ := c.Get("a")
	if got != 2 {
		t.Errorf("Get(a) = %d, want 2", got)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestClearEmptiesCache(t *testing.T) {
	c := NewLRUCache[int](4, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	if c.Size() != 0 {
		t.Errorf("Size() = %d after Clear, want 0", c.Size())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("Get(a) hit after Clear")
	}
}

func TestCleanExpired(t *testing.T) {
	c := NewLRUCache[int](8, 2*time.Millisecond)

	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(10 * time.Millisecond)
	c.Set("c", 3)

	removed := c.CleanExpired()
	if removed != 2 {
		t.Errorf("CleanExpired() = %d, want 2", removed)
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected fresh entry to survive cleanup")
	}
}
