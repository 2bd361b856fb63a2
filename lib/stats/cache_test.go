package stats

import (
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(ttl time.Duration) (*Cache[int], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewCache[int](ttl)
	c.now = clock.now
	return c, clock
}

// TestCacheTTL tests that values expire after the TTL
func TestCacheTTL(t *testing.T) {
	c, clock := newTestCache(10 * time.Second)

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Expected cached value 1, got %v ok=%v", v, ok)
	}

	clock.advance(9 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Error("Value should still be valid before the TTL")
	}

	clock.advance(time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("Value should be expired at the TTL")
	}
}

// TestGetOrCompute tests the cached flag and that errors are not cached
func TestGetOrCompute(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	calls := 0
	compute := func() (int, error) {
		calls++
		return calls, nil
	}

	v, cached, err := c.GetOrCompute("k", compute)
	if err != nil || cached || v != 1 {
		t.Fatalf("First call: v=%d cached=%v err=%v", v, cached, err)
	}
	v, cached, _ = c.GetOrCompute("k", compute)
	if !cached || v != 1 {
		t.Errorf("Second call should be cached: v=%d cached=%v", v, cached)
	}

	clock.advance(time.Minute)
	v, cached, _ = c.GetOrCompute("k", compute)
	if cached || v != 2 {
		t.Errorf("Call after expiry should recompute: v=%d cached=%v", v, cached)
	}

	boom := errors.New("boom")
	if _, _, err := c.GetOrCompute("e", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Errorf("Expected compute error, got %v", err)
	}
	if _, ok := c.Get("e"); ok {
		t.Error("Errors must not be cached")
	}
}

// TestEvictOldestFirst tests eviction order and rescheduling
func TestEvictOldestFirst(t *testing.T) {
	c, clock := newTestCache(10 * time.Second)

	c.Set("a", 1)
	clock.advance(2 * time.Second)
	c.Set("b", 2)
	clock.advance(2 * time.Second)
	c.Set("c", 3)
	// refreshing a moves it behind c
	c.Set("a", 4)

	clock.advance(7 * time.Second) // t=11s
	if n := c.Evict(); n != 0 {
		t.Errorf("Expected nothing to evict at 11s, evicted %d", n)
	}

	clock.advance(time.Second) // t=12s: b expires
	if n := c.Evict(); n != 1 {
		t.Errorf("Expected 1 eviction at 12s, got %d", n)
	}
	if _, ok := c.Get("b"); ok {
		t.Error("b should be evicted")
	}

	clock.advance(2 * time.Second) // t=14s: a and c expire
	if n := c.Evict(); n != 2 {
		t.Errorf("Expected 2 evictions at 14s, got %d", n)
	}
	if c.Len() != 0 {
		t.Errorf("Cache should be empty, has %d entries", c.Len())
	}
}

// TestExpiryHeapOrder tests the map-heap directly
func TestExpiryHeapOrder(t *testing.T) {
	h := newExpiryHeap()
	base := time.Unix(0, 0)

	h.schedule("x", base.Add(3*time.Second))
	h.schedule("y", base.Add(1*time.Second))
	h.schedule("z", base.Add(2*time.Second))
	h.schedule("y", base.Add(5*time.Second))

	if !h.remove("z") || h.remove("z") {
		t.Error("remove should succeed exactly once")
	}

	got := h.popExpired(base.Add(10 * time.Second))
	if len(got) != 2 || got[0] != "x" || got[1] != "y" {
		t.Errorf("popExpired = %v, want [x y]", got)
	}
	if h.Len() != 0 {
		t.Errorf("Heap should be empty, has %d items", h.Len())
	}
}
