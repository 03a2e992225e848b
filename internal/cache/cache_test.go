package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestGetMissing(t *testing.T) {
	c := New[string, int](4)
	if _, ok := c.Get("absent"); ok {
		t.Fatal("expected miss for absent key")
	}
}

func TestSetGet(t *testing.T) {
	c := New[string, int](4)
	c.Set("a", 1, time.Minute)

	got, ok := c.Get("a")
	if !ok {
		t.Fatal("expected hit")
	}
	if got != 1 {
		t.Fatalf("got %d, want 1", got)
	}
}

func TestCapacityNeverExceeded(t *testing.T) {
	const capacity = 8
	c := New[string, int](capacity)

	for i := 0; i < 100; i++ {
		c.Set(fmt.Sprintf("key-%d", i), i, time.Minute)
		if c.Len() > capacity {
			t.Fatalf("cache holds %d entries, capacity %d", c.Len(), capacity)
		}
	}
	if c.Len() != capacity {
		t.Fatalf("got %d entries, want %d", c.Len(), capacity)
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string, int](2)
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	// Touch "a" so "b" becomes the eviction candidate.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected hit for a")
	}
	c.Set("c", 3, time.Minute)

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to survive")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("expected c to be present")
	}
}

func TestExpiredEntryNeverReturned(t *testing.T) {
	now := time.Now()
	c := New[string, int](4)
	c.Now = func() time.Time { return now }

	c.Set("a", 1, 30*time.Second)

	now = now.Add(31 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected expired entry to be treated as absent")
	}
	if c.Len() != 0 {
		t.Fatalf("expected lazy eviction, still holding %d entries", c.Len())
	}
}

func TestGetStaleReturnsExpiredValue(t *testing.T) {
	now := time.Now()
	c := New[string, int](4)
	c.Now = func() time.Time { return now }

	c.Set("a", 1, 30*time.Second)
	now = now.Add(time.Minute)

	got, ok, fresh := c.GetStale("a")
	if !ok {
		t.Fatal("expected stale hit")
	}
	if fresh {
		t.Fatal("expected entry to be reported stale")
	}
	if got != 1 {
		t.Fatalf("got %d, want 1", got)
	}
}

func TestInvalidateAndClear(t *testing.T) {
	c := New[string, int](4)
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	c.Invalidate("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected a to be gone after invalidate")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after clear, got %d", c.Len())
	}
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	now := time.Now()
	c := New[string, int](8)
	c.Now = func() time.Time { return now }

	c.Set("short", 1, 10*time.Second)
	c.Set("long", 2, time.Hour)

	now = now.Add(time.Minute)
	if removed := c.Sweep(); removed != 1 {
		t.Fatalf("swept %d entries, want 1", removed)
	}
	if _, ok := c.Get("long"); !ok {
		t.Fatal("expected long-lived entry to survive sweep")
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int, int](32)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.Set(base*1000+j, j, time.Minute)
				c.Get(base*1000 + j)
				c.Invalidate(base*1000 + j - 1)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 32 {
		t.Fatalf("capacity exceeded under concurrency: %d", c.Len())
	}
}
