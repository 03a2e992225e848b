// Package cache provides a concurrency-safe mapping with per-entry TTL
// and least-recently-used eviction at a fixed capacity. Entries are
// disposable: the store remains the source of truth and the cache may
// be cleared at any time.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[K comparable, V any] struct {
	key        K
	value      V
	insertedAt time.Time
	ttl        time.Duration
}

// Cache is a bounded LRU map with per-entry expiry.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[K]*list.Element

	// Now is the clock used for expiry checks, replaceable in tests.
	Now func() time.Time
}

// New creates a cache holding at most capacity entries.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache[K, V]{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[K]*list.Element),
		Now:      time.Now,
	}
}

// Get returns the value for key unless it is absent or expired. Expired
// entries are evicted lazily here.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	ent := elem.Value.(*entry[K, V])
	if c.expired(ent) {
		c.remove(elem)
		var zero V
		return zero, false
	}
	c.order.MoveToBack(elem)
	return ent.value, true
}

// GetStale returns the value for key even when its TTL has elapsed.
// Used for degraded reads when the store is unavailable; the second
// return reports whether the entry was still fresh.
func (c *Cache[K, V]) GetStale(key K) (V, bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false, false
	}
	ent := elem.Value.(*entry[K, V])
	c.order.MoveToBack(elem)
	return ent.value, true, !c.expired(ent)
}

// Set inserts or replaces the value for key. When the cache is at
// capacity the least-recently-used entry is evicted first.
func (c *Cache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*entry[K, V])
		ent.value = value
		ent.insertedAt = c.Now()
		ent.ttl = ttl
		c.order.MoveToBack(elem)
		return
	}

	if c.order.Len() >= c.capacity {
		if oldest := c.order.Front(); oldest != nil {
			c.remove(oldest)
		}
	}

	elem := c.order.PushBack(&entry[K, V]{
		key:        key,
		value:      value,
		insertedAt: c.Now(),
		ttl:        ttl,
	})
	c.items[key] = elem
}

// Invalidate drops the entry for key if present.
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
}

// Clear drops every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.items = make(map[K]*list.Element)
}

// Sweep evicts all expired entries and returns how many were removed.
func (c *Cache[K, V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if c.expired(elem.Value.(*entry[K, V])) {
			c.remove(elem)
			removed++
		}
		elem = next
	}
	return removed
}

// Len returns the number of entries currently held, expired included.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache[K, V]) expired(ent *entry[K, V]) bool {
	return ent.ttl > 0 && c.Now().Sub(ent.insertedAt) > ent.ttl
}

func (c *Cache[K, V]) remove(elem *list.Element) {
	ent := elem.Value.(*entry[K, V])
	delete(c.items, ent.key)
	c.order.Remove(elem)
}
