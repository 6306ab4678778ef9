package lrucache

import (
	"sync"
)

type cacheEntry[K comparable, V any] struct {
	value V
	prev  *cacheEntry[K, V]
	next  *cacheEntry[K, V]
	key   K
}

// Cache keeps values in recency order, most recently used at the head.
// It never drops entries on its own: Put may leave the cache over capacity
// and the owner decides what to do with the Victim before calling Remove.
type Cache[K comparable, V any] struct {
	entries map[K]*cacheEntry[K, V]
	head    *cacheEntry[K, V]
	tail    *cacheEntry[K, V]
	maxSize int
	mu      sync.RWMutex
}

func New[K comparable, V any](maxSize int) *Cache[K, V] {
	return &Cache[K, V]{
		entries: make(map[K]*cacheEntry[K, V], maxSize),
		maxSize: maxSize,
	}
}

// Get returns a value without touching its recency.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// GetAndPromote returns a value and marks it as most recently used.
func (c *Cache[K, V]) GetAndPromote(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(entry)
	return entry.value, true
}

// Put inserts or replaces a value and makes it the most recently used entry.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		entry.value = value
		c.moveToFront(entry)
		return
	}

	entry := &cacheEntry[K, V]{
		value: value,
		key:   key,
	}
	c.entries[key] = entry
	c.addToFront(entry)
}

// Remove drops an entry, returns false if it was not cached.
func (c *Cache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return false
	}
	c.unlink(entry)
	delete(c.entries, key)
	return true
}

// Victim walks from the least recently used entry towards the head and
// returns the first entry accepted by canEvict. It only reports a victim
// while the cache holds more than maxSize entries. Nothing is removed.
func (c *Cache[K, V]) Victim(canEvict func(K, V) bool) (K, V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.entries) <= c.maxSize {
		var (
			zeroK K
			zeroV V
		)
		return zeroK, zeroV, false
	}

	for entry := c.tail; entry != nil; entry = entry.prev {
		if canEvict == nil || canEvict(entry.key, entry.value) {
			return entry.key, entry.value, true
		}
	}

	var (
		zeroK K
		zeroV V
	)
	return zeroK, zeroV, false
}

// Keys returns cached keys ordered from most to least recently used.
func (c *Cache[K, V]) Keys() []K {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]K, 0, len(c.entries))
	for entry := c.head; entry != nil; entry = entry.next {
		keys = append(keys, entry.key)
	}
	return keys
}

func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache[K, V]) MaxSize() int {
	return c.maxSize
}

func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*cacheEntry[K, V], c.maxSize)
	c.head = nil
	c.tail = nil
}

func (c *Cache[K, V]) moveToFront(entry *cacheEntry[K, V]) {
	if entry == c.head {
		return
	}
	c.unlink(entry)
	c.addToFront(entry)
}

func (c *Cache[K, V]) unlink(entry *cacheEntry[K, V]) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		c.head = entry.next
	}
	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		c.tail = entry.prev
	}
	entry.prev = nil
	entry.next = nil
}

func (c *Cache[K, V]) addToFront(entry *cacheEntry[K, V]) {
	entry.next = c.head
	entry.prev = nil

	if c.head != nil {
		c.head.prev = entry
	}
	c.head = entry

	if c.tail == nil {
		c.tail = entry
	}
}
