package lrucache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type mockValue struct {
	data string
}

// TestLRUCache_HitAndMiss tests basic cache hit and miss behavior
func TestLRUCache_HitAndMiss(t *testing.T) {
	t.Parallel()

	cache := New[string, mockValue](10)

	// Cache miss
	value, ok := cache.Get("bogus")
	assert.False(t, ok)
	assert.Equal(t, mockValue{}, value)

	// Add to cache
	aValue := mockValue{"foo"}
	cache.Put("foo key", aValue)

	// Cache hit
	value, ok = cache.Get("foo key")
	assert.True(t, ok)
	assert.Equal(t, aValue, value)

	// Different key is a cache miss
	_, ok = cache.Get("bar key")
	assert.False(t, ok)
}

func TestLRUCache_PutReplacesValue(t *testing.T) {
	t.Parallel()

	cache := New[int, mockValue](2)
	cache.Put(1, mockValue{"one"})
	cache.Put(1, mockValue{"uno"})

	value, ok := cache.Get(1)
	assert.True(t, ok)
	assert.Equal(t, mockValue{"uno"}, value)
	assert.Equal(t, 1, cache.Len())
}

// TestLRUCache_Victim tests that the victim is only reported once the cache
// grows past its maximum size and that it is the least recently used entry.
func TestLRUCache_Victim(t *testing.T) {
	t.Parallel()

	cache := New[string, mockValue](3)

	cache.Put("foo key", mockValue{"foo"})
	cache.Put("bar key", mockValue{"bar"})
	cache.Put("baz key", mockValue{"baz"})

	_, _, ok := cache.Victim(nil)
	assert.False(t, ok, "no victim while at capacity")

	cache.Put("qux key", mockValue{"qux"})
	assert.Len(t, cache.entries, 4, "Put never evicts on its own")

	key, value, ok := cache.Victim(nil)
	assert.True(t, ok)
	assert.Equal(t, "foo key", key)
	assert.Equal(t, mockValue{"foo"}, value)

	assert.True(t, cache.Remove(key))
	assert.False(t, cache.Remove(key))
	assert.Equal(t, []string{"qux key", "baz key", "bar key"}, cache.Keys())
}

// TestLRUCache_LRUOrdering tests that promoting items updates their LRU order
func TestLRUCache_LRUOrdering(t *testing.T) {
	t.Parallel()

	cache := New[string, mockValue](3)

	// LRU order: foo -> bar -> baz
	cache.Put("foo key", mockValue{"foo"})
	cache.Put("bar key", mockValue{"bar"})
	cache.Put("baz key", mockValue{"baz"})

	// Plain Get does not promote
	_, ok := cache.Get("foo key")
	assert.True(t, ok)
	assert.Equal(t, []string{"baz key", "bar key", "foo key"}, cache.Keys())

	// LRU order: bar -> baz -> foo
	_, ok = cache.GetAndPromote("foo key")
	assert.True(t, ok)

	cache.Put("qux key", mockValue{"qux"})

	key, _, ok := cache.Victim(nil)
	assert.True(t, ok)
	assert.Equal(t, "bar key", key, "bar key should be the LRU entry")
}

func TestLRUCache_VictimSkipsRejected(t *testing.T) {
	t.Parallel()

	cache := New[int, bool](2)
	cache.Put(1, true) // pinned
	cache.Put(2, false)
	cache.Put(3, false)

	key, _, ok := cache.Victim(func(_ int, pinned bool) bool { return !pinned })
	assert.True(t, ok)
	assert.Equal(t, 2, key)

	_, _, ok = cache.Victim(func(int, bool) bool { return false })
	assert.False(t, ok)
}

func TestLRUCache_Clear(t *testing.T) {
	t.Parallel()

	cache := New[int, mockValue](2)
	cache.Put(1, mockValue{"one"})
	cache.Put(2, mockValue{"two"})
	cache.Clear()

	assert.Equal(t, 0, cache.Len())
	assert.Empty(t, cache.Keys())

	cache.Put(3, mockValue{"three"})
	assert.Equal(t, []int{3}, cache.Keys())
}

// TestLRUCache_Concurrent tests thread safety of the cache
func TestLRUCache_Concurrent(t *testing.T) {
	t.Parallel()

	var (
		cache = New[string, mockValue](100)
		wg    sync.WaitGroup
	)

	// Concurrent writes
	for i := range 50 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("foo%d", n)
			cache.Put(key, mockValue{fmt.Sprintf("value%d", n)})
		}(i)
	}

	// Concurrent reads
	for i := range 50 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("foo%d", n)
			cache.GetAndPromote(key)
		}(i)
	}

	wg.Wait()

	for i := range 50 {
		key := fmt.Sprintf("foo%d", i)
		_, ok := cache.Get(key)
		assert.True(t, ok, "key %s should be in cache", key)
	}
}
