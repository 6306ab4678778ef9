package lrucache

import (
	"math/rand"
	"testing"
)

// BenchmarkLRU_RandomPromote benchmarks random cache hits, the buffer pool hot path
func BenchmarkLRU_RandomPromote(b *testing.B) {
	cache := New[uint32, int](1000)

	for i := range 1000 {
		cache.Put(uint32(i), i)
	}

	keys := make([]uint32, b.N)
	for i := 0; i < b.N; i++ {
		keys[i] = uint32(rand.Intn(1000))
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		cache.GetAndPromote(keys[i])
	}
}

// BenchmarkLRU_PutEvict benchmarks a miss followed by victim removal
func BenchmarkLRU_PutEvict(b *testing.B) {
	cache := New[uint32, int](100)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		cache.Put(uint32(i), i)
		if key, _, ok := cache.Victim(nil); ok {
			cache.Remove(key)
		}
	}
}
