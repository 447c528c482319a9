package container

import (
	"sync"
)

// ShardCount is the number of shards in a ShardedMap.
// Must be a power of 2 for fast modulo via bitwise AND.
const ShardCount = 16

const shardMask = ShardCount - 1

// Hasher computes a hash for a key, used for shard selection.
type Hasher[K any] func(K) uint64

// Uint64Hasher returns the key itself as the hash (identity hash).
func Uint64Hasher(u uint64) uint64 { return u }

// HandleHasher mixes a pointer-sized handle value so that allocator-aligned
// handles spread across shards. SplitMix64 finalizer.
func HandleHasher(h uintptr) uint64 {
	x := uint64(h)
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// ShardedMap is a thread-safe associative container with per-shard locking.
// Operations on keys that hash to different shards never contend on the
// same lock. Amortized O(1) insert, lookup and delete; no ordering
// guarantee.
type ShardedMap[K comparable, V any] struct {
	shards [ShardCount]mapShard[K, V]
	hasher Hasher[K]
}

type mapShard[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// NewShardedMap creates an empty map using hasher for shard selection.
func NewShardedMap[K comparable, V any](hasher Hasher[K]) *ShardedMap[K, V] {
	m := &ShardedMap[K, V]{hasher: hasher}
	for i := range m.shards {
		m.shards[i].entries = make(map[K]V)
	}
	return m
}

func (m *ShardedMap[K, V]) shard(key K) *mapShard[K, V] {
	return &m.shards[m.hasher(key)&shardMask]
}

// Insert stores value under key if the key is absent. It reports whether
// the value was stored; false means the key is already present and the map
// is unchanged.
func (m *ShardedMap[K, V]) Insert(key K, value V) bool {
	s := m.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; exists {
		return false
	}
	s.entries[key] = value
	return true
}

// Get retrieves the value stored under key.
func (m *ShardedMap[K, V]) Get(key K) (V, bool) {
	s := m.shard(key)
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.entries[key]
	return v, ok
}

// Delete removes key and returns the value that was stored under it.
func (m *ShardedMap[K, V]) Delete(key K) (V, bool) {
	s := m.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	delete(s.entries, key)
	return v, true
}

// Len returns the total number of entries across all shards.
func (m *ShardedMap[K, V]) Len() int {
	total := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		total += len(s.entries)
		s.mu.RUnlock()
	}
	return total
}

// Each calls fn for every entry until fn returns false. The walk holds one
// shard read lock at a time, so entries inserted or deleted concurrently in
// other shards may or may not be observed.
func (m *ShardedMap[K, V]) Each(fn func(K, V) bool) {
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		for k, v := range s.entries {
			if !fn(k, v) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// Clear removes all entries.
func (m *ShardedMap[K, V]) Clear() {
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		s.entries = make(map[K]V)
		s.mu.Unlock()
	}
}
