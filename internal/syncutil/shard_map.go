// Package syncutil provides concurrency-safe containers.
package syncutil

import (
	"hash/fnv"
	"iter"
	"maps"
	"sync"
)

// ShardMap is a thread-safe string-keyed map that uses sharding to reduce lock contention.
type ShardMap[K ~string, V any] struct {
	shards     []*shard[K, V]
	shardCount uint32
}

type shard[K ~string, V any] struct {
	sync.RWMutex
	items map[K]V
}

type ShardsNum uint

const defShardsNum ShardsNum = 32

// NewShardMap creates a new [ShardMap].
// If num is zero, the default number of shards (32) is used.
func NewShardMap[K ~string, V any](num ShardsNum) *ShardMap[K, V] {
	if num == 0 {
		num = defShardsNum
	}

	shards := make([]*shard[K, V], num)
	for i := range shards {
		shards[i] = &shard[K, V]{
			items: make(map[K]V),
		}
	}

	return &ShardMap[K, V]{
		shards:     shards,
		shardCount: uint32(num),
	}
}

func (m *ShardMap[K, V]) getShard(key K) *shard[K, V] {
	hash := fnv.New32a()
	hash.Write([]byte(key)) //nolint:errcheck
	return m.shards[hash.Sum32()%m.shardCount]
}

// Set adds or updates a key-value pair.
func (m *ShardMap[K, V]) Set(key K, value V) {
	shard := m.getShard(key)
	shard.Lock()
	shard.items[key] = value
	shard.Unlock()
}

// Get retrieves a value by key.
func (m *ShardMap[K, V]) Get(key K) (V, bool) {
	if m == nil {
		var zero V
		return zero, false
	}

	shard := m.getShard(key)
	shard.RLock()
	defer shard.RUnlock()
	val, ok := shard.items[key]
	return val, ok
}

// Del removes a key-value pair by key and returns the removed value.
func (m *ShardMap[K, V]) Del(key K) (V, bool) {
	shard := m.getShard(key)
	shard.Lock()
	val, ok := shard.items[key]
	if ok {
		delete(shard.items, key)
	}
	shard.Unlock()
	return val, ok
}

// Has checks if a key exists.
func (m *ShardMap[K, V]) Has(key K) bool {
	if m == nil {
		return false
	}

	shard := m.getShard(key)
	shard.RLock()
	_, ok := shard.items[key]
	shard.RUnlock()
	return ok
}

// Size returns the total number of items in the map.
func (m *ShardMap[K, V]) Size() int {
	if m == nil {
		return 0
	}

	size := 0
	for _, shard := range m.shards {
		shard.RLock()
		size += len(shard.items)
		shard.RUnlock()
	}
	return size
}

// Clear removes all items from the map.
func (m *ShardMap[K, V]) Clear() {
	for _, shard := range m.shards {
		shard.Lock()
		clear(shard.items)
		shard.Unlock()
	}
}

// Snapshot returns a copy of all items taken while every shard is read-locked,
// so the result reflects a single point in time.
func (m *ShardMap[K, V]) Snapshot() map[K]V {
	if m == nil {
		return nil
	}

	for _, shard := range m.shards {
		shard.RLock()
	}
	size := 0
	for _, shard := range m.shards {
		size += len(shard.items)
	}
	items := make(map[K]V, size)
	for _, shard := range m.shards {
		maps.Copy(items, shard.items)
	}
	for i := len(m.shards) - 1; i >= 0; i-- {
		m.shards[i].RUnlock()
	}
	return items
}

// Items returns an iterator over a point-in-time snapshot of the map.
// Writers are not blocked while the caller consumes the iterator.
func (m *ShardMap[K, V]) Items() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for k, v := range m.Snapshot() {
			if !yield(k, v) {
				return
			}
		}
	}
}
