package cache

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultShards = 32

// shardedMap spreads keys over independently locked shards so that
// operations on different keys never contend on one mutex.
type shardedMap[V any] struct {
	shards []*shard[V]
}

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

func newShardedMap[V any](n int) *shardedMap[V] {
	if n <= 0 {
		n = defaultShards
	}
	m := &shardedMap[V]{shards: make([]*shard[V], n)}
	for i := range m.shards {
		m.shards[i] = &shard[V]{items: make(map[string]V)}
	}
	return m
}

func (m *shardedMap[V]) shardFor(key string) *shard[V] {
	return m.shards[xxhash.Sum64String(key)%uint64(len(m.shards))]
}

func (m *shardedMap[V]) get(key string) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// view runs fn under the key's read lock.
func (m *shardedMap[V]) view(key string, fn func(items map[string]V)) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.items)
}

// update runs fn under the key's write lock. Everything fn does to the map is
// atomic with respect to other operations on the same key.
func (m *shardedMap[V]) update(key string, fn func(items map[string]V)) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.items)
}

// rangeAll visits every entry, one shard at a time.
func (m *shardedMap[V]) rangeAll(fn func(key string, v V)) {
	for _, s := range m.shards {
		s.mu.RLock()
		for k, v := range s.items {
			fn(k, v)
		}
		s.mu.RUnlock()
	}
}

func (m *shardedMap[V]) len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}
