package cache

import (
	"hash/fnv"
	"sync"
	"time"
)

const numShards = 16

// Sharded is a string-keyed map split across RW-locked shards. Every entry
// remembers when it was last written or read so idle entries can be swept.
type Sharded[V any] struct {
	shards [numShards]*shard[V]
}

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]entry[V]
}

type entry[V any] struct {
	value      V
	lastAccess time.Time
}

// NewSharded creates an empty cache.
func NewSharded[V any]() *Sharded[V] {
	c := &Sharded[V]{}
	for i := 0; i < numShards; i++ {
		c.shards[i] = &shard[V]{
			items: make(map[string]entry[V]),
		}
	}
	return c
}

// getShard returns the shard for the given key.
func (c *Sharded[V]) getShard(key string) *shard[V] {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%numShards]
}

// Set stores a value.
func (c *Sharded[V]) Set(key string, value V) {
	s := c.getShard(key)
	s.mu.Lock()
	s.items[key] = entry[V]{value: value, lastAccess: time.Now()}
	s.mu.Unlock()
}

// Get retrieves a value and refreshes its access time.
func (c *Sharded[V]) Get(key string) (V, bool) {
	s := c.getShard(key)
	s.mu.Lock()
	e, ok := s.items[key]
	if ok {
		e.lastAccess = time.Now()
		s.items[key] = e
	}
	s.mu.Unlock()
	return e.value, ok
}

// Peek retrieves a value without refreshing it.
func (c *Sharded[V]) Peek(key string) (V, time.Duration, bool) {
	s := c.getShard(key)
	s.mu.RLock()
	e, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		var zero V
		return zero, 0, false
	}
	return e.value, time.Since(e.lastAccess), true
}

// Delete removes a key. It reports whether the key was present.
func (c *Sharded[V]) Delete(key string) bool {
	s := c.getShard(key)
	s.mu.Lock()
	_, ok := s.items[key]
	delete(s.items, key)
	s.mu.Unlock()
	return ok
}

// Len returns total items across all shards.
func (c *Sharded[V]) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.RLock()
		total += len(s.items)
		s.mu.RUnlock()
	}
	return total
}

// Cleanup removes entries idle for longer than maxAge and returns how many
// were dropped.
func (c *Sharded[V]) Cleanup(maxAge time.Duration) int {
	removed := 0
	cutoff := time.Now().Add(-maxAge)

	for _, s := range c.shards {
		s.mu.Lock()
		for key, e := range s.items {
			if e.lastAccess.Before(cutoff) {
				delete(s.items, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// CacheStats provides cache statistics.
type CacheStats struct {
	TotalItems  int            `json:"total_items"`
	ShardCounts [numShards]int `json:"shard_counts"`
	OldestIdle  time.Duration  `json:"oldest_idle"`
}

// Stats returns cache statistics.
func (c *Sharded[V]) Stats() CacheStats {
	stats := CacheStats{}
	var oldest time.Time

	for i, s := range c.shards {
		s.mu.RLock()
		stats.ShardCounts[i] = len(s.items)
		stats.TotalItems += len(s.items)
		for _, e := range s.items {
			if oldest.IsZero() || e.lastAccess.Before(oldest) {
				oldest = e.lastAccess
			}
		}
		s.mu.RUnlock()
	}

	if !oldest.IsZero() {
		stats.OldestIdle = time.Since(oldest)
	}
	return stats
}
