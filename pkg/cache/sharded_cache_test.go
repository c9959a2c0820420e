package cache

import (
	"strconv"
	"sync"
	"testing"
	"time"
)

func TestShardedSetGetDelete(t *testing.T) {
	c := NewSharded[int]()
	c.Set("a", 1)
	c.Set("b", 2)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a)=%d,%v", v, ok)
	}
	if c.Len() != 2 {
		t.Fatalf("Len=%d, expected 2", c.Len())
	}
	if !c.Delete("a") {
		t.Fatalf("Delete(a) reported missing")
	}
	if c.Delete("a") {
		t.Fatalf("second Delete(a) reported present")
	}
	if _, ok := c.Get("a"); ok {
		t.Fatalf("a still present after delete")
	}
}

func TestShardedCleanupDropsIdleEntries(t *testing.T) {
	c := NewSharded[string]()
	c.Set("old", "x")
	time.Sleep(20 * time.Millisecond)
	c.Set("fresh", "y")

	if removed := c.Cleanup(10 * time.Millisecond); removed != 1 {
		t.Fatalf("removed=%d, expected 1", removed)
	}
	if _, _, ok := c.Peek("old"); ok {
		t.Fatalf("idle entry survived cleanup")
	}
	if _, _, ok := c.Peek("fresh"); !ok {
		t.Fatalf("fresh entry removed")
	}
}

func TestShardedGetRefreshesAccess(t *testing.T) {
	c := NewSharded[int]()
	c.Set("k", 1)
	time.Sleep(20 * time.Millisecond)
	c.Get("k")
	if removed := c.Cleanup(10 * time.Millisecond); removed != 0 {
		t.Fatalf("recently read entry was swept")
	}
}

func TestShardedConcurrentAccess(t *testing.T) {
	c := NewSharded[int]()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := strconv.Itoa(w*1000 + i)
				c.Set(key, i)
				c.Get(key)
			}
		}(w)
	}
	wg.Wait()

	if c.Len() != 1600 {
		t.Fatalf("Len=%d, expected 1600", c.Len())
	}
	stats := c.Stats()
	sum := 0
	for _, n := range stats.ShardCounts {
		sum += n
	}
	if sum != stats.TotalItems || sum != 1600 {
		t.Fatalf("shard counts %v do not add up to %d", stats.ShardCounts, stats.TotalItems)
	}
}
