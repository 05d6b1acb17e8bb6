package memory

import (
	"sort"
	"sync"
)

// defaultCacheCapacity is the WorkingCache's target size (~100 hot records).
const defaultCacheCapacity = 100

// WorkingCache is a bounded in-process mapping from id to record, kept as a
// coherent mirror of the subset of the VectorStore most worth keeping hot.
// It never evicts on its own beyond the startup prune; callers are expected
// to keep it in lock-step with the backing VectorStore within the same
// per-id critical section (see shardedLocks in manager.go).
type WorkingCache struct {
	mu       sync.RWMutex
	records  map[string]*Record
	capacity int
}

// NewWorkingCache constructs an empty cache with the given target capacity.
// A capacity <= 0 uses the documented default of ~100.
func NewWorkingCache(capacity int) *WorkingCache {
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	return &WorkingCache{
		records:  make(map[string]*Record, capacity),
		capacity: capacity,
	}
}

// Put inserts or replaces the cached copy of record.
func (c *WorkingCache) Put(record *Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[record.ID] = record.Clone()
}

// Get returns a cloned copy of the cached record, or nil if absent.
func (c *WorkingCache) Get(id string) *Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.records[id]
	if !ok {
		return nil
	}
	return r.Clone()
}

// Remove evicts id from the cache, if present.
func (c *WorkingCache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, id)
}

// Len reports the number of records currently cached.
func (c *WorkingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// hydrationScore ranks records for startup pruning: accessCount divided by
// recency (now - lastAccessed), descending, per the component's documented
// seed ordering.
func hydrationScore(r *Record, now int64) float64 {
	age := float64(now - r.LastAccessed)
	if age <= 0 {
		age = 1
	}
	return float64(r.AccessCount) / age
}

// Hydrate seeds the cache from a full VectorStore listing, keeping only the
// top `capacity` records ranked by hydrationScore, per §4.C.
func (c *WorkingCache) Hydrate(all []*Record) {
	now := nowMillis()

	ranked := make([]*Record, len(all))
	copy(ranked, all)
	sort.Slice(ranked, func(i, j int) bool {
		return hydrationScore(ranked[i], now) > hydrationScore(ranked[j], now)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = make(map[string]*Record, c.capacity)
	for i, r := range ranked {
		if i >= c.capacity {
			break
		}
		c.records[r.ID] = r.Clone()
	}
}
