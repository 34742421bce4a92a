// Package chunkio implements the bounded LRU chunk cache and the
// chunk loader that fetches, decrypts, and decodes chunk payloads from
// the blob store on demand (§4.5).
package chunkio

import (
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/xDarkicex/corevdb/internal/coreid"
)

// DecodedChunk is one chunk's decoded vector payload.
type DecodedChunk map[coreid.VectorId][]float32

// Cache is a bounded LRU of decoded chunks keyed by chunk id. Capacity
// is expressed in megabytes; eviction removes least-recently-accessed
// chunks until the estimated resident size is back under the bound.
// Wraps hashicorp/golang-lru rather than hand-rolling list bookkeeping.
type Cache struct {
	name      string
	capacity  int64 // bytes
	mu        sync.Mutex
	size      int64
	lru       *lru.Cache[string, DecodedChunk]
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewCache builds a chunk cache bounded by capacityMB megabytes. The
// underlying LRU is sized generously on entry count (entries are
// evicted by the wrapper's own byte accounting in onEvict, not by the
// LRU's own entry-count limit) so capacityMB is the real bound.
func NewCache(name string, capacityMB int64) *Cache {
	c := &Cache{name: name, capacity: capacityMB * 1024 * 1024}
	// A very large entry-count ceiling: real eviction is byte-driven via
	// onEvict below, this just prevents the underlying structure from
	// growing unbounded between our own compaction passes.
	inner, _ := lru.NewWithEvict[string, DecodedChunk](1<<20, c.onEvict)
	c.lru = inner
	return c
}

func (c *Cache) onEvict(_ string, chunk DecodedChunk) {
	c.size -= chunkBytes(chunk)
	c.evictions.Add(1)
}

func chunkBytes(chunk DecodedChunk) int64 {
	// coreid.Size bytes of key plus 4 bytes per float32 dimension.
	var total int64
	for _, v := range chunk {
		total += int64(coreid.Size) + int64(len(v)*4)
	}
	return total
}

// Get returns the decoded chunk for chunkID if resident, marking it
// most-recently-used.
func (c *Cache) Get(chunkID string) (DecodedChunk, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	chunk, ok := c.lru.Get(chunkID)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return chunk, ok
}

// Put inserts or replaces chunkID's decoded payload and evicts
// least-recently-used entries until the cache is back under capacity.
func (c *Cache) Put(chunkID string, chunk DecodedChunk) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.lru.Peek(chunkID); ok {
		c.size -= chunkBytes(old)
	}
	c.size += chunkBytes(chunk)
	c.lru.Add(chunkID, chunk)

	for c.size > c.capacity && c.lru.Len() > 0 {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
	}
}

// Name returns the cache identifier (satisfies memory.Cache).
func (c *Cache) Name() string { return c.name }

// Size returns the current estimated resident size in bytes (satisfies
// memory.Cache).
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Clear removes every cached chunk (satisfies memory.Cache).
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	c.size = 0
}

// Evict frees at least the requested number of bytes, reporting how
// much was actually freed (satisfies memory.Cache, invoked by the
// memory manager under pressure).
func (c *Cache) Evict(bytes int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := c.size
	target := start - bytes
	for c.size > target && c.lru.Len() > 0 {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
	}
	return start - c.size
}

// Stats reports cumulative hit/miss/eviction counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// Stats returns a snapshot of the cache's cumulative counters.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Evictions: c.evictions.Load()}
}
