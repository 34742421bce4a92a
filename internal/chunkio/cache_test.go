package chunkio

import (
	"testing"

	"github.com/xDarkicex/corevdb/internal/coreid"
)

func chunkOf(n int, dims int) DecodedChunk {
	c := make(DecodedChunk, n)
	for i := 0; i < n; i++ {
		var id coreid.VectorId
		id[0] = byte(i)
		id[1] = byte(i >> 8)
		v := make([]float32, dims)
		c[id] = v
	}
	return c
}

func TestCacheGetMiss(t *testing.T) {
	c := NewCache("test", 1)
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss on empty cache")
	}
	if c.Stats().Misses != 1 {
		t.Fatalf("expected 1 miss, got %d", c.Stats().Misses)
	}
}

func TestCachePutGet(t *testing.T) {
	c := NewCache("test", 1)
	chunk := chunkOf(4, 8)
	c.Put("chunk-0", chunk)

	got, ok := c.Get("chunk-0")
	if !ok {
		t.Fatal("expected hit after put")
	}
	if len(got) != len(chunk) {
		t.Fatalf("got %d entries, want %d", len(got), len(chunk))
	}
	if c.Stats().Hits != 1 {
		t.Fatalf("expected 1 hit, got %d", c.Stats().Hits)
	}
}

func TestCacheEvictsOverCapacity(t *testing.T) {
	// Each chunk holds 100 vectors of 256 float32 dims: 100*(32+1024) ~= 103KB.
	c := NewCache("test", 1) // 1MB capacity
	for i := 0; i < 20; i++ {
		chunk := chunkOf(100, 256)
		c.Put(chunkIDFor(i), chunk)
	}
	if c.Size() > 1*1024*1024 {
		t.Fatalf("cache size %d exceeds capacity", c.Size())
	}
	if c.Stats().Evictions == 0 {
		t.Fatal("expected at least one eviction once capacity was exceeded")
	}
}

func TestCacheClear(t *testing.T) {
	c := NewCache("test", 1)
	c.Put("chunk-0", chunkOf(2, 4))
	c.Clear()
	if c.Size() != 0 {
		t.Fatalf("expected size 0 after Clear, got %d", c.Size())
	}
	if _, ok := c.Get("chunk-0"); ok {
		t.Fatal("expected miss after Clear")
	}
}

func TestCacheEvictFreesRequestedBytes(t *testing.T) {
	c := NewCache("test", 64)
	c.Put("chunk-0", chunkOf(1000, 256))
	before := c.Size()
	freed := c.Evict(before / 2)
	if freed < before/2 {
		t.Fatalf("expected Evict to free at least %d bytes, freed %d", before/2, freed)
	}
}

func chunkIDFor(i int) string {
	return "chunk-" + string(rune('a'+i%26))
}
