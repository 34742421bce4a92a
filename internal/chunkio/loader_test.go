package chunkio

import (
	"context"
	"testing"

	"github.com/xDarkicex/corevdb/internal/coreid"
	"github.com/xDarkicex/corevdb/internal/persist"
)

func TestLoaderFetchesDecodesAndCaches(t *testing.T) {
	store := persist.NewMemoryBlobStore()
	var key [32]byte
	copy(key[:], []byte("0123456789abcdef0123456789abcdef"))

	var id coreid.VectorId
	id[0] = 7
	vectors := map[coreid.VectorId][]float32{id: {1, 2, 3}}
	data, err := persist.EncodeChunk(vectors, key, false)
	if err != nil {
		t.Fatalf("EncodeChunk: %v", err)
	}
	ctx := context.Background()
	if err := store.Put(ctx, persist.ChunkPath("prefix", 0), data, false); err != nil {
		t.Fatalf("Put: %v", err)
	}

	cache := NewCache("test", 16)
	loader := NewLoader(store, cache, key, "prefix")

	chunk, err := loader.Load(ctx, "chunk-0")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v, ok := chunk[id]; !ok || v[0] != 1 {
		t.Fatalf("unexpected chunk contents: %+v", chunk)
	}

	if _, ok := cache.Get("chunk-0"); !ok {
		t.Fatal("expected Load to populate the cache")
	}
}

func TestLoaderMissingChunkFails(t *testing.T) {
	store := persist.NewMemoryBlobStore()
	cache := NewCache("test", 16)
	loader := NewLoader(store, cache, [32]byte{}, "prefix")

	if _, err := loader.Load(context.Background(), "chunk-0"); err == nil {
		t.Fatal("expected error loading a chunk absent from the store")
	}
}
