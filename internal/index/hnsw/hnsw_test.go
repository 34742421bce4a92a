package hnsw

import (
	"context"
	"testing"

	"github.com/xDarkicex/corevdb/internal/coreerr"
	"github.com/xDarkicex/corevdb/internal/coreid"
	"github.com/xDarkicex/corevdb/internal/util"
)

func testConfig(dim int) *Config {
	return &Config{
		Dimension:      dim,
		M:              8,
		EfConstruction: 64,
		EfSearch:       32,
		ML:             1.0 / 2.0,
		Metric:         util.L2Distance,
		RandomSeed:     42,
	}
}

func idFor(n byte) coreid.VectorId {
	var id coreid.VectorId
	id[0] = n
	return id
}

func TestInsertAndSearchFindsExactMatch(t *testing.T) {
	idx, err := NewHNSW(testConfig(3))
	if err != nil {
		t.Fatalf("NewHNSW: %v", err)
	}
	ctx := context.Background()

	vectors := map[byte][]float32{
		1: {1, 0, 0},
		2: {0, 1, 0},
		3: {0, 0, 1},
		4: {10, 10, 10},
	}
	for n, v := range vectors {
		if err := idx.Insert(ctx, idFor(n), v, ""); err != nil {
			t.Fatalf("insert %d: %v", n, err)
		}
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 1, 16)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].ID != idFor(1) {
		t.Fatalf("expected exact match for id 1, got %+v", results)
	}
}

func TestInsertDuplicateIdRejected(t *testing.T) {
	idx, _ := NewHNSW(testConfig(2))
	ctx := context.Background()
	id := idFor(1)
	if err := idx.Insert(ctx, id, []float32{1, 1}, ""); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := idx.Insert(ctx, id, []float32{2, 2}, "")
	if !coreerr.Is(err, coreerr.DuplicateId) {
		t.Fatalf("expected DuplicateId, got %v", err)
	}
}

func TestInsertDimensionMismatchRejected(t *testing.T) {
	idx, _ := NewHNSW(testConfig(4))
	err := idx.Insert(context.Background(), idFor(1), []float32{1, 2, 3}, "")
	if !coreerr.Is(err, coreerr.DimensionMismatch) {
		t.Fatalf("expected DimensionMismatch, got %v", err)
	}
}

func TestMarkDeletedExcludesFromSearchButKeepsGraphConnected(t *testing.T) {
	idx, _ := NewHNSW(testConfig(2))
	ctx := context.Background()
	pts := [][2]float32{{0, 0}, {1, 0}, {2, 0}, {3, 0}, {4, 0}}
	for i, p := range pts {
		if err := idx.Insert(ctx, idFor(byte(i)), p[:], ""); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	if err := idx.MarkDeleted(idFor(2)); err != nil {
		t.Fatalf("mark deleted: %v", err)
	}
	if idx.ActiveCount() != 4 {
		t.Fatalf("expected 4 active, got %d", idx.ActiveCount())
	}
	if idx.Size() != 5 {
		t.Fatalf("expected 5 total nodes (tombstone retained), got %d", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{2, 0}, 5, 16)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, r := range results {
		if r.ID == idFor(2) {
			t.Fatal("tombstoned node must not appear in search results")
		}
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 live results, got %d", len(results))
	}
}

func TestVacuumRemovesTombstonesAndPreservesActiveSearch(t *testing.T) {
	idx, _ := NewHNSW(testConfig(2))
	ctx := context.Background()
	pts := [][2]float32{{0, 0}, {1, 0}, {2, 0}, {3, 0}, {4, 0}}
	for i, p := range pts {
		if err := idx.Insert(ctx, idFor(byte(i)), p[:], ""); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	if err := idx.MarkDeleted(idFor(1)); err != nil {
		t.Fatalf("mark deleted: %v", err)
	}
	if err := idx.MarkDeleted(idFor(3)); err != nil {
		t.Fatalf("mark deleted: %v", err)
	}

	removed, err := idx.Vacuum(ctx)
	if err != nil {
		t.Fatalf("vacuum: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if idx.Size() != 3 {
		t.Fatalf("expected 3 remaining nodes, got %d", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{2, 0}, 3, 16)
	if err != nil {
		t.Fatalf("search after vacuum: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results after vacuum, got %d", len(results))
	}
}

func TestBatchDeletePartialFailure(t *testing.T) {
	idx, _ := NewHNSW(testConfig(2))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := idx.Insert(ctx, idFor(byte(i)), []float32{float32(i), 0}, ""); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	result := idx.BatchDelete([]coreid.VectorId{idFor(0), idFor(99), idFor(1)})
	if len(result.Deleted) != 2 {
		t.Fatalf("expected 2 deleted, got %d", len(result.Deleted))
	}
	if _, ok := result.Failed[idFor(99)]; !ok {
		t.Fatal("expected failure recorded for unknown id")
	}
}

func TestExportImportSnapshotRoundTrip(t *testing.T) {
	idx, _ := NewHNSW(testConfig(2))
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := idx.Insert(ctx, idFor(byte(i)), []float32{float32(i), 0}, "chunk-ref"); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	snap := idx.ExportSnapshot()

	restored, err := NewHNSW(testConfig(2))
	if err != nil {
		t.Fatalf("NewHNSW: %v", err)
	}
	if err := restored.ImportSnapshot(snap); err != nil {
		t.Fatalf("import: %v", err)
	}

	pending := restored.PendingVectorLoads()
	if len(pending) != 5 {
		t.Fatalf("expected 5 pending vector loads, got %d", len(pending))
	}

	for id, ref := range pending {
		_ = ref
		vec := []float32{0, 0}
		if err := restored.LoadVector(id, vec); err != nil {
			t.Fatalf("load vector: %v", err)
		}
	}
	if len(restored.PendingVectorLoads()) != 0 {
		t.Fatal("expected no pending loads after hydration")
	}
}

func TestSearchOnEmptyIndexReturnsNoResults(t *testing.T) {
	idx, _ := NewHNSW(testConfig(2))
	results, err := idx.Search(context.Background(), []float32{0, 0}, 5, 16)
	if err != nil {
		t.Fatalf("search on empty index should not error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}
