package hybrid

import (
	"context"
	"testing"
	"time"

	"github.com/xDarkicex/corevdb/internal/coreid"
	"github.com/xDarkicex/corevdb/internal/index/hnsw"
	"github.com/xDarkicex/corevdb/internal/index/ivf"
	"github.com/xDarkicex/corevdb/internal/util"
)

func testConfig() *Config {
	return &Config{
		RecentThreshold:    time.Second,
		MinIVFTrainingSize: 3,
		HNSW: &hnsw.Config{
			Dimension:      2,
			M:              8,
			EfConstruction: 64,
			EfSearch:       32,
			ML:             1.0 / 2.0,
			Metric:         util.L2Distance,
			RandomSeed:     1,
		},
		IVF: &ivf.Config{
			Dimension:     2,
			NClusters:     2,
			NProbes:       2,
			Metric:        util.L2Distance,
			MaxIterations: 20,
			Tolerance:     1e-4,
			RandomSeed:    1,
		},
	}
}

func idFor(n byte) coreid.VectorId {
	var id coreid.VectorId
	id[0] = n
	return id
}

func trainingSet() [][]float32 {
	return [][]float32{
		{0, 0}, {0.1, 0}, {0, 0.1}, {10, 10}, {10.1, 10},
	}
}

func TestInsertBeforeTrainingAlwaysHNSW(t *testing.T) {
	idx, err := NewHybridIndex(testConfig())
	if err != nil {
		t.Fatalf("NewHybridIndex: %v", err)
	}
	ctx := context.Background()

	old := time.Now().Add(-10 * time.Second)
	if err := idx.Insert(ctx, idFor(1), []float32{0, 0}, old, ""); err != nil {
		t.Fatalf("insert: %v", err)
	}
	stats := idx.Stats()
	if stats.HNSWActive != 1 || stats.IVFActive != 0 {
		t.Fatalf("expected the pre-training insert to stay in HNSW regardless of age, got %+v", stats)
	}
}

func TestRoutingAfterTraining(t *testing.T) {
	idx, err := NewHybridIndex(testConfig())
	if err != nil {
		t.Fatalf("NewHybridIndex: %v", err)
	}
	ctx := context.Background()
	if err := idx.Initialize(ctx, trainingSet()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !idx.IVFTrained() {
		t.Fatal("expected Initialize to advance to Hybrid with enough samples")
	}

	now := time.Now()
	old := now.Add(-2 * time.Second)
	if err := idx.Insert(ctx, idFor(1), []float32{10, 10}, old, ""); err != nil {
		t.Fatalf("insert old: %v", err)
	}
	if err := idx.Insert(ctx, idFor(2), []float32{0, 0}, now, ""); err != nil {
		t.Fatalf("insert new: %v", err)
	}

	stats := idx.Stats()
	if stats.IVFActive < 1 {
		t.Fatalf("expected the aged vector to route to IVF, got %+v", stats)
	}
	if stats.HNSWActive < 1 {
		t.Fatalf("expected the fresh vector to route to HNSW, got %+v", stats)
	}
}

func TestInitializeIsOneWay(t *testing.T) {
	idx, _ := NewHybridIndex(testConfig())
	ctx := context.Background()
	if err := idx.Initialize(ctx, trainingSet()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := idx.Initialize(ctx, nil); err != nil {
		t.Fatalf("second Initialize should be a no-op success, got %v", err)
	}
	if !idx.IVFTrained() {
		t.Fatal("expected state to remain Hybrid after a second Initialize call")
	}
}

func TestDuplicateInsertRejected(t *testing.T) {
	idx, _ := NewHybridIndex(testConfig())
	ctx := context.Background()
	now := time.Now()
	if err := idx.Insert(ctx, idFor(1), []float32{0, 0}, now, ""); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := idx.Insert(ctx, idFor(1), []float32{1, 1}, now, ""); err == nil {
		t.Fatal("expected duplicate insert to fail")
	}
}

func TestSearchMergesBothSubIndexes(t *testing.T) {
	idx, _ := NewHybridIndex(testConfig())
	ctx := context.Background()
	if err := idx.Initialize(ctx, trainingSet()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	now := time.Now()
	old := now.Add(-2 * time.Second)
	if err := idx.Insert(ctx, idFor(1), []float32{10, 10}, old, ""); err != nil {
		t.Fatalf("insert old: %v", err)
	}
	if err := idx.Insert(ctx, idFor(2), []float32{0, 0}, now, ""); err != nil {
		t.Fatalf("insert new: %v", err)
	}

	results, err := idx.Search(ctx, []float32{0, 0}, 2, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 merged results across both sub-indexes, got %d", len(results))
	}
	if results[0].ID != idFor(2) {
		t.Fatalf("expected the nearer vector first, got %+v", results)
	}
}

func TestSearchEfOverrideWidensCandidateSet(t *testing.T) {
	idx, _ := NewHybridIndex(testConfig())
	ctx := context.Background()
	now := time.Now()
	for i := byte(1); i <= 5; i++ {
		if err := idx.Insert(ctx, idFor(i), []float32{float32(i), 0}, now, ""); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	results, err := idx.Search(ctx, []float32{0, 0}, 3, 1)
	if err != nil {
		t.Fatalf("search with ef=1: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected a non-empty result even with a narrow ef override")
	}

	wide, err := idx.Search(ctx, []float32{0, 0}, 3, 50)
	if err != nil {
		t.Fatalf("search with wide ef: %v", err)
	}
	if len(wide) != 3 {
		t.Fatalf("expected ef=50 to return the full requested k=3, got %d", len(wide))
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	idx, _ := NewHybridIndex(testConfig())
	ctx := context.Background()
	now := time.Now()
	if err := idx.Insert(ctx, idFor(1), []float32{0, 0}, now, ""); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := idx.Delete(idFor(1)); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := idx.Delete(idFor(1)); err != nil {
		t.Fatalf("second delete on an already-tombstoned id should succeed, got %v", err)
	}
}

// An id inserted before Initialize trained the index is forced into
// HNSW regardless of its timestamp's age (§4.3). Once training
// completes, that same old timestamp makes Delete's routed guess land
// on IVF first -- but the vector never migrated, so it must fall back
// to HNSW instead of returning NotFound.
func TestDeleteFallsBackWhenRoutedGuessMisses(t *testing.T) {
	idx, _ := NewHybridIndex(testConfig())
	ctx := context.Background()

	old := time.Now().Add(-2 * time.Second)
	if err := idx.Insert(ctx, idFor(1), []float32{10, 10}, old, ""); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if stats := idx.Stats(); stats.HNSWActive == 0 {
		t.Fatalf("expected the pre-training insert to be HNSW-resident, got %+v", stats)
	}

	if err := idx.Initialize(ctx, trainingSet()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	// The vector has not been migrated by MigrateAged, so it is still
	// physically in HNSW even though its age now routes delete's guess
	// to IVF.
	if stats := idx.Stats(); stats.HNSWActive == 0 {
		t.Fatalf("expected the unmigrated vector to remain HNSW-resident after training, got %+v", stats)
	}

	if err := idx.Delete(idFor(1)); err != nil {
		t.Fatalf("expected delete to fall back to HNSW, got %v", err)
	}
	stats := idx.Stats()
	if stats.HNSWDeleted == 0 {
		t.Fatalf("expected the fallback delete to tombstone the HNSW-resident vector, got %+v", stats)
	}
}

func TestMigrateAgedMovesVectorsToIVF(t *testing.T) {
	idx, _ := NewHybridIndex(testConfig())
	ctx := context.Background()

	// Insert before training completes: routing is forced to HNSW
	// regardless of the timestamp's age while the index is HNSWOnly.
	old := time.Now().Add(-2 * time.Second)
	if err := idx.Insert(ctx, idFor(9), []float32{10, 10}, old, ""); err != nil {
		t.Fatalf("insert: %v", err)
	}
	before := idx.Stats()
	if before.HNSWActive == 0 {
		t.Fatal("expected the aged vector inserted before training completed to still be HNSW-resident")
	}

	if err := idx.Initialize(ctx, trainingSet()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	result, err := idx.MigrateAged(ctx)
	if err != nil {
		t.Fatalf("MigrateAged: %v", err)
	}
	if result.Migrated == 0 {
		t.Fatalf("expected at least one migration, got %+v", result)
	}

	after := idx.Stats()
	if after.IVFActive == 0 {
		t.Fatal("expected migrated vector to be IVF-resident")
	}
}

func TestExportImportSnapshotsRoundTrip(t *testing.T) {
	idx, _ := NewHybridIndex(testConfig())
	ctx := context.Background()
	if err := idx.Initialize(ctx, trainingSet()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	now := time.Now()
	if err := idx.Insert(ctx, idFor(1), []float32{0, 0}, now, "chunk-0"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	hnswSnap, ivfSnap, trained := idx.ExportSnapshots()

	restored, err := NewHybridIndex(testConfig())
	if err != nil {
		t.Fatalf("NewHybridIndex: %v", err)
	}
	if err := restored.ImportSnapshots(hnswSnap, ivfSnap, trained); err != nil {
		t.Fatalf("ImportSnapshots: %v", err)
	}
	if restored.ActiveCount() != idx.ActiveCount() {
		t.Fatalf("expected ActiveCount to survive round-trip: got %d, want %d", restored.ActiveCount(), idx.ActiveCount())
	}
	if !restored.IVFTrained() {
		t.Fatal("expected trained state to survive round-trip")
	}
}
