package ivf

import (
	"context"
	"testing"

	"github.com/xDarkicex/corevdb/internal/coreerr"
	"github.com/xDarkicex/corevdb/internal/coreid"
	"github.com/xDarkicex/corevdb/internal/util"
)

func testConfig() *Config {
	return &Config{
		Dimension:     2,
		NClusters:     4,
		NProbes:       2,
		Metric:        util.L2Distance,
		MaxIterations: 20,
		Tolerance:     1e-4,
		RandomSeed:    7,
	}
}

func idFor(n byte) coreid.VectorId {
	var id coreid.VectorId
	id[0] = n
	return id
}

func trainingSet() [][]float32 {
	return [][]float32{
		{0, 0}, {0.1, 0}, {0, 0.1},
		{10, 10}, {10.1, 10}, {10, 10.1},
		{-10, 10}, {-10.1, 10}, {-10, 10.1},
		{10, -10}, {10.1, -10}, {10, -10.1},
	}
}

func TestInsertBeforeTrainRejected(t *testing.T) {
	idx, err := NewIVF(testConfig())
	if err != nil {
		t.Fatalf("NewIVF: %v", err)
	}
	err = idx.Insert(context.Background(), idFor(1), []float32{0, 0}, "")
	if !coreerr.Is(err, coreerr.NotTrained) {
		t.Fatalf("expected NotTrained, got %v", err)
	}
}

func TestTrainInsertSearch(t *testing.T) {
	idx, err := NewIVF(testConfig())
	if err != nil {
		t.Fatalf("NewIVF: %v", err)
	}
	ctx := context.Background()
	if err := idx.Train(ctx, trainingSet()); err != nil {
		t.Fatalf("train: %v", err)
	}
	if !idx.IsTrained() {
		t.Fatal("expected trained")
	}

	for i, v := range trainingSet() {
		if err := idx.Insert(ctx, idFor(byte(i)), v, ""); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	results, err := idx.Search(ctx, []float32{10, 10}, 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
}

func TestMarkDeletedExcludesFromSearch(t *testing.T) {
	idx, _ := NewIVF(testConfig())
	ctx := context.Background()
	set := trainingSet()
	if err := idx.Train(ctx, set); err != nil {
		t.Fatalf("train: %v", err)
	}
	for i, v := range set {
		if err := idx.Insert(ctx, idFor(byte(i)), v, ""); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	target := idFor(3) // {10, 10}
	if err := idx.MarkDeleted(target); err != nil {
		t.Fatalf("mark deleted: %v", err)
	}
	if idx.ActiveCount() != len(set)-1 {
		t.Fatalf("expected %d active, got %d", len(set)-1, idx.ActiveCount())
	}

	results, err := idx.Search(ctx, []float32{10, 10}, len(set))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, r := range results {
		if r.ID == target {
			t.Fatal("tombstoned entry must not appear in search results")
		}
	}
}

func TestVacuumRemovesTombstones(t *testing.T) {
	idx, _ := NewIVF(testConfig())
	ctx := context.Background()
	set := trainingSet()
	if err := idx.Train(ctx, set); err != nil {
		t.Fatalf("train: %v", err)
	}
	for i, v := range set {
		if err := idx.Insert(ctx, idFor(byte(i)), v, ""); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	if err := idx.MarkDeleted(idFor(0)); err != nil {
		t.Fatalf("mark deleted: %v", err)
	}
	if err := idx.MarkDeleted(idFor(1)); err != nil {
		t.Fatalf("mark deleted: %v", err)
	}

	removed, err := idx.Vacuum(ctx)
	if err != nil {
		t.Fatalf("vacuum: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if idx.Size() != len(set)-2 {
		t.Fatalf("expected %d remaining, got %d", len(set)-2, idx.Size())
	}
}

func TestExportImportSnapshotRoundTrip(t *testing.T) {
	idx, _ := NewIVF(testConfig())
	ctx := context.Background()
	set := trainingSet()
	if err := idx.Train(ctx, set); err != nil {
		t.Fatalf("train: %v", err)
	}
	for i, v := range set {
		if err := idx.Insert(ctx, idFor(byte(i)), v, "chunk-ref"); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	snap := idx.ExportSnapshot()

	restored, err := NewIVF(testConfig())
	if err != nil {
		t.Fatalf("NewIVF: %v", err)
	}
	if err := restored.ImportSnapshot(snap); err != nil {
		t.Fatalf("import: %v", err)
	}
	if restored.Size() != len(set) {
		t.Fatalf("expected %d entries after import, got %d", len(set), restored.Size())
	}
	if !restored.IsTrained() {
		t.Fatal("expected restored index to report trained")
	}
}

func TestBatchDeletePartialFailure(t *testing.T) {
	idx, _ := NewIVF(testConfig())
	ctx := context.Background()
	set := trainingSet()[:4]
	if err := idx.Train(ctx, trainingSet()); err != nil {
		t.Fatalf("train: %v", err)
	}
	for i, v := range set {
		if err := idx.Insert(ctx, idFor(byte(i)), v, ""); err != nil {
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
