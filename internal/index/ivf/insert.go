package ivf

import (
	"context"

	"github.com/xDarkicex/corevdb/internal/coreerr"
	"github.com/xDarkicex/corevdb/internal/coreid"
)

// Insert assigns vector to its nearest cluster, compressing it if a
// fine quantizer is configured and trained.
func (idx *Index) Insert(ctx context.Context, id coreid.VectorId, vector []float32, chunkRef string) error {
	if len(vector) != idx.config.Dimension {
		return coreerr.Newf(coreerr.DimensionMismatch, "vector has %d dimensions, index expects %d", len(vector), idx.config.Dimension)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if !idx.trained {
		return coreerr.New(coreerr.NotTrained, "index must be trained before insertion")
	}
	if _, exists := idx.idIndex[id]; exists {
		return coreerr.Newf(coreerr.DuplicateId, "id %s already present", id)
	}

	clusterID := idx.assignCluster(vector)

	e := &entry{ID: id, ChunkRef: chunkRef}
	if idx.quantizer != nil && idx.quantizer.IsTrained() {
		compressed, err := idx.quantizer.Compress(vector)
		if err != nil {
			return coreerr.Wrap(coreerr.StorageError, err, "failed to compress vector")
		}
		e.Compressed = compressed
	} else {
		e.Vector = append([]float32(nil), vector...)
	}

	c := idx.clusters[clusterID]
	c.mu.Lock()
	c.entries = append(c.entries, e)
	c.mu.Unlock()

	idx.idIndex[id] = clusterID
	idx.activeCount++
	idx.totalCount++
	return nil
}
