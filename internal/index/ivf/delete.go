package ivf

import (
	"context"

	"github.com/xDarkicex/corevdb/internal/coreerr"
	"github.com/xDarkicex/corevdb/internal/coreid"
)

// BatchDeleteResult reports per-id outcomes from BatchDelete.
type BatchDeleteResult struct {
	Deleted []coreid.VectorId
	Failed  map[coreid.VectorId]error
}

// MarkDeleted tombstones id in place; the entry stays in its cluster's
// inverted list until Vacuum runs.
func (idx *Index) MarkDeleted(id coreid.VectorId) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	clusterID, ok := idx.idIndex[id]
	if !ok {
		return coreerr.Newf(coreerr.NotFound, "id %s not found", id)
	}

	c := idx.clusters[clusterID]
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.ID == id {
			if e.Deleted {
				return nil
			}
			e.Deleted = true
			idx.activeCount--
			return nil
		}
	}
	return coreerr.Newf(coreerr.NotFound, "id %s not found", id)
}

// BatchDelete tombstones every id it can, recording a per-id error for
// any it could not.
func (idx *Index) BatchDelete(ids []coreid.VectorId) BatchDeleteResult {
	result := BatchDeleteResult{Failed: make(map[coreid.VectorId]error)}
	for _, id := range ids {
		if err := idx.MarkDeleted(id); err != nil {
			result.Failed[id] = err
			continue
		}
		result.Deleted = append(result.Deleted, id)
	}
	return result
}

// Vacuum physically drops every tombstoned entry from its cluster's
// inverted list. Centroids are left as-is: re-centering would require
// a retrain, which is out of scope for a vacuum pass.
func (idx *Index) Vacuum(ctx context.Context) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	removed := 0
	for _, c := range idx.clusters {
		select {
		case <-ctx.Done():
			return removed, coreerr.Wrap(coreerr.StorageError, ctx.Err(), "vacuum canceled")
		default:
		}

		c.mu.Lock()
		survivors := c.entries[:0]
		for _, e := range c.entries {
			if e.Deleted {
				removed++
				delete(idx.idIndex, e.ID)
				continue
			}
			survivors = append(survivors, e)
		}
		c.entries = survivors
		c.mu.Unlock()
	}

	idx.totalCount -= removed
	return removed, nil
}
