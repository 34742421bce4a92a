package hybrid

import (
	"context"
	"time"

	"github.com/xDarkicex/corevdb/internal/coreerr"
	"github.com/xDarkicex/corevdb/internal/coreid"
)

// MigrateAgedResult reports how many vectors moved from HNSW to IVF in
// one MigrateAged call.
type MigrateAgedResult struct {
	Migrated int
	Skipped  int
}

// MigrateAged moves every HNSW-resident vector whose age has crossed
// RecentThreshold into IVF (§4.3). Before the IVF sub-index is trained
// it moves nothing and returns a zero result; afterwards, a vector
// whose move fails is left where it is and counted as skipped. A
// vector is briefly absent from both
// sub-indexes while the move is in progress; per §4.3 this gap is
// acceptable rather than requiring a session-wide lock for the
// duration.
func (h *Index) MigrateAged(ctx context.Context) (MigrateAgedResult, error) {
	h.mu.RLock()
	trained := h.state == stateHybrid
	threshold := h.config.RecentThreshold
	h.mu.RUnlock()

	if !trained {
		return MigrateAgedResult{}, nil
	}

	candidates := h.agedCandidates(threshold)

	var result MigrateAgedResult
	for _, c := range candidates {
		select {
		case <-ctx.Done():
			return result, coreerr.Wrap(coreerr.StorageError, ctx.Err(), "migration canceled")
		default:
		}
		if err := h.migrateOne(ctx, c.id, c.vector, c.chunkRef); err != nil {
			result.Skipped++
			continue
		}
		result.Migrated++
	}
	return result, nil
}

type agedCandidate struct {
	id       coreid.VectorId
	vector   []float32
	chunkRef string
}

func (h *Index) agedCandidates(threshold time.Duration) []agedCandidate {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []agedCandidate
	snap := h.recent.ExportSnapshot()
	vectors := h.recent.ActiveVectors()
	for _, n := range snap.Nodes {
		if n.Deleted {
			continue
		}
		ts, ok := h.timestamps[n.ID]
		if !ok || time.Since(ts) < threshold {
			continue
		}
		out = append(out, agedCandidate{id: n.ID, vector: vectors[n.ID], chunkRef: n.ChunkRef})
	}
	return out
}

// migrateOne removes id from HNSW (hard delete, not tombstone) and
// inserts it into IVF, preserving its original insert timestamp.
func (h *Index) migrateOne(ctx context.Context, id coreid.VectorId, vector []float32, chunkRef string) error {
	if vector == nil {
		return coreerr.Newf(coreerr.StorageError, "vector %s not resident, cannot migrate", id)
	}

	if err := h.historical.Insert(ctx, id, vector, chunkRef); err != nil {
		return err
	}
	if err := h.recent.HardDelete(id); err != nil {
		// Roll back the IVF insert so the vector is not visible in both.
		_ = h.historical.MarkDeleted(id)
		return err
	}
	return nil
}
