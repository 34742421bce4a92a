package hybrid

import (
	"context"

	"github.com/xDarkicex/corevdb/internal/coreerr"
	"github.com/xDarkicex/corevdb/internal/coreid"
)

// Delete consults timestamps to locate id's sub-index and tombstones
// it there. NotFound if id was never inserted. Idempotent on an
// already-tombstoned id (§4.3).
func (h *Index) Delete(id coreid.VectorId) error {
	h.mu.RLock()
	timestamp, ok := h.timestamps[id]
	h.mu.RUnlock()
	if !ok {
		return coreerr.Newf(coreerr.NotFound, "id %s not found", id)
	}

	// routeForInsert recomputes where an id *would* land today, but
	// MigrateAged is caller-scheduled: a vector aged past RecentThreshold
	// can still be sitting in HNSW, unmigrated, and a vector inserted
	// before Initialize trained the index can have an old timestamp yet
	// live in HNSW forever. So the routed guess is only a first try; a
	// NotFound there falls back to the other sub-index before giving up.
	toIVF := h.routeForInsert(timestamp)
	first, second := h.recent.MarkDeleted, h.historical.MarkDeleted
	if toIVF {
		first, second = h.historical.MarkDeleted, h.recent.MarkDeleted
	}
	if err := first(id); err != nil {
		if coreerr.Is(err, coreerr.NotFound) {
			return second(id)
		}
		return err
	}
	return nil
}

// BatchDelete applies Delete to every id, never aborting partway and
// recording a per-id error for any it could not tombstone (§4.3).
func (h *Index) BatchDelete(ids []coreid.VectorId) BatchDeleteResult {
	result := BatchDeleteResult{Failed: make(map[coreid.VectorId]error)}
	for _, id := range ids {
		if err := h.Delete(id); err != nil {
			result.Failed[id] = err
			continue
		}
		result.Deleted = append(result.Deleted, id)
	}
	return result
}

// Vacuum physically removes tombstoned entries from both sub-indexes
// and returns the combined removal counts (§4.3).
func (h *Index) Vacuum(ctx context.Context) (VacuumResult, error) {
	h.mu.RLock()
	recent, historical := h.recent, h.historical
	h.mu.RUnlock()

	hnswRemoved, err := recent.Vacuum(ctx)
	if err != nil {
		return VacuumResult{}, err
	}
	ivfRemoved, err := historical.Vacuum(ctx)
	if err != nil {
		return VacuumResult{}, err
	}
	return VacuumResult{
		HNSWRemoved:  hnswRemoved,
		IVFRemoved:   ivfRemoved,
		TotalRemoved: hnswRemoved + ivfRemoved,
	}, nil
}
