package hnsw

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

// BatchDelete tombstones every id it can and keeps going past failures,
// collecting each one's error rather than aborting the batch.
func (h *Index) BatchDelete(ids []coreid.VectorId) BatchDeleteResult {
	result := BatchDeleteResult{Failed: make(map[coreid.VectorId]error)}
	for _, id := range ids {
		if err := h.MarkDeleted(id); err != nil {
			result.Failed[id] = err
			continue
		}
		result.Deleted = append(result.Deleted, id)
	}
	return result
}

// HardDelete physically removes id immediately, used by HybridIndex
// migration rather than soft-delete's tombstone-then-vacuum path: a
// migrated vector must never be visible in both sub-indexes, so its
// HNSW presence is removed outright rather than left as a tombstone.
func (h *Index) HardDelete(id coreid.VectorId) error {
	h.mu.Lock()
	idx, ok := h.idToIndex[id]
	if !ok {
		h.mu.Unlock()
		return coreerr.Newf(coreerr.NotFound, "id %s not found", id)
	}
	if !h.nodes[idx].Deleted {
		h.nodes[idx].Deleted = true
		h.activeCount--
	}
	h.mu.Unlock()
	_, err := h.Vacuum(context.Background())
	return err
}

// Vacuum physically removes every tombstoned node and rebuilds the
// graph over the survivors. Slot indices are reassigned, so any index
// held outside the structure (entry point, link lists) is recomputed
// rather than patched in place.
func (h *Index) Vacuum(ctx context.Context) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := 0
	survivors := make([]*Node, 0, len(h.nodes))
	remap := make(map[uint32]uint32, len(h.nodes))
	for oldID, node := range h.nodes {
		if node.Deleted {
			removed++
			continue
		}
		remap[uint32(oldID)] = uint32(len(survivors))
		survivors = append(survivors, node)
	}

	if removed == 0 {
		return 0, nil
	}

	for _, node := range survivors {
		for level, links := range node.Links {
			rewritten := links[:0]
			for _, oldLinkID := range links {
				if newID, ok := remap[oldLinkID]; ok {
					rewritten = append(rewritten, newID)
				}
			}
			node.Links[level] = rewritten
		}
	}

	idToIndex := make(map[coreid.VectorId]uint32, len(survivors))
	for newID, node := range survivors {
		idToIndex[node.ID] = uint32(newID)
	}

	h.nodes = survivors
	h.idToIndex = idToIndex

	if len(survivors) == 0 {
		h.hasEntryPoint = false
		h.maxLevel = 0
		return removed, nil
	}

	if newEntry, ok := remap[h.entryPoint]; ok {
		h.entryPoint = newEntry
	} else {
		h.entryPoint, h.maxLevel = highestLevelNode(survivors)
	}

	select {
	case <-ctx.Done():
		return removed, coreerr.Wrap(coreerr.StorageError, ctx.Err(), "vacuum canceled after rebuild")
	default:
	}

	return removed, nil
}

func highestLevelNode(nodes []*Node) (uint32, int) {
	best, bestLevel := uint32(0), -1
	for i, n := range nodes {
		if n.Level > bestLevel {
			best, bestLevel = uint32(i), n.Level
		}
	}
	if bestLevel < 0 {
		bestLevel = 0
	}
	return best, bestLevel
}
