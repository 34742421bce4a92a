package hnsw

import "github.com/xDarkicex/corevdb/internal/coreid"

// ActiveVectors returns every non-tombstoned node's resident embedding,
// keyed by VectorId. Nodes whose vector has not yet been hydrated from
// a chunk (ChunkRef set, Vector nil) are omitted; callers doing a save
// are expected to have hydrated everything first via PendingVectorLoads.
func (h *Index) ActiveVectors() map[coreid.VectorId][]float32 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[coreid.VectorId][]float32, h.activeCount)
	for _, n := range h.nodes {
		if n.Deleted || n.Vector == nil {
			continue
		}
		out[n.ID] = n.Vector
	}
	return out
}

// ResidentVectors returns every node's resident embedding, tombstoned
// ones included. Tombstoned nodes stay in the graph for connectivity
// (§4.1) and so still need a valid chunk to hydrate from after a
// reload; a save that omitted them would leave their recorded
// ChunkRef pointing at a chunk layout that no longer contains them.
func (h *Index) ResidentVectors() map[coreid.VectorId][]float32 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[coreid.VectorId][]float32, len(h.nodes))
	for _, n := range h.nodes {
		if n.Vector == nil {
			continue
		}
		out[n.ID] = n.Vector
	}
	return out
}

// SetChunkRef updates the chunk reference recorded against id, used
// when a save repartitions vectors into freshly numbered chunks.
func (h *Index) SetChunkRef(id coreid.VectorId, chunkRef string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	idx, ok := h.idToIndex[id]
	if !ok {
		return nil
	}
	h.nodes[idx].ChunkRef = chunkRef
	return nil
}
