package ivf

import "github.com/xDarkicex/corevdb/internal/coreid"

// ActiveVectors returns every non-tombstoned entry's resident
// uncompressed embedding, keyed by VectorId. Compressed-only or not-yet
// hydrated entries are omitted.
func (idx *Index) ActiveVectors() map[coreid.VectorId][]float32 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make(map[coreid.VectorId][]float32)
	for _, c := range idx.clusters {
		c.mu.RLock()
		for _, e := range c.entries {
			if e.Deleted || e.Vector == nil {
				continue
			}
			out[e.ID] = e.Vector
		}
		c.mu.RUnlock()
	}
	return out
}

// ResidentVectors returns every entry's resident embedding, tombstoned
// ones included, so a re-save can keep writing them into fresh chunks
// and rewrite their ChunkRef rather than leaving it stale.
func (idx *Index) ResidentVectors() map[coreid.VectorId][]float32 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make(map[coreid.VectorId][]float32)
	for _, c := range idx.clusters {
		c.mu.RLock()
		for _, e := range c.entries {
			if e.Vector == nil {
				continue
			}
			out[e.ID] = e.Vector
		}
		c.mu.RUnlock()
	}
	return out
}

// SetChunkRef updates the chunk reference recorded against id.
func (idx *Index) SetChunkRef(id coreid.VectorId, chunkRef string) {
	idx.mu.RLock()
	clusterID, ok := idx.idIndex[id]
	idx.mu.RUnlock()
	if !ok {
		return
	}
	c := idx.clusters[clusterID]
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.ID == id {
			e.ChunkRef = chunkRef
			return
		}
	}
}
