package hybrid

import (
	"time"

	"github.com/xDarkicex/corevdb/internal/coreid"
	"github.com/xDarkicex/corevdb/internal/index/hnsw"
	"github.com/xDarkicex/corevdb/internal/index/ivf"
)

// AllVectors returns every resident vector across both sub-indexes,
// tombstoned ones included, for the persistence layer to partition
// into chunks. Tombstoned entries stay resident for HNSW graph
// connectivity until Vacuum, so a save must keep writing them into
// fresh chunks and rewriting their ChunkRef -- otherwise a later
// reload's PendingVectorLoads would try to hydrate them from a chunk
// layout that no longer contains them (§4.3, §6.3).
func (h *Index) AllVectors() map[coreid.VectorId][]float32 {
	h.mu.RLock()
	recent, historical := h.recent, h.historical
	h.mu.RUnlock()

	out := recent.ResidentVectors()
	for id, vec := range historical.ResidentVectors() {
		out[id] = vec
	}
	return out
}

// SetChunkRef updates id's recorded chunk reference in whichever
// sub-index holds it, used by a save that repartitions vectors into
// freshly numbered chunks.
func (h *Index) SetChunkRef(id coreid.VectorId, chunkRef string) {
	h.mu.RLock()
	recent, historical := h.recent, h.historical
	h.mu.RUnlock()

	_ = recent.SetChunkRef(id, chunkRef)
	historical.SetChunkRef(id, chunkRef)
}

// ExportSnapshots captures both sub-indexes' structural state for
// embedding in a manifest, plus whether IVF has been trained.
func (h *Index) ExportSnapshots() (*hnsw.Snapshot, *ivf.Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.recent.ExportSnapshot(), h.historical.ExportSnapshot(), h.state == stateHybrid
}

// ImportSnapshots rebuilds both sub-indexes from manifest-derived
// snapshots. Timestamps are not part of the manifest (§6.3); they are
// reconstructed conservatively from physical placement so that
// subsequent routing decisions match where each vector actually lives:
// HNSW-resident ids get a fresh timestamp, IVF-resident ids get one
// already past recentThreshold.
func (h *Index) ImportSnapshots(hnswSnap *hnsw.Snapshot, ivfSnap *ivf.Snapshot, trained bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.recent.ImportSnapshot(hnswSnap); err != nil {
		return err
	}
	if err := h.historical.ImportSnapshot(ivfSnap); err != nil {
		return err
	}

	if trained {
		h.state = stateHybrid
	} else {
		h.state = stateHNSWOnly
	}

	now := time.Now()
	timestamps := make(map[coreid.VectorId]time.Time, len(hnswSnap.Nodes)+len(ivfSnap.Clusters))
	for _, n := range hnswSnap.Nodes {
		timestamps[n.ID] = now
	}
	aged := now.Add(-h.config.RecentThreshold - time.Second)
	for _, c := range ivfSnap.Clusters {
		for _, e := range c.Entries {
			timestamps[e.ID] = aged
		}
	}
	h.timestamps = timestamps
	return nil
}

// LoadVector attaches a lazily-fetched vector to whichever sub-index
// holds id.
func (h *Index) LoadVector(id coreid.VectorId, vector []float32) error {
	h.mu.RLock()
	recent, historical := h.recent, h.historical
	h.mu.RUnlock()

	if err := recent.LoadVector(id, vector); err == nil {
		return nil
	}
	return historical.LoadVector(id, vector)
}

// PendingVectorLoads returns the chunk reference of every node/entry
// across both sub-indexes whose vector is not yet resident.
func (h *Index) PendingVectorLoads() map[coreid.VectorId]string {
	h.mu.RLock()
	recent, historical := h.recent, h.historical
	h.mu.RUnlock()

	out := recent.PendingVectorLoads()
	for id, ref := range historical.PendingVectorLoads() {
		out[id] = ref
	}
	return out
}
