package ivf

import (
	"github.com/xDarkicex/corevdb/internal/coreerr"
	"github.com/xDarkicex/corevdb/internal/coreid"
)

// Snapshot is the trained cluster structure in a form suitable for
// CBOR encoding into a manifest's ivf_structure field. Uncompressed
// vectors are not included; they live in chunks and are reattached
// through LoadVector after ImportSnapshot.
type Snapshot struct {
	Version   uint32
	Dimension int
	Clusters  []ClusterSnapshot
}

// ClusterSnapshot is one cluster's centroid and entry list.
type ClusterSnapshot struct {
	Centroid []float32
	Entries  []EntrySnapshot
}

// EntrySnapshot is one entry's structural state.
type EntrySnapshot struct {
	ID         coreid.VectorId
	Compressed []byte
	ChunkRef   string
	Deleted    bool
}

const snapshotVersion = 1

// ExportSnapshot captures the trained structure: centroids plus every
// entry's id, chunk reference, and tombstone state.
func (idx *Index) ExportSnapshot() *Snapshot {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	clusters := make([]ClusterSnapshot, len(idx.clusters))
	for i, c := range idx.clusters {
		c.mu.RLock()
		entries := make([]EntrySnapshot, len(c.entries))
		for j, e := range c.entries {
			entries[j] = EntrySnapshot{
				ID:         e.ID,
				Compressed: e.Compressed,
				ChunkRef:   e.ChunkRef,
				Deleted:    e.Deleted,
			}
		}
		c.mu.RUnlock()
		clusters[i] = ClusterSnapshot{Centroid: append([]float32(nil), c.centroid...), Entries: entries}
	}

	return &Snapshot{Version: snapshotVersion, Dimension: idx.config.Dimension, Clusters: clusters}
}

// ImportSnapshot rebuilds cluster state from snap. Entries whose
// Compressed payload is nil are left with Vector unset until LoadVector
// is called for their ChunkRef.
func (idx *Index) ImportSnapshot(snap *Snapshot) error {
	if snap.Version != snapshotVersion {
		return coreerr.Newf(coreerr.IncompatibleVersion, "ivf snapshot version %d, expected %d", snap.Version, snapshotVersion)
	}
	if snap.Dimension != idx.config.Dimension {
		return coreerr.Newf(coreerr.DimensionMismatch, "snapshot dimension %d does not match index dimension %d", snap.Dimension, idx.config.Dimension)
	}
	if len(snap.Clusters) != idx.config.NClusters {
		return coreerr.Newf(coreerr.InvalidConfig, "snapshot has %d clusters, index configured for %d", len(snap.Clusters), idx.config.NClusters)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idIndex := make(map[coreid.VectorId]int)
	active, total := 0, 0
	clusters := make([]*cluster, len(snap.Clusters))
	for i, cs := range snap.Clusters {
		entries := make([]*entry, len(cs.Entries))
		for j, es := range cs.Entries {
			entries[j] = &entry{
				ID:         es.ID,
				Compressed: es.Compressed,
				ChunkRef:   es.ChunkRef,
				Deleted:    es.Deleted,
			}
			idIndex[es.ID] = i
			total++
			if !es.Deleted {
				active++
			}
		}
		clusters[i] = &cluster{centroid: cs.Centroid, entries: entries}
	}

	idx.clusters = clusters
	idx.idIndex = idIndex
	idx.activeCount = active
	idx.totalCount = total
	idx.trained = true
	return nil
}

// LoadVector attaches a lazily-fetched vector to the entry for id, used
// when the entry was stored uncompressed and must be hydrated from a
// chunk after ImportSnapshot.
func (idx *Index) LoadVector(id coreid.VectorId, vector []float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	clusterID, ok := idx.idIndex[id]
	if !ok {
		return coreerr.Newf(coreerr.NotFound, "id %s not found", id)
	}
	if len(vector) != idx.config.Dimension {
		return coreerr.Newf(coreerr.DimensionMismatch, "vector has %d dimensions, index expects %d", len(vector), idx.config.Dimension)
	}

	c := idx.clusters[clusterID]
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.ID == id {
			e.Vector = vector
			return nil
		}
	}
	return coreerr.Newf(coreerr.NotFound, "id %s not found in cluster", id)
}

// PendingVectorLoads returns the chunk reference of every entry stored
// uncompressed whose vector is not yet resident.
func (idx *Index) PendingVectorLoads() map[coreid.VectorId]string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	pending := make(map[coreid.VectorId]string)
	for _, c := range idx.clusters {
		c.mu.RLock()
		for _, e := range c.entries {
			if e.Vector == nil && e.Compressed == nil && e.ChunkRef != "" {
				pending[e.ID] = e.ChunkRef
			}
		}
		c.mu.RUnlock()
	}
	return pending
}
