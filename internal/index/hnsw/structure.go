package hnsw

import (
	"github.com/xDarkicex/corevdb/internal/coreerr"
	"github.com/xDarkicex/corevdb/internal/coreid"
)

// Snapshot is the graph structure (nodes, links, levels) in a form
// suitable for CBOR encoding into a manifest's hnsw_structure field.
// Vectors are not included: they live in chunks and are reattached by
// the caller through LoadVector after ImportSnapshot.
type Snapshot struct {
	Version    uint32
	Dimension  int
	MaxLevel   int
	EntryPoint uint32
	Nodes      []NodeSnapshot
}

// NodeSnapshot is one node's structural state without its vector.
type NodeSnapshot struct {
	ID       coreid.VectorId
	Level    int
	Links    [][]uint32
	ChunkRef string
	Deleted  bool
}

const snapshotVersion = 1

// ExportSnapshot captures the current graph structure. The caller is
// responsible for persisting vectors (via each node's ChunkRef)
// separately through the chunk system.
func (h *Index) ExportSnapshot() *Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	nodes := make([]NodeSnapshot, len(h.nodes))
	for i, n := range h.nodes {
		nodes[i] = NodeSnapshot{
			ID:       n.ID,
			Level:    n.Level,
			Links:    n.Links,
			ChunkRef: n.ChunkRef,
			Deleted:  n.Deleted,
		}
	}

	return &Snapshot{
		Version:    snapshotVersion,
		Dimension:  h.config.Dimension,
		MaxLevel:   h.maxLevel,
		EntryPoint: h.entryPoint,
		Nodes:      nodes,
	}
}

// ImportSnapshot rebuilds the graph structure from snap without
// vectors resident; each node's Vector is nil until LoadVector is
// called for it. idToIndex and activeCount are recomputed.
func (h *Index) ImportSnapshot(snap *Snapshot) error {
	if snap.Version != snapshotVersion {
		return coreerr.Newf(coreerr.IncompatibleVersion, "hnsw snapshot version %d, expected %d", snap.Version, snapshotVersion)
	}
	if snap.Dimension != h.config.Dimension {
		return coreerr.Newf(coreerr.DimensionMismatch, "snapshot dimension %d does not match index dimension %d", snap.Dimension, h.config.Dimension)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	nodes := make([]*Node, len(snap.Nodes))
	idToIndex := make(map[coreid.VectorId]uint32, len(snap.Nodes))
	active := 0
	for i, ns := range snap.Nodes {
		nodes[i] = &Node{
			ID:       ns.ID,
			Level:    ns.Level,
			Links:    ns.Links,
			ChunkRef: ns.ChunkRef,
			Deleted:  ns.Deleted,
		}
		idToIndex[ns.ID] = uint32(i)
		if !ns.Deleted {
			active++
		}
	}

	h.nodes = nodes
	h.idToIndex = idToIndex
	h.maxLevel = snap.MaxLevel
	h.entryPoint = snap.EntryPoint
	h.hasEntryPoint = len(nodes) > 0
	h.activeCount = active
	return nil
}

// LoadVector attaches a lazily-fetched vector to the node for id. It is
// the hook a chunk loader uses once a referenced chunk has been
// decrypted and decoded.
func (h *Index) LoadVector(id coreid.VectorId, vector []float32) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	idx, ok := h.idToIndex[id]
	if !ok {
		return coreerr.Newf(coreerr.NotFound, "id %s not found", id)
	}
	if len(vector) != h.config.Dimension {
		return coreerr.Newf(coreerr.DimensionMismatch, "vector has %d dimensions, index expects %d", len(vector), h.config.Dimension)
	}
	h.nodes[idx].Vector = vector
	return nil
}

// PendingVectorLoads returns the chunk references of every node whose
// vector is not yet resident, for a caller doing bulk lazy hydration
// after ImportSnapshot.
func (h *Index) PendingVectorLoads() map[coreid.VectorId]string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	pending := make(map[coreid.VectorId]string)
	for _, n := range h.nodes {
		if !n.HasVector() && n.ChunkRef != "" {
			pending[n.ID] = n.ChunkRef
		}
	}
	return pending
}
