package hnsw

import (
	"context"

	"github.com/xDarkicex/corevdb/internal/util"
)

// insertNode runs the two-phase HNSW insertion: a greedy descent from
// the top level down to node.Level+1, then an efConstruction-width
// search with bidirectional connection at each level from node.Level
// down to 0.
func (h *Index) insertNode(ctx context.Context, node *Node, nodeID uint32) error {
	entryPoint := h.entryPoint

	for level := h.maxLevel; level > node.Level; level-- {
		candidates := h.searchLevel(node.Vector, entryPoint, 1, level)
		if len(candidates) > 0 {
			entryPoint = candidates[0].ID
		}
	}

	for level := node.Level; level >= 0; level-- {
		candidates := h.searchLevel(node.Vector, entryPoint, h.config.EfConstruction, level)
		selected := h.neighborSelector.SelectNeighbors(candidates, level)
		h.connectBidirectional(nodeID, selected, level)
		h.pruneNeighborConnections(selected, level)
		if len(selected) > 0 {
			entryPoint = selected[0].ID
		}
	}

	return nil
}

// connectBidirectional links nodeID to each neighbor at level in both
// directions. A neighbor that does not reach this level (its own
// random level was lower) is left untouched.
func (h *Index) connectBidirectional(nodeID uint32, neighbors []*util.Candidate, level int) {
	node := h.nodes[nodeID]
	for _, neighbor := range neighbors {
		node.Links[level] = append(node.Links[level], neighbor.ID)

		neighborNode := h.nodes[neighbor.ID]
		if level < len(neighborNode.Links) {
			neighborNode.Links[level] = append(neighborNode.Links[level], nodeID)
		}
	}
}

// pruneNeighborConnections re-runs neighbor selection on any neighbor
// whose link list at level now exceeds the configured maximum.
func (h *Index) pruneNeighborConnections(neighbors []*util.Candidate, level int) {
	for _, neighbor := range neighbors {
		h.neighborSelector.PruneConnections(neighbor.ID, level, h)
	}
}
