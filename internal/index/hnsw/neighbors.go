package hnsw

import (
	"sort"

	"github.com/xDarkicex/corevdb/internal/util"
)

// NeighborSelector chooses which candidates become graph edges: the
// closest ones, up to a per-level connection budget. No diversity
// heuristic is applied.
type NeighborSelector struct {
	maxConnections  int
	levelMultiplier float64
}

// NewNeighborSelector builds a selector with the given base connection
// budget; level 0 gets levelMultiplier times that budget since it
// carries the full recall burden of the bottom layer.
func NewNeighborSelector(maxConnections int, levelMultiplier float64) *NeighborSelector {
	return &NeighborSelector{
		maxConnections:  maxConnections,
		levelMultiplier: levelMultiplier,
	}
}

func (ns *NeighborSelector) budgetFor(level int) int {
	if level == 0 {
		return int(float64(ns.maxConnections) * ns.levelMultiplier)
	}
	return ns.maxConnections
}

// SelectNeighbors picks up to the per-level budget from candidates,
// preferring the closest.
func (ns *NeighborSelector) SelectNeighbors(candidates []*util.Candidate, level int) []*util.Candidate {
	maxM := ns.budgetFor(level)
	if len(candidates) <= maxM {
		return candidates
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})

	return candidates[:maxM]
}

// PruneConnections re-applies the selection budget to an existing
// node's link list at level, dropping whichever edges lose out.
func (ns *NeighborSelector) PruneConnections(nodeID uint32, level int, index *Index) {
	node := index.nodes[nodeID]
	if level >= len(node.Links) {
		return
	}
	maxM := ns.budgetFor(level)
	if len(node.Links[level]) <= maxM {
		return
	}

	candidates := make([]*util.Candidate, 0, len(node.Links[level]))
	for _, linkID := range node.Links[level] {
		linkNode := index.nodes[linkID]
		d := index.distance(node.Vector, linkNode.Vector)
		candidates = append(candidates, &util.Candidate{ID: linkID, Distance: d})
	}

	selected := ns.SelectNeighbors(candidates, level)
	newLinks := make([]uint32, 0, len(selected))
	for _, sel := range selected {
		newLinks = append(newLinks, sel.ID)
	}
	node.Links[level] = newLinks
}
