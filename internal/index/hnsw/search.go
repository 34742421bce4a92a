package hnsw

import (
	"github.com/xDarkicex/corevdb/internal/util"
)

// searchLevel runs a best-first search at level starting from entryID,
// returning up to ef candidates sorted closest-first. Tombstoned nodes
// are visited like any other so the graph stays connected through them;
// callers filter tombstones out of the final result set.
func (h *Index) searchLevel(query []float32, entryID uint32, ef int, level int) []*util.Candidate {
	visited := make([]bool, len(h.nodes))
	candidates := util.NewMaxHeap(ef * 2)
	w := util.NewMinHeap(ef)

	if entryID >= uint32(len(h.nodes)) {
		return nil
	}

	entryNode := h.nodes[entryID]
	distance := h.distance(query, entryNode.Vector)
	candidate := &util.Candidate{ID: entryID, Distance: distance, VecID: entryNode.ID}

	candidates.PushCandidate(candidate)
	w.PushCandidate(candidate)
	visited[entryID] = true

	for w.Len() > 0 {
		current := w.PopCandidate()

		if candidates.Len() >= ef && current.Distance > candidates.Top().Distance {
			break
		}

		currentNode := h.nodes[current.ID]
		if level >= len(currentNode.Links) {
			continue
		}
		for _, neighborID := range currentNode.Links[level] {
			if neighborID >= uint32(len(visited)) || visited[neighborID] {
				continue
			}
			visited[neighborID] = true

			neighborNode := h.nodes[neighborID]
			neighborDistance := h.distance(query, neighborNode.Vector)
			neighborCandidate := &util.Candidate{ID: neighborID, Distance: neighborDistance, VecID: neighborNode.ID}

			if candidates.Len() < ef || neighborDistance < candidates.Top().Distance {
				candidates.PushCandidate(neighborCandidate)
				w.PushCandidate(neighborCandidate)
				if candidates.Len() > ef {
					candidates.PopCandidate()
				}
			}
		}
	}

	result := make([]*util.Candidate, 0, candidates.Len())
	for candidates.Len() > 0 {
		result = append([]*util.Candidate{candidates.PopCandidate()}, result...)
	}
	return result
}
