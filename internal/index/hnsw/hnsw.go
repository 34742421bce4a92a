// Package hnsw implements a hierarchical navigable small world graph for
// approximate nearest-neighbor search over recently-inserted vectors.
// Deletes are soft: a tombstoned node stays in the graph for traversal
// so neighboring nodes keep their connectivity, and is only physically
// removed by Vacuum.
package hnsw

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"github.com/xDarkicex/corevdb/internal/coreerr"
	"github.com/xDarkicex/corevdb/internal/coreid"
	"github.com/xDarkicex/corevdb/internal/util"
)

// SearchResult is one ranked hit from Search.
type SearchResult struct {
	ID       coreid.VectorId
	Score    float32
	Vector   []float32
	ChunkRef string
}

// Index implements the HNSW algorithm. Nodes live at fixed slots in a
// flat slice; edges reference slots rather than pointers so tombstoned
// nodes can stay linked without dangling references.
type Index struct {
	mu               sync.RWMutex
	config           *Config
	nodes            []*Node
	entryPoint       uint32
	hasEntryPoint    bool
	maxLevel         int
	levelGenerator   *rand.Rand
	distance         util.DistanceFunc
	idToIndex        map[coreid.VectorId]uint32
	neighborSelector *NeighborSelector
	activeCount      int // excludes tombstoned nodes
}

// Config holds HNSW construction and search parameters.
type Config struct {
	Dimension      int
	M              int     // max bidirectional links per node per layer
	EfConstruction int     // candidate list size while building
	EfSearch       int     // default candidate list size while searching
	ML             float64 // level generation factor, typically 1/ln(M)
	Metric         util.DistanceMetric
	RandomSeed     int64
}

func (c *Config) validate() error {
	if c.Dimension <= 0 {
		return coreerr.New(coreerr.InvalidConfig, "dimension must be positive")
	}
	if c.M <= 0 {
		return coreerr.New(coreerr.InvalidConfig, "M must be positive")
	}
	if c.EfConstruction <= 0 {
		return coreerr.New(coreerr.InvalidConfig, "EfConstruction must be positive")
	}
	if c.EfSearch <= 0 {
		return coreerr.New(coreerr.InvalidConfig, "EfSearch must be positive")
	}
	if c.ML <= 0 {
		return coreerr.New(coreerr.InvalidConfig, "ML must be positive")
	}
	return nil
}

// NewHNSW constructs an empty index from config.
func NewHNSW(config *Config) (*Index, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	distanceFunc, err := util.GetDistanceFunc(config.Metric)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.InvalidConfig, err, "unsupported distance metric")
	}
	return &Index{
		config:           config,
		nodes:            make([]*Node, 0),
		levelGenerator:   rand.New(rand.NewSource(config.RandomSeed)),
		distance:         distanceFunc,
		idToIndex:        make(map[coreid.VectorId]uint32),
		neighborSelector: NewNeighborSelector(config.M, 2.0),
	}, nil
}

// Insert adds a vector under id. Re-inserting a live or tombstoned id
// is rejected: the caller owns id derivation and must not reuse one.
func (h *Index) Insert(ctx context.Context, id coreid.VectorId, vector []float32, chunkRef string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(vector) != h.config.Dimension {
		return coreerr.Newf(coreerr.DimensionMismatch, "vector has %d dimensions, index expects %d", len(vector), h.config.Dimension)
	}
	if _, exists := h.idToIndex[id]; exists {
		return coreerr.Newf(coreerr.DuplicateId, "id %s already present", id)
	}

	level := h.generateLevel()
	node := &Node{
		ID:    id,
		Level: level,
		Links: make([][]uint32, level+1),
	}
	node.Vector = append([]float32(nil), vector...)
	node.ChunkRef = chunkRef
	for i := 0; i <= level; i++ {
		node.Links[i] = make([]uint32, 0, h.config.M)
	}

	nodeID := uint32(len(h.nodes))
	h.nodes = append(h.nodes, node)
	h.idToIndex[id] = nodeID

	if !h.hasEntryPoint {
		h.entryPoint = nodeID
		h.hasEntryPoint = true
		h.maxLevel = level
		h.activeCount++
		return nil
	}

	if err := h.insertNode(ctx, node, nodeID); err != nil {
		h.nodes = h.nodes[:len(h.nodes)-1]
		delete(h.idToIndex, id)
		return coreerr.Wrap(coreerr.StorageError, err, "failed to insert node")
	}

	h.activeCount++
	if level > h.maxLevel {
		h.entryPoint = nodeID
		h.maxLevel = level
	}
	return nil
}

// Search returns up to k nearest live neighbors of query. Tombstoned
// nodes are traversed for connectivity but never returned.
func (h *Index) Search(ctx context.Context, query []float32, k int, ef int) ([]SearchResult, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.hasEntryPoint {
		return nil, nil
	}
	if len(query) != h.config.Dimension {
		return nil, coreerr.Newf(coreerr.DimensionMismatch, "query has %d dimensions, index expects %d", len(query), h.config.Dimension)
	}
	if ef <= 0 {
		ef = h.config.EfSearch
	}
	if ef < k {
		ef = k
	}

	// Graph connectivity rule for search start: below M non-deleted
	// nodes, entry-point descent through the upper layers can miss
	// nodes the sparse graph never linked to the entry point. Seed
	// layer-0's best-first search at the nearest node found by a direct
	// scan instead of trusting the descent (§4.1).
	var ep uint32
	if h.activeCount < h.config.M {
		ep = h.nearestScannedNode(query)
	} else {
		ep = h.entryPoint
		for level := h.maxLevel; level > 0; level-- {
			candidates := h.searchLevel(query, ep, 1, level)
			if len(candidates) > 0 {
				ep = candidates[0].ID
			}
		}
	}

	candidates := h.searchLevel(query, ep, ef, 0)

	results := make([]SearchResult, 0, k)
	for _, c := range candidates {
		if len(results) >= k {
			break
		}
		node := h.nodes[c.ID]
		if node.Deleted {
			continue
		}
		results = append(results, SearchResult{
			ID:       node.ID,
			Score:    c.Distance,
			Vector:   node.Vector,
			ChunkRef: node.ChunkRef,
		})
	}
	return results, nil
}

// MarkDeleted tombstones id without touching the graph's edges.
func (h *Index) MarkDeleted(id coreid.VectorId) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	idx, ok := h.idToIndex[id]
	if !ok {
		return coreerr.Newf(coreerr.NotFound, "id %s not found", id)
	}
	node := h.nodes[idx]
	if node.Deleted {
		return nil
	}
	node.Deleted = true
	h.activeCount--
	return nil
}

// ActiveCount reports the number of live (non-tombstoned) vectors.
func (h *Index) ActiveCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.activeCount
}

// Size reports the total node count, tombstones included.
func (h *Index) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.nodes)
}

// MemoryUsage estimates resident bytes for vectors and link lists.
func (h *Index) MemoryUsage() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var usage int64
	for _, node := range h.nodes {
		usage += int64(len(node.Vector) * 4)
		for _, links := range node.Links {
			usage += int64(len(links) * 4)
		}
		usage += 64
	}
	return usage
}

// Close releases the index's in-memory state.
func (h *Index) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nodes = nil
	h.hasEntryPoint = false
	h.activeCount = 0
	return nil
}

// nearestScannedNode linearly scans every non-deleted node for the one
// closest to query, for use as a search seed when the graph is too
// small for entry-point descent to be reliable. Caller holds at least
// a read lock.
func (h *Index) nearestScannedNode(query []float32) uint32 {
	best := h.entryPoint
	bestDistance := float32(math.MaxFloat32)
	for i, node := range h.nodes {
		if node.Deleted {
			continue
		}
		d := h.distance(query, node.Vector)
		if d < bestDistance {
			bestDistance = d
			best = uint32(i)
		}
	}
	return best
}

func (h *Index) generateLevel() int {
	level := 0
	for h.levelGenerator.Float64() < h.config.ML && level < 16 {
		level++
	}
	return level
}
