// Package hybrid implements the two-tier routing index that sits
// between a session and its HNSW/IVF sub-indexes: recent vectors live
// in the graph, vectors aged past a threshold migrate into the
// inverted-file structure, and search fans out across both.
package hybrid

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xDarkicex/corevdb/internal/coreerr"
	"github.com/xDarkicex/corevdb/internal/coreid"
	"github.com/xDarkicex/corevdb/internal/index/hnsw"
	"github.com/xDarkicex/corevdb/internal/index/ivf"
)

// Config holds HybridIndex-level parameters plus each sub-index's own
// configuration.
type Config struct {
	RecentThreshold    time.Duration
	MinIVFTrainingSize int
	HNSW               *hnsw.Config
	IVF                *ivf.Config
}

// DefaultConfig returns the spec's stated defaults for a given
// dimension, with both sub-indexes on the IVF default distance metric,
// left for the caller to override.
func DefaultConfig(dimension int) *Config {
	return &Config{
		RecentThreshold:    7 * 24 * time.Hour,
		MinIVFTrainingSize: 10,
		HNSW: &hnsw.Config{
			Dimension:      dimension,
			M:              16,
			EfConstruction: 200,
			EfSearch:       64,
			ML:             1.0 / 2.772588722, // 1/ln(16)
			Metric:         ivf.DefaultConfig(dimension).Metric,
		},
		IVF: &ivf.Config{
			Dimension:     dimension,
			NClusters:     256,
			NProbes:       16,
			Metric:        ivf.DefaultConfig(dimension).Metric,
			MaxIterations: 25,
			Tolerance:     1e-4,
		},
	}
}

// trainState is the one-way IVF training state machine from §4.3:
// HNSWOnly never returns once it has advanced to Hybrid.
type trainState int

const (
	stateHNSWOnly trainState = iota
	stateHybrid
)

// SearchResult is one ranked hit merged across both sub-indexes.
type SearchResult struct {
	ID       coreid.VectorId
	Score    float32
	Vector   []float32
	ChunkRef string
}

// VacuumResult reports per-sub-index physical removal counts.
type VacuumResult struct {
	HNSWRemoved  int
	IVFRemoved   int
	TotalRemoved int
}

// BatchDeleteResult reports per-id outcomes from BatchDelete.
type BatchDeleteResult struct {
	Deleted []coreid.VectorId
	Failed  map[coreid.VectorId]error
}

// Index is the HybridIndex: a recent (HNSW) and historical (IVF)
// sub-index plus the bookkeeping needed to route between them.
type Index struct {
	mu         sync.RWMutex
	config     *Config
	recent     *hnsw.Index
	historical *ivf.Index
	state      trainState
	timestamps map[coreid.VectorId]time.Time
}

// NewHybridIndex constructs an empty HybridIndex in the HNSWOnly state.
func NewHybridIndex(config *Config) (*Index, error) {
	if config.RecentThreshold <= 0 {
		return nil, coreerr.New(coreerr.InvalidConfig, "RecentThreshold must be positive")
	}
	if config.MinIVFTrainingSize <= 0 {
		return nil, coreerr.New(coreerr.InvalidConfig, "MinIVFTrainingSize must be positive")
	}

	recent, err := hnsw.NewHNSW(config.HNSW)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.InvalidConfig, err, "failed to construct hnsw sub-index")
	}
	historical, err := ivf.NewIVF(config.IVF)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.InvalidConfig, err, "failed to construct ivf sub-index")
	}

	return &Index{
		config:     config,
		recent:     recent,
		historical: historical,
		state:      stateHNSWOnly,
		timestamps: make(map[coreid.VectorId]time.Time),
	}, nil
}

// Initialize trains the IVF sub-index from trainingData and, once
// there are at least MinIVFTrainingSize samples, advances the state
// machine to Hybrid. The transition is one-way: calling Initialize
// again after reaching Hybrid is a no-op success.
func (h *Index) Initialize(ctx context.Context, trainingData [][]float32) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == stateHybrid {
		return nil
	}
	if len(trainingData) < h.config.MinIVFTrainingSize {
		return nil
	}
	if err := h.historical.Train(ctx, trainingData); err != nil {
		return err
	}
	h.state = stateHybrid
	return nil
}

// IVFTrained reports whether the state machine has advanced to Hybrid.
func (h *Index) IVFTrained() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state == stateHybrid
}

// routeForInsert decides which sub-index a fresh insert belongs in,
// given the current state and the vector's timestamp. Caller holds the
// lock.
func (h *Index) routeForInsert(timestamp time.Time) bool /* true = ivf */ {
	if h.state == stateHNSWOnly {
		return false
	}
	return time.Since(timestamp) >= h.config.RecentThreshold
}

// Insert records timestamp and routes the vector to HNSW or IVF based
// on age and training state.
func (h *Index) Insert(ctx context.Context, id coreid.VectorId, vector []float32, timestamp time.Time, chunkRef string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.timestamps[id]; exists {
		return coreerr.Newf(coreerr.DuplicateId, "id %s already present", id)
	}

	toIVF := h.routeForInsert(timestamp)
	var err error
	if toIVF {
		err = h.historical.Insert(ctx, id, vector, chunkRef)
	} else {
		err = h.recent.Insert(ctx, id, vector, chunkRef)
	}
	if err != nil {
		return err
	}

	h.timestamps[id] = timestamp
	return nil
}

// ActiveCount sums the active counts of both sub-indexes.
func (h *Index) ActiveCount() int {
	return h.recent.ActiveCount() + h.historical.ActiveCount()
}

// GetDeletedVectors returns the union of both sub-indexes' tombstone
// sets as a sorted list, for inclusion in a manifest's deleted_vectors.
func (h *Index) GetDeletedVectors() []coreid.VectorId {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[coreid.VectorId]struct{})
	var deleted []coreid.VectorId
	for _, snap := range h.recent.ExportSnapshot().Nodes {
		if snap.Deleted {
			if _, ok := seen[snap.ID]; !ok {
				seen[snap.ID] = struct{}{}
				deleted = append(deleted, snap.ID)
			}
		}
	}
	for _, cs := range h.historical.ExportSnapshot().Clusters {
		for _, es := range cs.Entries {
			if es.Deleted {
				if _, ok := seen[es.ID]; !ok {
					seen[es.ID] = struct{}{}
					deleted = append(deleted, es.ID)
				}
			}
		}
	}
	sort.Slice(deleted, func(i, j int) bool { return deleted[i].Less(deleted[j]) })
	return deleted
}

// Close releases both sub-indexes.
func (h *Index) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.recent.Close(); err != nil {
		return err
	}
	return h.historical.Close()
}
