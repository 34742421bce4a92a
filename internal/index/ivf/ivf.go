// Package ivf implements an inverted-file index for approximate
// nearest-neighbor search over the historical portion of a session's
// vectors: coarse k-means clustering with multi-probe search, soft
// delete, and optional product/scalar compression of stored vectors.
package ivf

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/xDarkicex/corevdb/internal/coreerr"
	"github.com/xDarkicex/corevdb/internal/coreid"
	"github.com/xDarkicex/corevdb/internal/quant"
	"github.com/xDarkicex/corevdb/internal/util"
)

// Config holds IVF construction and search parameters.
type Config struct {
	Dimension     int
	NClusters     int
	NProbes       int
	Metric        util.DistanceMetric
	Quantization  *quant.QuantizationConfig // optional
	MaxIterations int
	Tolerance     float64
	TrainSize     int // cap on how many training vectors Train samples from; 0 = default
	RandomSeed    int64
}

// DefaultTrainSize is the default cap on how many vectors Train draws a
// uniform sample from (§4.2).
const DefaultTrainSize = 10000

// DefaultConfig returns reasonable defaults for dimension, uncompressed.
func DefaultConfig(dimension int) *Config {
	nClusters := int(math.Max(64, math.Min(4096, float64(dimension))))
	return &Config{
		Dimension:     dimension,
		NClusters:     nClusters,
		NProbes:       min(16, nClusters/4),
		Metric:        util.L2Distance,
		MaxIterations: 100,
		Tolerance:     1e-4,
		TrainSize:     DefaultTrainSize,
		RandomSeed:    time.Now().UnixNano(),
	}
}

func (c *Config) validate() error {
	if c.Dimension <= 0 {
		return coreerr.New(coreerr.InvalidConfig, "dimension must be positive")
	}
	if c.NClusters <= 0 {
		return coreerr.New(coreerr.InvalidConfig, "NClusters must be positive")
	}
	if c.NProbes <= 0 || c.NProbes > c.NClusters {
		return coreerr.Newf(coreerr.InvalidConfig, "NProbes must be between 1 and %d", c.NClusters)
	}
	if c.Quantization != nil {
		if err := c.Quantization.Validate(); err != nil {
			return coreerr.Wrap(coreerr.InvalidConfig, err, "invalid quantization config")
		}
	}
	return nil
}

// entry is one resident vector inside a cluster's inverted list.
type entry struct {
	ID         coreid.VectorId
	Vector     []float32 // nil once compressed, or while lazily unhydrated
	Compressed []byte
	ChunkRef   string
	Deleted    bool
}

// cluster is one inverted list plus its centroid.
type cluster struct {
	mu       sync.RWMutex
	centroid []float32
	entries  []*entry
}

// SearchResult is one ranked hit from Search.
type SearchResult struct {
	ID       coreid.VectorId
	Score    float32
	Vector   []float32
	ChunkRef string
}

// Index implements the IVF algorithm.
type Index struct {
	mu           sync.RWMutex
	config       *Config
	clusters     []*cluster
	quantizer    quant.Quantizer
	distanceFunc util.DistanceFunc
	trained      bool
	activeCount  int
	totalCount   int
	idIndex      map[coreid.VectorId]int // cluster id, for O(1) delete/lookup
	rnd          *rand.Rand
}

// NewIVF constructs an untrained index. Train must run before Insert
// or Search.
func NewIVF(config *Config) (*Index, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	var quantizer quant.Quantizer
	if config.Quantization != nil {
		q, err := quant.Create(config.Quantization)
		if err != nil {
			return nil, coreerr.Wrap(coreerr.InvalidConfig, err, "failed to create quantizer")
		}
		quantizer = q
	}

	distanceFunc, err := util.GetDistanceFunc(config.Metric)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.InvalidConfig, err, "unsupported distance metric")
	}

	clusters := make([]*cluster, config.NClusters)
	for i := range clusters {
		clusters[i] = &cluster{centroid: make([]float32, config.Dimension)}
	}

	return &Index{
		config:       config,
		clusters:     clusters,
		quantizer:    quantizer,
		distanceFunc: distanceFunc,
		idIndex:      make(map[coreid.VectorId]int),
		rnd:          rand.New(rand.NewSource(config.RandomSeed)),
	}, nil
}

// IsTrained reports whether the coarse quantizer has been fit.
func (idx *Index) IsTrained() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.trained
}

// ActiveCount reports the number of live (non-tombstoned) vectors.
func (idx *Index) ActiveCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.activeCount
}

// Size reports the total entry count, tombstones included.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.totalCount
}

// MemoryUsage estimates resident bytes across centroids, vectors, and
// compressed payloads.
func (idx *Index) MemoryUsage() int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var usage int64
	usage += int64(len(idx.clusters) * idx.config.Dimension * 4)
	for _, c := range idx.clusters {
		c.mu.RLock()
		for _, e := range c.entries {
			usage += int64(len(e.Vector) * 4)
			usage += int64(len(e.Compressed))
		}
		c.mu.RUnlock()
	}
	if idx.quantizer != nil {
		usage += idx.quantizer.MemoryUsage()
	}
	return usage
}

// Close releases the index's in-memory state.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.clusters = nil
	idx.quantizer = nil
	idx.trained = false
	idx.activeCount = 0
	idx.totalCount = 0
	idx.idIndex = nil
	return nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
