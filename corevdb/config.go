package corevdb

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xDarkicex/corevdb/internal/coreerr"
	"github.com/xDarkicex/corevdb/internal/index/hybrid"
	"github.com/xDarkicex/corevdb/internal/index/ivf"
	"github.com/xDarkicex/corevdb/internal/memory"
	"github.com/xDarkicex/corevdb/internal/persist"
)

// NewSessionID generates a fresh random session identifier for callers
// that have no external naming scheme of their own.
func NewSessionID() string {
	return uuid.New().String()
}

// processMemoryManager is the process-wide cache registry every
// session's chunk cache reports into by default, so one budget and one
// set of pressure callbacks governs every session's resident chunks
// rather than each session tracking memory in isolation.
var processMemoryManager = sync.OnceValue(func() memory.MemoryManager {
	return memory.NewManager(memory.DefaultMemoryConfig())
})

// Config holds a Session's construction parameters (§4.7's create(config)).
type Config struct {
	SessionID string
	Seed      []byte // encryption key derivation seed; never logged
	Dimension int
	Metric    DistanceMetric

	RecentThreshold    time.Duration
	MinIVFTrainingSize int
	IVFClusters        int
	IVFProbes          int
	IVFTrainSize       int

	ChunkSize       int
	CacheCapacityMB int64
	EncryptAtRest   bool
	Store           persist.BlobStore

	// MemoryManager is the cache registry this session's chunk cache
	// reports into for pressure-based eviction; defaults to the
	// process-wide manager shared by every session in this process.
	MemoryManager memory.MemoryManager
}

// Option configures a Config; applied in order by Create.
type Option func(*Config) error

// DefaultConfig returns the spec's stated defaults (§3, §4.3, §4.4) for
// a session identified by sessionID with the given seed and dimension.
func DefaultConfig(sessionID string, seed []byte, dimension int) *Config {
	return &Config{
		SessionID:          sessionID,
		Seed:               seed,
		Dimension:          dimension,
		Metric:             CosineMetric,
		RecentThreshold:    7 * 24 * time.Hour,
		MinIVFTrainingSize: 10,
		IVFClusters:        256,
		IVFProbes:          16,
		IVFTrainSize:       ivf.DefaultTrainSize,
		ChunkSize:          persist.DefaultChunkSize,
		CacheCapacityMB:    256,
		EncryptAtRest:      true,
		Store:              persist.NewMemoryBlobStore(),
		MemoryManager:      processMemoryManager(),
	}
}

func (c *Config) validate() error {
	if c.SessionID == "" {
		return coreerr.New(coreerr.InvalidConfig, "session_id must not be empty")
	}
	if len(c.Seed) == 0 {
		return coreerr.New(coreerr.InvalidConfig, "seed must not be empty")
	}
	if c.Dimension <= 0 {
		return coreerr.New(coreerr.InvalidConfig, "dimension must be positive")
	}
	if c.RecentThreshold <= 0 {
		return coreerr.New(coreerr.InvalidConfig, "recent threshold must be positive")
	}
	if c.MinIVFTrainingSize <= 0 {
		return coreerr.New(coreerr.InvalidConfig, "min IVF training size must be positive")
	}
	if c.ChunkSize <= 0 {
		return coreerr.New(coreerr.InvalidConfig, "chunk size must be positive")
	}
	if c.Store == nil {
		return coreerr.New(coreerr.InvalidConfig, "a blob store is required")
	}
	return nil
}

// WithMetric overrides the default cosine distance metric.
func WithMetric(m DistanceMetric) Option {
	return func(c *Config) error { c.Metric = m; return nil }
}

// WithRecentThreshold overrides how long a vector stays HNSW-resident
// before it becomes eligible for IVF migration (§4.3).
func WithRecentThreshold(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return coreerr.New(coreerr.InvalidConfig, "recent threshold must be positive")
		}
		c.RecentThreshold = d
		return nil
	}
}

// WithMinIVFTrainingSize overrides the sample count required before
// HybridIndex.Initialize advances out of HNSWOnly (§4.3).
func WithMinIVFTrainingSize(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return coreerr.New(coreerr.InvalidConfig, "min IVF training size must be positive")
		}
		c.MinIVFTrainingSize = n
		return nil
	}
}

// WithIVFClusters overrides the IVF coarse quantizer's cluster count.
func WithIVFClusters(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return coreerr.New(coreerr.InvalidConfig, "IVF cluster count must be positive")
		}
		c.IVFClusters = n
		return nil
	}
}

// WithIVFProbes overrides how many clusters a search probes.
func WithIVFProbes(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return coreerr.New(coreerr.InvalidConfig, "IVF probe count must be positive")
		}
		c.IVFProbes = n
		return nil
	}
}

// WithIVFTrainSize overrides the cap on how many vectors Initialize
// samples from for IVF training (§4.2's train_size).
func WithIVFTrainSize(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return coreerr.New(coreerr.InvalidConfig, "IVF train size must be positive")
		}
		c.IVFTrainSize = n
		return nil
	}
}

// WithChunkSize overrides the persistence layer's per-chunk vector count.
func WithChunkSize(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return coreerr.New(coreerr.InvalidConfig, "chunk size must be positive")
		}
		c.ChunkSize = n
		return nil
	}
}

// WithCacheCapacityMB overrides the chunk cache's LRU capacity.
func WithCacheCapacityMB(mb int64) Option {
	return func(c *Config) error {
		if mb <= 0 {
			return coreerr.New(coreerr.InvalidConfig, "cache capacity must be positive")
		}
		c.CacheCapacityMB = mb
		return nil
	}
}

// WithEncryption toggles chunk/metadata-map at-rest encryption; on by
// default (§4.4).
func WithEncryption(enabled bool) Option {
	return func(c *Config) error { c.EncryptAtRest = enabled; return nil }
}

// WithBlobStore overrides the default in-memory blob store with a real
// backend (§6.1).
func WithBlobStore(store persist.BlobStore) Option {
	return func(c *Config) error {
		if store == nil {
			return coreerr.New(coreerr.InvalidConfig, "blob store must not be nil")
		}
		c.Store = store
		return nil
	}
}

// WithMemoryManager overrides the process-wide cache registry, letting
// a caller running multiple corevdb processes in one binary scope
// memory accounting separately instead of sharing one budget.
func WithMemoryManager(mm memory.MemoryManager) Option {
	return func(c *Config) error {
		if mm == nil {
			return coreerr.New(coreerr.InvalidConfig, "memory manager must not be nil")
		}
		c.MemoryManager = mm
		return nil
	}
}

// hybridConfig builds the HybridIndex configuration this Config implies.
func (c *Config) hybridConfig() *hybrid.Config {
	hc := hybrid.DefaultConfig(c.Dimension)
	hc.RecentThreshold = c.RecentThreshold
	hc.MinIVFTrainingSize = c.MinIVFTrainingSize
	hc.HNSW.Metric = c.Metric
	hc.HNSW.Dimension = c.Dimension
	hc.IVF.Metric = c.Metric
	hc.IVF.Dimension = c.Dimension
	hc.IVF.NClusters = c.IVFClusters
	hc.IVF.NProbes = c.IVFProbes
	hc.IVF.TrainSize = c.IVFTrainSize
	return hc
}
