package corevdb

import (
	"context"
	"sync"

	"github.com/xDarkicex/corevdb/internal/chunkio"
	"github.com/xDarkicex/corevdb/internal/coreerr"
	"github.com/xDarkicex/corevdb/internal/coreid"
	"github.com/xDarkicex/corevdb/internal/index/hybrid"
	"github.com/xDarkicex/corevdb/internal/obs"
)

// Session owns one user's in-memory index, metadata map, and optional
// schema, and exposes the public CRUD/search/persistence API (§4.7).
// A session is single-writer: one read-write lock covers
// {HybridIndex, metadata map, schema} as a single unit (§5).
type Session struct {
	mu sync.RWMutex

	config *Config
	hasher *coreid.KeyedHasher
	index  *hybrid.Index

	metadata map[string]interface{} // VectorId hex string -> metadata
	schema   *Schema

	cache     *chunkio.Cache
	loader    *chunkio.Loader
	destroyed bool

	metrics *obs.Metrics
}

// Create validates config and builds an empty Session in memory (§4.7).
func Create(config *Config, opts ...Option) (*Session, error) {
	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	hasher, err := coreid.NewKeyedHasher(config.Seed)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.InvalidConfig, err, "failed to derive session keys")
	}

	idx, err := hybrid.NewHybridIndex(config.hybridConfig())
	if err != nil {
		return nil, err
	}

	cache := chunkio.NewCache(config.SessionID, config.CacheCapacityMB)
	key := hasher.DeriveEncryptionKey()
	loader := chunkio.NewLoader(config.Store, cache, key, config.SessionID)

	if config.MemoryManager != nil {
		if err := config.MemoryManager.RegisterCache(config.SessionID, cache); err != nil {
			return nil, coreerr.Wrap(coreerr.InvalidConfig, err, "failed to register chunk cache")
		}
	}

	return &Session{
		config:   config,
		hasher:   hasher,
		index:    idx,
		metadata: make(map[string]interface{}),
		cache:    cache,
		loader:   loader,
		metrics:  obs.ProcessMetrics(),
	}, nil
}

// Ping reports whether the session is still usable, satisfying
// obs.Pingable for health checks.
func (s *Session) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkAlive()
}

// Health runs a health check against this session.
func (s *Session) Health(ctx context.Context) (*obs.HealthStatus, error) {
	return obs.NewHealthChecker(s).Check(ctx)
}

// Initialize trains the IVF sub-index from trainingData, advancing the
// HNSWOnly -> Hybrid state machine once enough samples are provided
// (§4.3). Safe to call multiple times; the transition never reverses.
func (s *Session) Initialize(trainingData [][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return coreerr.New(coreerr.SessionDestroyed, "session has been destroyed")
	}
	return s.index.Initialize(context.Background(), trainingData)
}

// Destroy drops all in-memory state. Every subsequent call on the
// session fails with SessionDestroyed (§4.7).
func (s *Session) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return nil
	}
	s.destroyed = true
	s.metadata = nil
	s.cache.Clear()
	if s.config.MemoryManager != nil {
		_ = s.config.MemoryManager.UnregisterCache(s.config.SessionID)
	}
	return s.index.Close()
}

func (s *Session) checkAlive() error {
	if s.destroyed {
		return coreerr.New(coreerr.SessionDestroyed, "session has been destroyed")
	}
	return nil
}
