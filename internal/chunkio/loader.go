package chunkio

import (
	"context"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/xDarkicex/corevdb/internal/coreerr"
	"github.com/xDarkicex/corevdb/internal/obs"
	"github.com/xDarkicex/corevdb/internal/persist"
)

// retryDelays implements the exponential backoff schedule from §4.5:
// 100ms, 200ms, 400ms, max 3 attempts.
var retryDelays = []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}

// blobTimeout is the hard per-attempt timeout from §4.5/§5.
const blobTimeout = 30 * time.Second

// Loader fetches chunks from the blob store on demand, deduplicating
// concurrent requests for the same chunk via singleflight, retrying
// transient failures with exponential backoff behind a circuit
// breaker, and populating Cache on success.
type Loader struct {
	store   persist.BlobStore
	cache   *Cache
	key     [32]byte
	prefix  string
	group   singleflight.Group
	breaker *obs.CircuitBreaker
}

// NewLoader builds a loader reading chunk-N.cbor files under prefix
// from store, decrypting with key, and caching decoded chunks in cache.
func NewLoader(store persist.BlobStore, cache *Cache, key [32]byte, prefix string) *Loader {
	return &Loader{
		store:   store,
		cache:   cache,
		key:     key,
		prefix:  prefix,
		breaker: obs.NewCircuitBreaker(obs.DefaultCircuitBreakerConfig("chunkio-" + prefix)),
	}
}

// Load fetches chunkID, using the cache if resident, deduplicating
// concurrent fetches for the same id, and retrying transient
// blob-store errors per §4.5's backoff schedule. A chunk load that
// exhausts retries fails with StorageError; partial results are never
// returned to the caller (§4.5/§7).
func (l *Loader) Load(ctx context.Context, chunkID string) (DecodedChunk, error) {
	if chunk, ok := l.cache.Get(chunkID); ok {
		return chunk, nil
	}

	v, err, _ := l.group.Do(chunkID, func() (interface{}, error) {
		chunk, err := l.fetchWithRetry(ctx, chunkID)
		if err != nil {
			return nil, err
		}
		l.cache.Put(chunkID, chunk)
		return chunk, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(DecodedChunk), nil
}

func (l *Loader) fetchWithRetry(ctx context.Context, chunkID string) (DecodedChunk, error) {
	path := persist.ChunkPath(l.prefix, chunkIndex(chunkID))
	var lastErr error

	attempts := len(retryDelays) + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, coreerr.Wrap(coreerr.StorageError, ctx.Err(), "chunk load canceled")
			case <-time.After(retryDelays[attempt-1]):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, blobTimeout)
		var data []byte
		err := l.breaker.Execute(attemptCtx, func() error {
			d, err := l.store.Get(attemptCtx, path)
			data = d
			return err
		})
		cancel()
		if err == nil {
			chunk, decodeErr := persist.DecodeChunk(data, l.key)
			if decodeErr != nil {
				return nil, decodeErr
			}
			return DecodedChunk(chunk), nil
		}
		lastErr = err
	}
	return nil, coreerr.Wrap(coreerr.StorageError, lastErr, "chunk load exhausted retries")
}

// chunkIndex extracts the positional index encoded in a ChunkMetadata's
// chunk_id (the manifest names chunks "chunk-{i}" per §3/§6.3).
func chunkIndex(chunkID string) int {
	idx := strings.LastIndex(chunkID, "-")
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(chunkID[idx+1:])
	if err != nil {
		return 0
	}
	return n
}
