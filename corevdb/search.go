package corevdb

import (
	"context"
	"time"

	"github.com/xDarkicex/corevdb/internal/coreerr"
	"github.com/xDarkicex/corevdb/internal/filter"
)

// Search runs a filtered k-NN query against the session's HybridIndex
// and attaches stored metadata to each hit (§4.7). Candidates below
// the similarity threshold (default 0.7) are dropped.
func (s *Session) Search(query []float32, k int, options SearchOptions) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkAlive(); err != nil {
		return nil, err
	}
	if len(query) != s.config.Dimension {
		return nil, coreerr.Newf(coreerr.DimensionMismatch, "query has dimension %d, want %d", len(query), s.config.Dimension)
	}
	if k <= 0 {
		return nil, coreerr.Newf(coreerr.InvalidConfig, "k must be positive, got %d", k)
	}

	s.metrics.SearchQueries.Inc()
	start := time.Now()
	defer func() { s.metrics.SearchLatency.Observe(time.Since(start).Seconds()) }()

	var f filter.Filter
	if len(options.Filter) > 0 {
		parsed, err := filter.ParseObject(options.Filter)
		if err != nil {
			return nil, coreerr.Wrap(coreerr.InvalidFilter, err, "invalid filter")
		}
		if err := parsed.Validate(); err != nil {
			return nil, coreerr.Wrap(coreerr.InvalidFilter, err, "invalid filter")
		}
		f = parsed
	}

	threshold := defaultSearchThreshold
	if options.Threshold != nil {
		threshold = *options.Threshold
	}

	raw, err := s.index.SearchWithFilter(context.Background(), query, k, options.Ef, f, s.metadata)
	if err != nil {
		s.metrics.SearchErrors.Inc()
		return nil, err
	}

	results := make([]SearchResult, 0, len(raw))
	for _, r := range raw {
		score := similarityScore(r.Score)
		if score < threshold {
			continue
		}
		out := SearchResult{ID: r.ID.String(), Score: score}
		if meta, ok := s.metadata[r.ID.String()]; ok {
			out.Metadata = meta
		}
		if options.IncludeVectors {
			out.Vector = r.Vector
		}
		results = append(results, out)
	}
	return results, nil
}

// similarityScore converts a sub-index's raw distance into the
// [0,1]-ish similarity the spec's threshold filters against: 1 for an
// exact match, asymptotically approaching 0 as distance grows. L2 and
// 1-cosine-similarity distances are non-negative, so the mapping needs
// no knowledge of which metric produced the score. The InnerProduct
// metric reports the negated dot product, which is negative for
// positively aligned vectors; such distances are clamped to 0 and score 1.
func similarityScore(distance float32) float32 {
	if distance < 0 {
		distance = 0
	}
	return 1 / (1 + distance)
}
