package hybrid

import (
	"context"
	"sort"

	"github.com/xDarkicex/corevdb/internal/coreerr"
	"github.com/xDarkicex/corevdb/internal/coreid"
	"github.com/xDarkicex/corevdb/internal/filter"
	"github.com/xDarkicex/corevdb/internal/index/hnsw"
	"github.com/xDarkicex/corevdb/internal/index/ivf"
)

// Search runs both sub-indexes concurrently, merges their candidates,
// drops any duplicate VectorId (possible transiently during migration),
// sorts by distance ascending with the VectorId tie-break, and returns
// the top k (§4.3). ef is the HNSW candidate-set width; 0 uses the
// sub-index's configured default.
func (h *Index) Search(ctx context.Context, query []float32, k int, ef int) ([]SearchResult, error) {
	return h.search(ctx, query, k, ef)
}

func (h *Index) search(ctx context.Context, query []float32, k int, ef int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, coreerr.Newf(coreerr.InvalidConfig, "k must be positive, got %d", k)
	}

	h.mu.RLock()
	recent, historical := h.recent, h.historical
	trained := h.state == stateHybrid
	h.mu.RUnlock()

	type sideResult struct {
		results []SearchResult
		err     error
	}
	hnswCh := make(chan sideResult, 1)
	ivfCh := make(chan sideResult, 1)

	go func() {
		res, err := recent.Search(ctx, query, k, ef)
		hnswCh <- sideResult{fromHNSW(res), err}
	}()
	go func() {
		if !trained {
			ivfCh <- sideResult{}
			return
		}
		res, err := historical.Search(ctx, query, k)
		ivfCh <- sideResult{fromIVF(res), err}
	}()

	hnswRes := <-hnswCh
	ivfRes := <-ivfCh
	if hnswRes.err != nil {
		return nil, hnswRes.err
	}
	if ivfRes.err != nil {
		return nil, ivfRes.err
	}

	merged := mergeDedup(hnswRes.results, ivfRes.results)
	sortResults(merged)
	if len(merged) > k {
		merged = merged[:k]
	}
	return merged, nil
}

// SearchWithFilter delegates to Search when filter is nil; otherwise it
// oversamples 3x the requested k across both sub-indexes, keeps only
// candidates whose looked-up metadata satisfies filter, and truncates
// to k while preserving ranking order (§4.3).
func (h *Index) SearchWithFilter(ctx context.Context, query []float32, k int, ef int, f filter.Filter, metadata map[string]interface{}) ([]SearchResult, error) {
	if f == nil {
		return h.search(ctx, query, k, ef)
	}

	oversampled, err := h.search(ctx, query, k*3, ef)
	if err != nil {
		return nil, err
	}

	filtered := make([]SearchResult, 0, k)
	for _, r := range oversampled {
		meta, ok := metadata[r.ID.String()]
		if !ok {
			continue
		}
		if f.Matches(meta) {
			filtered = append(filtered, r)
		}
		if len(filtered) >= k {
			break
		}
	}
	return filtered, nil
}

func fromHNSW(in []hnsw.SearchResult) []SearchResult {
	out := make([]SearchResult, len(in))
	for i, r := range in {
		out[i] = SearchResult{ID: r.ID, Score: r.Score, Vector: r.Vector, ChunkRef: r.ChunkRef}
	}
	return out
}

func fromIVF(in []ivf.SearchResult) []SearchResult {
	out := make([]SearchResult, len(in))
	for i, r := range in {
		out[i] = SearchResult{ID: r.ID, Score: r.Score, Vector: r.Vector, ChunkRef: r.ChunkRef}
	}
	return out
}

// mergeDedup combines two already-sorted result slices, keeping the
// first occurrence of any VectorId seen in both (should not normally
// happen outside a migration window).
func mergeDedup(a, b []SearchResult) []SearchResult {
	seen := make(map[coreid.VectorId]struct{}, len(a)+len(b))
	merged := make([]SearchResult, 0, len(a)+len(b))
	for _, r := range a {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		merged = append(merged, r)
	}
	for _, r := range b {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		merged = append(merged, r)
	}
	return merged
}

func sortResults(results []SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score < results[j].Score
		}
		return results[i].ID.Less(results[j].ID)
	})
}
