package ivf

import (
	"context"
	"sort"

	"github.com/xDarkicex/corevdb/internal/coreerr"
)

type clusterDistance struct {
	id       int
	distance float32
}

// findProbeClusters returns the NProbes clusters whose centroids are
// closest to query, sorted closest first.
func (idx *Index) findProbeClusters(query []float32) []clusterDistance {
	distances := make([]clusterDistance, len(idx.clusters))
	for i, c := range idx.clusters {
		distances[i] = clusterDistance{id: i, distance: idx.distanceFunc(query, c.centroid)}
	}
	sort.Slice(distances, func(i, j int) bool {
		return distances[i].distance < distances[j].distance
	})
	probeCount := min(idx.config.NProbes, len(distances))
	return distances[:probeCount]
}

// Search probes the NProbes closest clusters and returns up to k
// nearest live vectors across them.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]SearchResult, error) {
	if len(query) != idx.config.Dimension {
		return nil, coreerr.Newf(coreerr.DimensionMismatch, "query has %d dimensions, index expects %d", len(query), idx.config.Dimension)
	}
	if k <= 0 {
		return nil, coreerr.Newf(coreerr.InvalidConfig, "k must be positive, got %d", k)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.trained {
		return nil, coreerr.New(coreerr.NotTrained, "index must be trained before search")
	}

	probes := idx.findProbeClusters(query)

	type candidate struct {
		e        *entry
		distance float32
	}
	var candidates []candidate

	for _, p := range probes {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		c := idx.clusters[p.id]
		c.mu.RLock()
		for _, e := range c.entries {
			if e.Deleted {
				continue
			}
			var distance float32
			if e.Compressed != nil && idx.quantizer != nil {
				d, err := idx.quantizer.DistanceToQuery(e.Compressed, query)
				if err != nil {
					c.mu.RUnlock()
					return nil, coreerr.Wrap(coreerr.StorageError, err, "failed to compute quantized distance")
				}
				distance = d
			} else {
				distance = idx.distanceFunc(query, e.Vector)
			}
			candidates = append(candidates, candidate{e: e, distance: distance})
		}
		c.mu.RUnlock()
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].e.ID.Less(candidates[j].e.ID)
	})

	resultCount := min(k, len(candidates))
	results := make([]SearchResult, resultCount)
	for i := 0; i < resultCount; i++ {
		vec := candidates[i].e.Vector
		if vec == nil && candidates[i].e.Compressed != nil && idx.quantizer != nil {
			if decoded, err := idx.quantizer.Decompress(candidates[i].e.Compressed); err == nil {
				vec = decoded
			}
		}
		results[i] = SearchResult{
			ID:       candidates[i].e.ID,
			Score:    candidates[i].distance,
			Vector:   vec,
			ChunkRef: candidates[i].e.ChunkRef,
		}
	}

	return results, nil
}
