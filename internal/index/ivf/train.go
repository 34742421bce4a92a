package ivf

import (
	"context"
	"math"

	"github.com/xDarkicex/corevdb/internal/coreerr"
)

// Train fits cluster centroids via k-means++ initialization followed
// by Lloyd's algorithm, then trains the optional fine quantizer on the
// same vectors.
func (idx *Index) Train(ctx context.Context, vectors [][]float32) error {
	if len(vectors) == 0 {
		return coreerr.New(coreerr.InsufficientTrainingData, "no training vectors provided")
	}
	if len(vectors) < idx.config.NClusters {
		return coreerr.Newf(coreerr.InsufficientTrainingData, "need at least %d training vectors for %d clusters, got %d",
			idx.config.NClusters, idx.config.NClusters, len(vectors))
	}
	for i, vec := range vectors {
		if len(vec) != idx.config.Dimension {
			return coreerr.Newf(coreerr.DimensionMismatch, "training vector %d has dimension %d, expected %d", i, len(vec), idx.config.Dimension)
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	sample := idx.sampleTrainingSet(vectors)

	if err := idx.trainCoarseQuantizer(ctx, sample); err != nil {
		return coreerr.Wrap(coreerr.StorageError, err, "failed to train coarse quantizer")
	}

	if idx.quantizer != nil {
		if err := idx.quantizer.Train(ctx, sample); err != nil {
			return coreerr.Wrap(coreerr.StorageError, err, "failed to train fine quantizer")
		}
	}

	idx.trained = true
	return nil
}

// sampleTrainingSet draws a uniform sample of at most TrainSize vectors
// from vectors via partial Fisher-Yates, leaving the caller's slice
// untouched (§4.2). Caller holds the write lock.
func (idx *Index) sampleTrainingSet(vectors [][]float32) [][]float32 {
	limit := idx.config.TrainSize
	if limit <= 0 {
		limit = DefaultTrainSize
	}
	if len(vectors) <= limit {
		return vectors
	}

	pool := append([][]float32(nil), vectors...)
	for i := 0; i < limit; i++ {
		j := i + idx.rnd.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:limit]
}

func (idx *Index) trainCoarseQuantizer(ctx context.Context, vectors [][]float32) error {
	if err := idx.initializeCentroids(vectors); err != nil {
		return err
	}

	prevInertia := math.Inf(1)

	for iter := 0; iter < idx.config.MaxIterations; iter++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		assignments := make([]int, len(vectors))
		totalInertia := float64(0)

		for i, vec := range vectors {
			bestCluster := 0
			bestDistance := float32(math.Inf(1))
			for j, c := range idx.clusters {
				d := idx.distanceFunc(vec, c.centroid)
				if d < bestDistance {
					bestDistance = d
					bestCluster = j
				}
			}
			assignments[i] = bestCluster
			totalInertia += float64(bestDistance)
		}

		if prevInertia != math.Inf(1) && math.Abs(prevInertia-totalInertia)/prevInertia < idx.config.Tolerance {
			break
		}
		prevInertia = totalInertia

		idx.updateCentroids(vectors, assignments)
	}

	return nil
}

func (idx *Index) initializeCentroids(vectors [][]float32) error {
	firstIdx := idx.rnd.Intn(len(vectors))
	copy(idx.clusters[0].centroid, vectors[firstIdx])

	for k := 1; k < idx.config.NClusters; k++ {
		distances := make([]float64, len(vectors))
		totalDistance := float64(0)

		for i, vec := range vectors {
			minDistance := float32(math.Inf(1))
			for j := 0; j < k; j++ {
				d := idx.distanceFunc(vec, idx.clusters[j].centroid)
				if d < minDistance {
					minDistance = d
				}
			}
			distances[i] = float64(minDistance) * float64(minDistance)
			totalDistance += distances[i]
		}

		target := idx.rnd.Float64() * totalDistance
		cumulative := float64(0)
		for i, d := range distances {
			cumulative += d
			if cumulative >= target {
				copy(idx.clusters[k].centroid, vectors[i])
				break
			}
		}
	}

	return nil
}

func (idx *Index) updateCentroids(vectors [][]float32, assignments []int) {
	for _, c := range idx.clusters {
		for i := range c.centroid {
			c.centroid[i] = 0
		}
	}

	counts := make([]int, idx.config.NClusters)
	for i, vec := range vectors {
		cid := assignments[i]
		counts[cid]++
		for j, v := range vec {
			idx.clusters[cid].centroid[j] += v
		}
	}

	for i, c := range idx.clusters {
		if counts[i] > 0 {
			for j := range c.centroid {
				c.centroid[j] /= float32(counts[i])
			}
		} else {
			randomIdx := idx.rnd.Intn(len(vectors))
			copy(c.centroid, vectors[randomIdx])
		}
	}
}

// assignCluster finds the nearest centroid to vector. Caller holds at
// least a read lock.
func (idx *Index) assignCluster(vector []float32) int {
	best := 0
	bestDistance := float32(math.Inf(1))
	for i, c := range idx.clusters {
		d := idx.distanceFunc(vector, c.centroid)
		if d < bestDistance {
			bestDistance = d
			best = i
		}
	}
	return best
}
