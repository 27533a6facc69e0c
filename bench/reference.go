package bench

import (
	"github.com/clusterforge/streamkm/matrix"
	"github.com/clusterforge/streamkm/strategy"
)

// SerialConfig parameterizes the reference implementation Serial runs.
type SerialConfig struct {
	F, K          int
	MaxIterations int
}

// SerialResult is the reference implementation's final state, comparable
// against a pipeline.Driver's Labels/Masses/Centroids via Compare.
type SerialResult[P strategy.Float, L strategy.Label, M strategy.Mass] struct {
	Labels    []L
	Masses    []M
	Centroids *matrix.Matrix[P]
}

// Serial is the pure-Go, single-threaded reference Lloyd's implementation
// the `[benchmark] verify` flag checks the pipeline's tiled/strategized
// result against. It performs plain nearest-centroid labeling, mass
// counting, and mean recomputation with no tiling, no variant selection,
// and no concurrency, so any divergence from the pipeline's result
// indicates a bug in a strategy variant or the scheduler rather than in
// the algorithm itself.
func Serial[P strategy.Float, L strategy.Label, M strategy.Mass](cfg SerialConfig, points *matrix.Matrix[P], initialCentroids *matrix.Matrix[P]) SerialResult[P, L, M] {
	f, k := cfg.F, cfg.K
	n := points.Cols()

	centroids := matrix.NewSized[P](f, k)
	copy(centroids.Raw(), initialCentroids.Raw())

	labels := make([]L, n)
	masses := make([]M, k)

	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = 1
	}

	for iter := 0; iter < maxIter; iter++ {
		for p := 0; p < n; p++ {
			point := points.Column(p)
			best := 0
			var bestDist P
			for c := 0; c < k; c++ {
				crow := centroids.Column(c)
				var dist P
				for ff := 0; ff < f; ff++ {
					d := point[ff] - crow[ff]
					dist += d * d
				}
				if c == 0 || dist < bestDist {
					bestDist = dist
					best = c
				}
			}
			labels[p] = L(best)
		}

		sums := matrix.NewSized[P](f, k)
		counts := make([]uint64, k)
		for p := 0; p < n; p++ {
			c := int(labels[p])
			counts[c]++
			point := points.Column(p)
			col := sums.Column(c)
			for ff := 0; ff < f; ff++ {
				col[ff] += point[ff]
			}
		}
		// Matches the pipeline driver's own row-broadcast divide: a
		// zero-mass cluster's column is left to produce Inf/NaN, not
		// specially handled here.
		for c := 0; c < k; c++ {
			col := sums.Column(c)
			for ff := 0; ff < f; ff++ {
				col[ff] /= P(counts[c])
			}
		}
		centroids = sums
		for c := range masses {
			masses[c] = M(counts[c])
		}
	}

	return SerialResult[P, L, M]{Labels: labels, Masses: masses, Centroids: centroids}
}
