package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/clusterforge/streamkm/cache"
	"github.com/clusterforge/streamkm/kmerr"
	"github.com/clusterforge/streamkm/matrix"
	"github.com/clusterforge/streamkm/measure"
	"github.com/clusterforge/streamkm/schedule"
)

// FusedVariant is one of the two work-geometry flavors of the single-pass
// labeling+mass+centroid-update kernel.
type FusedVariant int

const (
	// FusedClusterMerge accumulates each worker's local mass and
	// centroid tiles over its point range, then adds each worker's tiles
	// elementwise into the shared accumulators.
	FusedClusterMerge FusedVariant = iota
	// FusedFeatureSum accumulates sequentially, one point at a time,
	// mirroring the standalone centroid-update feature_sum variant.
	FusedFeatureSum
)

func (v FusedVariant) String() string {
	switch v {
	case FusedClusterMerge:
		return "cluster_merge"
	case FusedFeatureSum:
		return "feature_sum"
	default:
		return fmt.Sprintf("fused_variant(%d)", int(v))
	}
}

// ParseFusedVariant maps the `[kmeans.fused] strategy` INI value to a
// FusedVariant.
func ParseFusedVariant(s string) (FusedVariant, error) {
	switch s {
	case "", "cluster_merge":
		return FusedClusterMerge, nil
	case "feature_sum":
		return FusedFeatureSum, nil
	default:
		return 0, kmerr.ErrUnknownStrategy.WithBuildLog("fused strategy " + s)
	}
}

// FusedConfig is the `[kmeans.fused]` INI section, used only when
// `[kmeans] pipeline = fused`.
type FusedConfig struct {
	Target
	WorkGeometry
	Strategy string
}

// NewFusedKernel builds a single binary runnable (points tile, labels
// tile) that, in one pass over a tile's points, assigns each point its
// nearest centroid, increments that cluster's mass, and accumulates the
// new-centroid sum -- replacing the three separate
// labeling/mass/centroid-update runnables the three-stage pipeline
// enqueues.
func NewFusedKernel[P Float, L Label, M Mass](cfg FusedConfig, f, k int, centroids *matrix.Matrix[P], massAcc *MassAccumulator[M], centroidAcc *CentroidAccumulator[P], pool *schedule.CPUPool) (schedule.BinaryKernel, error) {
	if err := validateFeatureCount(f); err != nil {
		return nil, err
	}
	variant, err := ParseFusedVariant(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	nearest := func(base int, points []P) int {
		best := 0
		var bestDist P
		for c := 0; c < k; c++ {
			var dist P
			crow := centroids.Column(c)
			for ff := 0; ff < f; ff++ {
				d := points[base+ff] - crow[ff]
				dist += d * d
			}
			if c == 0 || dist < bestDist {
				bestDist = dist
				best = c
			}
		}
		return best
	}

	kernel := func(q *cache.Queue, pointsTile, labelsTile schedule.ExecutionTile, pointsBuf, labelsBuf []byte, dp *measure.Datapoint) (*cache.Event, error) {
		start := time.Now()
		points := matrix.FromBytes[P](pointsBuf)
		labels := matrix.FromBytes[L](labelsBuf)
		n := len(points) / f
		if n > len(labels) {
			return nil, kmerr.New("strategy.Fused", kmerr.CodeConsistency, "points/labels tile length mismatch")
		}

		switch variant {
		case FusedFeatureSum:
			for p := 0; p < n; p++ {
				base := p * f
				c := nearest(base, points)
				labels[p] = L(c)
				massAcc.Add(c)
				col := centroidAcc.Matrix().Column(c)
				for ff := 0; ff < f; ff++ {
					col[ff] += points[base+ff]
				}
			}
		default: // FusedClusterMerge
			err = fusedClusterMerge(points, labels, n, f, k, nearest, massAcc, centroidAcc, pool)
			if err != nil {
				return nil, err
			}
		}

		if dp != nil {
			dp.RecordMeasurement(measure.MeasurementRecord{TypeName: "fused:" + variant.String(), Value: time.Since(start).Seconds()})
		}
		return cache.Done(), nil
	}
	return kernel, nil
}

// fusedClusterMerge splits the tile's points across pool's workers, each
// building a local mass histogram and centroid tile, then folds both into
// the shared accumulators once the parallel pass completes.
func fusedClusterMerge[P Float, L Label, M Mass](points []P, labels []L, n, f, k int, nearest func(int, []P) int, massAcc *MassAccumulator[M], centroidAcc *CentroidAccumulator[P], pool *schedule.CPUPool) error {
	if n == 0 {
		return nil
	}
	workers := 1
	if pool != nil {
		workers = pool.Size()
	}
	if workers > n {
		workers = n
	}
	chunkSize := (n + workers - 1) / workers

	localMasses := make([][]uint64, workers)
	localCentroids := make([]*matrix.Matrix[P], workers)

	fill := func(lo, hi int) error {
		idx := lo / chunkSize
		if idx >= workers {
			idx = workers - 1
		}
		masses := make([]uint64, k)
		centroids := matrix.NewSized[P](f, k)
		for p := lo; p < hi; p++ {
			base := p * f
			c := nearest(base, points)
			labels[p] = L(c)
			masses[c]++
			col := centroids.Column(c)
			for ff := 0; ff < f; ff++ {
				col[ff] += points[base+ff]
			}
		}
		localMasses[idx] = masses
		localCentroids[idx] = centroids
		return nil
	}

	if pool != nil && workers > 1 {
		if err := pool.Parallel(context.Background(), n, fill); err != nil {
			return err
		}
	} else {
		if err := fill(0, n); err != nil {
			return err
		}
	}

	for i := 0; i < workers; i++ {
		m := localMasses[i]
		if m == nil {
			continue
		}
		for c, cnt := range m {
			if cnt > 0 {
				massAcc.counts[c].Add(cnt)
			}
		}
		cRaw := localCentroids[i].Raw()
		accRaw := centroidAcc.Matrix().Raw()
		for j, v := range cRaw {
			accRaw[j] += v
		}
	}
	return nil
}
