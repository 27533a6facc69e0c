package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/clusterforge/streamkm/cache"
	"github.com/clusterforge/streamkm/kmerr"
	"github.com/clusterforge/streamkm/matrix"
	"github.com/clusterforge/streamkm/measure"
	"github.com/clusterforge/streamkm/reduce"
	"github.com/clusterforge/streamkm/schedule"
)

// CentroidVariant is one of the three work-geometry strategies for the
// centroid-update stage. All three produce the same result up to
// floating-point reassociation.
type CentroidVariant int

const (
	// CentroidFeatureSum accumulates sequentially, one point at a time,
	// all features of that point folded into its cluster's column --
	// one-work-item-per-(feature,cluster) restated as a per-point outer
	// loop, which visits the same (feature,cluster,point) triples
	// without re-scanning the tile once per (feature,cluster) pair.
	CentroidFeatureSum CentroidVariant = iota
	// CentroidFeatureSumPardim splits the feature dimension across a
	// CPUPool: each worker owns a disjoint row range of the centroid
	// accumulator and needs no merge step, since distinct feature rows
	// never alias.
	CentroidFeatureSumPardim
	// CentroidClusterMerge has each worker accumulate a local F*K tile
	// over its own point range, then folds the tiles via
	// reduce.SerialColumnSum and adds the result into the shared
	// accumulator.
	CentroidClusterMerge
)

func (v CentroidVariant) String() string {
	switch v {
	case CentroidFeatureSum:
		return "feature_sum"
	case CentroidFeatureSumPardim:
		return "feature_sum_pardim"
	case CentroidClusterMerge:
		return "cluster_merge"
	default:
		return fmt.Sprintf("centroid_variant(%d)", int(v))
	}
}

// ParseCentroidVariant maps the `[kmeans.centroid_update] strategy` INI
// value to a CentroidVariant.
func ParseCentroidVariant(s string) (CentroidVariant, error) {
	switch s {
	case "", "feature_sum":
		return CentroidFeatureSum, nil
	case "feature_sum_pardim":
		return CentroidFeatureSumPardim, nil
	case "cluster_merge":
		return CentroidClusterMerge, nil
	default:
		return 0, kmerr.ErrUnknownStrategy.WithBuildLog("centroid_update strategy " + s)
	}
}

// CentroidUpdateConfig is the `[kmeans.centroid_update]` INI section.
// LocalFeatures/ThreadFeatures select feature_sum_pardim's tile (both
// must be powers of two).
type CentroidUpdateConfig struct {
	Target
	WorkGeometry
	Strategy       string
	LocalFeatures  int
	ThreadFeatures int
}

func (c CentroidUpdateConfig) validate() error {
	if c.LocalFeatures != 0 && !isPowerOfTwo(c.LocalFeatures) {
		return kmerr.New("strategy.CentroidUpdate", kmerr.CodeConfiguration, "local_features must be a power of two")
	}
	if c.ThreadFeatures != 0 && !isPowerOfTwo(c.ThreadFeatures) {
		return kmerr.New("strategy.CentroidUpdate", kmerr.CodeConfiguration, "thread_features must be a power of two")
	}
	return nil
}

// CentroidAccumulator holds the F x K new-centroid sum accumulator across
// an iteration's tile walk; the pipeline driver divides it by masses via
// reduce.RowBroadcast(OpDiv) once the tile walk finishes.
type CentroidAccumulator[P Float] struct {
	sums *matrix.Matrix[P]
}

// NewCentroidAccumulator allocates a zeroed F x K accumulator.
func NewCentroidAccumulator[P Float](f, k int) *CentroidAccumulator[P] {
	return &CentroidAccumulator[P]{sums: matrix.NewSized[P](f, k)}
}

// Matrix returns the accumulator's backing F x K matrix.
func (a *CentroidAccumulator[P]) Matrix() *matrix.Matrix[P] { return a.sums }

// Reset zeros every accumulated sum, as the pipeline driver does at the
// start of each Lloyd iteration.
func (a *CentroidAccumulator[P]) Reset() {
	raw := a.sums.Raw()
	for i := range raw {
		raw[i] = 0
	}
}

// NewCentroidUpdateKernel builds the binary runnable kernel (points tile,
// labels tile) -> accumulated centroid sums for the given variant.
func NewCentroidUpdateKernel[P Float, L Label](cfg CentroidUpdateConfig, f, k int, acc *CentroidAccumulator[P], pool *schedule.CPUPool) (schedule.BinaryKernel, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	variant, err := ParseCentroidVariant(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	kernel := func(q *cache.Queue, pointsTile, labelsTile schedule.ExecutionTile, pointsBuf, labelsBuf []byte, dp *measure.Datapoint) (*cache.Event, error) {
		start := time.Now()
		points := matrix.FromBytes[P](pointsBuf)
		labels := matrix.FromBytes[L](labelsBuf)
		n := len(points) / f
		if n > len(labels) {
			return nil, kmerr.New("strategy.CentroidUpdate", kmerr.CodeConsistency, "points/labels tile length mismatch")
		}

		switch variant {
		case CentroidFeatureSumPardim:
			err = featureSumPardim(points, labels, n, f, acc, pool)
		case CentroidClusterMerge:
			err = clusterMerge(points, labels, n, f, k, acc, pool)
		default:
			err = featureSum(points, labels, n, f, acc)
		}
		if err != nil {
			return nil, err
		}
		if dp != nil {
			dp.RecordMeasurement(measure.MeasurementRecord{TypeName: "centroid_update:" + variant.String(), Value: time.Since(start).Seconds()})
		}
		return cache.Done(), nil
	}
	return kernel, nil
}

// featureSum accumulates sequentially: for each point, fold all F
// features into its cluster's column.
func featureSum[P Float, L Label](points []P, labels []L, n, f int, acc *CentroidAccumulator[P]) error {
	for p := 0; p < n; p++ {
		base := p * f
		col := acc.sums.Column(int(labels[p]))
		for ff := 0; ff < f; ff++ {
			col[ff] += points[base+ff]
		}
	}
	return nil
}

// featureSumPardim splits the feature dimension across pool's workers;
// each worker owns a disjoint row range f in [lo,hi) across all clusters,
// so no two workers ever write the same accumulator element.
func featureSumPardim[P Float, L Label](points []P, labels []L, n, f int, acc *CentroidAccumulator[P], pool *schedule.CPUPool) error {
	work := func(lo, hi int) error {
		for p := 0; p < n; p++ {
			base := p * f
			col := acc.sums.Column(int(labels[p]))
			for ff := lo; ff < hi; ff++ {
				col[ff] += points[base+ff]
			}
		}
		return nil
	}
	if pool != nil && f > 1 {
		return pool.Parallel(context.Background(), f, work)
	}
	return work(0, f)
}

// clusterMerge has each worker accumulate a local F*K tile over its own
// point range, then folds the tiles column-wise via reduce.SerialColumnSum
// and adds the result into the shared accumulator.
func clusterMerge[P Float, L Label](points []P, labels []L, n, f, k int, acc *CentroidAccumulator[P], pool *schedule.CPUPool) error {
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

	tiles := make([]*matrix.Matrix[P], workers)
	fill := func(lo, hi int) error {
		idx := lo / chunkSize
		if idx >= workers {
			idx = workers - 1
		}
		local := matrix.NewSized[P](f, k)
		for p := lo; p < hi; p++ {
			base := p * f
			col := local.Column(int(labels[p]))
			for ff := 0; ff < f; ff++ {
				col[ff] += points[base+ff]
			}
		}
		tiles[idx] = local
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

	for fRow := 0; fRow < f; fRow++ {
		flat := make([]P, 0, k*workers)
		for _, t := range tiles {
			if t == nil {
				flat = append(flat, make([]P, k)...)
				continue
			}
			for c := 0; c < k; c++ {
				flat = append(flat, t.At(fRow, c))
			}
		}
		merged, err := reduce.SerialColumnSum(flat, k)
		if err != nil {
			return err
		}
		raw := acc.sums.Raw()
		for c := 0; c < k; c++ {
			raw[c*f+fRow] += merged[c]
		}
	}
	return nil
}
