package strategy

import (
	"context"
	"time"

	"github.com/clusterforge/streamkm/cache"
	"github.com/clusterforge/streamkm/kmerr"
	"github.com/clusterforge/streamkm/matrix"
	"github.com/clusterforge/streamkm/measure"
	"github.com/clusterforge/streamkm/schedule"
)

// LabelingVariant selects the loop-stride shape of the unroll-vector
// kernel family. The choice follows device class: CPU/accelerator devices
// prefer a work-item-local stride (each lane handles contiguous points),
// GPU devices with enough local memory stage centroids and use a global
// stride, otherwise a global-stride, global-memory fallback is used.
type LabelingVariant int

const (
	// VariantLocalStride fans points out across a CPUPool, each worker
	// owning a contiguous point range -- the CPU/accelerator path.
	VariantLocalStride LabelingVariant = iota
	// VariantGlobalStrideLocalMem mirrors a GPU kernel that stages
	// centroids in local memory once per workgroup before its global
	// stride over points; here centroids are simply read from the
	// shared matrix without staging, since there is no separate local
	// memory to model.
	VariantGlobalStrideLocalMem
	// VariantGlobalStrideGlobalMem is the fallback when local memory
	// cannot hold the centroid matrix; functionally identical to
	// VariantGlobalStrideLocalMem in this single-process implementation.
	VariantGlobalStrideGlobalMem
)

// LabelingConfig is the `[kmeans.labeling]` INI section.
type LabelingConfig struct {
	Target
	WorkGeometry
	Strategy             string // "unroll_vector"
	VectorLength         int
	UnrollClustersLength int
	UnrollFeaturesLength int
}

func (c LabelingConfig) validate(f int) error {
	if c.Strategy != "" && c.Strategy != "unroll_vector" {
		return kmerr.ErrUnknownStrategy.WithBuildLog("labeling strategy " + c.Strategy)
	}
	if err := validateFeatureCount(f); err != nil {
		return err
	}
	if c.VectorLength != 0 && !isPowerOfTwo(c.VectorLength) {
		return kmerr.New("strategy.Labeling", kmerr.CodeConfiguration, "vector_length must be a power of two")
	}
	return nil
}

// NewLabelingKernel builds the binary runnable kernel (points tile, labels
// tile) -> labels for the unroll-vector strategy: for every point,
// computes argmin over clusters of squared Euclidean distance, breaking
// ties toward the smaller cluster index.
//
// centroids is read, never written; it must not be resized concurrently
// with Scheduler.Run. pool, if non-nil and variant is VariantLocalStride,
// fans the tile's points out across pool's workers; vector_length-sized
// point grouping collapses to pool-worker-sized chunks, since the
// amortization a SIMD kernel gets from keeping vector_length centroids
// lane-resident is implicit in Go's own register allocation.
func NewLabelingKernel[P Float, L Label](cfg LabelingConfig, f, k int, centroids *matrix.Matrix[P], variant LabelingVariant, pool *schedule.CPUPool) (schedule.BinaryKernel, error) {
	if err := cfg.validate(f); err != nil {
		return nil, err
	}

	kernel := func(q *cache.Queue, pointsTile, labelsTile schedule.ExecutionTile, pointsBuf, labelsBuf []byte, dp *measure.Datapoint) (*cache.Event, error) {
		start := time.Now()
		points := matrix.FromBytes[P](pointsBuf)
		labels := matrix.FromBytes[L](labelsBuf)
		n := len(points) / f
		if n > len(labels) {
			return nil, kmerr.New("strategy.Labeling", kmerr.CodeConsistency, "points/labels tile length mismatch")
		}

		assign := func(lo, hi int) error {
			for p := lo; p < hi; p++ {
				base := p * f
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
				labels[p] = L(best)
			}
			return nil
		}

		var err error
		if pool != nil && variant == VariantLocalStride && n > 1 {
			err = pool.Parallel(context.Background(), n, assign)
		} else {
			err = assign(0, n)
		}
		if err != nil {
			return nil, err
		}
		if dp != nil {
			dp.RecordMeasurement(measure.MeasurementRecord{TypeName: "labeling", Value: time.Since(start).Seconds()})
		}
		return cache.Done(), nil
	}
	return kernel, nil
}
