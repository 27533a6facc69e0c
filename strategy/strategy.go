// Package strategy implements the three interchangeable kernel families
// of the Lloyd pipeline -- labeling (unroll-vector), mass update (four
// accumulator variants), and centroid update (three work-geometry
// variants) -- plus the fused single-stage alternative. Every strategy
// shares the config contract of the `[kmeans.labeling]`,
// `[kmeans.mass_update]`, `[kmeans.centroid_update]`, and `[kmeans.fused]`
// INI sections and is built as a schedule.UnaryKernel or
// schedule.BinaryKernel closure the pipeline driver enqueues against the
// scheduler.
//
// There is no real device here: every kernel runs as ordinary Go code,
// optionally fanned out across a schedule.CPUPool the way a CPU-class
// device variant fans a tile's points out across SIMD lanes. The config
// fields that would select a GPU work-geometry (global_size, local_size,
// local memory staging) are retained in the config structs but not
// validated, and they do not change how the Go kernel body executes.
package strategy

import (
	"fmt"

	"github.com/clusterforge/streamkm/kmerr"
)

// MaxFeatures is the largest feature count a labeling kernel family is
// instantiated for.
const MaxFeatures = 1024

// Float is the point-type constraint: float32 or float64.
type Float interface{ ~float32 | ~float64 }

// Label is the label-type constraint: unsigned, wide enough for log2 K.
type Label interface{ ~uint32 | ~uint64 }

// Mass is the mass-type constraint: unsigned cluster cardinality.
type Mass interface{ ~uint32 | ~uint64 }

func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }

// validateFeatureCount rejects an unsupported feature count (above
// MaxFeatures, or not a power of two under the current kernel variants)
// before launch.
func validateFeatureCount(f int) error {
	if f <= 0 || f > MaxFeatures || !isPowerOfTwo(f) {
		return kmerr.ErrUnsupportedF.WithBuildLog(fmt.Sprintf("unsupported feature count F=%d (must be a power of two, 1..%d)", f, MaxFeatures))
	}
	return nil
}

// WorkGeometry is the global_size/local_size pair every strategy config
// carries, 1-3 dimensional. Dimensions beyond what a strategy needs are
// simply left zero.
type WorkGeometry struct {
	GlobalSize [3]int
	LocalSize  [3]int
}

// Target names the platform/device pair a strategy config is bound to
// (the `platform`/`device` INI keys).
type Target struct {
	Platform uint
	Device   uint
}
