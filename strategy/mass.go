package strategy

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/clusterforge/streamkm/cache"
	"github.com/clusterforge/streamkm/kmerr"
	"github.com/clusterforge/streamkm/matrix"
	"github.com/clusterforge/streamkm/measure"
	"github.com/clusterforge/streamkm/reduce"
	"github.com/clusterforge/streamkm/schedule"
)

// MassVariant is one of the four interchangeable accumulator strategies
// for the mass-update stage. All four produce identical final masses;
// they differ only in how concurrent per-point increments are combined.
type MassVariant int

const (
	// MassGlobalAtomic increments masses[labels[p]] directly via an
	// atomic add for every point, pre-zeroed before the pass.
	MassGlobalAtomic MassVariant = iota
	// MassPartGlobal has each pool worker accumulate its own K-slot
	// histogram (a global-memory scratch row on a real device), then folds
	// the per-worker rows via reduce.SerialColumnSum and adds the result
	// into masses once.
	MassPartGlobal
	// MassPartLocal is identical to MassPartGlobal in this
	// single-process model; on a real device it distinguishes a
	// workgroup-local accumulator from a global scratch buffer, a
	// distinction Go's shared heap has no analog for.
	MassPartLocal
	// MassPartPrivate is identical to MassPartGlobal here too; on a real
	// device it distinguishes a per-thread private register-file
	// histogram from workgroup-shared local memory.
	MassPartPrivate
)

func (v MassVariant) String() string {
	switch v {
	case MassGlobalAtomic:
		return "global_atomic"
	case MassPartGlobal:
		return "part_global"
	case MassPartLocal:
		return "part_local"
	case MassPartPrivate:
		return "part_private"
	default:
		return fmt.Sprintf("mass_variant(%d)", int(v))
	}
}

// ParseMassVariant maps the `[kmeans.mass_update] strategy` INI value to a
// MassVariant.
func ParseMassVariant(s string) (MassVariant, error) {
	switch s {
	case "", "global_atomic":
		return MassGlobalAtomic, nil
	case "part_global":
		return MassPartGlobal, nil
	case "part_local":
		return MassPartLocal, nil
	case "part_private":
		return MassPartPrivate, nil
	default:
		return 0, kmerr.ErrUnknownStrategy.WithBuildLog("mass_update strategy " + s)
	}
}

// MassUpdateConfig is the `[kmeans.mass_update]` INI section.
type MassUpdateConfig struct {
	Target
	WorkGeometry
	Strategy string
}

// MassAccumulator holds the K-length cluster cardinality histogram across
// an entire pipeline iteration (it is not re-created per tile: mass
// update walks labels tile by tile and accumulates into the same
// accumulator). Internally counts are always kept in uint64 regardless of
// the declared mass-type M, and truncated to M only when written out;
// a 32-bit M overflows silently for N > 2^32, with no saturating check.
type MassAccumulator[M Mass] struct {
	counts []atomic.Uint64
}

// NewMassAccumulator allocates a zeroed K-length accumulator.
func NewMassAccumulator[M Mass](k int) *MassAccumulator[M] {
	return &MassAccumulator[M]{counts: make([]atomic.Uint64, k)}
}

// Reset zeros every cluster's count, as the pipeline driver does at the
// start of each Lloyd iteration.
func (a *MassAccumulator[M]) Reset() {
	for i := range a.counts {
		a.counts[i].Store(0)
	}
}

// Add atomically increments cluster's count by one.
func (a *MassAccumulator[M]) Add(cluster int) {
	a.counts[cluster].Add(1)
}

// mergeLocked adds delta[i] into counts[i] for every i, used by the
// part_* variants to fold pool-worker-local partials into the shared
// accumulator after their parallel pass completes.
func (a *MassAccumulator[M]) mergeLocked(delta []uint64) {
	for i, d := range delta {
		if d != 0 {
			a.counts[i].Add(d)
		}
	}
}

// WriteTo truncates and copies the accumulated counts into out (length K)
// as mass-type M, the "masses" buffer the centroid-update strategy and
// the row-broadcast divide both read.
func (a *MassAccumulator[M]) WriteTo(out []M) {
	for i := range a.counts {
		out[i] = M(a.counts[i].Load())
	}
}

// Sum returns the total of every cluster's count; after a completed
// iteration it equals the point count N.
func (a *MassAccumulator[M]) Sum() uint64 {
	var total uint64
	for i := range a.counts {
		total += a.counts[i].Load()
	}
	return total
}

// NewMassUpdateKernel builds the unary runnable kernel (labels tile) ->
// masses for the given variant. acc persists across tiles and iterations;
// callers call acc.Reset() before each iteration's mass-update pass.
func NewMassUpdateKernel[L Label, M Mass](cfg MassUpdateConfig, k int, acc *MassAccumulator[M], pool *schedule.CPUPool) (schedule.UnaryKernel, error) {
	variant, err := ParseMassVariant(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	kernel := func(q *cache.Queue, tile schedule.ExecutionTile, buf []byte, dp *measure.Datapoint) (*cache.Event, error) {
		start := time.Now()
		labels := matrix.FromBytes[L](buf)
		n := len(labels)

		switch variant {
		case MassGlobalAtomic:
			bump := func(lo, hi int) error {
				for p := lo; p < hi; p++ {
					acc.Add(int(labels[p]))
				}
				return nil
			}
			if pool != nil && n > 1 {
				err = pool.Parallel(context.Background(), n, bump)
			} else {
				err = bump(0, n)
			}
		default: // part_global, part_local, part_private
			err = partitionedMassUpdate(labels, k, acc, pool)
		}
		if err != nil {
			return nil, err
		}
		if dp != nil {
			dp.RecordMeasurement(measure.MeasurementRecord{TypeName: "mass_update:" + variant.String(), Value: time.Since(start).Seconds()})
		}
		return cache.Done(), nil
	}
	return kernel, nil
}

// partitionedMassUpdate implements the shared shape of part_global,
// part_local, and part_private: split the tile's points across workers,
// each building its own K-slot histogram with no shared-memory traffic,
// fold the per-worker histograms via reduce.SerialColumnSum, then add the folded
// result into acc once.
func partitionedMassUpdate[L Label, M Mass](labels []L, k int, acc *MassAccumulator[M], pool *schedule.CPUPool) error {
	n := len(labels)
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

	partials := make([][]uint64, workers)
	fill := func(lo, hi int) error {
		idx := lo / chunkSize
		if idx >= workers {
			idx = workers - 1
		}
		local := make([]uint64, k)
		for p := lo; p < hi; p++ {
			local[labels[p]]++
		}
		partials[idx] = local
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

	flat := make([]uint64, 0, k*workers)
	for _, p := range partials {
		if p == nil {
			p = make([]uint64, k)
		}
		flat = append(flat, p...)
	}
	merged, err := reduce.SerialColumnSum(flat, k)
	if err != nil {
		return err
	}
	acc.mergeLocked(merged)
	return nil
}
