package bench

import (
	"math"

	"github.com/clusterforge/streamkm/matrix"
	"github.com/clusterforge/streamkm/strategy"
)

// DefaultTolerance is the absolute per-feature centroid difference Compare
// accepts before flagging a mismatch, accounting for floating-point
// reassociation across the strategy variants' differing summation orders.
const DefaultTolerance = 1e-4

// VerifyResult is the outcome of comparing a pipeline run's final
// labels/masses/centroids against the reference implementation's.
type VerifyResult struct {
	LabelMismatches    int
	MassMismatches     int
	MaxCentroidDelta   float64
	CentroidsWithinTol bool
	OK                 bool
}

// Compare diffs a pipeline.Driver's result against Serial's reference
// result within tolerance: exact match required for labels and
// masses (both are deterministic integer-valued outputs given the same
// input and initial centroids), tolerance-based match for centroids (which
// accumulate floating-point sums in different orders across strategy
// variants).
func Compare[P strategy.Float, L strategy.Label, M strategy.Mass](
	gotLabels []L, gotMasses []M, gotCentroids *matrix.Matrix[P],
	wantLabels []L, wantMasses []M, wantCentroids *matrix.Matrix[P],
	tolerance float64,
) VerifyResult {
	var res VerifyResult

	for i := range gotLabels {
		if i >= len(wantLabels) || gotLabels[i] != wantLabels[i] {
			res.LabelMismatches++
		}
	}
	for i := range gotMasses {
		if i >= len(wantMasses) || gotMasses[i] != wantMasses[i] {
			res.MassMismatches++
		}
	}

	res.CentroidsWithinTol = true
	raw := gotCentroids.Raw()
	wantRaw := wantCentroids.Raw()
	for i, v := range raw {
		if i >= len(wantRaw) {
			res.CentroidsWithinTol = false
			continue
		}
		delta := math.Abs(float64(v) - float64(wantRaw[i]))
		if math.IsNaN(delta) {
			g, w := float64(v), float64(wantRaw[i])
			if (math.IsNaN(g) || math.IsInf(g, 0)) && (math.IsNaN(w) || math.IsInf(w, 0)) {
				continue // both Inf/NaN from an empty cluster; not a mismatch
			}
			res.CentroidsWithinTol = false
			continue
		}
		if delta > res.MaxCentroidDelta {
			res.MaxCentroidDelta = delta
		}
		if delta > tolerance {
			res.CentroidsWithinTol = false
		}
	}

	res.OK = res.LabelMismatches == 0 && res.MassMismatches == 0 && res.CentroidsWithinTol
	return res
}
