// Package pipeline implements the three-stage and fused Lloyd-iteration
// drivers: each owns the persistent centroid/mass/label buffers, enqueues
// the strategy kernels against the scheduler once per iteration, and
// applies the row-broadcast divide to turn accumulated centroid sums into
// means.
package pipeline

import "github.com/clusterforge/streamkm/matrix"

// PartitionStep computes the largest whole-point-aligned byte stride that
// fits within bufferSize: each buffer holds floor(B/(F*sizeof(P))) whole
// points. It returns 0 when bufferSize cannot hold even one whole point.
//
// Because matrix.Matrix already stores all F feature values of one point
// contiguously, no byte-shuffling rewrite of the points data is needed:
// picking a whole-point-aligned step is sufficient to guarantee that no
// point straddles a tile boundary, including at the final short tile.
func PartitionStep[P matrix.Numeric](bufferSize int64, f int) int64 {
	pointBytes := int64(f * matrix.ElemSize[P]())
	if pointBytes <= 0 {
		return 0
	}
	points := bufferSize / pointBytes
	if points < 1 {
		return 0
	}
	return points * pointBytes
}
