// Package testsupport holds small point sets and reference results shared
// across package tests, so the common end-to-end scenarios are built once
// instead of re-typed in every package's _test.go file.
package testsupport

import "github.com/clusterforge/streamkm/matrix"

// MinimalThreeStage returns the smallest exactly-checkable clustering
// scenario: F=2, N=4, K=2, points =
// [(0,0),(0,1),(10,0),(10,1)] with initial centroids [(0,0),(10,0)]. One
// Lloyd iteration is expected to produce labels=[0,0,1,1], masses=[2,2], and
// new centroids (0,0.5), (10,0.5).
func MinimalThreeStage() (points, initialCentroids *matrix.Matrix[float32]) {
	points = matrix.NewSized[float32](2, 4)
	points.SetColumn(0, []float32{0, 0})
	points.SetColumn(1, []float32{0, 1})
	points.SetColumn(2, []float32{10, 0})
	points.SetColumn(3, []float32{10, 1})

	initialCentroids = matrix.NewSized[float32](2, 2)
	initialCentroids.SetColumn(0, []float32{0, 0})
	initialCentroids.SetColumn(1, []float32{10, 0})
	return points, initialCentroids
}

// MinimalThreeStageLabels is the expected label assignment for
// MinimalThreeStage after one Lloyd iteration.
var MinimalThreeStageLabels = []uint32{0, 0, 1, 1}

// MinimalThreeStageMasses is the expected per-cluster cardinality for
// MinimalThreeStage after one Lloyd iteration.
var MinimalThreeStageMasses = []uint32{2, 2}

// MassUpdateScenario returns a mass-update case with uneven cluster
// sizes: N=8, K=3, labels = [0,1,2,0,1,2,0,1] -> expected masses = [3,3,2].
func MassUpdateScenario() (labels []uint32, expectedMasses []uint32) {
	return []uint32{0, 1, 2, 0, 1, 2, 0, 1}, []uint32{3, 3, 2}
}

// ColumnReductionScenario returns a length-16 input of four interleaved
// columns with four partials each, reducing to R=4 -> [10,10,10,10].
func ColumnReductionScenario() (input []float32, r int, want []float32) {
	return []float32{1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4}, 4, []float32{10, 10, 10, 10}
}

// RowBroadcastDivideScenario returns an exactly-divisible broadcast case:
// M (F=2,K=3) = [[2,4,6],[8,10,12]] column-major, v=[2,2,2] ->
// M' = [[1,2,3],[4,5,6]].
func RowBroadcastDivideScenario() (m *matrix.Matrix[float32], v []float32, want *matrix.Matrix[float32]) {
	m = matrix.NewSized[float32](2, 3)
	m.SetColumn(0, []float32{2, 8})
	m.SetColumn(1, []float32{4, 10})
	m.SetColumn(2, []float32{6, 12})

	v = []float32{2, 2, 2}

	want = matrix.NewSized[float32](2, 3)
	want.SetColumn(0, []float32{1, 4})
	want.SetColumn(1, []float32{2, 5})
	want.SetColumn(2, []float32{3, 6})
	return m, v, want
}
