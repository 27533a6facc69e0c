package strategy_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clusterforge/streamkm/internal/testsupport"
	"github.com/clusterforge/streamkm/matrix"
	"github.com/clusterforge/streamkm/schedule"
	"github.com/clusterforge/streamkm/strategy"
)

// TestLabelingMinimalThreeStage checks the labeling kernel alone on the
// minimal scenario: F=2, N=4, K=2, points = [(0,0),(0,1),(10,0),(10,1)],
// initial centroids = [(0,0),(10,0)] -> expected labels = [0,0,1,1].
func TestLabelingMinimalThreeStage(t *testing.T) {
	points, centroids := testsupport.MinimalThreeStage()

	kernel, err := strategy.NewLabelingKernel[float32, uint32](strategy.LabelingConfig{Strategy: "unroll_vector"}, 2, 2, centroids, strategy.VariantLocalStride, nil)
	require.NoError(t, err)

	labels := make([]uint32, 4)
	var tile schedule.ExecutionTile

	ev, err := kernel(nil, tile, tile, matrix.Bytes(points), matrix.SliceBytes(labels), nil)
	require.NoError(t, err)
	require.NoError(t, ev.Wait())

	require.Equal(t, testsupport.MinimalThreeStageLabels, labels)
}

// A point equidistant from two centroids must go to the smaller index.
func TestLabelingTieBreaksTowardSmallerCluster(t *testing.T) {
	points := matrix.NewSized[float32](1, 1)
	points.SetColumn(0, []float32{5})

	centroids := matrix.NewSized[float32](1, 2)
	centroids.SetColumn(0, []float32{0})
	centroids.SetColumn(1, []float32{10})

	kernel, err := strategy.NewLabelingKernel[float32, uint32](strategy.LabelingConfig{}, 1, 2, centroids, strategy.VariantLocalStride, nil)
	require.NoError(t, err)

	labels := make([]uint32, 1)
	var tile schedule.ExecutionTile
	_, err = kernel(nil, tile, tile, matrix.Bytes(points), matrix.SliceBytes(labels), nil)
	require.NoError(t, err)
	require.Equal(t, uint32(0), labels[0])
}

func TestLabelingRejectsUnsupportedFeatureCount(t *testing.T) {
	centroids := matrix.NewSized[float32](3, 2)
	_, err := strategy.NewLabelingKernel[float32, uint32](strategy.LabelingConfig{}, 3, 2, centroids, strategy.VariantLocalStride, nil)
	require.Error(t, err)
}

func TestLabelingRejectsUnknownStrategy(t *testing.T) {
	centroids := matrix.NewSized[float32](2, 2)
	_, err := strategy.NewLabelingKernel[float32, uint32](strategy.LabelingConfig{Strategy: "bogus"}, 2, 2, centroids, strategy.VariantLocalStride, nil)
	require.Error(t, err)
}
