package strategy_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clusterforge/streamkm/internal/testsupport"
	"github.com/clusterforge/streamkm/matrix"
	"github.com/clusterforge/streamkm/reduce"
	"github.com/clusterforge/streamkm/schedule"
	"github.com/clusterforge/streamkm/strategy"
)

// TestCentroidUpdateMinimalThreeStage checks the centroid-update kernel
// alone on the minimal scenario: F=2, N=4, K=2, labels=[0,0,1,1] ->
// accumulated sums (pre-divide) = [(0,1),(20,1)], identical across all
// three variants.
func TestCentroidUpdateMinimalThreeStage(t *testing.T) {
	for _, variant := range []string{"feature_sum", "feature_sum_pardim", "cluster_merge"} {
		t.Run(variant, func(t *testing.T) {
			points, _ := testsupport.MinimalThreeStage()
			labels := testsupport.MinimalThreeStageLabels

			acc := strategy.NewCentroidAccumulator[float32](2, 2)
			kernel, err := strategy.NewCentroidUpdateKernel[float32, uint32](strategy.CentroidUpdateConfig{Strategy: variant}, 2, 2, acc, nil)
			require.NoError(t, err)

			var tile schedule.ExecutionTile
			ev, err := kernel(nil, tile, tile, matrix.Bytes(points), matrix.SliceBytes(labels), nil)
			require.NoError(t, err)
			require.NoError(t, ev.Wait())

			require.Equal(t, float32(0), acc.Matrix().At(0, 0))
			require.Equal(t, float32(1), acc.Matrix().At(1, 0))
			require.Equal(t, float32(20), acc.Matrix().At(0, 1))
			require.Equal(t, float32(1), acc.Matrix().At(1, 1))
		})
	}
}

func TestCentroidAccumulatorResetZeroes(t *testing.T) {
	acc := strategy.NewCentroidAccumulator[float32](2, 2)
	acc.Matrix().Set(0, 0, 5)
	acc.Reset()
	require.Equal(t, float32(0), acc.Matrix().At(0, 0))
}

// TestParallelColumnReductionMatchesSerial re-exercises the fold from the
// centroid-update merge path's perspective: the serial sum (used
// internally by cluster_merge's fold) agrees with reduce.Column for
// shapes where reduce.Column's power-of-two constraint holds.
func TestParallelColumnReductionMatchesSerial(t *testing.T) {
	input := []float32{1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4}
	got, err := reduce.Column(input, 4)
	require.NoError(t, err)
	want, err := reduce.SerialColumnSum(input, 4)
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.Equal(t, []float32{10, 10, 10, 10}, got)
}
