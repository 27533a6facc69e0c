package strategy_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clusterforge/streamkm/internal/testsupport"
	"github.com/clusterforge/streamkm/matrix"
	"github.com/clusterforge/streamkm/schedule"
	"github.com/clusterforge/streamkm/strategy"
)

// TestMassUpdateCorrectness counts uneven clusters (N=8, K=3,
// labels=[0,1,2,0,1,2,0,1] -> masses=[3,3,2]) and requires every
// accumulator variant to agree.
func TestMassUpdateCorrectness(t *testing.T) {
	labels, wantMasses := testsupport.MassUpdateScenario()

	for _, variant := range []string{"global_atomic", "part_global", "part_local", "part_private"} {
		t.Run(variant, func(t *testing.T) {
			acc := strategy.NewMassAccumulator[uint32](3)

			kernel, err := strategy.NewMassUpdateKernel[uint32, uint32](strategy.MassUpdateConfig{Strategy: variant}, 3, acc, nil)
			require.NoError(t, err)

			var tile schedule.ExecutionTile
			ev, err := kernel(nil, tile, matrix.SliceBytes(labels), nil)
			require.NoError(t, err)
			require.NoError(t, ev.Wait())

			out := make([]uint32, 3)
			acc.WriteTo(out)
			require.Equal(t, wantMasses, out)
			require.Equal(t, uint64(len(labels)), acc.Sum())
		})
	}
}

func TestMassUpdateRejectsUnknownStrategy(t *testing.T) {
	acc := strategy.NewMassAccumulator[uint32](2)
	_, err := strategy.NewMassUpdateKernel[uint32, uint32](strategy.MassUpdateConfig{Strategy: "bogus"}, 2, acc, nil)
	require.Error(t, err)
}

func TestMassAccumulatorResetZeroes(t *testing.T) {
	acc := strategy.NewMassAccumulator[uint32](2)
	acc.Add(0)
	acc.Add(1)
	acc.Reset()
	require.Equal(t, uint64(0), acc.Sum())
}
