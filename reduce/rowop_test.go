package reduce_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clusterforge/streamkm/internal/testsupport"
	"github.com/clusterforge/streamkm/matrix"
	"github.com/clusterforge/streamkm/reduce"
)

func TestRowBroadcastDivideMatchesScenario(t *testing.T) {
	m, v, want := testsupport.RowBroadcastDivideScenario()

	require.NoError(t, reduce.RowBroadcast(m, v, reduce.OpDiv))

	for c := 0; c < m.Cols(); c++ {
		for r := 0; r < m.Rows(); r++ {
			require.Equal(t, want.At(r, c), m.At(r, c))
		}
	}
}

func TestRowBroadcastAddSubMul(t *testing.T) {
	m := matrix.NewSized[float32](1, 2)
	m.SetColumn(0, []float32{1})
	m.SetColumn(1, []float32{2})

	require.NoError(t, reduce.RowBroadcast(m, []float32{10, 10}, reduce.OpAdd))
	require.Equal(t, float32(11), m.At(0, 0))
	require.Equal(t, float32(12), m.At(0, 1))

	require.NoError(t, reduce.RowBroadcast(m, []float32{1, 2}, reduce.OpSub))
	require.Equal(t, float32(10), m.At(0, 0))
	require.Equal(t, float32(10), m.At(0, 1))

	require.NoError(t, reduce.RowBroadcast(m, []float32{2, 3}, reduce.OpMul))
	require.Equal(t, float32(20), m.At(0, 0))
	require.Equal(t, float32(30), m.At(0, 1))
}

// Dividing by an empty cluster's zero mass must propagate Inf, not error.
func TestRowBroadcastDivideByZeroPropagatesAsInf(t *testing.T) {
	m := matrix.NewSized[float32](1, 1)
	m.SetColumn(0, []float32{5})

	require.NoError(t, reduce.RowBroadcast(m, []float32{0}, reduce.OpDiv))
	require.True(t, math.IsInf(float64(m.At(0, 0)), 1))
}

func TestRowBroadcastRejectsLengthMismatch(t *testing.T) {
	m := matrix.NewSized[float32](1, 2)
	err := reduce.RowBroadcast(m, []float32{1}, reduce.OpAdd)
	require.Error(t, err)
}
