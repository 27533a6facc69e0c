package reduce_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clusterforge/streamkm/internal/testsupport"
	"github.com/clusterforge/streamkm/reduce"
)

func TestColumnMatchesScenario(t *testing.T) {
	input, r, want := testsupport.ColumnReductionScenario()

	got, err := reduce.Column(input, r)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

// The halving fold must agree with a plain serial column-sum.
func TestColumnMatchesSerialColumnSum(t *testing.T) {
	input, r, _ := testsupport.ColumnReductionScenario()

	got, err := reduce.Column(input, r)
	require.NoError(t, err)
	want, err := reduce.SerialColumnSum(input, r)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestColumnRejectsNonPowerOfTwoDivisor(t *testing.T) {
	// L/R = 3, not a power of two.
	_, err := reduce.Column([]float32{1, 2, 3, 4, 5, 6}, 2)
	require.Error(t, err)
}

func TestColumnRejectsLengthNotMultipleOfR(t *testing.T) {
	_, err := reduce.Column([]float32{1, 2, 3}, 2)
	require.Error(t, err)
}

func TestSerialColumnSumRejectsLengthNotMultipleOfR(t *testing.T) {
	_, err := reduce.SerialColumnSum([]float32{1, 2, 3}, 2)
	require.Error(t, err)
}
