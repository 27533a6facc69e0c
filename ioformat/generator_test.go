package ioformat_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clusterforge/streamkm/ioformat"
)

func TestGeneratePartitionsPointsByCluster(t *testing.T) {
	g := ioformat.NewGenerator(1).
		NumFeatures(3).
		NumClusters(4).
		ClusterRadius(0.5).
		Domain(0, 100).
		TotalSize(4 * 3 * 400). // 400 points worth of float32 feature values
		PointMultiple(1)

	res := ioformat.Generate[float32, uint32](g)

	require.Equal(t, 3, res.Points.Rows())
	require.Equal(t, 400, res.Points.Cols())
	require.Equal(t, 4, res.Centroids.Cols())
	require.Len(t, res.Labels, 400)

	counts := make(map[uint32]int)
	for _, l := range res.Labels {
		counts[l]++
	}
	require.Len(t, counts, 4)
	for _, c := range counts {
		require.InDelta(t, 100, c, 1)
	}
}

func TestGenerateRoundsDownToMultiple(t *testing.T) {
	g := ioformat.NewGenerator(2).
		NumFeatures(2).
		NumClusters(3).
		TotalSize(4 * 2 * 100). // 100 points' worth, not evenly divisible by 3 or 8
		PointMultiple(8)

	res := ioformat.Generate[float32, uint32](g)
	require.Zero(t, res.Points.Cols()%8)
}
