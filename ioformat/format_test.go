package ioformat_test

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clusterforge/streamkm/ioformat"
	"github.com/clusterforge/streamkm/matrix"
)

func samplePoints() *matrix.Matrix[float32] {
	m := matrix.NewSized[float32](3, 2)
	m.SetColumn(0, []float32{1, 2, 3})
	m.SetColumn(1, []float32{4, 5, 6})
	return m
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	points := samplePoints()
	require.NoError(t, ioformat.WritePoints(&buf, points))

	got, err := ioformat.ReadPoints[float32](&buf)
	require.NoError(t, err)
	require.Equal(t, points.Rows(), got.Rows())
	require.Equal(t, points.Cols(), got.Cols())
	for c := 0; c < points.Cols(); c++ {
		require.Equal(t, points.Column(c), got.Column(c))
	}
}

func TestReadHeaderRejectsGroundTruth(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ioformat.WriteHeader(&buf, ioformat.Header{NumFeatures: 2, NumClusters: 3, NumPoints: 10}))

	_, err := ioformat.ReadHeader(&buf)
	require.ErrorIs(t, err, ioformat.ErrGroundTruthUnsupported)
}

func TestFeatureMajorOrderingOnWire(t *testing.T) {
	// Two points, two features: column-major in memory is (p0f0,p0f1),
	// (p1f0,p1f1), but the wire format is feature-major -- all of
	// feature 0 across every point, then all of feature 1.
	m := matrix.NewSized[float32](2, 2)
	m.SetColumn(0, []float32{10, 20})
	m.SetColumn(1, []float32{30, 40})

	var buf bytes.Buffer
	require.NoError(t, ioformat.WritePoints(&buf, m))

	raw := buf.Bytes()[24:] // skip the three uint64 header fields
	require.Len(t, raw, 4*4)

	readFloat := func(offset int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(raw[offset : offset+4]))
	}
	require.Equal(t, []float32{10, 30, 20, 40}, []float32{
		readFloat(0), readFloat(4), readFloat(8), readFloat(12),
	})
}
