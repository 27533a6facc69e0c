// Package ioformat implements the points-file binary format and its
// synthetic-data counterpart: a reader/writer pair for the
// three-uint64-header-plus-feature-major-floats layout, an out-of-core
// async reader (Linux: pawelgaczynski/giouring; everywhere else: a
// ReadAt-based stub), and a clustered-dataset generator.
package ioformat

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/clusterforge/streamkm/kmerr"
	"github.com/clusterforge/streamkm/matrix"
	"github.com/clusterforge/streamkm/strategy"
)

// Header is the points file's three-uint64 preamble: feature count,
// cluster count (must be zero; importing ground-truth centroids is
// unsupported), and point count.
type Header struct {
	NumFeatures uint64
	NumClusters uint64
	NumPoints   uint64
}

// ErrGroundTruthUnsupported is returned by ReadHeader when NumClusters is
// nonzero.
var ErrGroundTruthUnsupported = kmerr.New("ioformat.ReadHeader", kmerr.CodeConfiguration, "points file declares nonzero num_clusters; importing ground-truth centroids is unsupported")

// ReadHeader reads and validates the three-uint64 preamble.
func ReadHeader(r io.Reader) (Header, error) {
	var h Header
	for _, field := range []*uint64{&h.NumFeatures, &h.NumClusters, &h.NumPoints} {
		if err := binary.Read(r, binary.LittleEndian, field); err != nil {
			return Header{}, fmt.Errorf("ioformat: read header: %w", err)
		}
	}
	if h.NumClusters != 0 {
		return Header{}, ErrGroundTruthUnsupported
	}
	return h, nil
}

// WriteHeader writes h's three uint64 fields.
func WriteHeader(w io.Writer, h Header) error {
	for _, field := range []uint64{h.NumFeatures, h.NumClusters, h.NumPoints} {
		if err := binary.Write(w, binary.LittleEndian, field); err != nil {
			return fmt.Errorf("ioformat: write header: %w", err)
		}
	}
	return nil
}

// ReadPoints reads a complete points file: the header, then
// num_features*num_points IEEE-754 float32 values in feature-major order
// (outer loop over features, inner over points), transposed on the fly
// into an F x N matrix.Matrix[P] with point-contiguous storage.
func ReadPoints[P strategy.Float](r io.Reader) (*matrix.Matrix[P], error) {
	br := bufio.NewReader(r)
	h, err := ReadHeader(br)
	if err != nil {
		return nil, err
	}

	f, n := int(h.NumFeatures), int(h.NumPoints)
	out := matrix.NewSized[P](f, n)

	for ff := 0; ff < f; ff++ {
		for p := 0; p < n; p++ {
			var v float32
			if err := binary.Read(br, binary.LittleEndian, &v); err != nil {
				return nil, fmt.Errorf("ioformat: read point (feature=%d, point=%d): %w", ff, p, err)
			}
			out.Set(ff, p, P(v))
		}
	}
	return out, nil
}

// WritePoints writes points in the same header-then-feature-major-floats
// layout ReadPoints reads, the generator's and any caller-supplied
// dataset's serialization path.
func WritePoints[P strategy.Float](w io.Writer, points *matrix.Matrix[P]) error {
	bw := bufio.NewWriter(w)
	h := Header{NumFeatures: uint64(points.Rows()), NumClusters: 0, NumPoints: uint64(points.Cols())}
	if err := WriteHeader(bw, h); err != nil {
		return err
	}

	f, n := points.Rows(), points.Cols()
	for ff := 0; ff < f; ff++ {
		for p := 0; p < n; p++ {
			v := float32(points.At(ff, p))
			if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
				return fmt.Errorf("ioformat: write point (feature=%d, point=%d): %w", ff, p, err)
			}
		}
	}
	return bw.Flush()
}
