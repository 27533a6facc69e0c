// Package matrix provides the dense, column-major numeric storage that every
// other layer of streamkm tiles, caches, and reduces.
package matrix

import "fmt"

// Numeric is the set of element types a Matrix can hold: the point type
// (float32/float64), label type (uint32/uint64), and mass type
// (uint32/uint64) all satisfy it.
type Numeric interface {
	~float32 | ~float64 | ~uint32 | ~uint64 | ~int32 | ~int64
}

// Matrix is a dense R x C array of T. Storage is column-major with columns
// holding contiguous points/centroids: element (r, c) lives at offset
// c*rows+r. For a Points matrix (F rows = features, N cols = points), all F
// feature values of one point live contiguously, which is what lets the
// scheduler tile points without ever splitting a point across a tile
// boundary.
type Matrix[T Numeric] struct {
	rows, cols int
	data       []T
}

// New allocates an empty matrix; Resize must be called before use.
func New[T Numeric]() *Matrix[T] {
	return &Matrix[T]{}
}

// NewSized allocates a matrix already sized to rows x cols, zero-filled.
func NewSized[T Numeric](rows, cols int) *Matrix[T] {
	m := &Matrix[T]{}
	m.Resize(rows, cols)
	return m
}

// Resize allocates backing storage for rows x cols elements. A Matrix is
// constructed empty and resized exactly once per logical use; callers that
// need a fresh shape should construct a new Matrix rather than calling
// Resize twice on a live one.
func (m *Matrix[T]) Resize(rows, cols int) {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("matrix: negative dimension rows=%d cols=%d", rows, cols))
	}
	m.rows, m.cols = rows, cols
	m.data = make([]T, rows*cols)
}

// Rows returns the row count.
func (m *Matrix[T]) Rows() int { return m.rows }

// Cols returns the column count.
func (m *Matrix[T]) Cols() int { return m.cols }

// Len returns rows*cols, the storage length. Invariant: rows*cols ==
// len(storage) always holds after Resize.
func (m *Matrix[T]) Len() int { return len(m.data) }

// index computes the column-major offset of (r, c).
func (m *Matrix[T]) index(r, c int) int {
	return c*m.rows + r
}

// At returns element (r, c).
func (m *Matrix[T]) At(r, c int) T {
	return m.data[m.index(r, c)]
}

// Set assigns element (r, c).
func (m *Matrix[T]) Set(r, c int, v T) {
	m.data[m.index(r, c)] = v
}

// Raw returns the backing storage for direct (unsafe-free) bulk access, e.g.
// handing the byte range to the buffer cache via Bytes.
func (m *Matrix[T]) Raw() []T { return m.data }

// Column returns a slice view of one column (one point's feature vector, or
// one cluster's centroid vector), without copying.
func (m *Matrix[T]) Column(c int) []T {
	start := c * m.rows
	return m.data[start : start+m.rows]
}

// SetColumn overwrites column c in place.
func (m *Matrix[T]) SetColumn(c int, v []T) {
	if len(v) != m.rows {
		panic(fmt.Sprintf("matrix: SetColumn length %d != rows %d", len(v), m.rows))
	}
	copy(m.Column(c), v)
}
