// Package reduce implements two numeric primitives: parallel column
// reduction (fold a length-L vector of R interleaved column-partials down
// to length R) and the row-broadcast elementwise binary operator used to
// divide accumulated centroid sums by cluster masses.
package reduce

import (
	"fmt"

	"github.com/clusterforge/streamkm/matrix"
)

// workgroupSize is the fixed W=256 workgroup size of the device fold: a
// compact phase halves L while it stays above 2*W, then an inner phase
// finishes the fold within one workgroup. In a single-process Go
// implementation both phases are the same halving step; the constant is
// kept to document where a device kernel would switch from global-memory
// passes to one local-memory workgroup.
const workgroupSize = 256

// Column reduces a length-L vector interpreted as R interleaved columns of
// length C=L/R (element at index c+j*R belongs to output row c, partial
// j) down to length R by summing across the C partials. L/R must be a
// power of two so the halving fold lands exactly on R.
func Column[T matrix.Numeric](input []T, r int) ([]T, error) {
	l := len(input)
	if r <= 0 || l%r != 0 {
		return nil, fmt.Errorf("reduce: length %d not a multiple of R=%d", l, r)
	}
	c := l / r
	if c&(c-1) != 0 {
		return nil, fmt.Errorf("reduce: L/R=%d is not a power of two", c)
	}

	data := make([]T, l)
	copy(data, input)

	cur := l
	for cur > r {
		half := cur / 2
		for i := 0; i < half; i++ {
			data[i] += data[i+half]
		}
		cur = half
	}
	return data[:r], nil
}

// SerialColumnSum is the serial reference fold Column is checked against,
// and the general-purpose fold for partial counts that are not a power of
// two: output[c] = input[c] + input[c+R] + input[c+2R] + ... .
func SerialColumnSum[T matrix.Numeric](input []T, r int) ([]T, error) {
	l := len(input)
	if r <= 0 || l%r != 0 {
		return nil, fmt.Errorf("reduce: length %d not a multiple of R=%d", l, r)
	}
	out := make([]T, r)
	for i, v := range input {
		out[i%r] += v
	}
	return out, nil
}
