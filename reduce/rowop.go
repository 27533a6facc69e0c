package reduce

import (
	"fmt"

	"github.com/clusterforge/streamkm/matrix"
)

// Op is one of the four elementwise binary operators RowBroadcast applies.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// RowBroadcast applies op elementwise between an F x R matrix m and an
// R-length vector v, broadcasting v along the columns: m[f,r] <- m[f,r]
// op v[r]. Division by a zero divisor follows Go's numeric contract
// (Inf/NaN for floats) and propagates rather than erroring; callers
// guarantee nonzero divisors where they need finite results.
func RowBroadcast[T matrix.Numeric](m *matrix.Matrix[T], v []T, op Op) error {
	if len(v) != m.Cols() {
		return fmt.Errorf("reduce: row-broadcast vector length %d != matrix cols %d", len(v), m.Cols())
	}
	for c := 0; c < m.Cols(); c++ {
		col := m.Column(c)
		for f := range col {
			switch op {
			case OpAdd:
				col[f] += v[c]
			case OpSub:
				col[f] -= v[c]
			case OpMul:
				col[f] *= v[c]
			case OpDiv:
				col[f] /= v[c]
			}
		}
	}
	return nil
}
