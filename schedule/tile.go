// Package schedule implements the device scheduler: it accepts abstract
// unary/binary "runnables" bound to one or two data objects, walks each
// object in buffer-sized tiles, and orchestrates the dependency ordering
// between cache transfers and kernel invocations.
package schedule

// ExecutionTile is a derived, transient (object_id, offset, length) triple
// produced while walking an object in step-sized strides. length is always
// <= the step requested for that object; the final tile of an object may be
// short when the object's length is not an exact multiple of step.
type ExecutionTile struct {
	ObjectID int
	Offset   int64
	Length   int64
}

// tileCount returns how many tiles of size step cover an object of the
// given byte length, the ceiling division a binary runnable's two
// operands must agree on.
func tileCount(objectLength, step int64) int64 {
	if step <= 0 {
		return 0
	}
	return (objectLength + step - 1) / step
}

// tilesFor enumerates the disjoint, ascending-offset tiles covering an
// object of the given length at the given step. The union of the tiles is
// exactly the object's byte range.
func tilesFor(objectID int, objectLength, step int64) []ExecutionTile {
	n := tileCount(objectLength, step)
	tiles := make([]ExecutionTile, 0, n)
	for i := int64(0); i < n; i++ {
		begin := i * step
		end := begin + step
		if end > objectLength {
			end = objectLength
		}
		tiles = append(tiles, ExecutionTile{ObjectID: objectID, Offset: begin, Length: end - begin})
	}
	return tiles
}
