package schedule

import "testing"

func TestTilesForCoverDisjointAndAscending(t *testing.T) {
	tiles := tilesFor(1, 100, 16)
	var covered int64
	for i, tl := range tiles {
		if tl.Offset != covered {
			t.Fatalf("tile %d offset = %d, want %d (tiles must be contiguous/ascending)", i, tl.Offset, covered)
		}
		covered += tl.Length
	}
	if covered != 100 {
		t.Fatalf("total covered = %d, want 100", covered)
	}
	last := tiles[len(tiles)-1]
	if last.Length != 4 {
		t.Fatalf("final short tile length = %d, want 4 (100 mod 16)", last.Length)
	}
}

func TestTileCountExactMultiple(t *testing.T) {
	if got := tileCount(64, 16); got != 4 {
		t.Fatalf("tileCount(64,16) = %d, want 4", got)
	}
}
