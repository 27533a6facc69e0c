package ioformat

import (
	"fmt"
	"os"
)

// AsyncReader is an out-of-core points-file reader: it fills a
// caller-owned, cache-buffer-sized byte slice from an absolute file
// offset, letting a bench/CLI driver stage the points file straight into
// cache.Cache-sized tiles instead of loading it whole into host memory
// first. Linux builds back this with io_uring (reader_linux.go); other
// platforms fall back to a plain ReadAt (reader_stub.go).
type AsyncReader interface {
	// ReadAt fills buf from off, blocking until the read completes.
	ReadAt(buf []byte, off int64) (int, error)
	Close() error
}

// Open opens path for tiled async reads. The returned size is the file's
// byte length, used by callers to compute how many tiles the points
// payload (file length minus the 24-byte header) spans.
func Open(path string) (AsyncReader, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("ioformat: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("ioformat: stat %s: %w", path, err)
	}
	r, err := newAsyncReader(f)
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return r, info.Size(), nil
}
