package ioformat_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clusterforge/streamkm/ioformat"
)

func TestAsyncReaderFillsTiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "points.bin")

	payload := make([]byte, 256)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	r, size, err := ioformat.Open(path)
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, int64(len(payload)), size)

	// Walk the file in 64-byte tiles, the way a driver stages a points
	// file straight into cache-sized buffers.
	buf := make([]byte, 64)
	for off := int64(0); off < size; off += 64 {
		n, err := r.ReadAt(buf, off)
		require.NoError(t, err)
		require.Equal(t, 64, n)
		require.Equal(t, payload[off:off+64], buf)
	}
}
