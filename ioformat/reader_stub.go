//go:build !linux

package ioformat

import "os"

// fileReader backs AsyncReader with a plain ReadAt on non-Linux builds,
// where io_uring is unavailable (mirrors internal/uring/iouring_stub.go).
type fileReader struct {
	file *os.File
}

func newAsyncReader(f *os.File) (AsyncReader, error) {
	return &fileReader{file: f}, nil
}

func (r *fileReader) ReadAt(buf []byte, off int64) (int, error) {
	return r.file.ReadAt(buf, off)
}

func (r *fileReader) Close() error {
	return r.file.Close()
}
