//go:build linux

package ioformat

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"github.com/pawelgaczynski/giouring"
)

// ringDepth is the submission/completion queue depth for the points-file
// reader. One outstanding read at a time is all AsyncReader.ReadAt needs,
// but giouring's CreateRing wants a nonzero power of two.
const ringDepth = 8

// ringReader backs AsyncReader with io_uring reads, one SQE per ReadAt
// call, submitted and waited on synchronously.
type ringReader struct {
	mu   sync.Mutex
	ring *giouring.Ring
	file *os.File
}

func newAsyncReader(f *os.File) (AsyncReader, error) {
	ring, err := giouring.CreateRing(ringDepth)
	if err != nil {
		return nil, fmt.Errorf("ioformat: create io_uring ring: %w", err)
	}
	return &ringReader{ring: ring, file: f}, nil
}

func (r *ringReader) ReadAt(buf []byte, off int64) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sqe := r.ring.GetSQE()
	if sqe == nil {
		return 0, fmt.Errorf("ioformat: submission queue full at offset %d", off)
	}
	sqe.PrepareRead(int(r.file.Fd()), uintptr(unsafe.Pointer(&buf[0])), uint32(len(buf)), uint64(off))
	sqe.UserData = 1

	if _, err := r.ring.Submit(); err != nil {
		return 0, fmt.Errorf("ioformat: submit read at offset %d: %w", off, err)
	}

	cqe, err := r.ring.WaitCQE()
	if err != nil {
		return 0, fmt.Errorf("ioformat: wait for read at offset %d: %w", off, err)
	}
	n := int(cqe.Res)
	r.ring.CQESeen(cqe)
	if n < 0 {
		return 0, fmt.Errorf("ioformat: read at offset %d failed with code %d", off, n)
	}
	return n, nil
}

func (r *ringReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ring.QueueExit()
	return r.file.Close()
}
