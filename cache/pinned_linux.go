//go:build linux

package cache

import "golang.org/x/sys/unix"

// allocPinned allocates a size-byte buffer and locks it into RAM via
// mlock(2), the portable analog of a device's pinned-host-memory
// allocator. Failure to lock is not fatal -- the buffer still works as a
// staging buffer, just without the page-fault guarantee mlock gives.
func allocPinned(size int) []byte {
	b := make([]byte, size)
	if size > 0 {
		_ = unix.Mlock(b)
	}
	return b
}

func freePinned(b []byte) {
	if len(b) > 0 {
		_ = unix.Munlock(b)
	}
}
