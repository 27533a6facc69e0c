//go:build !linux

package cache

// allocPinned falls back to a plain heap allocation on platforms without
// mlock(2); the staging path still functions, it just loses the
// page-residency guarantee.
func allocPinned(size int) []byte {
	return make([]byte, size)
}

func freePinned(b []byte) {}
