// Package cache implements the tiled buffer cache: it maps host-resident
// data objects onto a fixed-size pool of per-device buffer slots, with
// non-blocking locking, eviction, and asynchronous host<->device transfer
// performed by a per-queue worker goroutine.
package cache

import "fmt"

// Mode is the eviction/writeback hint an object was registered with.
type Mode int

const (
	// ModeReadWrite objects are mutable: eviction requires a blocking
	// read-back (device -> host) before the slot may be reused.
	ModeReadWrite Mode = iota
	// ModeReadOnly objects are never written by device kernels: eviction
	// just overwrites slot metadata.
	ModeReadOnly
	// ModeTransient objects carry no cross-call state worth preserving:
	// eviction is metadata-only, same as ModeReadOnly.
	ModeTransient
)

func (m Mode) String() string {
	switch m {
	case ModeReadWrite:
		return "read-write"
	case ModeReadOnly:
		return "read-only"
	case ModeTransient:
		return "transient"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// DeviceKind selects zero-copy behavior and is otherwise informative; the
// strategy layer uses it to pick kernel variants.
type DeviceKind int

const (
	DeviceCPU DeviceKind = iota
	DeviceGPU
	DeviceAccelerator
)

func (k DeviceKind) String() string {
	switch k {
	case DeviceCPU:
		return "cpu"
	case DeviceGPU:
		return "gpu"
	case DeviceAccelerator:
		return "accelerator"
	default:
		return fmt.Sprintf("device(%d)", int(k))
	}
}

// DataObject is a host-resident contiguous byte range registered with the
// cache. The cache never copies or takes ownership of Data; the caller must
// keep it alive and unmodified by other writers for the registration's
// lifetime.
type DataObject struct {
	ID     int
	Data   []byte
	Mode   Mode
}

func (o *DataObject) contains(begin, end int64) bool {
	return begin >= 0 && end <= int64(len(o.Data)) && begin <= end
}
