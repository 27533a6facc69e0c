package pipeline

import "github.com/clusterforge/streamkm/matrix"

// Devices names the (possibly distinct) device ids each of the three
// stages targets. When two stages share a device id the corresponding
// mirror step is a no-op.
type Devices struct {
	Labeling       int
	MassUpdate     int
	CentroidUpdate int
}

// singleDevice reports whether every stage targets the same device,
// the common case this driver optimizes for: no mirroring is needed.
func (d Devices) singleDevice() bool {
	return d.Labeling == d.MassUpdate && d.MassUpdate == d.CentroidUpdate
}

// centroidMirror keeps one centroid matrix copy per distinct device id a
// stage targets. The driver syncs it once per iteration after
// centroid-update finalizes new centroids, before the next iteration's
// labeling reads them off (potentially) a different device's copy.
// Label coherence takes the other route: labels travel through the buffer
// cache as a registered object, so a device->host write-back after the
// labeling stage is what makes them visible to the other devices.
type centroidMirror[P matrix.Numeric] struct {
	copies map[int]*matrix.Matrix[P]
}

func newCentroidMirror[P matrix.Numeric]() *centroidMirror[P] {
	return &centroidMirror[P]{copies: make(map[int]*matrix.Matrix[P])}
}

// sync makes every device id in ids see src's current values, copying
// into a per-device matrix where the id differs from the owning device
// (ownerDevice is the device that just produced src, so its "mirror" is
// src itself, not a copy).
func (m *centroidMirror[P]) sync(ownerDevice int, src *matrix.Matrix[P], ids ...int) map[int]*matrix.Matrix[P] {
	out := make(map[int]*matrix.Matrix[P], len(ids))
	for _, id := range ids {
		if id == ownerDevice {
			out[id] = src
			continue
		}
		dst, ok := m.copies[id]
		if !ok || dst.Rows() != src.Rows() || dst.Cols() != src.Cols() {
			dst = matrix.NewSized[P](src.Rows(), src.Cols())
			m.copies[id] = dst
		}
		copy(dst.Raw(), src.Raw())
		out[id] = dst
	}
	return out
}
