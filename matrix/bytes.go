package matrix

import "unsafe"

// Bytes reinterprets the matrix's backing storage as a byte slice, the
// host-resident contiguous byte range the buffer cache registers as a
// DataObject. The returned slice aliases m's storage; callers must not
// outlive the matrix.
func Bytes[T Numeric](m *Matrix[T]) []byte {
	data := m.Raw()
	if len(data) == 0 {
		return nil
	}
	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*elemSize)
}

// ElemSize returns sizeof(T) for a zero-value probe, used by callers that
// need to convert between byte offsets and element counts (e.g. the
// scheduler's tile stride math).
func ElemSize[T Numeric]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// SliceBytes reinterprets a flat slice of T -- e.g. the labels or masses
// buffers, which are plain vectors rather than a Matrix -- as a byte
// slice, the same zero-copy registration path Bytes provides for a
// Matrix's backing storage.
func SliceBytes[T Numeric](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	elemSize := ElemSize[T]()
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*elemSize)
}

// FromBytes is Bytes' inverse: it reinterprets a byte slice -- typically a
// cache tile buffer -- as a flat slice of T without copying. len(b) must
// be a whole multiple of sizeof(T); callers that tile by whole points
// guarantee this by construction.
func FromBytes[T Numeric](b []byte) []T {
	if len(b) == 0 {
		return nil
	}
	elemSize := ElemSize[T]()
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), len(b)/elemSize)
}
