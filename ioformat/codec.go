package ioformat

import (
	"github.com/clusterforge/streamkm/matrix"
	"github.com/clusterforge/streamkm/strategy"
)

// ImageCodec is the seam for image-backed datasets: a contract a caller
// can implement (or import from elsewhere) to decode images into a points
// matrix of per-pixel feature vectors, without ioformat itself depending
// on image/jpeg or any third-party codec.
type ImageCodec[P strategy.Float] interface {
	Decode(path string) (*matrix.Matrix[P], error)
	Encode(path string, points *matrix.Matrix[P], width, height int) error
}
