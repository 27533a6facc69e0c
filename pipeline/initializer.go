package pipeline

import (
	"math/rand"

	"github.com/clusterforge/streamkm/matrix"
	"github.com/clusterforge/streamkm/strategy"
)

// Initializer seeds a K-column centroid matrix from an F x N points
// matrix, in host code before the iteration loop starts. The engine does
// not choose K or implement seeding policies beyond these two hooks;
// callers with their own policy pass a pre-populated centroid matrix to
// New directly.
type Initializer[P strategy.Float] func(points *matrix.Matrix[P], k int) *matrix.Matrix[P]

// FirstKPoints seeds centroids with the first K columns of points,
// unchanged. Deterministic, so a run seeded this way is exactly
// reproducible.
func FirstKPoints[P strategy.Float](points *matrix.Matrix[P], k int) *matrix.Matrix[P] {
	f := points.Rows()
	out := matrix.NewSized[P](f, k)
	for c := 0; c < k; c++ {
		out.SetColumn(c, points.Column(c))
	}
	return out
}

// RandomKPoints seeds centroids with K columns drawn uniformly at random
// from points, without replacement when k <= N.
func RandomKPoints[P strategy.Float](points *matrix.Matrix[P], k int) *matrix.Matrix[P] {
	f := points.Rows()
	n := points.Cols()
	out := matrix.NewSized[P](f, k)
	if n <= 0 {
		return out
	}
	if k >= n {
		for c := 0; c < k; c++ {
			out.SetColumn(c, points.Column(c%n))
		}
		return out
	}
	perm := rand.Perm(n)
	for c := 0; c < k; c++ {
		out.SetColumn(c, points.Column(perm[c]))
	}
	return out
}
