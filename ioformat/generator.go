package ioformat

import (
	"math/rand"

	"github.com/clusterforge/streamkm/matrix"
	"github.com/clusterforge/streamkm/strategy"
)

// Generator builds synthetic clustered datasets: num_clusters clusters,
// each with a single uniformly-random scalar centroid shared across all
// of that cluster's feature dimensions, and member points drawn as that
// scalar plus an independent per-feature uniform offset in
// [-radius, radius). It is a setter-configured builder so callers name
// only the knobs they care about.
type Generator struct {
	features uint64
	clusters uint64
	radius   float64
	domainLo float64
	domainHi float64
	bytes    uint64
	multiple uint64
	rng      *rand.Rand
}

// NewGenerator returns a Generator with defaults: one feature, one
// cluster, radius 1, domain [0, 100), no size target, and no multiple-of
// constraint.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		features: 1,
		clusters: 1,
		radius:   1,
		domainLo: 0,
		domainHi: 100,
		multiple: 1,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (g *Generator) NumFeatures(f uint64) *Generator { g.features = f; return g }
func (g *Generator) NumClusters(k uint64) *Generator { g.clusters = k; return g }
func (g *Generator) ClusterRadius(r float64) *Generator { g.radius = r; return g }
func (g *Generator) Domain(lo, hi float64) *Generator { g.domainLo, g.domainHi = lo, hi; return g }
func (g *Generator) TotalSize(bytes uint64) *Generator { g.bytes = bytes; return g }
func (g *Generator) PointMultiple(multiple uint64) *Generator {
	if multiple == 0 {
		multiple = 1
	}
	g.multiple = multiple
	return g
}

// Result is a generated dataset: the points themselves plus the ground
// truth the caller wouldn't otherwise have (the generating centroid per
// cluster, and each point's generating cluster label) for use as
// bench.Compare reference input or test fixtures.
type Result[P strategy.Float, L strategy.Label] struct {
	Points    *matrix.Matrix[P]
	Centroids *matrix.Matrix[P]
	Labels    []L
}

// numPoints derives the point count from the byte budget: total bytes ->
// float count -> points, rounded down to an exact multiple of the cluster
// count, then rounded down again to an exact multiple of the configured
// point multiple.
func (g *Generator) numPoints() uint64 {
	size := g.bytes / 4 // sizeof(float32)
	numPoints := size / g.features
	perCluster := numPoints / g.clusters
	numPoints = perCluster * g.clusters
	if rem := numPoints % g.multiple; rem != 0 {
		numPoints -= rem
	}
	return numPoints
}

// Generate produces a full dataset in memory (no file I/O): one
// uniform-random scalar centroid per cluster shared across all F
// dimensions, member points scattered around it by an independent
// per-feature uniform offset in [-radius, radius), and cluster
// membership split as evenly as the total point count allows.
func Generate[P strategy.Float, L strategy.Label](g *Generator) Result[P, L] {
	f, k := int(g.features), int(g.clusters)
	n := int(g.numPoints())
	if n <= 0 {
		n = k
	}

	centroidScalars := make([]float64, k)
	centroids := matrix.NewSized[P](f, k)
	for c := 0; c < k; c++ {
		scalar := g.domainLo + g.rng.Float64()*(g.domainHi-g.domainLo)
		centroidScalars[c] = scalar
		col := make([]P, f)
		for ff := 0; ff < f; ff++ {
			col[ff] = P(scalar)
		}
		centroids.SetColumn(c, col)
	}

	points := matrix.NewSized[P](f, n)
	labels := make([]L, n)

	perCluster := n / k
	extra := n % k
	idx := 0
	for c := 0; c < k; c++ {
		count := perCluster
		if c < extra {
			count++
		}
		for i := 0; i < count; i++ {
			col := make([]P, f)
			for ff := 0; ff < f; ff++ {
				offset := (g.rng.Float64()*2 - 1) * g.radius
				col[ff] = P(centroidScalars[c] + offset)
			}
			points.SetColumn(idx, col)
			labels[idx] = L(c)
			idx++
		}
	}

	return Result[P, L]{Points: points, Centroids: centroids, Labels: labels}
}
