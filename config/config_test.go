package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clusterforge/streamkm/config"
	"github.com/clusterforge/streamkm/pipeline"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "streamkm.ini")
	contents := `
[benchmark]
runs = 5
verify = true

[kmeans]
clusters = 8
pipeline = fused
iterations = 50
converge = true
types.point = float64
types.label = uint64
types.mass = uint64

[kmeans.labeling]
strategy = unroll_vector
global_size = 1024,1,1
vector_length = 4

[kmeans.centroid_update]
strategy = cluster_merge
local_features = 16
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, 5, cfg.Benchmark.Runs)
	require.True(t, cfg.Benchmark.Verify)
	require.Equal(t, uint(8), cfg.Kmeans.Clusters)
	require.Equal(t, pipeline.Fused, cfg.Kmeans.Pipeline)
	require.Equal(t, uint(50), cfg.Kmeans.Iterations)
	require.True(t, cfg.Kmeans.Converge)
	require.Equal(t, config.TypeFloat64, cfg.Kmeans.Types.Point)
	require.Equal(t, config.TypeUint64, cfg.Kmeans.Types.Label)

	require.Equal(t, "unroll_vector", cfg.Labeling.Strategy)
	require.Equal(t, 1024, cfg.Labeling.GlobalSize[0])
	require.Equal(t, 4, cfg.Labeling.VectorLength)

	require.Equal(t, "cluster_merge", cfg.CentroidUpdate.Strategy)
	require.Equal(t, 16, cfg.CentroidUpdate.LocalFeatures)
}

func TestDefaultConfig(t *testing.T) {
	d := config.Default()
	require.Equal(t, 1, d.Benchmark.Runs)
	require.False(t, d.Benchmark.Verify)
	require.Equal(t, pipeline.ThreeStage, d.Kmeans.Pipeline)
	require.Equal(t, "unroll_vector", d.Labeling.Strategy)
}
