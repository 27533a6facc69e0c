package bench_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clusterforge/streamkm/bench"
	"github.com/clusterforge/streamkm/cache"
	"github.com/clusterforge/streamkm/internal/testsupport"
	"github.com/clusterforge/streamkm/matrix"
	"github.com/clusterforge/streamkm/pipeline"
	"github.com/clusterforge/streamkm/schedule"
	"github.com/clusterforge/streamkm/strategy"
)

func samplePoints() *matrix.Matrix[float32] {
	points, _ := testsupport.MinimalThreeStage()
	return points
}

func sampleInitial() *matrix.Matrix[float32] {
	_, initial := testsupport.MinimalThreeStage()
	return initial
}

func TestHarnessRunsAndVerifies(t *testing.T) {
	points := samplePoints()

	factory := func() (*pipeline.Driver[float32, uint32, uint32], error) {
		c := cache.New(64)
		if err := c.RegisterDevice(1, cache.DeviceCPU, 256); err != nil {
			return nil, err
		}
		sched := schedule.New()
		sched.AttachBufferCache(c)
		if err := sched.AttachDevice(1, cache.DeviceCPU); err != nil {
			return nil, err
		}
		cfg := pipeline.Config{
			F: 2, K: 2,
			BufferSize:     64,
			MaxIterations:  1,
			Labeling:       strategy.LabelingConfig{Strategy: "unroll_vector"},
			MassUpdate:     strategy.MassUpdateConfig{Strategy: "global_atomic"},
			CentroidUpdate: strategy.CentroidUpdateConfig{Strategy: "feature_sum"},
		}
		return pipeline.New[float32, uint32, uint32](cfg, c, sched, points, sampleInitial())
	}

	h := bench.New[float32, uint32, uint32](bench.Config{
		Runs: 3, Verify: true, F: 2, K: 2, MaxIterations: 1,
	}, 1, factory, nil)

	stats, err := h.Run(points, sampleInitial)
	require.NoError(t, err)
	require.Len(t, stats.Runs, 3)
	require.NotNil(t, stats.Verification)
	require.True(t, stats.Verification.OK)
	require.Equal(t, 0, stats.Verification.LabelMismatches)
	require.Equal(t, 0, stats.Verification.MassMismatches)
}

func TestSerialReferenceMatchesExpectedScenario(t *testing.T) {
	points := samplePoints()
	ref := bench.Serial[float32, uint32, uint32](bench.SerialConfig{F: 2, K: 2, MaxIterations: 1}, points, sampleInitial())

	require.Equal(t, testsupport.MinimalThreeStageLabels, ref.Labels)
	require.Equal(t, testsupport.MinimalThreeStageMasses, ref.Masses)
	require.InDelta(t, 0, ref.Centroids.At(0, 0), 1e-6)
	require.InDelta(t, 0.5, ref.Centroids.At(1, 0), 1e-6)
	require.InDelta(t, 10, ref.Centroids.At(0, 1), 1e-6)
	require.InDelta(t, 0.5, ref.Centroids.At(1, 1), 1e-6)
}
