package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clusterforge/streamkm/cache"
	"github.com/clusterforge/streamkm/internal/testsupport"
	"github.com/clusterforge/streamkm/matrix"
	"github.com/clusterforge/streamkm/pipeline"
	"github.com/clusterforge/streamkm/schedule"
	"github.com/clusterforge/streamkm/strategy"
)

func minimalConfig(kind pipeline.Kind) pipeline.Config {
	return pipeline.Config{
		F: 2, K: 2,
		BufferSize:     64,
		MaxIterations:  1,
		Kind:           kind,
		Labeling:       strategy.LabelingConfig{Strategy: "unroll_vector"},
		MassUpdate:     strategy.MassUpdateConfig{Strategy: "global_atomic"},
		CentroidUpdate: strategy.CentroidUpdateConfig{Strategy: "feature_sum"},
		Fused:          strategy.FusedConfig{Strategy: "feature_sum"},
	}
}

func newTestPipeline(t *testing.T, cfg pipeline.Config) *pipeline.Driver[float32, uint32, uint32] {
	t.Helper()

	points, initial := testsupport.MinimalThreeStage()

	c := cache.New(cfg.BufferSize)
	require.NoError(t, c.RegisterDevice(1, cache.DeviceCPU, cfg.BufferSize*4))

	sched := schedule.New()
	sched.AttachBufferCache(c)
	require.NoError(t, sched.AttachDevice(1, cache.DeviceCPU))

	d, err := pipeline.New[float32, uint32, uint32](cfg, c, sched, points, initial)
	require.NoError(t, err)
	return d
}

// TestThreeStageMinimal runs one iteration over four hand-checkable points:
// labels=[0,0,1,1], masses=[2,2], new centroids (0,0.5) and (10,0.5).
func TestThreeStageMinimal(t *testing.T) {
	d := newTestPipeline(t, minimalConfig(pipeline.ThreeStage))

	ran, err := d.Run(1)
	require.NoError(t, err)
	require.Equal(t, 1, ran)

	require.Equal(t, testsupport.MinimalThreeStageLabels, d.Labels())
	require.Equal(t, testsupport.MinimalThreeStageMasses, d.Masses())

	centroids := d.Centroids()
	require.InDelta(t, 0, centroids.At(0, 0), 1e-6)
	require.InDelta(t, 0.5, centroids.At(1, 0), 1e-6)
	require.InDelta(t, 10, centroids.At(0, 1), 1e-6)
	require.InDelta(t, 0.5, centroids.At(1, 1), 1e-6)
}

func TestFusedMatchesThreeStage(t *testing.T) {
	d := newTestPipeline(t, minimalConfig(pipeline.Fused))

	ran, err := d.Run(1)
	require.NoError(t, err)
	require.Equal(t, 1, ran)

	require.Equal(t, testsupport.MinimalThreeStageLabels, d.Labels())
	require.Equal(t, testsupport.MinimalThreeStageMasses, d.Masses())

	centroids := d.Centroids()
	require.InDelta(t, 0, centroids.At(0, 0), 1e-6)
	require.InDelta(t, 0.5, centroids.At(1, 0), 1e-6)
	require.InDelta(t, 10, centroids.At(0, 1), 1e-6)
	require.InDelta(t, 0.5, centroids.At(1, 1), 1e-6)
}

// TestConvergenceStopsEarly gives the driver more iterations than the
// minimal dataset needs; with the did-changes check enabled it must stop
// as soon as a full iteration relabels no point.
func TestConvergenceStopsEarly(t *testing.T) {
	cfg := minimalConfig(pipeline.ThreeStage)
	cfg.MaxIterations = 5
	cfg.Convergence = true
	d := newTestPipeline(t, cfg)

	ran, err := d.Run(1)
	require.NoError(t, err)
	require.Equal(t, 2, ran)
	require.Equal(t, testsupport.MinimalThreeStageLabels, d.Labels())
}

// TestIterationBoundWithoutConvergence runs the same dataset without the
// did-changes check: the driver must perform every configured iteration
// even though labels stabilize after the first.
func TestIterationBoundWithoutConvergence(t *testing.T) {
	cfg := minimalConfig(pipeline.ThreeStage)
	cfg.MaxIterations = 3
	d := newTestPipeline(t, cfg)

	ran, err := d.Run(1)
	require.NoError(t, err)
	require.Equal(t, 3, ran)
	require.Equal(t, testsupport.MinimalThreeStageLabels, d.Labels())
}

// TestInitialCentroidsNotMutated runs two iterations and checks the
// caller's seed matrix is untouched afterward.
func TestInitialCentroidsNotMutated(t *testing.T) {
	points, initial := testsupport.MinimalThreeStage()
	seedCopy := matrix.NewSized[float32](2, 2)
	copy(seedCopy.Raw(), initial.Raw())

	cfg := minimalConfig(pipeline.ThreeStage)
	cfg.MaxIterations = 2

	c := cache.New(cfg.BufferSize)
	require.NoError(t, c.RegisterDevice(1, cache.DeviceCPU, cfg.BufferSize*4))
	sched := schedule.New()
	sched.AttachBufferCache(c)
	require.NoError(t, sched.AttachDevice(1, cache.DeviceCPU))

	d, err := pipeline.New[float32, uint32, uint32](cfg, c, sched, points, initial)
	require.NoError(t, err)

	_, err = d.Run(1)
	require.NoError(t, err)
	require.Equal(t, seedCopy.Raw(), initial.Raw())
}

func TestPartitionStepWholePoints(t *testing.T) {
	// 64-byte buffers, F=2 float32 points: 8 whole points per buffer.
	require.Equal(t, int64(64), pipeline.PartitionStep[float32](64, 2))
	// A buffer smaller than one point holds no whole point: no valid stride.
	require.Equal(t, int64(0), pipeline.PartitionStep[float32](16, 6))
}
