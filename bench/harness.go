// Package bench implements the benchmark harness: it runs a
// pipeline.Driver num_runs times, capturing per-run wall-clock timing into
// a measure.Sink, and optionally cross-checks the result against a
// reference, single-threaded implementation (the `[benchmark] verify`
// config flag).
package bench

import (
	"fmt"
	"time"

	"github.com/clusterforge/streamkm/internal/logging"
	"github.com/clusterforge/streamkm/matrix"
	"github.com/clusterforge/streamkm/measure"
	"github.com/clusterforge/streamkm/pipeline"
	"github.com/clusterforge/streamkm/strategy"
)

// Config is the `[benchmark]` INI section, plus the dimensions
// and iteration bound the reference implementation needs when Verify is
// set (mirroring the `[kmeans]` section's clusters/iterations keys).
type Config struct {
	Runs   int
	Verify bool

	F, K          int
	MaxIterations int
}

// RunResult is one run's outcome: iterations actually performed and the
// wall-clock duration the driver's Run call took.
type RunResult struct {
	Run        int
	Iterations int
	Duration   time.Duration
}

// Stats aggregates every run's RunResult plus, when Config.Verify is set,
// the outcome of comparing the final run against the reference
// implementation.
type Stats struct {
	Runs         []RunResult
	Verification *VerifyResult
}

// DriverFactory builds a fresh pipeline.Driver for one run. The harness
// calls it once per run so every run starts from the same initial
// centroids, masses, and labels.
type DriverFactory[P strategy.Float, L strategy.Label, M strategy.Mass] func() (*pipeline.Driver[P, L, M], error)

// Harness drives num_runs repetitions of a clustering run, recording timing
// into sink (if non-nil) and optionally verifying the last run's result
// against a reference implementation.
type Harness[P strategy.Float, L strategy.Label, M strategy.Mass] struct {
	cfg      Config
	factory  DriverFactory[P, L, M]
	deviceID int
	sink     *measure.Sink
	dp       *measure.Datapoint
	log      *logging.Logger
}

// New constructs a Harness. deviceID is passed through to every
// pipeline.Driver.Run call.
func New[P strategy.Float, L strategy.Label, M strategy.Mass](cfg Config, deviceID int, factory DriverFactory[P, L, M], sink *measure.Sink) *Harness[P, L, M] {
	return &Harness[P, L, M]{
		cfg:      cfg,
		factory:  factory,
		deviceID: deviceID,
		sink:     sink,
		dp:       measure.NewDatapoint("bench", sink),
		log:      logging.Default().With("component", "bench"),
	}
}

// Run executes cfg.Runs repetitions, building a fresh driver each time via
// the factory, and returns the aggregated Stats.
func (h *Harness[P, L, M]) Run(points *matrix.Matrix[P], referenceCentroids func() *matrix.Matrix[P]) (*Stats, error) {
	runs := h.cfg.Runs
	if runs <= 0 {
		runs = 1
	}

	stats := &Stats{Runs: make([]RunResult, 0, runs)}
	var last *pipeline.Driver[P, L, M]

	for r := 0; r < runs; r++ {
		if h.sink != nil {
			h.sink.SetRun(r)
		}
		d, err := h.factory()
		if err != nil {
			return nil, fmt.Errorf("bench: build driver for run %d: %w", r, err)
		}

		start := time.Now()
		iters, err := d.Run(h.deviceID)
		elapsed := time.Since(start)
		if err != nil {
			return nil, fmt.Errorf("bench: run %d: %w", r, err)
		}
		h.dp.RecordMeasurement(measure.MeasurementRecord{TypeName: "run_wall_time", Iteration: iters, Value: elapsed.Seconds()})
		h.log.Info("run complete", "run", r, "iterations", iters, "duration", elapsed)

		stats.Runs = append(stats.Runs, RunResult{Run: r, Iterations: iters, Duration: elapsed})
		last = d
	}

	if h.cfg.Verify && last != nil {
		ref := Serial[P, L, M](SerialConfig{
			F:             h.cfg.F,
			K:             h.cfg.K,
			MaxIterations: h.cfg.MaxIterations,
		}, points, referenceCentroids())
		v := Compare(last.Labels(), last.Masses(), last.Centroids(), ref.Labels, ref.Masses, ref.Centroids, DefaultTolerance)
		stats.Verification = &v
	}

	return stats, nil
}
