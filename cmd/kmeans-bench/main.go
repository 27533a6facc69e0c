// Command kmeans-bench runs the out-of-core k-means pipeline against a
// points file (or synthetic data) and reports per-run timing, optionally
// verified against the serial reference implementation.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/clusterforge/streamkm/bench"
	"github.com/clusterforge/streamkm/cache"
	"github.com/clusterforge/streamkm/config"
	"github.com/clusterforge/streamkm/internal/logging"
	"github.com/clusterforge/streamkm/ioformat"
	"github.com/clusterforge/streamkm/matrix"
	"github.com/clusterforge/streamkm/measure"
	"github.com/clusterforge/streamkm/pipeline"
	"github.com/clusterforge/streamkm/schedule"
	"github.com/clusterforge/streamkm/strategy"
)

var (
	configPath        string
	pointsPath        string
	synthetic         bool
	seed              int64
	syntheticFeatures uint64
	syntheticBytes    uint64
	bufferSize        int64
	outDir            string
	verbose           bool
)

func main() {
	root := &cobra.Command{
		Use:   "kmeans-bench",
		Short: "Run the streamkm out-of-core k-means pipeline and report timings",
		RunE:  runBench,
	}

	flags := root.Flags()
	flags.StringVar(&configPath, "config", "", "INI configuration file; defaults applied for any section missing")
	flags.StringVar(&pointsPath, "points", "", "points file (uint64 header triple + feature-major float32 values)")
	flags.BoolVar(&synthetic, "synthetic", false, "generate a synthetic dataset instead of reading --points")
	flags.Int64Var(&seed, "seed", 1, "synthetic data RNG seed")
	flags.Uint64Var(&syntheticFeatures, "features", 8, "feature count for synthetic data")
	flags.Uint64Var(&syntheticBytes, "synthetic-bytes", 1<<20, "byte budget for synthetic data")
	flags.Int64Var(&bufferSize, "buffer-size", 1<<16, "cache buffer/tile size in bytes")
	flags.StringVar(&outDir, "out", "", "directory for measurement CSV output; disabled if empty")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runBench(cmd *cobra.Command, args []string) error {
	logConfig := logging.DefaultConfig()
	if verbose {
		logConfig.Level = logging.LevelDebug
	}
	logging.SetDefault(logging.NewLogger(logConfig))
	logger := logging.Default().With("component", "kmeans-bench")

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	var points *matrix.Matrix[float32]
	switch {
	case synthetic:
		gen := ioformat.NewGenerator(seed).
			NumFeatures(syntheticFeatures).
			NumClusters(uint64(cfg.Kmeans.Clusters)).
			TotalSize(syntheticBytes)
		res := ioformat.Generate[float32, uint32](gen)
		points = res.Points
		logger.Info("generated synthetic dataset", "features", syntheticFeatures, "points", points.Cols())
	case pointsPath != "":
		f, err := os.Open(pointsPath)
		if err != nil {
			return fmt.Errorf("open points file: %w", err)
		}
		defer f.Close()
		points, err = ioformat.ReadPoints[float32](f)
		if err != nil {
			return fmt.Errorf("read points file: %w", err)
		}
	default:
		return fmt.Errorf("one of --points or --synthetic is required")
	}

	initial := pipeline.RandomKPoints(points, int(cfg.Kmeans.Clusters))

	var sink *measure.Sink
	if outDir != "" {
		s, err := measure.NewSink(outDir, "kmeans-bench", time.Now())
		if err != nil {
			return fmt.Errorf("open measurement sink: %w", err)
		}
		defer s.Close()
		sink = s
	}

	const deviceID = 1
	pool := schedule.NewCPUPool(0, nil)
	defer pool.Close()

	factory := func() (*pipeline.Driver[float32, uint32, uint32], error) {
		c := cache.New(bufferSize)
		if err := c.RegisterDevice(deviceID, cache.DeviceCPU, bufferSize*4); err != nil {
			return nil, err
		}
		sched := schedule.New()
		sched.AttachBufferCache(c)
		if err := sched.AttachDevice(deviceID, cache.DeviceCPU); err != nil {
			return nil, err
		}
		pcfg := pipeline.Config{
			F: points.Rows(), K: int(cfg.Kmeans.Clusters),
			BufferSize:      bufferSize,
			MaxIterations:   int(cfg.Kmeans.Iterations),
			Convergence:     cfg.Kmeans.Converge,
			Kind:            cfg.Kmeans.Pipeline,
			LabelingVariant: strategy.VariantLocalStride,
			Labeling:        cfg.Labeling,
			MassUpdate:      cfg.MassUpdate,
			CentroidUpdate:  cfg.CentroidUpdate,
			Fused:           cfg.Fused,
			Pool:            pool,
			Sink:            sink,
		}
		return pipeline.New[float32, uint32, uint32](pcfg, c, sched, points, initial)
	}

	h := bench.New[float32, uint32, uint32](bench.Config{
		Runs: cfg.Benchmark.Runs, Verify: cfg.Benchmark.Verify,
		F: points.Rows(), K: int(cfg.Kmeans.Clusters), MaxIterations: int(cfg.Kmeans.Iterations),
	}, deviceID, factory, sink)

	stats, err := h.Run(points, func() *matrix.Matrix[float32] { return initial })
	if err != nil {
		return fmt.Errorf("benchmark run: %w", err)
	}

	for _, r := range stats.Runs {
		fmt.Printf("run=%d iterations=%d duration=%s\n", r.Run, r.Iterations, r.Duration)
	}
	if stats.Verification != nil {
		fmt.Printf("verification: ok=%v label_mismatches=%d mass_mismatches=%d max_centroid_delta=%g\n",
			stats.Verification.OK, stats.Verification.LabelMismatches, stats.Verification.MassMismatches, stats.Verification.MaxCentroidDelta)
	}
	return nil
}
