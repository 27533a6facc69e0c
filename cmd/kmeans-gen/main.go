// Command kmeans-gen writes a synthetic clustered points file in the
// binary points format (uint64 header triple + feature-major float32
// values).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clusterforge/streamkm/internal/logging"
	"github.com/clusterforge/streamkm/ioformat"
)

var (
	outPath  string
	features uint64
	clusters uint64
	radius   float64
	domainLo float64
	domainHi float64
	bytes    uint64
	multiple uint64
	seed     int64
)

func main() {
	root := &cobra.Command{
		Use:   "kmeans-gen",
		Short: "Generate a synthetic clustered points file",
		RunE:  runGen,
	}

	flags := root.Flags()
	flags.StringVar(&outPath, "out", "points.bin", "output points file path")
	flags.Uint64Var(&features, "features", 8, "feature count")
	flags.Uint64Var(&clusters, "clusters", 4, "cluster count")
	flags.Float64Var(&radius, "radius", 1.0, "per-feature uniform offset radius around each cluster's centroid")
	flags.Float64Var(&domainLo, "domain-min", 0, "lower bound of the uniform centroid domain")
	flags.Float64Var(&domainHi, "domain-max", 100, "upper bound of the uniform centroid domain")
	flags.Uint64Var(&bytes, "bytes", 1<<20, "target byte budget for generated point data")
	flags.Uint64Var(&multiple, "multiple", 1, "round the generated point count down to a multiple of this")
	flags.Int64Var(&seed, "seed", 1, "RNG seed")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runGen(cmd *cobra.Command, args []string) error {
	logging.SetDefault(logging.NewLogger(logging.DefaultConfig()))
	logger := logging.Default().With("component", "kmeans-gen")

	gen := ioformat.NewGenerator(seed).
		NumFeatures(features).
		NumClusters(clusters).
		ClusterRadius(radius).
		Domain(domainLo, domainHi).
		TotalSize(bytes).
		PointMultiple(multiple)

	res := ioformat.Generate[float32, uint32](gen)

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer f.Close()

	if err := ioformat.WritePoints(f, res.Points); err != nil {
		return fmt.Errorf("write points: %w", err)
	}

	logger.Info("wrote synthetic points file", "path", outPath, "features", res.Points.Rows(), "points", res.Points.Cols(), "clusters", clusters)
	return nil
}
