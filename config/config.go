// Package config loads the INI configuration file: `[benchmark]`,
// `[kmeans]`, and the four `[kmeans.*]` strategy sections.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/clusterforge/streamkm/bench"
	"github.com/clusterforge/streamkm/kmerr"
	"github.com/clusterforge/streamkm/pipeline"
	"github.com/clusterforge/streamkm/strategy"
)

// ElementType names one of the two width choices for each of the
// point/label/mass type parameters (`types.point`, `types.label`,
// `types.mass` in `[kmeans]`).
type ElementType int

const (
	TypeFloat32 ElementType = iota
	TypeFloat64
	TypeUint32
	TypeUint64
)

func parseFloatType(s string) (ElementType, error) {
	switch s {
	case "", "float32":
		return TypeFloat32, nil
	case "float64":
		return TypeFloat64, nil
	default:
		return 0, kmerr.New("config", kmerr.CodeConfiguration, "unknown point type "+s)
	}
}

func parseUintType(s string) (ElementType, error) {
	switch s {
	case "", "uint32":
		return TypeUint32, nil
	case "uint64":
		return TypeUint64, nil
	default:
		return 0, kmerr.New("config", kmerr.CodeConfiguration, "unknown label/mass type "+s)
	}
}

// Types is the `[kmeans] types.point/types.label/types.mass` trio.
type Types struct {
	Point ElementType
	Label ElementType
	Mass  ElementType
}

// KmeansConfig is the `[kmeans]` section.
type KmeansConfig struct {
	Clusters   uint
	Pipeline   pipeline.Kind
	Iterations uint
	Converge   bool
	Types      Types
}

// Config is the fully decoded configuration file: `[benchmark]`,
// `[kmeans]`, and the four `[kmeans.*]` strategy sections.
type Config struct {
	Benchmark      bench.Config
	Kmeans         KmeansConfig
	Labeling       strategy.LabelingConfig
	MassUpdate     strategy.MassUpdateConfig
	CentroidUpdate strategy.CentroidUpdateConfig
	Fused          strategy.FusedConfig
}

// Default returns the configuration used when a key (or the whole file)
// is absent: one run, no verification, three-stage pipeline,
// 100 iterations, no convergence check, float32/uint32/uint32 types, and
// the baseline strategy variant for every `[kmeans.*]` section.
func Default() Config {
	return Config{
		Benchmark: bench.Config{Runs: 1, Verify: false},
		Kmeans: KmeansConfig{
			Clusters:   1,
			Pipeline:   pipeline.ThreeStage,
			Iterations: 100,
			Converge:   false,
			Types:      Types{Point: TypeFloat32, Label: TypeUint32, Mass: TypeUint32},
		},
		Labeling:       strategy.LabelingConfig{Strategy: "unroll_vector"},
		MassUpdate:     strategy.MassUpdateConfig{Strategy: "global_atomic"},
		CentroidUpdate: strategy.CentroidUpdateConfig{Strategy: "feature_sum"},
		Fused:          strategy.FusedConfig{Strategy: "cluster_merge"},
	}
}

// Load reads and decodes an INI file at path, falling back to Default()
// for any section or key that is absent.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := ini.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("config: load %s: %w", path, err)
	}

	if sec, err := f.GetSection("benchmark"); err == nil {
		cfg.Benchmark.Runs = sec.Key("runs").MustInt(cfg.Benchmark.Runs)
		cfg.Benchmark.Verify = sec.Key("verify").MustBool(cfg.Benchmark.Verify)
	}

	if sec, err := f.GetSection("kmeans"); err == nil {
		cfg.Kmeans.Clusters = sec.Key("clusters").MustUint(cfg.Kmeans.Clusters)
		cfg.Kmeans.Iterations = sec.Key("iterations").MustUint(cfg.Kmeans.Iterations)
		cfg.Kmeans.Converge = sec.Key("converge").MustBool(cfg.Kmeans.Converge)
		switch sec.Key("pipeline").MustString("three-stage") {
		case "fused":
			cfg.Kmeans.Pipeline = pipeline.Fused
		default:
			cfg.Kmeans.Pipeline = pipeline.ThreeStage
		}
		if pt, err := parseFloatType(sec.Key("types.point").String()); err == nil {
			cfg.Kmeans.Types.Point = pt
		} else {
			return cfg, err
		}
		if lt, err := parseUintType(sec.Key("types.label").String()); err == nil {
			cfg.Kmeans.Types.Label = lt
		} else {
			return cfg, err
		}
		if mt, err := parseUintType(sec.Key("types.mass").String()); err == nil {
			cfg.Kmeans.Types.Mass = mt
		} else {
			return cfg, err
		}
	}

	if sec, err := f.GetSection("kmeans.labeling"); err == nil {
		decodeTarget(sec, &cfg.Labeling.Target)
		decodeGeometry(sec, &cfg.Labeling.WorkGeometry)
		cfg.Labeling.Strategy = sec.Key("strategy").MustString(cfg.Labeling.Strategy)
		cfg.Labeling.VectorLength = sec.Key("vector_length").MustInt(0)
		cfg.Labeling.UnrollClustersLength = sec.Key("unroll_clusters_length").MustInt(0)
		cfg.Labeling.UnrollFeaturesLength = sec.Key("unroll_features_length").MustInt(0)
	}

	if sec, err := f.GetSection("kmeans.mass_update"); err == nil {
		decodeTarget(sec, &cfg.MassUpdate.Target)
		decodeGeometry(sec, &cfg.MassUpdate.WorkGeometry)
		cfg.MassUpdate.Strategy = sec.Key("strategy").MustString(cfg.MassUpdate.Strategy)
	}

	if sec, err := f.GetSection("kmeans.centroid_update"); err == nil {
		decodeTarget(sec, &cfg.CentroidUpdate.Target)
		decodeGeometry(sec, &cfg.CentroidUpdate.WorkGeometry)
		cfg.CentroidUpdate.Strategy = sec.Key("strategy").MustString(cfg.CentroidUpdate.Strategy)
		cfg.CentroidUpdate.LocalFeatures = sec.Key("local_features").MustInt(0)
		cfg.CentroidUpdate.ThreadFeatures = sec.Key("thread_features").MustInt(0)
	}

	if sec, err := f.GetSection("kmeans.fused"); err == nil {
		decodeTarget(sec, &cfg.Fused.Target)
		decodeGeometry(sec, &cfg.Fused.WorkGeometry)
		cfg.Fused.Strategy = sec.Key("strategy").MustString(cfg.Fused.Strategy)
	}

	return cfg, nil
}

func decodeTarget(sec *ini.Section, t *strategy.Target) {
	t.Platform = sec.Key("platform").MustUint(t.Platform)
	t.Device = sec.Key("device").MustUint(t.Device)
}

func decodeGeometry(sec *ini.Section, g *strategy.WorkGeometry) {
	parseDims(sec.Key("global_size").String(), &g.GlobalSize)
	parseDims(sec.Key("local_size").String(), &g.LocalSize)
}

// parseDims parses a 1-3 element comma-separated list of uints into dims,
// leaving already-present (non-zero) trailing dimensions alone when s is
// empty.
func parseDims(s string, dims *[3]int) {
	if s == "" {
		return
	}
	parts := strings.Split(s, ",")
	for i := 0; i < len(parts) && i < 3; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err == nil {
			dims[i] = v
		}
	}
}
