package measure_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clusterforge/streamkm/measure"
)

func TestSinkWritesThreeFiles(t *testing.T) {
	dir := t.TempDir()
	sink, err := measure.NewSink(dir, "kmeans", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.WriteParameter("clusters", 4))
	sink.SetRun(0)
	dp := measure.NewDatapoint("labeling", sink)
	dp.RecordMeasurement(measure.MeasurementRecord{TypeName: "labeling", Iteration: 0, Value: 1.25})
	dp.RecordEvent(measure.EventRecord{TypeName: "labeling", Iteration: 0, CommandQueue: 0})

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	joined := strings.Join(names, ",")
	require.Contains(t, joined, "_expm.csv")
	require.Contains(t, joined, "_mnts.csv")
	require.Contains(t, joined, "_evnt.csv")

	for _, name := range names {
		if strings.HasSuffix(name, "_expm.csv") {
			data, err := os.ReadFile(filepath.Join(dir, name))
			require.NoError(t, err)
			require.Contains(t, string(data), "clusters")
		}
	}
}

func TestDatapointAccumulatesWithoutSink(t *testing.T) {
	dp := measure.NewDatapoint("standalone", nil)
	dp.RecordMeasurement(measure.MeasurementRecord{TypeName: "mass_update", Iteration: 1, Value: 4})
	require.Len(t, dp.Measurements(), 1)
	require.Len(t, dp.Events(), 0)
}
