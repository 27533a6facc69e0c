package measure

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/clusterforge/streamkm/internal/logging"
)

// timestampLayout is strftime's `%F-%H-%M-%S`, stamped in UTC.
const timestampLayout = "2006-01-02-15-04-05"

// Sink writes the three CSV files recorded for one experiment:
// `<timestamp>_<experiment_id>_<base>_expm.csv` (parameters),
// `_mnts.csv` (measurements), `_evnt.csv` (events).
type Sink struct {
	mu           sync.Mutex
	experimentID string
	base         string
	dir          string

	expmW *csv.Writer
	mntsW *csv.Writer
	evntW *csv.Writer
	expmF *os.File
	mntsF *os.File
	evntF *os.File

	run int
	log *logging.Logger
}

// NewSink opens the three CSV files for a new experiment rooted at dir with
// the given base name, stamping the filenames with the current UTC time
// and a random decimal experiment id.
func NewSink(dir, base string, now time.Time) (*Sink, error) {
	id := randomDecimalID()
	stamp := now.UTC().Format(timestampLayout)
	prefix := fmt.Sprintf("%s_%s_%s", stamp, id, base)

	s := &Sink{
		experimentID: id,
		base:         base,
		dir:          dir,
		log:          logging.Default().With("component", "measure", "experiment_id", id),
	}

	var err error
	if s.expmF, s.expmW, err = openCSV(dir, prefix+"_expm.csv", []string{"ExperimentID", "ParameterName", "Value"}); err != nil {
		return nil, err
	}
	if s.mntsF, s.mntsW, err = openCSV(dir, prefix+"_mnts.csv", []string{"ExperimentID", "Run", "TypeName", "Iteration", "Value"}); err != nil {
		s.expmF.Close()
		return nil, err
	}
	if s.evntF, s.evntW, err = openCSV(dir, prefix+"_evnt.csv", []string{"ExperimentID", "Run", "TypeName", "Iteration", "CommandQueueID", "Queued", "Submit", "Start", "End"}); err != nil {
		s.expmF.Close()
		s.mntsF.Close()
		return nil, err
	}
	return s, nil
}

func openCSV(dir, name string, header []string) (*os.File, *csv.Writer, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, nil, fmt.Errorf("measure: open %s: %w", name, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("measure: write header %s: %w", name, err)
	}
	w.Flush()
	return f, w, nil
}

// ExperimentID returns the random decimal id stamped into this sink's
// filenames and every row it writes.
func (s *Sink) ExperimentID() string { return s.experimentID }

// SetRun marks the current benchmark run index; subsequent measurement and
// event rows are tagged with it.
func (s *Sink) SetRun(run int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run = run
}

// WriteParameter records one `[benchmark]`/`[kmeans]`-style configuration
// value against the experiment file.
func (s *Sink) WriteParameter(name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expmW.Write([]string{s.experimentID, name, fmt.Sprint(value)}); err != nil {
		return err
	}
	s.expmW.Flush()
	return s.expmW.Error()
}

func (s *Sink) writeMeasurement(typeName string, m MeasurementRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.mntsW.Write([]string{
		s.experimentID,
		fmt.Sprint(s.run),
		typeName,
		fmt.Sprint(m.Iteration),
		fmt.Sprintf("%g", m.Value),
	})
	s.mntsW.Flush()
}

func (s *Sink) writeEvent(typeName string, ev EventRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.evntW.Write([]string{
		s.experimentID,
		fmt.Sprint(s.run),
		typeName,
		fmt.Sprint(ev.Iteration),
		fmt.Sprint(ev.CommandQueue),
		ev.Queued.UTC().Format(time.RFC3339Nano),
		ev.Submit.UTC().Format(time.RFC3339Nano),
		ev.Start.UTC().Format(time.RFC3339Nano),
		ev.End.UTC().Format(time.RFC3339Nano),
	})
	s.evntW.Flush()
}

// Close flushes and closes all three CSV files.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expmW.Flush()
	s.mntsW.Flush()
	s.evntW.Flush()
	var firstErr error
	for _, f := range []*os.File{s.expmF, s.mntsF, s.evntF} {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func randomDecimalID() string {
	return fmt.Sprintf("%d", rand.Int63())
}
