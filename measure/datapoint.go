// Package measure implements the measurement/logging sink: per-experiment
// CSV output plus the in-process Datapoint/Sink wiring the scheduler and
// pipeline driver use to attach event and latency records as they run --
// live in-process accumulation up front, a pluggable durable sink behind
// it.
package measure

import (
	"sync"
	"time"
)

// EventRecord is one scheduler-level dependency edge: a kernel launch or a
// cache transfer, timestamped the way a profiling-enabled command queue
// would stamp it (Queued/Submit/Start/End), one row in `_evnt.csv`.
type EventRecord struct {
	TypeName     string
	Iteration    int
	CommandQueue int
	Queued       time.Time
	Submit       time.Time
	Start        time.Time
	End          time.Time
}

// MeasurementRecord is one scalar measurement (e.g. a strategy's wall time
// for an iteration), one row in `_mnts.csv`.
type MeasurementRecord struct {
	TypeName  string
	Iteration int
	Value     float64
}

// Datapoint is the measurement handle every runnable carries: a
// per-runnable accumulator of events and measurements; each record is also
// written to the attached Sink as soon as it is recorded.
type Datapoint struct {
	mu           sync.Mutex
	name         string
	sink         *Sink
	events       []EventRecord
	measurements []MeasurementRecord
}

// NewDatapoint creates a datapoint that publishes into sink under name.
// sink may be nil, in which case records are accumulated but never flushed
// (useful for tests that don't need a CSV sink).
func NewDatapoint(name string, sink *Sink) *Datapoint {
	return &Datapoint{name: name, sink: sink}
}

// RecordEvent attaches a completed event record, as the scheduler does for
// every produced event and memcpy duration.
func (d *Datapoint) RecordEvent(ev EventRecord) {
	d.mu.Lock()
	d.events = append(d.events, ev)
	d.mu.Unlock()
	if d.sink != nil {
		d.sink.writeEvent(d.name, ev)
	}
}

// RecordMeasurement attaches a scalar measurement.
func (d *Datapoint) RecordMeasurement(m MeasurementRecord) {
	d.mu.Lock()
	d.measurements = append(d.measurements, m)
	d.mu.Unlock()
	if d.sink != nil {
		d.sink.writeMeasurement(d.name, m)
	}
}

// Events returns a snapshot of accumulated event records.
func (d *Datapoint) Events() []EventRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]EventRecord, len(d.events))
	copy(out, d.events)
	return out
}

// Measurements returns a snapshot of accumulated measurement records.
func (d *Datapoint) Measurements() []MeasurementRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]MeasurementRecord, len(d.measurements))
	copy(out, d.measurements)
	return out
}
