package pipeline

import (
	"fmt"

	"github.com/clusterforge/streamkm/cache"
	"github.com/clusterforge/streamkm/internal/logging"
	"github.com/clusterforge/streamkm/matrix"
	"github.com/clusterforge/streamkm/measure"
	"github.com/clusterforge/streamkm/reduce"
	"github.com/clusterforge/streamkm/schedule"
	"github.com/clusterforge/streamkm/strategy"
)

// Kind selects which pipeline shape Run drives: the three-stage buffered
// pipeline (labeling, mass update, centroid update as separate runnables)
// or the fused single-stage alternative (one runnable doing all three in
// a single pass).
type Kind int

const (
	ThreeStage Kind = iota
	Fused
)

// Config holds everything a Driver needs beyond the points/labels/masses
// state it owns: dimensions, strategy selection, and device placement.
type Config struct {
	F, K          int
	BufferSize    int64
	MaxIterations int

	// Convergence, if true, stops Run early once a full iteration
	// relabels no point, instead of always running MaxIterations.
	Convergence bool

	Kind Kind

	// Devices is the per-stage device placement for the three-queue
	// variant. Zero value means "use the device id passed to Run for
	// every stage", the common single-queue case.
	Devices         Devices
	LabelingVariant strategy.LabelingVariant

	Labeling       strategy.LabelingConfig
	MassUpdate     strategy.MassUpdateConfig
	CentroidUpdate strategy.CentroidUpdateConfig
	Fused          strategy.FusedConfig

	Pool *schedule.CPUPool
	Sink *measure.Sink
}

// Driver owns the persistent device buffers (old/new centroids, masses)
// and the points/labels objects registered with the buffer cache, and
// runs up to Config.MaxIterations Lloyd iterations.
type Driver[P strategy.Float, L strategy.Label, M strategy.Mass] struct {
	cfg   Config
	cache *cache.Cache
	sched *schedule.Scheduler
	log   *logging.Logger

	points *matrix.Matrix[P]
	labels []L

	centroidsA, centroidsB *matrix.Matrix[P] // ping-ponged each iteration
	current                *matrix.Matrix[P] // most recently finalized centroids

	massAcc     *strategy.MassAccumulator[M]
	centroidAcc *strategy.CentroidAccumulator[P]

	centroidMirror *centroidMirror[P]

	// one datapoint per stage, published into cfg.Sink when set
	dpLabeling, dpMass, dpCentroid, dpFused *measure.Datapoint

	pointsOID, labelsOID int
	pointStep, labelStep int64

	prevLabels []L // previous iteration's labels, for the did-changes check
}

// New constructs a Driver bound to the given cache and scheduler (already
// AttachBufferCache'd and AttachDevice'd by the caller for every device id
// named in cfg.Devices), seeded with initialCentroids (an F x K matrix,
// typically produced by FirstKPoints/RandomKPoints or supplied directly).
// initialCentroids is copied; the caller's matrix is never written.
func New[P strategy.Float, L strategy.Label, M strategy.Mass](cfg Config, c *cache.Cache, sched *schedule.Scheduler, points *matrix.Matrix[P], initialCentroids *matrix.Matrix[P]) (*Driver[P, L, M], error) {
	if points.Rows() != cfg.F {
		return nil, fmt.Errorf("pipeline: points rows %d != configured F %d", points.Rows(), cfg.F)
	}
	if initialCentroids.Rows() != cfg.F || initialCentroids.Cols() != cfg.K {
		return nil, fmt.Errorf("pipeline: initial centroids shape (%d,%d) != (%d,%d)", initialCentroids.Rows(), initialCentroids.Cols(), cfg.F, cfg.K)
	}

	n := points.Cols()
	labels := make([]L, n)

	pointStep := PartitionStep[P](cfg.BufferSize, cfg.F)
	if pointStep <= 0 {
		return nil, fmt.Errorf("pipeline: buffer size %d too small for F=%d", cfg.BufferSize, cfg.F)
	}
	pointsPerBuffer := pointStep / int64(cfg.F*matrix.ElemSize[P]())
	labelStep := pointsPerBuffer * int64(matrix.ElemSize[L]())

	pointsOID, err := c.RegisterObject(matrix.Bytes(points), cache.ModeReadOnly)
	if err != nil {
		return nil, err
	}
	labelsOID, err := c.RegisterObject(matrix.SliceBytes(labels), cache.ModeReadWrite)
	if err != nil {
		return nil, err
	}

	centroidsA := matrix.NewSized[P](cfg.F, cfg.K)
	copy(centroidsA.Raw(), initialCentroids.Raw())
	centroidsB := matrix.NewSized[P](cfg.F, cfg.K)

	d := &Driver[P, L, M]{
		cfg:            cfg,
		cache:          c,
		sched:          sched,
		log:            logging.Default().With("component", "pipeline"),
		points:         points,
		labels:         labels,
		centroidsA:     centroidsA,
		centroidsB:     centroidsB,
		current:        centroidsA,
		massAcc:        strategy.NewMassAccumulator[M](cfg.K),
		centroidAcc:    strategy.NewCentroidAccumulator[P](cfg.F, cfg.K),
		centroidMirror: newCentroidMirror[P](),
		dpLabeling:     measure.NewDatapoint("labeling", cfg.Sink),
		dpMass:         measure.NewDatapoint("mass_update", cfg.Sink),
		dpCentroid:     measure.NewDatapoint("centroid_update", cfg.Sink),
		dpFused:        measure.NewDatapoint("fused", cfg.Sink),
		pointsOID:      pointsOID,
		labelsOID:      labelsOID,
		pointStep:      pointStep,
		labelStep:      labelStep,
	}
	return d, nil
}

// Centroids returns the current (most recently finalized) centroid matrix.
func (d *Driver[P, L, M]) Centroids() *matrix.Matrix[P] { return d.current }

// Labels returns the current label assignment.
func (d *Driver[P, L, M]) Labels() []L { return d.labels }

// Masses returns the current per-cluster cardinalities as mass-type M.
func (d *Driver[P, L, M]) Masses() []M {
	out := make([]M, d.cfg.K)
	d.massAcc.WriteTo(out)
	return out
}

// Run performs up to cfg.MaxIterations Lloyd iterations and returns the
// number actually run. deviceID is the device every stage targets unless
// cfg.Devices overrides individual stages. On return the final labels have
// been written back to the host labels buffer.
func (d *Driver[P, L, M]) Run(deviceID int) (int, error) {
	devs := d.cfg.Devices
	if devs == (Devices{}) {
		devs = Devices{Labeling: deviceID, MassUpdate: deviceID, CentroidUpdate: deviceID}
	}

	ran := 0
	for iter := 0; iter < d.cfg.MaxIterations; iter++ {
		d.massAcc.Reset()
		d.centroidAcc.Reset()

		if d.cfg.Convergence {
			d.prevLabels = append(d.prevLabels[:0], d.labels...)
		}

		var err error
		if d.cfg.Kind == Fused {
			err = d.runFusedIteration(devs)
		} else {
			err = d.runThreeStageIteration(devs)
		}
		if err != nil {
			return ran, err
		}

		if err := d.finalizeCentroids(); err != nil {
			return ran, err
		}
		ran++

		if d.cfg.Convergence {
			if err := d.readBackLabels(devs.Labeling); err != nil {
				return ran, err
			}
			if iter > 0 && d.noLabelChanged() {
				d.log.Info("convergence reached", "iteration", iter)
				break
			}
		}
	}

	if err := d.readBackLabels(devs.Labeling); err != nil {
		return ran, err
	}
	return ran, nil
}

// runThreeStageIteration enqueues labeling, mass-update, and
// centroid-update as three runnables against a single scheduler.Run call
// when every stage shares one device (the common path: the scheduler
// interleaves them tile-by-tile, so each tile's labels are fresh when the
// mass and centroid stages read them). When stages target distinct devices
// it falls back to one Run call per stage, writing labels back to the host
// and mirroring centroids across devices in between.
func (d *Driver[P, L, M]) runThreeStageIteration(devs Devices) error {
	pool := d.cfg.Pool

	if devs.singleDevice() {
		labelKernel, err := strategy.NewLabelingKernel[P, L](d.cfg.Labeling, d.cfg.F, d.cfg.K, d.current, d.cfg.LabelingVariant, pool)
		if err != nil {
			return err
		}
		massKernel, err := strategy.NewMassUpdateKernel[L, M](d.cfg.MassUpdate, d.cfg.K, d.massAcc, pool)
		if err != nil {
			return err
		}
		centroidKernel, err := strategy.NewCentroidUpdateKernel[P, L](d.cfg.CentroidUpdate, d.cfg.F, d.cfg.K, d.centroidAcc, pool)
		if err != nil {
			return err
		}

		d.sched.Reset()
		d.sched.Enqueue(schedule.NewBinary("labeling", d.pointsOID, d.labelsOID, d.pointStep, d.labelStep, labelKernel, d.dpLabeling, nil))
		d.sched.Enqueue(schedule.NewUnary("mass_update", d.labelsOID, d.labelStep, massKernel, d.dpMass, nil))
		d.sched.Enqueue(schedule.NewBinary("centroid_update", d.pointsOID, d.labelsOID, d.pointStep, d.labelStep, centroidKernel, d.dpCentroid, nil))
		return d.sched.Run(devs.Labeling)
	}

	mirrored := d.centroidMirror.sync(devs.CentroidUpdate, d.current, devs.Labeling, devs.CentroidUpdate)

	labelKernel, err := strategy.NewLabelingKernel[P, L](d.cfg.Labeling, d.cfg.F, d.cfg.K, mirrored[devs.Labeling], d.cfg.LabelingVariant, pool)
	if err != nil {
		return err
	}
	d.sched.Reset()
	d.sched.Enqueue(schedule.NewBinary("labeling", d.pointsOID, d.labelsOID, d.pointStep, d.labelStep, labelKernel, d.dpLabeling, nil))
	if err := d.sched.Run(devs.Labeling); err != nil {
		return err
	}
	// Labels now live in the labeling device's slots; write them back so
	// the other devices' write_and_get transfers see the fresh values.
	if err := d.readBackLabels(devs.Labeling); err != nil {
		return err
	}

	massKernel, err := strategy.NewMassUpdateKernel[L, M](d.cfg.MassUpdate, d.cfg.K, d.massAcc, pool)
	if err != nil {
		return err
	}
	d.sched.Reset()
	d.sched.Enqueue(schedule.NewUnary("mass_update", d.labelsOID, d.labelStep, massKernel, d.dpMass, nil))
	if err := d.sched.Run(devs.MassUpdate); err != nil {
		return err
	}

	centroidKernel, err := strategy.NewCentroidUpdateKernel[P, L](d.cfg.CentroidUpdate, d.cfg.F, d.cfg.K, d.centroidAcc, pool)
	if err != nil {
		return err
	}
	d.sched.Reset()
	d.sched.Enqueue(schedule.NewBinary("centroid_update", d.pointsOID, d.labelsOID, d.pointStep, d.labelStep, centroidKernel, d.dpCentroid, nil))
	return d.sched.Run(devs.CentroidUpdate)
}

// runFusedIteration enqueues the single fused runnable in place of the
// three-stage chain.
func (d *Driver[P, L, M]) runFusedIteration(devs Devices) error {
	kernel, err := strategy.NewFusedKernel[P, L, M](d.cfg.Fused, d.cfg.F, d.cfg.K, d.current, d.massAcc, d.centroidAcc, d.cfg.Pool)
	if err != nil {
		return err
	}
	d.sched.Reset()
	d.sched.Enqueue(schedule.NewBinary("fused", d.pointsOID, d.labelsOID, d.pointStep, d.labelStep, kernel, d.dpFused, nil))
	return d.sched.Run(devs.Labeling)
}

// readBackLabels walks the labels object tile by tile, scheduling a
// device->host write-back for every cached tile and waiting for the
// transfers to finish. Tiles that were evicted earlier have already been
// written back by the eviction protocol; tiles on a zero-copy device are
// a no-op.
func (d *Driver[P, L, M]) readBackLabels(deviceID int) error {
	q, err := d.sched.Queue(deviceID)
	if err != nil {
		return err
	}
	total := int64(len(d.labels) * matrix.ElemSize[L]())
	var events []*cache.Event
	for begin := int64(0); begin < total; begin += d.labelStep {
		end := begin + d.labelStep
		if end > total {
			end = total
		}
		ev, err := d.cache.Read(q, d.labelsOID, begin, end, nil)
		if err != nil {
			return err
		}
		events = append(events, ev)
	}
	return cache.WaitAll(events)
}

// finalizeCentroids divides the accumulated feature sums by their
// cluster's mass and swaps the old/new centroid buffers.
func (d *Driver[P, L, M]) finalizeCentroids() error {
	masses := make([]P, d.cfg.K)
	tmp := make([]M, d.cfg.K)
	d.massAcc.WriteTo(tmp)
	for i, v := range tmp {
		masses[i] = P(v)
	}
	if err := reduce.RowBroadcast(d.centroidAcc.Matrix(), masses, reduce.OpDiv); err != nil {
		return err
	}

	next := d.otherBuffer(d.current)
	copy(next.Raw(), d.centroidAcc.Matrix().Raw())
	d.current = next
	return nil
}

func (d *Driver[P, L, M]) otherBuffer(cur *matrix.Matrix[P]) *matrix.Matrix[P] {
	if cur == d.centroidsA {
		return d.centroidsB
	}
	return d.centroidsA
}

func (d *Driver[P, L, M]) noLabelChanged() bool {
	if len(d.prevLabels) != len(d.labels) {
		return false
	}
	for i := range d.labels {
		if d.labels[i] != d.prevLabels[i] {
			return false
		}
	}
	return true
}
