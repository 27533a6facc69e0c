package schedule

import (
	"fmt"
	"sync"
	"time"

	"github.com/clusterforge/streamkm/cache"
	"github.com/clusterforge/streamkm/internal/logging"
	"github.com/clusterforge/streamkm/measure"
)

// deviceBinding is a device's attached queues: a primary and a shadow, for
// pipelining transfers against one tile while a kernel runs on another.
type deviceBinding struct {
	kind    cache.DeviceKind
	queues  []*cache.Queue
	current int // round-robin index; dispatch currently stays on 0
}

// Scheduler walks runnables tile-by-tile against attached devices. It is
// not safe for concurrent use by multiple goroutines, and two Schedulers
// must not share one Cache.
type Scheduler struct {
	mu        sync.Mutex
	cache     *cache.Cache
	devices   map[int]*deviceBinding
	runnables []Runnable
	log       *logging.Logger
}

// New creates a scheduler with no attached cache or devices yet.
func New() *Scheduler {
	return &Scheduler{
		devices: make(map[int]*deviceBinding),
		log:     logging.Default().With("component", "scheduler"),
	}
}

// AttachBufferCache binds the scheduler to the buffer cache its runnables'
// get/unlock calls will go through.
func (s *Scheduler) AttachBufferCache(c *cache.Cache) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = c
}

// AttachDevice registers two queues (primary + shadow) for the given
// already-cache-registered device id.
func (s *Scheduler) AttachDevice(deviceID int, kind cache.DeviceKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache == nil {
		return fmt.Errorf("schedule: AttachBufferCache must be called before AttachDevice")
	}
	primary, err := s.cache.NewQueue(deviceID)
	if err != nil {
		return err
	}
	shadow, err := s.cache.NewQueue(deviceID)
	if err != nil {
		return err
	}
	s.devices[deviceID] = &deviceBinding{kind: kind, queues: []*cache.Queue{primary, shadow}}
	s.log.Info("device attached", "device_id", deviceID, "kind", kind.String())
	return nil
}

// Queue returns the current round-robin queue for deviceID. Dispatch
// stays on queue 0 unless a caller rotates with NextQueue.
func (s *Scheduler) Queue(deviceID int) (*cache.Queue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dev, ok := s.devices[deviceID]
	if !ok {
		return nil, fmt.Errorf("schedule: device %d not attached", deviceID)
	}
	return dev.queues[dev.current], nil
}

// NextQueue advances deviceID's round-robin index and returns the newly
// selected queue, so a caller can pipeline transfers on the shadow queue
// while the primary runs a kernel.
func (s *Scheduler) NextQueue(deviceID int) (*cache.Queue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dev, ok := s.devices[deviceID]
	if !ok {
		return nil, fmt.Errorf("schedule: device %d not attached", deviceID)
	}
	dev.current = (dev.current + 1) % len(dev.queues)
	return dev.queues[dev.current], nil
}

// Enqueue adds a runnable to the scheduler's work list, in the order its
// tile-loop iterations will be dispatched.
func (s *Scheduler) Enqueue(r Runnable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runnables = append(s.runnables, r)
}

// Reset clears the enqueued runnables so the scheduler can be reused for
// the next iteration (the pipeline driver re-enqueues fresh runnables
// every Lloyd iteration).
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runnables = nil
}

// Run executes every enqueued runnable tile-by-tile: compute tile counts,
// then for each tile index, run every runnable in enqueue order (the
// happens-before edge labeling -> mass-update -> centroid-update chaining
// depends on), then teardown.
func (s *Scheduler) Run(deviceID int) error {
	s.mu.Lock()
	runnables := make([]Runnable, len(s.runnables))
	copy(runnables, s.runnables)
	s.mu.Unlock()

	if len(runnables) == 0 {
		return nil
	}
	q, err := s.Queue(deviceID)
	if err != nil {
		return err
	}

	n, perRunnableTiles, err := s.planTiles(runnables)
	if err != nil {
		return err
	}

	collected := make([][]*cache.Event, len(runnables))
	for i := int64(0); i < n; i++ {
		for ri, r := range runnables {
			fstOID, sndOID := r.objects()
			var fstTile, sndTile ExecutionTile
			if tiles := perRunnableTiles[ri]; len(tiles[0]) > 0 {
				fstTile = tiles[0][i]
			} else {
				fstTile = ExecutionTile{ObjectID: fstOID}
			}
			if sndOID != 0 && len(perRunnableTiles[ri][1]) > 0 {
				sndTile = perRunnableTiles[ri][1][i]
			}
			queued := time.Now()
			ev, err := r.runTile(q, i, fstTile, sndTile)
			if err != nil {
				s.log.Error("runnable tile failed", "runnable", r.label(), "tile", i, "error", err)
				return err
			}
			if dp := r.datapoint(); dp != nil {
				dp.RecordEvent(measure.EventRecord{
					TypeName:     r.label(),
					CommandQueue: q.ID(),
					Queued:       queued,
					Submit:       queued,
					Start:        queued,
					End:          time.Now(),
				})
			}
			if ev != nil {
				collected[ri] = append(collected[ri], ev)
			}
		}
	}

	for ri, r := range runnables {
		r.teardown(collected[ri])
	}
	return nil
}

// planTiles computes each runnable's tile slices up front so Run's hot
// loop only indexes into pre-built slices.
func (s *Scheduler) planTiles(runnables []Runnable) (int64, [][2][]ExecutionTile, error) {
	var n int64 = -1
	perRunnable := make([][2][]ExecutionTile, len(runnables))

	for i, r := range runnables {
		fstOID, sndOID := r.objects()
		fstStep, sndStep := r.steps()

		fstLen, err := s.cache.ObjectLength(fstOID)
		if err != nil {
			return 0, nil, err
		}
		var sndLen int64
		if sndOID != 0 {
			sndLen, err = s.cache.ObjectLength(sndOID)
			if err != nil {
				return 0, nil, err
			}
		}

		rn, err := r.tileCount(fstLen, sndLen)
		if err != nil {
			return 0, nil, err
		}
		if n == -1 {
			n = rn
		} else if rn != n {
			return 0, nil, tileMismatchError(r.label())
		}

		perRunnable[i][0] = tilesFor(fstOID, fstLen, fstStep)
		if sndOID != 0 {
			perRunnable[i][1] = tilesFor(sndOID, sndLen, sndStep)
		}
	}
	if n < 0 {
		n = 0
	}
	return n, perRunnable, nil
}
