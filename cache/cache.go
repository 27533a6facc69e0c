package cache

import (
	"sync"
	"sync/atomic"

	"github.com/clusterforge/streamkm/internal/logging"
	"github.com/clusterforge/streamkm/kmerr"
)

// deviceRecord is the per-attached-device state: context, pool, slots,
// and the lazily-started per-queue I/O workers.
type deviceRecord struct {
	id       int
	kind     DeviceKind
	poolSize int64
	zeroCopy bool
	slots    []*CacheSlot
	staging  *stagingPool

	mu      sync.Mutex
	workers map[int]*ioWorker // keyed by queue id, created lazily
	nextQ   int
}

// Cache maps (device, object, offset) triples onto buffer slots. One Cache instance
// owns a single buffer_size shared by every attached device; each device
// supplies its own pool_size and therefore its own slot count.
type Cache struct {
	bufferSize int64

	objMu     sync.RWMutex
	objects   map[int]*DataObject
	nextObjID int32

	devMu   sync.RWMutex
	devices map[int]*deviceRecord

	log *logging.Logger
}

// New creates a cache with the given fixed buffer_size (bytes). Devices
// and objects are attached afterward via RegisterDevice / RegisterObject.
func New(bufferSize int64) *Cache {
	return &Cache{
		bufferSize: bufferSize,
		objects:    make(map[int]*DataObject),
		devices:    make(map[int]*deviceRecord),
		log:        logging.Default().With("component", "cache"),
	}
}

// BufferSize returns the cache's fixed tile size B.
func (c *Cache) BufferSize() int64 { return c.bufferSize }

// RegisterDevice allocates pool_size/buffer_size slots (and their staging
// buffers) for a device. Fails if pool_size <= 2*buffer_size so that the
// double-buffering convention (two concurrently-held tiles per object) is
// always satisfiable.
func (c *Cache) RegisterDevice(id int, kind DeviceKind, poolSize int64) error {
	if poolSize <= 2*c.bufferSize {
		return kmerr.ErrPoolTooSmall.WithDevice(id)
	}
	numSlots := int(poolSize / c.bufferSize)
	zeroCopy := kind == DeviceCPU

	dev := &deviceRecord{
		id:       id,
		kind:     kind,
		poolSize: poolSize,
		zeroCopy: zeroCopy,
		slots:    make([]*CacheSlot, numSlots),
		workers:  make(map[int]*ioWorker),
	}
	if !zeroCopy {
		dev.staging = newStagingPool(int(c.bufferSize), true)
	}
	for i := range dev.slots {
		s := &CacheSlot{zeroCopy: zeroCopy}
		if !zeroCopy {
			s.staging = dev.staging.get()
		}
		dev.slots[i] = s
	}

	c.devMu.Lock()
	c.devices[id] = dev
	c.devMu.Unlock()

	c.log.Info("device registered", "device_id", id, "kind", kind.String(), "slots", numSlots)
	return nil
}

// RegisterObject records a host byte range. The cache never copies data;
// it borrows the slice for the registration's lifetime. Id 0 is reserved.
func (c *Cache) RegisterObject(data []byte, mode Mode) (int, error) {
	id := int(atomic.AddInt32(&c.nextObjID, 1))
	c.objMu.Lock()
	c.objects[id] = &DataObject{ID: id, Data: data, Mode: mode}
	c.objMu.Unlock()
	return id, nil
}

func (c *Cache) object(oid int) (*DataObject, error) {
	c.objMu.RLock()
	defer c.objMu.RUnlock()
	obj, ok := c.objects[oid]
	if !ok || oid == 0 {
		return nil, kmerr.ErrObjectUnknown.WithObject(oid)
	}
	return obj, nil
}

// ObjectLength returns the registered byte length of oid, so callers that
// only hold an object id (the scheduler, computing tile counts) can learn
// its extent without reaching into the object's backing slice directly.
func (c *Cache) ObjectLength(oid int) (int64, error) {
	obj, err := c.object(oid)
	if err != nil {
		return 0, err
	}
	return int64(len(obj.Data)), nil
}

func (c *Cache) device(devID int) (*deviceRecord, error) {
	c.devMu.RLock()
	defer c.devMu.RUnlock()
	dev, ok := c.devices[devID]
	if !ok {
		return nil, kmerr.ErrDeviceUnknown.WithDevice(devID)
	}
	return dev, nil
}

// Queue is a handle bound to one attached device, used to route cache
// operations to that device's per-queue I/O worker. Queues are created by
// the scheduler (primary + shadow per device) via NewQueue.
type Queue struct {
	cache    *Cache
	deviceID int
	id       int
}

// Cache returns the cache this queue is bound to, so callers that only
// hold a *Queue (e.g. a schedule.Runnable) can still issue cache calls.
func (q *Queue) Cache() *Cache { return q.cache }

// DeviceID returns the device this queue targets.
func (q *Queue) DeviceID() int { return q.deviceID }

// ID returns the queue's index within its device (0 = primary).
func (q *Queue) ID() int { return q.id }

// NewQueue allocates the next queue index for deviceID and lazily starts
// its I/O worker on first use.
func (c *Cache) NewQueue(deviceID int) (*Queue, error) {
	dev, err := c.device(deviceID)
	if err != nil {
		return nil, err
	}
	dev.mu.Lock()
	qid := dev.nextQ
	dev.nextQ++
	dev.mu.Unlock()
	return &Queue{cache: c, deviceID: deviceID, id: qid}, nil
}

func (dev *deviceRecord) worker(qid int) *ioWorker {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	w, ok := dev.workers[qid]
	if !ok {
		w = newIOWorker()
		dev.workers[qid] = w
	}
	return w
}

// validateRange enforces the alignment contract: the range must lie within
// one object, its length must be <= buffer_size, and a range of exactly
// buffer_size must begin on a buffer_size boundary within the object.
// Shorter ranges are not checked for alignment.
func (c *Cache) validateRange(obj *DataObject, begin, end int64) error {
	if !obj.contains(begin, end) {
		return kmerr.ErrCrossObjectRange.WithObject(obj.ID)
	}
	if end-begin > c.bufferSize {
		return kmerr.ErrRangeTooLarge.WithObject(obj.ID)
	}
	// A full-size tile must land on a buffer_size boundary; a secondary
	// operand in a binary runnable may use a smaller step (e.g. labels
	// tiled at B/F*sizeof(L) to track a points tile of B bytes), so that
	// step's own multiples are the alignment authority there. A step
	// larger than buffer_size is rejected by the length check above.
	if end-begin == c.bufferSize && begin%c.bufferSize != 0 {
		return kmerr.ErrMisaligned.WithObject(obj.ID)
	}
	return nil
}

// assignSlot finds a slot already caching (oid, begin), or failing that a
// slot to evict into. Empty unlocked slots are preferred over occupied
// ones so eviction read-backs happen only under pressure. The returned
// slot is not yet locked.
func (dev *deviceRecord) assignSlot(oid int, begin int64, obj *DataObject) (*CacheSlot, bool, error) {
	for _, s := range dev.slots {
		s.mu.Lock()
		hit := s.matches(oid, begin)
		s.mu.Unlock()
		if hit {
			return s, true, nil
		}
	}
	// No exact match: find a truly empty, unlocked slot first.
	for _, s := range dev.slots {
		s.mu.Lock()
		if s.status == statusFree && s.empty() {
			s.mu.Unlock()
			return s, false, nil
		}
		s.mu.Unlock()
	}
	// Then any unlocked occupied slot; evict it.
	for _, s := range dev.slots {
		s.mu.Lock()
		if s.status != statusFree {
			s.mu.Unlock()
			continue
		}
		s.mu.Unlock()
		return s, false, nil
	}
	return nil, false, kmerr.ErrSlotExhausted.WithObject(oid)
}

// Get acquires a read/execute lock on the tile [begin,end) of oid, escalating
// to WriteAndGet if the tile is not already cached.
func (c *Cache) Get(q *Queue, oid int, begin, end int64, waitList []*Event) ([]byte, *Event, error) {
	obj, err := c.object(oid)
	if err != nil {
		return nil, nil, err
	}
	if err := c.validateRange(obj, begin, end); err != nil {
		return nil, nil, err
	}
	dev, err := c.device(q.deviceID)
	if err != nil {
		return nil, nil, err
	}

	slot, hit, err := dev.assignSlot(oid, begin, obj)
	if err != nil {
		return nil, nil, err
	}
	if hit {
		if !slot.tryReadLock() {
			return nil, nil, kmerr.ErrSlotExhausted.WithObject(oid)
		}
		return c.sliceFor(dev, slot, end-begin), Done(), nil
	}
	return c.WriteAndGet(q, oid, begin, end, waitList)
}

// WriteAndGet allocates or evicts a slot, marks it write-locked, and
// asynchronously transfers host -> device (or rebinds zero-copy on CPU).
func (c *Cache) WriteAndGet(q *Queue, oid int, begin, end int64, waitList []*Event) ([]byte, *Event, error) {
	obj, err := c.object(oid)
	if err != nil {
		return nil, nil, err
	}
	if err := c.validateRange(obj, begin, end); err != nil {
		return nil, nil, err
	}
	dev, err := c.device(q.deviceID)
	if err != nil {
		return nil, nil, err
	}

	slot, hit, err := dev.assignSlot(oid, begin, obj)
	if err != nil {
		return nil, nil, err
	}

	slot.mu.Lock()
	if slot.status != statusFree {
		slot.mu.Unlock()
		return nil, nil, kmerr.ErrSlotExhausted.WithObject(oid)
	}
	if !hit && !slot.empty() && slot.mode == ModeReadWrite && !dev.zeroCopy {
		// Eviction protocol: blocking read-back before reuse. Zero-copy
		// slots mutate the host object in place, so they have nothing to
		// write back.
		slot.mu.Unlock()
		if err := c.blockingWriteback(dev, slot); err != nil {
			return nil, nil, err
		}
		slot.mu.Lock()
	}
	slot.status = statusWriteLocked
	slot.objectID = oid
	slot.offset = begin
	slot.length = end - begin
	slot.mode = obj.Mode
	slot.mu.Unlock()

	length := end - begin
	if dev.zeroCopy {
		return obj.Data[begin:end], Done(), nil
	}
	w := dev.worker(q.id)
	ev := w.submit(obj.Data[begin:end], slot.staging[:length], waitList)
	return slot.staging[:length], ev, nil
}

// Read schedules an asynchronous device->host write-back if the range is
// cached and the object is Mutable; otherwise it is a no-op.
func (c *Cache) Read(q *Queue, oid int, begin, end int64, waitList []*Event) (*Event, error) {
	obj, err := c.object(oid)
	if err != nil {
		return nil, err
	}
	if obj.Mode != ModeReadWrite {
		return Done(), nil
	}
	dev, err := c.device(q.deviceID)
	if err != nil {
		return nil, err
	}
	for _, s := range dev.slots {
		s.mu.Lock()
		match := s.matches(oid, begin)
		zc := dev.zeroCopy
		s.mu.Unlock()
		if !match {
			continue
		}
		if zc {
			return Done(), nil
		}
		length := end - begin
		w := dev.worker(q.id)
		return w.submit(s.staging[:length], obj.Data[begin:end], waitList), nil
	}
	return Done(), nil
}

// Unlock releases the lock acquired by Get/WriteAndGet. For a ReadLock it
// decrements the reader count; for a WriteLock it frees the slot. It never
// evicts eagerly.
func (c *Cache) Unlock(q *Queue, oid int, begin int64) error {
	dev, err := c.device(q.deviceID)
	if err != nil {
		return err
	}
	for _, s := range dev.slots {
		s.mu.Lock()
		match := s.matches(oid, begin)
		status := s.status
		s.mu.Unlock()
		if !match {
			continue
		}
		switch status {
		case statusReadLocked:
			s.unlockRead()
		case statusWriteLocked:
			s.unlockWrite()
		}
		return nil
	}
	return kmerr.ErrUnlockableSlot.WithObject(oid)
}

func (c *Cache) sliceFor(dev *deviceRecord, slot *CacheSlot, length int64) []byte {
	if dev.zeroCopy {
		obj, _ := c.object(slot.objectID)
		return obj.Data[slot.offset : slot.offset+length]
	}
	return slot.staging[:length]
}

// blockingWriteback performs the eviction read-back for a Mutable slot's
// current content, waiting on the returned event before the caller may
// reassign the slot.
func (c *Cache) blockingWriteback(dev *deviceRecord, slot *CacheSlot) error {
	slot.mu.Lock()
	oid, begin, length := slot.objectID, slot.offset, slot.length
	slot.mu.Unlock()

	obj, err := c.object(oid)
	if err != nil {
		return err
	}
	w := dev.worker(0)
	ev := w.submit(slot.staging[:length], obj.Data[begin:begin+length], nil)
	return ev.Wait()
}

// Close joins every per-device I/O worker and releases the slots' pinned
// staging buffers. Callers must not issue cache operations afterward.
func (c *Cache) Close() {
	c.devMu.RLock()
	defer c.devMu.RUnlock()
	for _, dev := range c.devices {
		dev.mu.Lock()
		for _, w := range dev.workers {
			w.close()
		}
		dev.mu.Unlock()
		for _, s := range dev.slots {
			if s.staging != nil {
				freePinned(s.staging)
				s.staging = nil
			}
		}
	}
}
