package schedule

import (
	"github.com/clusterforge/streamkm/cache"
	"github.com/clusterforge/streamkm/measure"
)

// UnaryKernel processes a single tile of one object, e.g. "zero this
// range" or one strategy's per-tile pass over a single buffer.
type UnaryKernel func(q *cache.Queue, tile ExecutionTile, buf []byte, dp *measure.Datapoint) (*cache.Event, error)

// BinaryKernel processes aligned tiles of two objects at once, e.g.
// labeling (points tile, labels tile).
type BinaryKernel func(q *cache.Queue, fst, snd ExecutionTile, fstBuf, sndBuf []byte, dp *measure.Datapoint) (*cache.Event, error)

// Runnable is a scheduler work item: a callable bound to one or two object
// ids and tile steps. teardown is invoked once after the tile loop
// completes, publishing collected events into any future stashed at
// enqueue time.
type Runnable interface {
	label() string
	objects() (fst, snd int)
	steps() (fst, snd int64)
	tileCount(objLen1, objLen2 int64) (int64, error)
	runTile(q *cache.Queue, index int64, fst, snd ExecutionTile) (*cache.Event, error)
	teardown(events []*cache.Event)
	datapoint() *measure.Datapoint
}

type unaryRunnable struct {
	name string
	oid  int
	step int64
	fn   UnaryKernel
	dp   *measure.Datapoint
	done func([]*cache.Event)
}

// NewUnary creates a single-object runnable. done, if non-nil, is invoked
// once after run() finishes walking the object's tiles, receiving every
// event the kernel produced -- the "future stashed at enqueue time".
func NewUnary(name string, objectID int, step int64, fn UnaryKernel, dp *measure.Datapoint, done func([]*cache.Event)) Runnable {
	return &unaryRunnable{name: name, oid: objectID, step: step, fn: fn, dp: dp, done: done}
}

func (r *unaryRunnable) label() string         { return r.name }
func (r *unaryRunnable) objects() (int, int)   { return r.oid, 0 }
func (r *unaryRunnable) steps() (int64, int64) { return r.step, 0 }
func (r *unaryRunnable) datapoint() *measure.Datapoint { return r.dp }

func (r *unaryRunnable) tileCount(objLen1, objLen2 int64) (int64, error) {
	return tileCount(objLen1, r.step), nil
}

func (r *unaryRunnable) runTile(q *cache.Queue, index int64, fst, snd ExecutionTile) (*cache.Event, error) {
	buf, ev, err := q.Cache().Get(q, r.oid, fst.Offset, fst.Offset+fst.Length, nil)
	if err != nil {
		return nil, err
	}
	if err := ev.Wait(); err != nil {
		return nil, err
	}
	kernelEv, err := r.fn(q, fst, buf, r.dp)
	if err != nil {
		_ = q.Cache().Unlock(q, r.oid, fst.Offset)
		return nil, err
	}
	if err := q.Cache().Unlock(q, r.oid, fst.Offset); err != nil {
		return nil, err
	}
	return kernelEv, nil
}

func (r *unaryRunnable) teardown(events []*cache.Event) {
	if r.done != nil {
		r.done(events)
	}
}

type binaryRunnable struct {
	name             string
	fstOID, sndOID   int
	fstStep, sndStep int64
	fn               BinaryKernel
	dp               *measure.Datapoint
	done             func([]*cache.Event)
}

// NewBinary creates a two-object runnable, e.g. labeling against
// (points, labels). The caller's steps must align tile counts;
// Scheduler.Run verifies this before dispatch.
func NewBinary(name string, fstOID, sndOID int, fstStep, sndStep int64, fn BinaryKernel, dp *measure.Datapoint, done func([]*cache.Event)) Runnable {
	return &binaryRunnable{name: name, fstOID: fstOID, sndOID: sndOID, fstStep: fstStep, sndStep: sndStep, fn: fn, dp: dp, done: done}
}

func (r *binaryRunnable) label() string         { return r.name }
func (r *binaryRunnable) objects() (int, int)   { return r.fstOID, r.sndOID }
func (r *binaryRunnable) steps() (int64, int64) { return r.fstStep, r.sndStep }
func (r *binaryRunnable) datapoint() *measure.Datapoint { return r.dp }

func (r *binaryRunnable) tileCount(objLen1, objLen2 int64) (int64, error) {
	n1 := tileCount(objLen1, r.fstStep)
	n2 := tileCount(objLen2, r.sndStep)
	if n1 != n2 {
		return 0, tileMismatchError(r.name)
	}
	return n1, nil
}

func (r *binaryRunnable) runTile(q *cache.Queue, index int64, fst, snd ExecutionTile) (*cache.Event, error) {
	c := q.Cache()
	fstBuf, ev1, err := c.Get(q, r.fstOID, fst.Offset, fst.Offset+fst.Length, nil)
	if err != nil {
		return nil, err
	}
	sndBuf, ev2, err := c.Get(q, r.sndOID, snd.Offset, snd.Offset+snd.Length, nil)
	if err != nil {
		_ = c.Unlock(q, r.fstOID, fst.Offset)
		return nil, err
	}
	if err := ev1.Wait(); err != nil {
		return nil, err
	}
	if err := ev2.Wait(); err != nil {
		return nil, err
	}

	kernelEv, err := r.fn(q, fst, snd, fstBuf, sndBuf, r.dp)

	unlockErr1 := c.Unlock(q, r.fstOID, fst.Offset)
	unlockErr2 := c.Unlock(q, r.sndOID, snd.Offset)
	if err != nil {
		return nil, err
	}
	if unlockErr1 != nil {
		return nil, unlockErr1
	}
	if unlockErr2 != nil {
		return nil, unlockErr2
	}
	return kernelEv, nil
}

func (r *binaryRunnable) teardown(events []*cache.Event) {
	if r.done != nil {
		r.done(events)
	}
}
