package schedule

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// CPUPool fans a unit of work out across N pinned worker goroutines, the
// CPU-device analog of attaching a GPU context: strategies that choose
// the local-stride CPU variant use it to split a tile's points/features
// range across cores. When cpus are given, each worker locks its OS thread
// and pins it to a CPU core once at pool construction; every worker then
// waits for work.
type CPUPool struct {
	n       int
	cpus    []int // nil = no pinning requested
	tasks   chan func()
	started chan struct{}
}

// NewCPUPool starts n worker goroutines. If cpus is non-empty, worker i is
// pinned to cpus[i%len(cpus)]; otherwise workers run unpinned.
func NewCPUPool(n int, cpus []int) *CPUPool {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	p := &CPUPool{n: n, cpus: cpus, tasks: make(chan func())}
	for i := 0; i < n; i++ {
		go p.worker(i)
	}
	return p
}

func (p *CPUPool) worker(idx int) {
	if len(p.cpus) > 0 {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		_ = pinCurrentThread(p.cpus[idx%len(p.cpus)])
	}
	for task := range p.tasks {
		task()
	}
}

// Size returns the number of worker goroutines.
func (p *CPUPool) Size() int { return p.n }

// Parallel splits [0, count) into p.Size() contiguous chunks and runs fn
// once per chunk concurrently, waiting for all chunks to finish. Used by
// the CPU-stride strategy variants to parallelize a tile's point range.
func (p *CPUPool) Parallel(ctx context.Context, count int, fn func(start, end int) error) error {
	if count == 0 {
		return nil
	}
	chunks := p.n
	if chunks > count {
		chunks = count
	}
	chunkSize := (count + chunks - 1) / chunks

	g, _ := errgroup.WithContext(ctx)
	for c := 0; c < chunks; c++ {
		start := c * chunkSize
		end := start + chunkSize
		if end > count {
			end = count
		}
		if start >= end {
			continue
		}
		g.Go(func() error {
			done := make(chan error, 1)
			p.tasks <- func() { done <- fn(start, end) }
			return <-done
		})
	}
	return g.Wait()
}

// Close stops accepting work. Outstanding Parallel calls must complete
// before Close is called.
func (p *CPUPool) Close() {
	close(p.tasks)
}
