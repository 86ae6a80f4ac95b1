// Package pool provides a fixed-size worker pool for running independent
// bar-series replays concurrently.
package pool

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool fans submitted tasks out over a fixed set of goroutines.
// Series replays are independent per symbol, so they parallelize without
// coordination beyond the pool itself.
type WorkerPool struct {
	workers    int
	taskQueue  chan func()
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	running    atomic.Bool
	tasksTotal atomic.Uint64
	tasksDone  atomic.Uint64
}

// NewWorkerPool creates a pool with the given number of workers.
// Zero or negative defaults to runtime.NumCPU().
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		workers:   workers,
		taskQueue: make(chan func(), workers*4),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the workers. Calling Start on a running pool is a no-op.
func (p *WorkerPool) Start() {
	if p.running.Swap(true) {
		return
	}

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.taskQueue:
			if !ok {
				return
			}
			task()
			p.tasksDone.Add(1)
		}
	}
}

// Submit queues a task, blocking while the queue is full. Returns false if
// the pool is not running. Submit must not race with Stop; finish
// submitting before stopping the pool.
func (p *WorkerPool) Submit(task func()) bool {
	if !p.running.Load() {
		return false
	}

	select {
	case p.taskQueue <- task:
		p.tasksTotal.Add(1)
		return true
	case <-p.ctx.Done():
		return false
	}
}

// Stop stops accepting tasks and waits for in-flight work to finish.
func (p *WorkerPool) Stop() {
	if !p.running.Swap(false) {
		return
	}

	p.cancel()
	close(p.taskQueue)
	p.wg.Wait()
}

// Stats returns a snapshot of pool activity.
func (p *WorkerPool) Stats() Stats {
	return Stats{
		Workers:    p.workers,
		Running:    p.running.Load(),
		TasksTotal: p.tasksTotal.Load(),
		TasksDone:  p.tasksDone.Load(),
	}
}

// Stats is a snapshot of worker pool activity.
type Stats struct {
	Workers    int
	Running    bool
	TasksTotal uint64
	TasksDone  uint64
}
