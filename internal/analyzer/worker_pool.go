package analyzer

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool runs image analysis jobs on a fixed set of goroutines
type WorkerPool struct {
	workers  int
	jobQueue chan func()
	wg       sync.WaitGroup
	once     sync.Once
	mu       sync.RWMutex
	closed   bool

	totalJobs     atomic.Int64
	completedJobs atomic.Int64
	activeWorkers atomic.Int64
}

// PoolStats is a snapshot of the pool counters
type PoolStats struct {
	Workers       int   `json:"workers"`
	TotalJobs     int64 `json:"total_jobs"`
	CompletedJobs int64 `json:"completed_jobs"`
	ActiveWorkers int64 `json:"active_workers"`
}

// NewWorkerPool creates a new worker pool with the specified number of workers
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &WorkerPool{
		workers:  workers,
		jobQueue: make(chan func(), workers*2),
	}
}

// Start initializes and starts all workers in the pool
func (wp *WorkerPool) Start() {
	wp.once.Do(func() {
		for i := 0; i < wp.workers; i++ {
			go wp.worker()
		}
	})
}

// worker processes jobs from the job queue
func (wp *WorkerPool) worker() {
	for job := range wp.jobQueue {
		wp.activeWorkers.Add(1)
		job()
		wp.activeWorkers.Add(-1)
		wp.completedJobs.Add(1)
		wp.wg.Done()
	}
}

// Submit adds a job to the queue. It returns false once the pool is closed.
func (wp *WorkerPool) Submit(job func()) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return false
	}
	wp.wg.Add(1)
	wp.totalJobs.Add(1)
	wp.jobQueue <- job
	return true
}

// Wait waits for all submitted jobs to complete
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// Workers returns the number of worker goroutines
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// GetStats returns the current counters
func (wp *WorkerPool) GetStats() PoolStats {
	return PoolStats{
		Workers:       wp.workers,
		TotalJobs:     wp.totalJobs.Load(),
		CompletedJobs: wp.completedJobs.Load(),
		ActiveWorkers: wp.activeWorkers.Load(),
	}
}

// Close stops accepting jobs and lets the workers drain the queue
func (wp *WorkerPool) Close() {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.closed {
		return
	}
	wp.closed = true
	close(wp.jobQueue)
}
