package utils

import (
	"sync"
)

// WorkerPool runs submitted tasks on a fixed set of worker goroutines.
type WorkerPool struct {
	tasks     chan func()
	waitGroup sync.WaitGroup
}

// NewWorkerPool creates a new WorkerPool with the specified number of workers.
func NewWorkerPool(workers int) *WorkerPool {
	pool := &WorkerPool{
		tasks: make(chan func(), workers),
	}

	pool.waitGroup.Add(workers)
	for i := 0; i < workers; i++ {
		go pool.worker()
	}

	return pool
}

// worker drains the task queue until the pool is shut down.
func (wp *WorkerPool) worker() {
	defer wp.waitGroup.Done()
	for task := range wp.tasks {
		task()
	}
}

// Submit queues a task for execution. Blocks when the queue is full.
func (wp *WorkerPool) Submit(task func()) {
	wp.tasks <- task
}

// Shutdown stops accepting tasks and waits for the workers to drain.
func (wp *WorkerPool) Shutdown() {
	close(wp.tasks)
	wp.waitGroup.Wait()
}
