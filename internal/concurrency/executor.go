// File: internal/concurrency/executor.go
// Package concurrency implements the fixed worker pool behind the reactor.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor dispatches tasks to a fixed set of worker goroutines through a
// bounded queue. A panicking task is recovered and logged; the worker keeps
// running.

package concurrency

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-clink/api"
)

// ErrExecutorClosed is returned by Submit after Close.
var ErrExecutorClosed = errors.New("executor is closed")

var _ api.Executor = (*Executor)(nil)

// TaskFunc is a unit of work to execute.
type TaskFunc func()

// Executor manages a pool of worker goroutines.
type Executor struct {
	name       string
	tasks      chan TaskFunc
	closeCh    chan struct{}
	closed     atomic.Bool
	numWorkers int
	wg         sync.WaitGroup
	log        zerolog.Logger

	// statistics
	totalTasks     atomic.Int64
	completedTasks atomic.Int64
	panics         atomic.Int64
}

// NewExecutor starts numWorkers workers. If numWorkers <= 0, defaults to
// runtime.NumCPU().
func NewExecutor(name string, numWorkers int, log zerolog.Logger) *Executor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	e := &Executor{
		name:       name,
		tasks:      make(chan TaskFunc, numWorkers*64),
		closeCh:    make(chan struct{}),
		numWorkers: numWorkers,
		log:        log,
	}
	e.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go e.run(i)
	}
	return e
}

// Submit enqueues a task, blocking while the queue is full. It returns
// ErrExecutorClosed if the executor is closed.
func (e *Executor) Submit(task func()) error {
	if e.closed.Load() {
		return ErrExecutorClosed
	}
	e.totalTasks.Add(1)
	select {
	case e.tasks <- task:
		return nil
	case <-e.closeCh:
		e.totalTasks.Add(-1)
		return ErrExecutorClosed
	}
}

// NumWorkers returns the number of workers.
func (e *Executor) NumWorkers() int {
	return e.numWorkers
}

// Close stops the workers and waits for the running tasks to return. Queued
// tasks that did not start are dropped.
func (e *Executor) Close() {
	if e.closed.CompareAndSwap(false, true) {
		close(e.closeCh)
		e.wg.Wait()
	}
}

// Stats returns basic executor metrics.
func (e *Executor) Stats() map[string]int64 {
	total, done := e.totalTasks.Load(), e.completedTasks.Load()
	return map[string]int64{
		"total_tasks":     total,
		"completed_tasks": done,
		"pending_tasks":   total - done,
		"panics":          e.panics.Load(),
		"num_workers":     int64(e.numWorkers),
	}
}

func (e *Executor) run(id int) {
	defer e.wg.Done()
	for {
		select {
		case <-e.closeCh:
			return
		case task := <-e.tasks:
			e.execute(id, task)
		}
	}
}

// execute runs the task and updates statistics, recovering from panics.
func (e *Executor) execute(id int, task TaskFunc) {
	defer func() {
		if r := recover(); r != nil {
			e.panics.Add(1)
			e.log.Error().Str("pool", e.name).Int("worker", id).Interface("panic", r).Msg("task panicked")
		}
		e.completedTasks.Add(1)
	}()
	task()
}
