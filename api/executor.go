// Package api
// Author: momentics
//
// Executor contract for callback dispatch off the reactor loops.

package api

// Executor runs submitted tasks on a fixed set of workers.
type Executor interface {
	// Submit schedules task for execution. It fails once the executor is closed.
	Submit(task func()) error

	// NumWorkers returns the number of worker routines.
	NumWorkers() int

	// Close stops the workers. Idempotent.
	Close()
}
