//go:build linux
// +build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor - Linux epoll implementation.

package reactor

import (
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/momentics/hioload-clink/internal/logging"
)

// Reactor multiplexes readiness for many descriptors.
type Reactor struct {
	read   *selector
	write  *selector
	closed atomic.Bool
	log    zerolog.Logger
}

// New starts both selectors with workers goroutines each.
func New(workers int) (*Reactor, error) {
	return NewWithOptions(Options{Workers: workers})
}

// NewWithOptions starts both selectors as configured by opts.
func NewWithOptions(opts Options) (*Reactor, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	log := logging.Component("reactor")
	readCPU, writeCPU := opts.cpus()
	read, err := newSelector("read", inputEvents, workers, readCPU, log)
	if err != nil {
		return nil, err
	}
	write, err := newSelector("write", outputEvents, workers, writeCPU, log)
	if err != nil {
		read.close()
		return nil, err
	}
	r := &Reactor{read: read, write: write, log: log}
	read.start()
	write.start()
	log.Debug().Int("workers", workers).Msg("reactor started")
	return r, nil
}

// RegisterRead arms one-shot read interest on fd.
func (r *Reactor) RegisterRead(fd int, cb func()) bool {
	return !r.closed.Load() && r.read.register(fd, cb)
}

// RegisterWrite arms one-shot write interest on fd.
func (r *Reactor) RegisterWrite(fd int, cb func()) bool {
	return !r.closed.Load() && r.write.register(fd, cb)
}

// UnregisterRead drops read interest and its callback.
func (r *Reactor) UnregisterRead(fd int) {
	r.read.unregister(fd)
}

// UnregisterWrite drops write interest and its callback.
func (r *Reactor) UnregisterWrite(fd int) {
	r.write.unregister(fd)
}

// Close stops both loops and pools and releases the selectors. Idempotent.
func (r *Reactor) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := multierr.Combine(r.read.close(), r.write.close())
	if err != nil {
		return fmt.Errorf("reactor close: %w", err)
	}
	r.log.Debug().Msg("reactor closed")
	return nil
}
