//go:build !linux
// +build !linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package reactor

import (
	"fmt"

	"github.com/momentics/hioload-clink/api"
)

// Reactor is unavailable on this platform.
type Reactor struct{}

// New reports that no readiness backend exists for this platform.
func New(workers int) (*Reactor, error) {
	return nil, fmt.Errorf("epoll reactor: %w", api.ErrNotSupported)
}

// NewWithOptions reports that no readiness backend exists for this platform.
func NewWithOptions(Options) (*Reactor, error) {
	return New(0)
}

func (r *Reactor) RegisterRead(int, func()) bool  { return false }
func (r *Reactor) RegisterWrite(int, func()) bool { return false }
func (r *Reactor) UnregisterRead(int)             {}
func (r *Reactor) UnregisterWrite(int)            {}
func (r *Reactor) Close() error                   { return nil }
