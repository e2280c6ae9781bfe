// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package pool

import "sync"

// ObjectPool is a generic object pool.
type ObjectPool[T any] interface {
	Get() T
	Put(T)
}

// SyncPool wraps sync.Pool for typed usage. Put ignores objects rejected by
// the optional reset hook.
type SyncPool[T any] struct {
	pool  *sync.Pool
	reset func(T) bool
}

// NewSyncPool creates a pool that allocates through creator.
func NewSyncPool[T any](creator func() T) *SyncPool[T] {
	return NewSyncPoolReset(creator, nil)
}

// NewSyncPoolReset creates a pool whose Put runs reset first; a false result
// drops the object instead of recycling it.
func NewSyncPoolReset[T any](creator func() T, reset func(T) bool) *SyncPool[T] {
	return &SyncPool[T]{
		pool:  &sync.Pool{New: func() any { return creator() }},
		reset: reset,
	}
}

func (sp *SyncPool[T]) Get() T {
	return sp.pool.Get().(T)
}

func (sp *SyncPool[T]) Put(obj T) {
	if sp.reset != nil && !sp.reset(obj) {
		return
	}
	sp.pool.Put(obj)
}
