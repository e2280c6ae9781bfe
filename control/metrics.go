// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector. Counters are registered on first use and read
// back as a snapshot.

package control

import (
	"sync"
	"sync/atomic"
	"time"
)

// Well-known counter keys.
const (
	MetricPacketsSent     = "packets_sent"
	MetricPacketsFailed   = "packets_failed"
	MetricPacketsReceived = "packets_received"
	MetricPacketsDropped  = "packets_dropped"
	MetricBytesSent       = "bytes_sent"
	MetricBytesReceived   = "bytes_received"
	MetricConnections     = "connections"
)

// MetricsRegistry holds counters and free-form values. A nil registry is a
// valid no-op.
type MetricsRegistry struct {
	mu       sync.RWMutex
	counters map[string]*atomic.Int64
	values   map[string]any
	updated  time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		counters: make(map[string]*atomic.Int64),
		values:   make(map[string]any),
	}
}

func (mr *MetricsRegistry) counter(key string) *atomic.Int64 {
	mr.mu.RLock()
	c, ok := mr.counters[key]
	mr.mu.RUnlock()
	if ok {
		return c
	}
	mr.mu.Lock()
	defer mr.mu.Unlock()
	if c, ok = mr.counters[key]; !ok {
		c = new(atomic.Int64)
		mr.counters[key] = c
	}
	return c
}

// Add increments counter key by delta.
func (mr *MetricsRegistry) Add(key string, delta int64) {
	if mr == nil {
		return
	}
	mr.counter(key).Add(delta)
}

// Counter returns the current value of key.
func (mr *MetricsRegistry) Counter(key string) int64 {
	if mr == nil {
		return 0
	}
	return mr.counter(key).Load()
}

// Set sets or updates a free-form metric.
func (mr *MetricsRegistry) Set(key string, value any) {
	if mr == nil {
		return
	}
	mr.mu.Lock()
	mr.values[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// GetSnapshot returns the latest metrics.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	if mr == nil {
		return nil
	}
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.values)+len(mr.counters))
	for k, v := range mr.values {
		out[k] = v
	}
	for k, c := range mr.counters {
		out[k] = c.Load()
	}
	return out
}
