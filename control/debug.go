// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Named probes dumped on demand for internal inspection.

package control

import (
	"sort"
	"sync"
)

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]func() any),
	}
}

// RegisterProbe installs fn under name, replacing any previous probe.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// UnregisterProbe removes name.
func (dp *DebugProbes) UnregisterProbe(name string) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	delete(dp.probes, name)
}

// Names lists registered probes in order.
func (dp *DebugProbes) Names() []string {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	names := make([]string, 0, len(dp.probes))
	for k := range dp.probes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// DumpState evaluates every probe. Probes run outside the registry lock.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	snapshot := make(map[string]func() any, len(dp.probes))
	for k, fn := range dp.probes {
		snapshot[k] = fn
	}
	dp.mu.RUnlock()
	out := make(map[string]any, len(snapshot))
	for k, fn := range snapshot {
		out[k] = fn()
	}
	return out
}
