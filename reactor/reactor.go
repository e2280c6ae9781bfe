// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral reactor surface.

package reactor

import (
	"github.com/momentics/hioload-clink/affinity"
	"github.com/momentics/hioload-clink/api"
)

// DefaultWorkers is the pool size per direction.
const DefaultWorkers = 4

var _ api.IoProvider = (*Reactor)(nil)

// Options configures a Reactor.
type Options struct {
	// Workers per direction.
	Workers int
	// Pin enables ReadCPU and WriteCPU. Without it both selector threads
	// are left to the scheduler.
	Pin bool
	// ReadCPU and WriteCPU pin the selector threads when Pin is set;
	// affinity.NoCPU leaves that thread unpinned.
	ReadCPU  int
	WriteCPU int
}

// cpus returns the effective selector CPUs.
func (o Options) cpus() (read, write int) {
	if !o.Pin {
		return affinity.NoCPU, affinity.NoCPU
	}
	return o.ReadCPU, o.WriteCPU
}
