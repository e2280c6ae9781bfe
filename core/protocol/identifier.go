// File: core/protocol/identifier.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import (
	"fmt"

	"github.com/momentics/hioload-clink/api"
)

// IdentifierGenerator hands out connection-scoped frame identifiers in the
// cyclic range 1..254. An identifier is not handed out again until it has
// been released, so two live packets never share one. Not safe for
// concurrent use; callers hold their own lock.
type IdentifierGenerator struct {
	last  byte
	inUse [256]bool
	live  int
}

// Capacity is the number of identifiers that can be live at once.
const Capacity = int(MaxIdentifier-MinIdentifier) + 1

// Next allocates the next free identifier after the last one handed out.
func (g *IdentifierGenerator) Next() (byte, error) {
	if g.live >= Capacity {
		return 0, fmt.Errorf("%d identifiers live: %w", g.live, api.ErrResourceExhausted)
	}
	for {
		g.last++
		if g.last < MinIdentifier || g.last > MaxIdentifier {
			g.last = MinIdentifier
		}
		if !g.inUse[g.last] {
			g.inUse[g.last] = true
			g.live++
			return g.last, nil
		}
	}
}

// Release returns id to the pool. Releasing a free identifier is a no-op.
func (g *IdentifierGenerator) Release(id byte) {
	if g.inUse[id] {
		g.inUse[id] = false
		g.live--
	}
}

// InUse reports whether id is currently allocated.
func (g *IdentifierGenerator) InUse(id byte) bool {
	return g.inUse[id]
}

// Live returns the number of allocated identifiers.
func (g *IdentifierGenerator) Live() int {
	return g.live
}
