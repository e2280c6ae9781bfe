// File: core/packet/packet.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Packet contracts. A packet is an application message of known length whose
// bytes are exposed through a lazily opened stream.

package packet

import (
	"errors"
	"io"
	"sync"

	"github.com/momentics/hioload-clink/core/protocol"
)

// Packet type tags as carried in the header frame.
const (
	TypeBytes  = protocol.PacketTypeBytes
	TypeString = protocol.PacketTypeString
	TypeFile   = protocol.PacketTypeFile
	TypeDirect = protocol.PacketTypeDirect
)

// ErrPacketClosed is returned by Open after the packet has been closed.
var ErrPacketClosed = errors.New("packet is closed")

// Packet is the common view of send and receive packets.
type Packet interface {
	// Type returns one of the Type* tags.
	Type() byte
	// Length is the total number of entity bytes.
	Length() int64
	// HeaderInfo is optional metadata carried in the header frame (<= 249 bytes).
	HeaderInfo() []byte
	// Close releases the stream. Idempotent.
	Close() error
}

// SendPacket is a packet produced locally. Open returns the same reader on
// every call.
type SendPacket interface {
	Packet
	Open() (io.Reader, error)
	// Cancel sets the cancellation flag; only the first call returns true.
	Cancel() bool
	IsCanceled() bool
}

// ReceivePacket is a packet being assembled from frames. Close converts the
// accumulated bytes into the entity exactly once.
type ReceivePacket interface {
	Packet
	Open() (io.Writer, error)
	Entity() any
}

// lazyStream opens a stream at most once and closes it at most once.
type lazyStream[S any] struct {
	mu     sync.Mutex
	stream S
	opened bool
	closed bool
	err    error
}

func (l *lazyStream[S]) open(create func() (S, error)) (S, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		var zero S
		return zero, ErrPacketClosed
	}
	if !l.opened {
		l.stream, l.err = create()
		l.opened = true
	}
	return l.stream, l.err
}

// close runs fn once; ok is true when the stream was opened successfully.
func (l *lazyStream[S]) close(fn func(stream S, ok bool) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return fn(l.stream, l.opened && l.err == nil)
}
