// File: core/async/dispatcher.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Dispatcher contracts and shared options.

package async

import (
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-clink/control"
	"github.com/momentics/hioload-clink/core/buffer"
	"github.com/momentics/hioload-clink/core/packet"
)

// SendDispatcher queues outbound packets and drives the Sender.
type SendDispatcher interface {
	Send(p packet.SendPacket)
	// Cancel aborts p. A queued packet is dropped without wire traffic.
	Cancel(p packet.SendPacket)
	Close() error
}

// ReceiveDispatcher drives the Receiver and delivers completed packets.
type ReceiveDispatcher interface {
	Start()
	Stop()
	Close() error
}

// LinkControl is the send-side hook the receive side uses to react to
// refusals in either direction.
type LinkControl interface {
	// Reject emits CMD_RECEIVE_REJECT for a packet the peer is sending.
	Reject(id byte)
	// CancelIdentifier aborts the local packet sent under id.
	CancelIdentifier(id byte)
}

// SendCallback observes send completions.
type SendCallback func(p packet.SendPacket, ok bool)

// ReceiveCallback receives every successfully assembled packet.
type ReceiveCallback func(p packet.ReceivePacket)

// Options configures the dispatchers of one link.
type Options struct {
	// Capacity of the IoArgs unit.
	Capacity int
	// MaxInFlight bounds concurrently multiplexed send packets.
	MaxInFlight int
	Logger      zerolog.Logger
	Metrics     *control.MetricsRegistry
}

func (o Options) withDefaults() Options {
	if o.Capacity <= 0 {
		o.Capacity = buffer.DefaultCapacity
	}
	if o.MaxInFlight <= 0 {
		o.MaxInFlight = 1
	}
	return o
}
