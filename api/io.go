// File: api/io.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Contracts between the readiness reactor, the channel adapter and the
// dispatchers. IoArgs ownership moves along these interfaces: the processor
// hands a unit to the adapter, the adapter moves it through the socket and
// hands it back.

package api

import (
	"io"

	"github.com/momentics/hioload-clink/core/buffer"
)

// IoProvider is the readiness reactor. Interest is one-shot: a callback fires
// once per registration and must be registered again to fire again.
type IoProvider interface {
	// RegisterRead arms read interest on fd. Returns false if the provider is closed.
	RegisterRead(fd int, cb func()) bool
	// RegisterWrite arms write interest on fd. Returns false if the provider is closed.
	RegisterWrite(fd int, cb func()) bool
	UnregisterRead(fd int)
	UnregisterWrite(fd int)
	io.Closer
}

// IoArgsEventProcessor produces units for the adapter and is told how each
// transfer ended.
type IoArgsEventProcessor interface {
	// ProvideIoArgs returns the next unit, or nil when there is nothing to move.
	ProvideIoArgs() *buffer.IoArgs
	// OnConsumeFailed reports a failed transfer. args is nil when the processor
	// had nothing to provide; err is then ErrNoData.
	OnConsumeFailed(args *buffer.IoArgs, err error)
	// OnConsumeCompleted reports that args was fully transferred.
	OnConsumeCompleted(args *buffer.IoArgs)
}

// Sender moves outbound units to the socket.
type Sender interface {
	SetSendListener(p IoArgsEventProcessor)
	// PostSendAsync arms write interest; the listener is asked for a unit once
	// the socket is writable.
	PostSendAsync() error
	io.Closer
}

// Receiver moves inbound bytes from the socket into units.
type Receiver interface {
	SetReceiveListener(p IoArgsEventProcessor)
	// PostReceiveAsync arms read interest.
	PostReceiveAsync() error
	io.Closer
}
