// File: core/frames/frame.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Frames are two-phase state machines: a 6-byte header phase followed by a
// body phase of 0..65535 bytes. Handle moves as many bytes as the current
// IoArgs allows and reports true once the frame is fully consumed.

package frames

import (
	"github.com/momentics/hioload-clink/core/buffer"
	"github.com/momentics/hioload-clink/core/packet"
	"github.com/momentics/hioload-clink/core/protocol"
)

// Frame is implemented by every send and receive frame kind.
type Frame interface {
	Header() protocol.Header
	Identifier() byte
	Type() byte
	// Priority orders the frame inside the send chain.
	Priority() byte
	// Handle consumes the frame against args; true means fully consumed.
	Handle(args *buffer.IoArgs) (bool, error)
	// NextFrame returns the successor produced by a completed frame, if any.
	NextFrame() Frame
	// ConsumableLength is the number of header and body bytes still pending.
	ConsumableLength() int
}

// SendFrame is a frame written to the wire.
type SendFrame interface {
	Frame
	// Started reports whether any header byte has been transmitted.
	Started() bool
}

// SendPacketFrame is a send frame carrying a packet's header or entity.
type SendPacketFrame interface {
	SendFrame
	Packet() packet.SendPacket
	// Abort detaches the frame from its packet. It returns true only when
	// nothing was transmitted yet and the frame can be dropped outright.
	Abort() bool
	Aborted() bool
	// Err reports a stream fault hit while producing this frame or its successor.
	Err() error
}

type frameHeader struct {
	hdr protocol.Header
}

func (f *frameHeader) Header() protocol.Header { return f.hdr }
func (f *frameHeader) Identifier() byte        { return f.hdr.Identifier }
func (f *frameHeader) Type() byte              { return f.hdr.Type }
func (f *frameHeader) Priority() byte          { return protocol.PriorityOf(f.hdr.Type) }
