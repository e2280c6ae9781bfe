// File: core/frames/packet_frame.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Header and entity frames bound to a send packet.

package frames

import (
	"io"

	"github.com/momentics/hioload-clink/core/buffer"
	"github.com/momentics/hioload-clink/core/packet"
	"github.com/momentics/hioload-clink/core/protocol"
)

// packetFrame adds the abort/fault state shared by header and entity frames.
type packetFrame struct {
	sendFrame
	pkt     packet.SendPacket
	aborted bool
	err     error
}

func (f *packetFrame) Packet() packet.SendPacket { return f.pkt }
func (f *packetFrame) Aborted() bool             { return f.aborted }
func (f *packetFrame) Err() error                { return f.err }

func (f *packetFrame) Abort() bool {
	f.aborted = true
	return !f.Started()
}

// skip finishes an aborted frame that never reached the wire.
func (f *packetFrame) skip(args *buffer.IoArgs) bool {
	if !f.aborted || f.Started() {
		return false
	}
	args.Limit(0)
	args.StartWriting()
	args.FinishWriting()
	f.bodyRemaining = 0
	f.headerRemaining = 0
	return true
}

// SendHeaderFrame announces a packet: length, type and header info.
type SendHeaderFrame struct {
	packetFrame
	body []byte
}

// NewSendHeaderFrame builds the header frame for p under identifier.
func NewSendHeaderFrame(identifier byte, p packet.SendPacket) (*SendHeaderFrame, error) {
	body, err := protocol.EncodePacketInfo(p.Length(), p.Type(), p.HeaderInfo())
	if err != nil {
		return nil, err
	}
	return &SendHeaderFrame{
		packetFrame: packetFrame{
			sendFrame: newSendFrame(len(body), protocol.TypePacketHeader, identifier),
			pkt:       p,
		},
		body: body,
	}, nil
}

func (f *SendHeaderFrame) Handle(args *buffer.IoArgs) (bool, error) {
	if f.skip(args) {
		return true, nil
	}
	return f.handle(args, func(a *buffer.IoArgs) (int, error) {
		offset := len(f.body) - f.bodyRemaining
		return a.ReadFrom(f.body, offset, f.bodyRemaining), nil
	})
}

// NextFrame opens the packet stream and returns the first entity frame.
// A zero-length packet has no entity frames.
func (f *SendHeaderFrame) NextFrame() Frame {
	if f.aborted || f.err != nil || f.pkt.Length() == 0 {
		return nil
	}
	r, err := f.pkt.Open()
	if err != nil {
		f.err = err
		return nil
	}
	return newSendEntityFrame(f.Identifier(), f.pkt.Length(), r, f.pkt)
}

// SendEntityFrame carries up to MaxBodyLength bytes of the packet stream.
type SendEntityFrame struct {
	packetFrame
	reader     io.Reader
	unconsumed int64
}

func newSendEntityFrame(identifier byte, entityLength int64, r io.Reader, p packet.SendPacket) *SendEntityFrame {
	bodyLength := int(min(entityLength, int64(protocol.MaxBodyLength)))
	return &SendEntityFrame{
		packetFrame: packetFrame{
			sendFrame: newSendFrame(bodyLength, protocol.TypePacketEntity, identifier),
			pkt:       p,
		},
		reader:     r,
		unconsumed: entityLength - int64(bodyLength),
	}
}

// Handle streams body bytes from the packet. Once aborted, or after the
// stream fails, the rest of the body is zero padded so the peer stays
// aligned on frame boundaries.
func (f *SendEntityFrame) Handle(args *buffer.IoArgs) (bool, error) {
	if f.skip(args) {
		return true, nil
	}
	return f.handle(args, func(a *buffer.IoArgs) (int, error) {
		if f.aborted || f.err != nil {
			return a.FillEmpty(f.bodyRemaining), nil
		}
		n, err := a.ReadFromReader(f.reader)
		if err != nil {
			f.err = err
			n += a.FillEmpty(f.bodyRemaining - n)
		}
		return n, nil
	})
}

func (f *SendEntityFrame) NextFrame() Frame {
	if f.aborted || f.err != nil || f.unconsumed == 0 {
		return nil
	}
	return newSendEntityFrame(f.Identifier(), f.unconsumed, f.reader, f.pkt)
}
