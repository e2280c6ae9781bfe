// File: core/frames/receive_frame.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Receive frames are built once the 6-byte header has been accumulated; they
// only run the body phase.

package frames

import (
	"io"

	"github.com/momentics/hioload-clink/api"
	"github.com/momentics/hioload-clink/core/buffer"
	"github.com/momentics/hioload-clink/core/protocol"
)

type receiveFrame struct {
	frameHeader
	bodyRemaining int
}

func (f *receiveFrame) handle(args *buffer.IoArgs, consumeBody func(*buffer.IoArgs) (int, error)) (bool, error) {
	if f.bodyRemaining == 0 {
		return true, nil
	}
	n, err := consumeBody(args)
	f.bodyRemaining -= n
	if err != nil {
		return false, err
	}
	return f.bodyRemaining == 0, nil
}

func (f *receiveFrame) ConsumableLength() int { return f.bodyRemaining }
func (f *receiveFrame) NextFrame() Frame      { return nil }

// ReceiveHeaderFrame collects the packet info body.
type ReceiveHeaderFrame struct {
	receiveFrame
	body []byte
}

func (f *ReceiveHeaderFrame) Handle(args *buffer.IoArgs) (bool, error) {
	return f.handle(args, func(a *buffer.IoArgs) (int, error) {
		return a.WriteTo(f.body, len(f.body)-f.bodyRemaining), nil
	})
}

// PacketInfo decodes the collected body. Valid once Handle returned true.
func (f *ReceiveHeaderFrame) PacketInfo() (protocol.PacketInfo, error) {
	return protocol.DecodePacketInfo(f.body)
}

// ReceiveEntityFrame forwards body bytes into the packet stream.
type ReceiveEntityFrame struct {
	receiveFrame
	sink io.Writer
}

// Bind attaches the destination stream. Unbound frames are discarded.
func (f *ReceiveEntityFrame) Bind(w io.Writer) {
	f.sink = w
}

func (f *ReceiveEntityFrame) Handle(args *buffer.IoArgs) (bool, error) {
	return f.handle(args, func(a *buffer.IoArgs) (int, error) {
		return a.WriteToN(f.sink, f.bodyRemaining)
	})
}

// commandReceiveFrame drops any stray body bytes of a command frame.
type commandReceiveFrame struct {
	receiveFrame
}

func (f *commandReceiveFrame) Handle(args *buffer.IoArgs) (bool, error) {
	return f.handle(args, func(a *buffer.IoArgs) (int, error) {
		return a.WriteToN(io.Discard, f.bodyRemaining)
	})
}

// CancelReceiveFrame is an inbound CMD_SEND_CANCEL.
type CancelReceiveFrame struct {
	commandReceiveFrame
}

// RejectSendFrame is an inbound CMD_RECEIVE_REJECT: the peer refused a
// packet this side is sending.
type RejectSendFrame struct {
	commandReceiveFrame
}

// NewReceiveFrame decodes a complete 6-byte header and returns the matching
// frame kind.
func NewReceiveFrame(raw []byte) (Frame, error) {
	hdr, err := protocol.DecodeHeader(raw)
	if err != nil {
		return nil, err
	}
	base := receiveFrame{frameHeader: frameHeader{hdr: hdr}, bodyRemaining: hdr.BodyLength}
	switch hdr.Type {
	case protocol.TypePacketHeader:
		return &ReceiveHeaderFrame{receiveFrame: base, body: make([]byte, hdr.BodyLength)}, nil
	case protocol.TypePacketEntity:
		return &ReceiveEntityFrame{receiveFrame: base, sink: io.Discard}, nil
	case protocol.TypeCommandSendCancel:
		return &CancelReceiveFrame{commandReceiveFrame{base}}, nil
	case protocol.TypeCommandReceiveReject:
		return &RejectSendFrame{commandReceiveFrame{base}}, nil
	default:
		return nil, api.ProtocolError(api.ErrUnknownFrameType, "frame type").WithContext("type", hdr.Type)
	}
}
