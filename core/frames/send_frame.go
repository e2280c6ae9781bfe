// File: core/frames/send_frame.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package frames

import (
	"github.com/momentics/hioload-clink/core/buffer"
	"github.com/momentics/hioload-clink/core/protocol"
)

// sendFrame carries the header/body cursors shared by all send frames.
type sendFrame struct {
	frameHeader
	raw             [protocol.HeaderLength]byte
	headerRemaining int
	bodyRemaining   int
}

func newSendFrame(bodyLength int, frameType, identifier byte) sendFrame {
	f := sendFrame{
		frameHeader: frameHeader{hdr: protocol.Header{
			BodyLength: bodyLength,
			Type:       frameType,
			Flag:       protocol.FlagNone,
			Identifier: identifier,
		}},
		headerRemaining: protocol.HeaderLength,
		bodyRemaining:   bodyLength,
	}
	f.hdr.Encode(f.raw[:])
	return f
}

// handle runs one fill cycle: remaining header bytes first, then body bytes
// produced by consumeBody.
func (f *sendFrame) handle(args *buffer.IoArgs, consumeBody func(*buffer.IoArgs) (int, error)) (done bool, err error) {
	args.Limit(f.headerRemaining + f.bodyRemaining)
	args.StartWriting()
	defer args.FinishWriting()

	if f.headerRemaining > 0 && args.Remained() {
		offset := protocol.HeaderLength - f.headerRemaining
		f.headerRemaining -= args.ReadFrom(f.raw[:], offset, f.headerRemaining)
	}
	if f.headerRemaining == 0 && args.Remained() && f.bodyRemaining > 0 {
		n, err := consumeBody(args)
		f.bodyRemaining -= n
		if err != nil {
			return false, err
		}
	}
	return f.headerRemaining == 0 && f.bodyRemaining == 0, nil
}

func (f *sendFrame) Started() bool {
	return f.headerRemaining < protocol.HeaderLength
}

func (f *sendFrame) ConsumableLength() int {
	return f.headerRemaining + f.bodyRemaining
}

// commandFrame is a header-only control frame.
type commandFrame struct {
	sendFrame
}

func (f *commandFrame) Handle(args *buffer.IoArgs) (bool, error) {
	return f.handle(args, func(*buffer.IoArgs) (int, error) { return 0, nil })
}

func (f *commandFrame) NextFrame() Frame { return nil }

// CancelSendFrame tells the peer to drop the packet bound to an identifier.
type CancelSendFrame struct {
	commandFrame
}

// NewCancelSendFrame returns a CMD_SEND_CANCEL frame for identifier.
func NewCancelSendFrame(identifier byte) *CancelSendFrame {
	return &CancelSendFrame{commandFrame{newSendFrame(0, protocol.TypeCommandSendCancel, identifier)}}
}

// RejectReceiveFrame tells the peer that the packet it is sending under an
// identifier was refused and should be cancelled.
type RejectReceiveFrame struct {
	commandFrame
}

// NewRejectReceiveFrame returns a CMD_RECEIVE_REJECT frame for identifier.
func NewRejectReceiveFrame(identifier byte) *RejectReceiveFrame {
	return &RejectReceiveFrame{commandFrame{newSendFrame(0, protocol.TypeCommandReceiveReject, identifier)}}
}
