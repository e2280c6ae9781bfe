// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Frame wire protocol constants.

package protocol

const (
	// HeaderLength is the fixed size of every frame header.
	HeaderLength = 6

	// MaxBodyLength is the largest body a single frame may carry.
	MaxBodyLength = 64*1024 - 1

	// Frame types.
	TypePacketHeader         byte = 11
	TypePacketEntity         byte = 12
	TypeCommandSendCancel    byte = 41
	TypeCommandReceiveReject byte = 42

	// FlagNone is the only flag currently defined.
	FlagNone byte = 0

	// Identifier bounds. 0 is never allocated; 255 is reserved.
	MinIdentifier      byte = 1
	MaxIdentifier      byte = 254
	ReservedIdentifier byte = 255

	// Chain priorities. Control frames jump ahead of queued data frames.
	PriorityNormal byte = 1
	PriorityHigh   byte = 2
)

// Packet types carried in the header-frame body.
const (
	PacketTypeBytes  byte = 1
	PacketTypeString byte = 2
	PacketTypeFile   byte = 3
	PacketTypeDirect byte = 4
)

const (
	// PacketLengthSize is the width of the packet length field (40-bit).
	PacketLengthSize = 5

	// PacketHeaderMinLength is packet length plus packet type.
	PacketHeaderMinLength = PacketLengthSize + 1

	// MaxHeaderInfoLength bounds the optional header info blob.
	MaxHeaderInfoLength = 249

	// MaxPacketLength is the largest length representable in 40 bits.
	MaxPacketLength = 1<<40 - 1
)

// IsControl reports whether frameType is a zero-body command frame.
func IsControl(frameType byte) bool {
	return frameType == TypeCommandSendCancel || frameType == TypeCommandReceiveReject
}

// PriorityOf returns the chain priority used for frameType.
func PriorityOf(frameType byte) byte {
	if IsControl(frameType) {
		return PriorityHigh
	}
	return PriorityNormal
}
