// File: core/protocol/frame_codec.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Frame header and header-frame body codec. All fields are big-endian.

package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/momentics/hioload-clink/api"
)

// Header is the decoded 6-byte frame header:
// bodyLength:u16 | type:u8 | flag:u8 | identifier:u8 | reserved:u8.
type Header struct {
	BodyLength int
	Type       byte
	Flag       byte
	Identifier byte
}

// NewHeader validates the fields of a frame header.
func NewHeader(bodyLength int, frameType, flag, identifier byte) (Header, error) {
	if bodyLength < 0 || bodyLength > MaxBodyLength {
		return Header{}, fmt.Errorf("body length %d: %w", bodyLength, api.ErrFrameTooLarge)
	}
	if identifier == 0 {
		return Header{}, fmt.Errorf("identifier 0: %w", api.ErrInvalidArgument)
	}
	return Header{
		BodyLength: bodyLength,
		Type:       frameType,
		Flag:       flag,
		Identifier: identifier,
	}, nil
}

// Encode writes the header into dst, which must hold HeaderLength bytes.
func (h Header) Encode(dst []byte) {
	_ = dst[HeaderLength-1]
	binary.BigEndian.PutUint16(dst[0:2], uint16(h.BodyLength))
	dst[2] = h.Type
	dst[3] = h.Flag
	dst[4] = h.Identifier
	dst[5] = 0
}

// Bytes returns the encoded header.
func (h Header) Bytes() [HeaderLength]byte {
	var b [HeaderLength]byte
	h.Encode(b[:])
	return b
}

// DecodeHeader parses a frame header from the first HeaderLength bytes of raw.
func DecodeHeader(raw []byte) (Header, error) {
	if len(raw) < HeaderLength {
		return Header{}, fmt.Errorf("frame header too short (%d bytes): %w", len(raw), api.ErrInvalidArgument)
	}
	h := Header{
		BodyLength: int(binary.BigEndian.Uint16(raw[0:2])),
		Type:       raw[2],
		Flag:       raw[3],
		Identifier: raw[4],
	}
	if h.Identifier == 0 {
		return Header{}, api.ProtocolError(api.ErrInvalidArgument, "frame identifier 0").
			WithContext("type", h.Type)
	}
	return h, nil
}

// PacketInfo is the decoded body of a header frame.
type PacketInfo struct {
	Length     int64
	Type       byte
	HeaderInfo []byte
}

// EncodePacketInfo builds a header-frame body:
// [packetLength:5][packetType:1][headerInfo:0..249].
func EncodePacketInfo(length int64, packetType byte, headerInfo []byte) ([]byte, error) {
	if length < 0 || length > MaxPacketLength {
		return nil, fmt.Errorf("packet length %d: %w", length, api.ErrInvalidArgument)
	}
	if len(headerInfo) > MaxHeaderInfoLength {
		return nil, fmt.Errorf("header info %d bytes: %w", len(headerInfo), api.ErrFrameTooLarge)
	}
	body := make([]byte, PacketHeaderMinLength+len(headerInfo))
	body[0] = byte(length >> 32)
	body[1] = byte(length >> 24)
	body[2] = byte(length >> 16)
	body[3] = byte(length >> 8)
	body[4] = byte(length)
	body[5] = packetType
	copy(body[PacketHeaderMinLength:], headerInfo)
	return body, nil
}

// DecodePacketInfo parses a header-frame body.
func DecodePacketInfo(body []byte) (PacketInfo, error) {
	if len(body) < PacketHeaderMinLength {
		return PacketInfo{}, api.ProtocolError(api.ErrInvalidArgument, "header frame body too short").
			WithContext("length", len(body))
	}
	length := int64(body[0])<<32 |
		int64(body[1])<<24 |
		int64(body[2])<<16 |
		int64(body[3])<<8 |
		int64(body[4])
	info := PacketInfo{
		Length: length,
		Type:   body[5],
	}
	if len(body) > PacketHeaderMinLength {
		info.HeaderInfo = append([]byte(nil), body[PacketHeaderMinLength:]...)
	}
	return info, nil
}
