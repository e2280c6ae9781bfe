// File: discovery/codec.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package discovery

import (
	"bytes"
	"encoding/binary"
)

// Command codes.
const (
	CmdSearch uint16 = 1
	CmdAnswer uint16 = 2
)

const (
	// DatagramSize bounds every discovery datagram.
	DatagramSize = 128
	minLength    = len(magicBytes) + 2 + 4
	maxSerial    = DatagramSize - minLength
)

var magicBytes = [8]byte{7, 7, 7, 7, 7, 7, 7, 7}

// Magic returns the datagram prefix.
func Magic() []byte {
	m := magicBytes
	return m[:]
}

func putHead(dst []byte, cmd uint16, port int) int {
	n := copy(dst, magicBytes[:])
	binary.BigEndian.PutUint16(dst[n:], cmd)
	binary.BigEndian.PutUint32(dst[n+2:], uint32(port))
	return minLength
}

func parseHead(b []byte) (cmd uint16, port int, ok bool) {
	if len(b) < minLength || !bytes.HasPrefix(b, magicBytes[:]) {
		return 0, 0, false
	}
	n := len(magicBytes)
	cmd = binary.BigEndian.Uint16(b[n:])
	port = int(int32(binary.BigEndian.Uint32(b[n+2:])))
	return cmd, port, true
}

// EncodeRequest writes a search request into dst, which must hold at least
// DatagramSize bytes, and returns its length.
func EncodeRequest(dst []byte, responsePort int) int {
	return putHead(dst, CmdSearch, responsePort)
}

// DecodeRequest returns the response port of a valid search request.
func DecodeRequest(b []byte) (int, bool) {
	cmd, port, ok := parseHead(b)
	if !ok || cmd != CmdSearch || port <= 0 {
		return 0, false
	}
	return port, true
}

// EncodeResponse writes an answer into dst. The serial is truncated to fit
// DatagramSize.
func EncodeResponse(dst []byte, serverPort int, serial string) int {
	n := putHead(dst, CmdAnswer, serverPort)
	if len(serial) > maxSerial {
		serial = serial[:maxSerial]
	}
	return n + copy(dst[n:], serial)
}

// DecodeResponse returns the server port and serial of a valid answer.
func DecodeResponse(b []byte) (port int, serial string, ok bool) {
	cmd, port, ok := parseHead(b)
	if !ok || cmd != CmdAnswer || port <= 0 {
		return 0, "", false
	}
	return port, string(b[minLength:]), true
}
