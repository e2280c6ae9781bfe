// File: core/buffer/ioargs.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// IoArgs is the I/O unit: a fixed-capacity buffer with a position/limit pair,
// filled in one cycle (StartWriting..FinishWriting) and drained in the next.

package buffer

import (
	"encoding/binary"
	"io"
)

// DefaultCapacity is the granular chunk size moved per readiness event.
const DefaultCapacity = 256

// LengthPrefixSize is the size of the legacy packet length prefix.
const LengthPrefixSize = 4

// IoArgs is a bounded transfer buffer. It is not safe for concurrent use;
// ownership moves between the dispatcher and the channel adapter.
type IoArgs struct {
	buf   []byte
	pos   int
	lim   int
	limit int // bound applied on the next StartWriting
}

// NewIoArgs returns an IoArgs with DefaultCapacity.
func NewIoArgs() *IoArgs {
	return NewIoArgsSize(DefaultCapacity)
}

// NewIoArgsSize returns an IoArgs with the given capacity.
func NewIoArgsSize(capacity int) *IoArgs {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &IoArgs{
		buf:   make([]byte, capacity),
		lim:   capacity,
		limit: capacity,
	}
}

// Limit bounds the next fill cycle to n bytes, capped at Capacity.
func (a *IoArgs) Limit(n int) {
	if n < 0 {
		n = 0
	}
	if n > len(a.buf) {
		n = len(a.buf)
	}
	a.limit = n
}

// Capacity returns the fixed size of the underlying buffer.
func (a *IoArgs) Capacity() int {
	return len(a.buf)
}

// StartWriting clears the unit and applies the configured bound.
func (a *IoArgs) StartWriting() {
	a.pos = 0
	a.lim = a.limit
}

// FinishWriting flips the unit so the written bytes become readable.
func (a *IoArgs) FinishWriting() {
	a.lim = a.pos
	a.pos = 0
}

// Remaining reports how many bytes can still be written (fill phase)
// or read (drain phase).
func (a *IoArgs) Remaining() int {
	return a.lim - a.pos
}

// Remained reports whether Remaining is positive.
func (a *IoArgs) Remained() bool {
	return a.pos < a.lim
}

// Bytes returns a view of the unconsumed region. The view is invalidated by
// the next transfer.
func (a *IoArgs) Bytes() []byte {
	return a.buf[a.pos:a.lim]
}

// ReadFrom copies up to count bytes of b starting at offset into the unit.
func (a *IoArgs) ReadFrom(b []byte, offset, count int) int {
	if offset >= len(b) {
		return 0
	}
	size := min(count, len(b)-offset, a.Remaining())
	if size <= 0 {
		return 0
	}
	copy(a.buf[a.pos:], b[offset:offset+size])
	a.pos += size
	return size
}

// WriteTo copies unconsumed bytes into b starting at offset.
func (a *IoArgs) WriteTo(b []byte, offset int) int {
	if offset >= len(b) {
		return 0
	}
	size := min(len(b)-offset, a.Remaining())
	copy(b[offset:offset+size], a.buf[a.pos:a.pos+size])
	a.pos += size
	return size
}

// ReadFromReader fills the remaining region from r. Running out of input
// before the bound is reached is reported as io.ErrUnexpectedEOF.
func (a *IoArgs) ReadFromReader(r io.Reader) (int, error) {
	if !a.Remained() {
		return 0, nil
	}
	n, err := io.ReadFull(r, a.buf[a.pos:a.lim])
	a.pos += n
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

// WriteToWriter drains the remaining region into w.
func (a *IoArgs) WriteToWriter(w io.Writer) (int, error) {
	if !a.Remained() {
		return 0, nil
	}
	n, err := w.Write(a.buf[a.pos:a.lim])
	a.pos += n
	if err == nil && a.Remained() {
		err = io.ErrShortWrite
	}
	return n, err
}

// WriteToN drains at most n readable bytes into w.
func (a *IoArgs) WriteToN(w io.Writer, n int) (int, error) {
	size := min(n, a.Remaining())
	if size <= 0 {
		return 0, nil
	}
	written, err := w.Write(a.buf[a.pos : a.pos+size])
	a.pos += written
	if err == nil && written < size {
		err = io.ErrShortWrite
	}
	return written, err
}

// FillEmpty writes up to n zero bytes. Used to keep stream alignment with the
// peer after the backing packet has been aborted.
func (a *IoArgs) FillEmpty(n int) int {
	size := min(n, a.Remaining())
	if size <= 0 {
		return 0
	}
	clear(a.buf[a.pos : a.pos+size])
	a.pos += size
	return size
}

// WriteLength encodes the legacy 4-byte length prefix as a complete fill cycle.
func (a *IoArgs) WriteLength(total int) {
	a.pos = 0
	a.lim = min(LengthPrefixSize, len(a.buf))
	binary.BigEndian.PutUint32(a.buf[a.pos:], uint32(total))
	a.pos += LengthPrefixSize
	a.FinishWriting()
}

// ReadLength decodes the legacy 4-byte length prefix, or -1 if fewer than
// four bytes are readable.
func (a *IoArgs) ReadLength() int {
	if a.Remaining() < LengthPrefixSize {
		return -1
	}
	n := binary.BigEndian.Uint32(a.buf[a.pos:])
	a.pos += LengthPrefixSize
	return int(n)
}

// BufferString returns the unconsumed region as a string.
func (a *IoArgs) BufferString() string {
	return string(a.buf[a.pos:a.lim])
}
