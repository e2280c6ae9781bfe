// File: core/packet/send.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package packet

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"unicode/utf8"

	"github.com/momentics/hioload-clink/core/protocol"
)

type sendBase struct {
	length     int64
	headerInfo []byte
	canceled   atomic.Bool
}

func (b *sendBase) Length() int64      { return b.length }
func (b *sendBase) HeaderInfo() []byte { return b.headerInfo }
func (b *sendBase) Cancel() bool       { return b.canceled.CompareAndSwap(false, true) }
func (b *sendBase) IsCanceled() bool   { return b.canceled.Load() }

// BytesSendPacket sends an in-memory byte slice.
type BytesSendPacket struct {
	sendBase
	typ    byte
	data   []byte
	stream lazyStream[io.Reader]
}

// NewBytesSendPacket wraps data without copying it.
func NewBytesSendPacket(data []byte) *BytesSendPacket {
	return &BytesSendPacket{
		sendBase: sendBase{length: int64(len(data))},
		typ:      TypeBytes,
		data:     data,
	}
}

// NewStringSendPacket sends s as a string packet.
func NewStringSendPacket(s string) *BytesSendPacket {
	p := NewBytesSendPacket([]byte(s))
	p.typ = TypeString
	return p
}

func (p *BytesSendPacket) Type() byte { return p.typ }

// Bytes returns the payload.
func (p *BytesSendPacket) Bytes() []byte { return p.data }

func (p *BytesSendPacket) Open() (io.Reader, error) {
	return p.stream.open(func() (io.Reader, error) {
		return bytes.NewReader(p.data), nil
	})
}

func (p *BytesSendPacket) Close() error {
	return p.stream.close(func(io.Reader, bool) error { return nil })
}

// FileSendPacket streams a file from disk. The base name travels as header
// info so the receiver can restore it.
type FileSendPacket struct {
	sendBase
	path   string
	stream lazyStream[*os.File]
}

// NewFileSendPacket stats path to learn the packet length.
func NewFileSendPacket(path string) (*FileSendPacket, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("file packet: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("file packet: %s is a directory", path)
	}
	return &FileSendPacket{
		sendBase: sendBase{length: info.Size(), headerInfo: fileHeaderInfo(filepath.Base(path))},
		path:     path,
	}, nil
}

// fileHeaderInfo keeps the tail of name that fits the header info, cut on a
// rune boundary so the receiver still gets valid UTF-8.
func fileHeaderInfo(name string) []byte {
	b := []byte(name)
	if len(b) <= protocol.MaxHeaderInfoLength {
		return b
	}
	b = b[len(b)-protocol.MaxHeaderInfoLength:]
	for len(b) > 0 && !utf8.RuneStart(b[0]) {
		b = b[1:]
	}
	return b
}

func (p *FileSendPacket) Type() byte { return TypeFile }

// Path returns the source file path.
func (p *FileSendPacket) Path() string { return p.path }

func (p *FileSendPacket) Open() (io.Reader, error) {
	f, err := p.stream.open(func() (*os.File, error) {
		return os.Open(p.path)
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (p *FileSendPacket) Close() error {
	return p.stream.close(func(f *os.File, ok bool) error {
		if !ok {
			return nil
		}
		return f.Close()
	})
}

// DirectSendPacket streams length bytes from an arbitrary reader. If the
// reader is also an io.Closer it is closed with the packet.
type DirectSendPacket struct {
	sendBase
	src    io.Reader
	stream lazyStream[io.Reader]
}

// NewDirectSendPacket wraps src, which must yield at least length bytes.
func NewDirectSendPacket(src io.Reader, length int64, headerInfo []byte) *DirectSendPacket {
	return &DirectSendPacket{
		sendBase: sendBase{length: length, headerInfo: headerInfo},
		src:      src,
	}
}

func (p *DirectSendPacket) Type() byte { return TypeDirect }

func (p *DirectSendPacket) Open() (io.Reader, error) {
	return p.stream.open(func() (io.Reader, error) {
		return io.LimitReader(p.src, p.length), nil
	})
}

func (p *DirectSendPacket) Close() error {
	return p.stream.close(func(io.Reader, bool) error {
		if c, ok := p.src.(io.Closer); ok {
			return c.Close()
		}
		return nil
	})
}
