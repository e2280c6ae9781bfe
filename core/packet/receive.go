// File: core/packet/receive.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package packet

import (
	"bytes"
	"io"
	"os"
)

// preallocLimit caps the up-front buffer growth so a forged length cannot
// force a huge allocation.
const preallocLimit = 64 * 1024

type receiveBase struct {
	length     int64
	headerInfo []byte
}

func (b *receiveBase) Length() int64      { return b.length }
func (b *receiveBase) HeaderInfo() []byte { return b.headerInfo }

// byteArrayReceive accumulates the entity in memory.
type byteArrayReceive struct {
	receiveBase
	stream lazyStream[*bytes.Buffer]
	data   []byte
}

func (p *byteArrayReceive) Open() (io.Writer, error) {
	return p.stream.open(func() (*bytes.Buffer, error) {
		buf := new(bytes.Buffer)
		buf.Grow(int(min(p.length, preallocLimit)))
		return buf, nil
	})
}

func (p *byteArrayReceive) Close() error {
	return p.stream.close(func(buf *bytes.Buffer, ok bool) error {
		if ok {
			p.data = buf.Bytes()
		}
		return nil
	})
}

// BytesReceivePacket yields a []byte entity.
type BytesReceivePacket struct {
	byteArrayReceive
	typ byte
}

// NewBytesReceivePacket returns a receive packet for length bytes.
func NewBytesReceivePacket(length int64, headerInfo []byte) *BytesReceivePacket {
	return &BytesReceivePacket{
		byteArrayReceive: byteArrayReceive{receiveBase: receiveBase{length: length, headerInfo: headerInfo}},
		typ:              TypeBytes,
	}
}

func (p *BytesReceivePacket) Type() byte { return p.typ }

// Entity returns the received bytes, nil before Close.
func (p *BytesReceivePacket) Entity() any { return p.data }

// Bytes is the typed form of Entity.
func (p *BytesReceivePacket) Bytes() []byte { return p.data }

// StringReceivePacket yields a string entity.
type StringReceivePacket struct {
	byteArrayReceive
}

// NewStringReceivePacket returns a receive packet for a string of length bytes.
func NewStringReceivePacket(length int64, headerInfo []byte) *StringReceivePacket {
	return &StringReceivePacket{
		byteArrayReceive: byteArrayReceive{receiveBase: receiveBase{length: length, headerInfo: headerInfo}},
	}
}

func (p *StringReceivePacket) Type() byte { return TypeString }

// Entity returns the received string, "" before Close.
func (p *StringReceivePacket) Entity() any { return p.String() }

func (p *StringReceivePacket) String() string { return string(p.data) }

// FileReceivePacket writes the entity into a file. The entity is the path.
type FileReceivePacket struct {
	receiveBase
	path   string
	stream lazyStream[*os.File]
}

// NewFileReceivePacket writes into path, creating or truncating it on Open.
func NewFileReceivePacket(length int64, headerInfo []byte, path string) *FileReceivePacket {
	return &FileReceivePacket{
		receiveBase: receiveBase{length: length, headerInfo: headerInfo},
		path:        path,
	}
}

func (p *FileReceivePacket) Type() byte { return TypeFile }

// Entity returns the destination path.
func (p *FileReceivePacket) Entity() any { return p.path }

// Path returns the destination path.
func (p *FileReceivePacket) Path() string { return p.path }

// Name returns the sender-side file name carried as header info.
func (p *FileReceivePacket) Name() string { return string(p.headerInfo) }

func (p *FileReceivePacket) Open() (io.Writer, error) {
	f, err := p.stream.open(func() (*os.File, error) {
		return os.Create(p.path)
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (p *FileReceivePacket) Close() error {
	return p.stream.close(func(f *os.File, ok bool) error {
		if !ok {
			return nil
		}
		return f.Close()
	})
}

// DirectReceivePacket forwards the entity into a caller supplied sink.
type DirectReceivePacket struct {
	receiveBase
	sink   io.Writer
	opened lazyStream[io.Writer]
}

// NewDirectReceivePacket forwards length bytes into sink. If sink is an
// io.Closer it is closed with the packet.
func NewDirectReceivePacket(length int64, headerInfo []byte, sink io.Writer) *DirectReceivePacket {
	return &DirectReceivePacket{
		receiveBase: receiveBase{length: length, headerInfo: headerInfo},
		sink:        sink,
	}
}

func (p *DirectReceivePacket) Type() byte { return TypeDirect }

// Entity returns the sink.
func (p *DirectReceivePacket) Entity() any { return p.sink }

func (p *DirectReceivePacket) Open() (io.Writer, error) {
	return p.opened.open(func() (io.Writer, error) { return p.sink, nil })
}

func (p *DirectReceivePacket) Close() error {
	return p.opened.close(func(io.Writer, bool) error {
		if c, ok := p.sink.(io.Closer); ok {
			return c.Close()
		}
		return nil
	})
}
