// File: core/async/writer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Writer parses inbound frames and reassembles them into receive packets.

package async

import (
	"io"
	"sync"

	"github.com/momentics/hioload-clink/api"
	"github.com/momentics/hioload-clink/core/buffer"
	"github.com/momentics/hioload-clink/core/frames"
	"github.com/momentics/hioload-clink/core/packet"
	"github.com/momentics/hioload-clink/core/protocol"
)

// ReceivePacketProvider creates packets for inbound headers and is told about
// completions and rejections. All calls happen outside the Writer lock.
type ReceivePacketProvider interface {
	// TakePacket returns a packet for an announced header, or nil to refuse it.
	TakePacket(packetType byte, length int64, headerInfo []byte) packet.ReceivePacket
	// CompletedPacket is called once per packet returned by TakePacket.
	CompletedPacket(p packet.ReceivePacket, ok bool)
	// OnReceiveRejected reports that the packet under id was refused locally;
	// the peer should be told with a CMD_RECEIVE_REJECT.
	OnReceiveRejected(id byte)
	// OnSendRejected reports that the peer refused the packet this side is
	// sending under id.
	OnSendRejected(id byte)
}

// sinkGuard absorbs write faults so that a broken destination degrades to a
// failed completion instead of breaking frame alignment.
type sinkGuard struct {
	w   io.Writer
	err error
}

func (g *sinkGuard) Write(p []byte) (int, error) {
	if g.err == nil {
		_, g.err = g.w.Write(p)
	}
	return len(p), nil
}

// entry is one in-flight receive packet. A nil pkt is a discard entry.
type entry struct {
	pkt       packet.ReceivePacket
	sink      *sinkGuard
	remaining int64
}

type writerEvent struct {
	pkt      packet.ReceivePacket
	ok       bool
	reject   bool
	rejected bool
	id       byte
}

// Writer owns the receive-side table of one link.
type Writer struct {
	mu       sync.Mutex
	provider ReceivePacketProvider
	args     *buffer.IoArgs
	header   [protocol.HeaderLength]byte
	filled   int
	frame    frames.Frame
	table    map[byte]*entry
	closed   bool
}

// NewWriter builds a Writer delivering to provider.
func NewWriter(provider ReceivePacketProvider, capacity int) *Writer {
	return &Writer{
		provider: provider,
		args:     buffer.NewIoArgsSize(capacity),
		table:    make(map[byte]*entry),
	}
}

// TakeIoArgs returns the unit bounded to what the current frame still needs:
// the missing part of a header, or the rest of the frame body.
func (w *Writer) TakeIoArgs() *buffer.IoArgs {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.frame == nil {
		w.args.Limit(protocol.HeaderLength - w.filled)
	} else {
		w.args.Limit(w.frame.ConsumableLength())
	}
	return w.args
}

// ConsumeIoArgs feeds received bytes through the frame state machine. A
// returned error is a protocol fault and the link must be closed.
func (w *Writer) ConsumeIoArgs(args *buffer.IoArgs) error {
	w.mu.Lock()
	var events []writerEvent
	err := w.consumeLocked(args, &events)
	w.mu.Unlock()
	w.dispatch(events)
	return err
}

func (w *Writer) consumeLocked(args *buffer.IoArgs, events *[]writerEvent) error {
	if w.closed {
		return api.ErrChannelClosed
	}
	for args.Remained() {
		if w.frame == nil {
			w.filled += args.WriteTo(w.header[:], w.filled)
			if w.filled < protocol.HeaderLength {
				return nil
			}
			w.filled = 0
			f, err := frames.NewReceiveFrame(w.header[:])
			if err != nil {
				return err
			}
			if err := w.beginLocked(f); err != nil {
				return err
			}
			w.frame = f
		}
		done, err := w.frame.Handle(args)
		if err != nil {
			return err
		}
		if done {
			f := w.frame
			w.frame = nil
			if err := w.finishLocked(f, events); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Writer) beginLocked(f frames.Frame) error {
	switch f := f.(type) {
	case *frames.ReceiveHeaderFrame:
		if _, ok := w.table[f.Identifier()]; ok {
			return api.ProtocolError(api.ErrIdentifierInUse, "packet header for live identifier").
				WithContext("identifier", f.Identifier())
		}
	case *frames.ReceiveEntityFrame:
		if e, ok := w.table[f.Identifier()]; ok && e.sink != nil {
			f.Bind(e.sink)
		}
	}
	return nil
}

func (w *Writer) finishLocked(f frames.Frame, events *[]writerEvent) error {
	id := f.Identifier()
	switch f := f.(type) {
	case *frames.ReceiveHeaderFrame:
		info, err := f.PacketInfo()
		if err != nil {
			return err
		}
		w.openLocked(id, info, events)
	case *frames.ReceiveEntityFrame:
		e, ok := w.table[id]
		if !ok {
			return nil
		}
		e.remaining -= int64(f.Header().BodyLength)
		if e.remaining > 0 {
			return nil
		}
		delete(w.table, id)
		if e.pkt != nil {
			*events = append(*events, writerEvent{pkt: e.pkt, ok: e.sink.err == nil})
		}
	case *frames.CancelReceiveFrame:
		if e, ok := w.table[id]; ok {
			delete(w.table, id)
			if e.pkt != nil {
				*events = append(*events, writerEvent{pkt: e.pkt})
			}
		}
	case *frames.RejectSendFrame:
		*events = append(*events, writerEvent{rejected: true, id: id})
	}
	return nil
}

// openLocked asks the provider for a packet. A refused packet gets a discard
// entry so its entity frames are skipped, and the peer is told to stop.
func (w *Writer) openLocked(id byte, info protocol.PacketInfo, events *[]writerEvent) {
	p := w.provider.TakePacket(info.Type, info.Length, info.HeaderInfo)
	if p != nil {
		sink, err := p.Open()
		if err == nil {
			if info.Length == 0 {
				*events = append(*events, writerEvent{pkt: p, ok: true})
				return
			}
			w.table[id] = &entry{pkt: p, sink: &sinkGuard{w: sink}, remaining: info.Length}
			return
		}
		*events = append(*events, writerEvent{pkt: p})
	}
	if info.Length > 0 {
		w.table[id] = &entry{remaining: info.Length}
	}
	*events = append(*events, writerEvent{reject: true, id: id})
}

func (w *Writer) dispatch(events []writerEvent) {
	for _, ev := range events {
		switch {
		case ev.reject:
			w.provider.OnReceiveRejected(ev.id)
		case ev.rejected:
			w.provider.OnSendRejected(ev.id)
		default:
			w.provider.CompletedPacket(ev.pkt, ev.ok)
		}
	}
}

// Close fails every packet still being assembled. Idempotent.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.frame = nil
	events := make([]writerEvent, 0, len(w.table))
	for id, e := range w.table {
		if e.pkt != nil {
			events = append(events, writerEvent{pkt: e.pkt})
		}
		delete(w.table, id)
	}
	w.mu.Unlock()
	w.dispatch(events)
}
