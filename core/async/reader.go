// File: core/async/reader.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reader turns queued send packets into a priority chain of frames and drains
// that chain into IoArgs, one frame slice per fill.

package async

import (
	"sync"

	"github.com/momentics/hioload-clink/core/buffer"
	"github.com/momentics/hioload-clink/core/ds"
	"github.com/momentics/hioload-clink/core/frames"
	"github.com/momentics/hioload-clink/core/packet"
	"github.com/momentics/hioload-clink/core/protocol"
)

// SendPacketProvider feeds the Reader and receives exactly one completion per
// packet it handed out.
type SendPacketProvider interface {
	// TakePacket returns the next packet to transmit, or nil.
	TakePacket() packet.SendPacket
	// CompletedPacket is called once per packet, after the Reader lock is released.
	CompletedPacket(p packet.SendPacket, ok bool)
}

type completion struct {
	pkt packet.SendPacket
	ok  bool
}

// Reader owns the send-side frame chain and identifier space of one link.
type Reader struct {
	mu          sync.Mutex
	provider    SendPacketProvider
	args        *buffer.IoArgs
	chain       *ds.PriorityList[frames.SendFrame]
	ids         protocol.IdentifierGenerator
	live        map[byte]packet.SendPacket
	refs        [256]int
	// announced marks identifiers whose header frame reached the wire; the
	// peer holds a table entry for them until it sees a cancel.
	announced   [256]bool
	maxInFlight int
	closed      bool
}

// NewReader builds a Reader pulling from provider. maxInFlight bounds how
// many packets may have frames in the chain at once.
func NewReader(provider SendPacketProvider, capacity, maxInFlight int) *Reader {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	if maxInFlight > protocol.Capacity {
		maxInFlight = protocol.Capacity
	}
	return &Reader{
		provider:    provider,
		args:        buffer.NewIoArgsSize(capacity),
		chain:       ds.NewPriorityList(func(f frames.SendFrame) bool { return f.Started() }),
		live:        make(map[byte]packet.SendPacket),
		maxInFlight: maxInFlight,
	}
}

func (r *Reader) deliver(done []completion) {
	for _, c := range done {
		r.provider.CompletedPacket(c.pkt, c.ok)
	}
}

// RequestTakePacket pulls packets from the provider while the in-flight bound
// allows and reports whether the chain has anything to send.
func (r *Reader) RequestTakePacket() bool {
	r.mu.Lock()
	done := r.takeLocked(nil)
	ready := r.chain.Len() > 0
	r.mu.Unlock()
	r.deliver(done)
	return ready
}

func (r *Reader) takeLocked(done []completion) []completion {
	if r.closed {
		return done
	}
	for len(r.live) < r.maxInFlight && r.ids.Live() < protocol.Capacity {
		p := r.provider.TakePacket()
		if p == nil {
			break
		}
		id, err := r.ids.Next()
		if err != nil {
			done = append(done, completion{p, false})
			break
		}
		hf, err := frames.NewSendHeaderFrame(id, p)
		if err != nil {
			r.ids.Release(id)
			done = append(done, completion{p, false})
			continue
		}
		r.live[id] = p
		r.announced[id] = false
		r.pushLocked(hf)
	}
	return done
}

func (r *Reader) pushLocked(f frames.SendFrame) {
	if f.Type() != protocol.TypeCommandReceiveReject {
		r.refs[f.Identifier()]++
	}
	r.chain.Push(f, f.Priority())
}

// unrefLocked drops one chain reference to the frame's identifier and frees
// the identifier once neither a frame nor a live packet holds it.
func (r *Reader) unrefLocked(f frames.SendFrame) {
	if f.Type() == protocol.TypeCommandReceiveReject {
		return
	}
	id := f.Identifier()
	r.refs[id]--
	if r.refs[id] > 0 {
		return
	}
	if _, ok := r.live[id]; !ok {
		r.ids.Release(id)
	}
}

// FillData fills the internal IoArgs from the head of the chain. It returns
// nil when there is nothing left to send.
func (r *Reader) FillData() *buffer.IoArgs {
	r.mu.Lock()
	var done []completion
	defer func() {
		r.mu.Unlock()
		r.deliver(done)
	}()

	for !r.closed {
		head, ok := r.chain.Front()
		if !ok {
			done = r.takeLocked(done)
			if r.chain.Len() == 0 {
				return nil
			}
			continue
		}
		finished, err := head.Handle(r.args)
		if pf, ok := head.(frames.SendPacketFrame); ok && head.Started() && !pf.Aborted() {
			r.announced[head.Identifier()] = true
		}
		if err != nil {
			r.chain.PopFront()
			if pf, ok := head.(frames.SendPacketFrame); ok && !pf.Aborted() {
				done = r.failLocked(pf, done)
			}
			r.unrefLocked(head)
			continue
		}
		if finished {
			done = r.completeHeadLocked(head, done)
			done = r.takeLocked(done)
		}
		if r.args.Remained() {
			return r.args
		}
	}
	return nil
}

// completeHeadLocked queues the successor of a consumed head frame, reports
// terminal frames and pops the head.
func (r *Reader) completeHeadLocked(head frames.SendFrame, done []completion) []completion {
	next := head.NextFrame()
	if next != nil {
		r.pushLocked(next.(frames.SendFrame))
	}
	if pf, ok := head.(frames.SendPacketFrame); ok && !pf.Aborted() {
		switch {
		case pf.Err() != nil:
			done = r.failLocked(pf, done)
		case next == nil:
			delete(r.live, pf.Identifier())
			done = append(done, completion{pf.Packet(), true})
		}
	}
	r.chain.PopFront()
	r.unrefLocked(head)
	return done
}

// failLocked ends a packet whose stream broke: the peer is told to drop it.
func (r *Reader) failLocked(pf frames.SendPacketFrame, done []completion) []completion {
	id := pf.Identifier()
	if _, ok := r.live[id]; !ok {
		return done
	}
	delete(r.live, id)
	r.pushLocked(frames.NewCancelSendFrame(id))
	return append(done, completion{pf.Packet(), false})
}

// Cancel aborts p if it is in flight. Frames not yet on the wire are dropped;
// a frame already started is finished with padding. Once any byte of the
// packet was sent a CMD_SEND_CANCEL follows. The provider receives one failed
// completion.
func (r *Reader) Cancel(p packet.SendPacket) {
	r.mu.Lock()
	var done []completion
	for id, live := range r.live {
		if live == p {
			done = r.cancelLocked(id, done)
			break
		}
	}
	r.mu.Unlock()
	r.deliver(done)
}

// CancelIdentifier aborts the packet sent under id, if any. Used when the peer
// rejects a packet.
func (r *Reader) CancelIdentifier(id byte) {
	r.mu.Lock()
	done := r.cancelLocked(id, nil)
	r.mu.Unlock()
	r.deliver(done)
}

func (r *Reader) cancelLocked(id byte, done []completion) []completion {
	p, ok := r.live[id]
	if !ok || r.closed {
		return done
	}
	delete(r.live, id)

	onWire := r.announced[id]
	for {
		removed, ok := r.chain.Remove(func(f frames.SendFrame) bool {
			pf, isPacket := f.(frames.SendPacketFrame)
			if !isPacket || pf.Identifier() != id || pf.Aborted() {
				return false
			}
			if pf.Abort() {
				return true
			}
			onWire = true
			return false
		})
		if !ok {
			break
		}
		r.unrefLocked(removed)
	}
	if onWire {
		r.pushLocked(frames.NewCancelSendFrame(id))
	}
	return append(done, completion{p, false})
}

// Reject queues a CMD_RECEIVE_REJECT for a packet the peer is sending under id.
func (r *Reader) Reject(id byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.pushLocked(frames.NewRejectReceiveFrame(id))
}

// InFlight returns the number of packets with frames in the chain.
func (r *Reader) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Close drops the chain and fails every in-flight packet. Idempotent.
func (r *Reader) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.chain.Clear()
	done := make([]completion, 0, len(r.live))
	for id, p := range r.live {
		done = append(done, completion{p, false})
		delete(r.live, id)
	}
	r.mu.Unlock()
	r.deliver(done)
}
