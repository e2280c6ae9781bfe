// File: core/async/send_dispatcher.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package async

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-clink/api"
	"github.com/momentics/hioload-clink/control"
	"github.com/momentics/hioload-clink/core/buffer"
	"github.com/momentics/hioload-clink/core/packet"
	"github.com/momentics/hioload-clink/core/protocol"
)

// AsyncSendDispatcher multiplexes packets onto a Sender through a Reader.
type AsyncSendDispatcher struct {
	sender  api.Sender
	reader  *Reader
	log     zerolog.Logger
	metrics *control.MetricsRegistry
	onDone  SendCallback

	queueMu sync.Mutex
	queue   *queue.Queue

	sendMu  sync.Mutex
	sending bool

	closed atomic.Bool
}

// NewSendDispatcher binds a dispatcher to sender. onDone may be nil.
func NewSendDispatcher(sender api.Sender, opts Options, onDone SendCallback) *AsyncSendDispatcher {
	opts = opts.withDefaults()
	d := &AsyncSendDispatcher{
		sender:  sender,
		log:     opts.Logger,
		metrics: opts.Metrics,
		onDone:  onDone,
		queue:   queue.New(),
	}
	d.reader = NewReader(d, opts.Capacity, opts.MaxInFlight)
	sender.SetSendListener(d)
	return d
}

// Send queues p. Packets that cannot be framed, or that arrive after Close,
// complete as failed.
func (d *AsyncSendDispatcher) Send(p packet.SendPacket) {
	if p.Length() > protocol.MaxPacketLength || len(p.HeaderInfo()) > protocol.MaxHeaderInfoLength {
		d.CompletedPacket(p, false)
		return
	}
	// closed flips under queueMu, so a packet added here is seen by Close
	d.queueMu.Lock()
	if d.closed.Load() {
		d.queueMu.Unlock()
		d.CompletedPacket(p, false)
		return
	}
	d.queue.Add(p)
	d.queueMu.Unlock()
	d.requestSend(false)
}

// Cancel aborts p: a queued packet is dropped, an in-flight one is handed to
// the Reader. Repeated cancels are no-ops.
func (d *AsyncSendDispatcher) Cancel(p packet.SendPacket) {
	d.queueMu.Lock()
	queued := false
	for i := 0; i < d.queue.Length(); i++ {
		if d.queue.Get(i) == p {
			queued = true
			break
		}
	}
	first := p.Cancel()
	d.queueMu.Unlock()

	if !first {
		return
	}
	if queued {
		d.CompletedPacket(p, false)
		return
	}
	d.reader.Cancel(p)
}

// Reject implements LinkControl.
func (d *AsyncSendDispatcher) Reject(id byte) {
	d.reader.Reject(id)
	d.requestSend(false)
}

// CancelIdentifier implements LinkControl.
func (d *AsyncSendDispatcher) CancelIdentifier(id byte) {
	d.reader.CancelIdentifier(id)
	d.requestSend(false)
}

// TakePacket implements SendPacketProvider. Cancelled packets are skipped;
// their completion was already reported.
func (d *AsyncSendDispatcher) TakePacket() packet.SendPacket {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	for d.queue.Length() > 0 {
		p := d.queue.Remove().(packet.SendPacket)
		if !p.IsCanceled() {
			return p
		}
	}
	return nil
}

// CompletedPacket implements SendPacketProvider.
func (d *AsyncSendDispatcher) CompletedPacket(p packet.SendPacket, ok bool) {
	if err := p.Close(); err != nil {
		d.log.Debug().Err(err).Msg("close send packet")
	}
	if ok {
		d.metrics.Add(control.MetricPacketsSent, 1)
		d.metrics.Add(control.MetricBytesSent, p.Length())
	} else {
		d.metrics.Add(control.MetricPacketsFailed, 1)
	}
	if d.onDone != nil {
		d.onDone(p, ok)
	}
}

// requestSend arms the Sender when the Reader has frames. fromIo marks calls
// made from a transfer callback, which own the sending state.
func (d *AsyncSendDispatcher) requestSend(fromIo bool) {
	d.sendMu.Lock()
	defer d.sendMu.Unlock()
	if d.closed.Load() || (d.sending && !fromIo) {
		return
	}
	if !d.reader.RequestTakePacket() {
		d.sending = false
		return
	}
	d.sending = true
	if err := d.sender.PostSendAsync(); err != nil {
		d.sending = false
		d.log.Debug().Err(err).Msg("post send")
	}
}

// ProvideIoArgs implements api.IoArgsEventProcessor.
func (d *AsyncSendDispatcher) ProvideIoArgs() *buffer.IoArgs {
	if d.closed.Load() {
		return nil
	}
	return d.reader.FillData()
}

// OnConsumeFailed implements api.IoArgsEventProcessor. An empty provide is
// not a fault; the dispatcher goes idle until the next Send.
func (d *AsyncSendDispatcher) OnConsumeFailed(_ *buffer.IoArgs, err error) {
	if errors.Is(err, api.ErrNoData) {
		d.requestSend(true)
		return
	}
	d.log.Debug().Err(err).Msg("send transfer failed")
}

// OnConsumeCompleted implements api.IoArgsEventProcessor.
func (d *AsyncSendDispatcher) OnConsumeCompleted(*buffer.IoArgs) {
	d.requestSend(true)
}

// Close fails queued and in-flight packets. Idempotent.
func (d *AsyncSendDispatcher) Close() error {
	d.queueMu.Lock()
	if !d.closed.CompareAndSwap(false, true) {
		d.queueMu.Unlock()
		return nil
	}
	d.queueMu.Unlock()
	d.reader.Close()
	d.queueMu.Lock()
	var pending []packet.SendPacket
	for d.queue.Length() > 0 {
		p := d.queue.Remove().(packet.SendPacket)
		if p.Cancel() {
			pending = append(pending, p)
		}
	}
	d.queueMu.Unlock()
	for _, p := range pending {
		d.CompletedPacket(p, false)
	}
	return nil
}
