// File: core/async/legacy.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Length-prefixed dispatchers: each packet travels as [u32 length][payload],
// strictly one at a time. No multiplexing, no cancellation on the wire. Kept
// for interop with peers that predate framing.

package async

import (
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-clink/api"
	"github.com/momentics/hioload-clink/core/buffer"
	"github.com/momentics/hioload-clink/core/packet"
)

// LegacySendDispatcher sends packets back to back behind a length prefix.
type LegacySendDispatcher struct {
	sender api.Sender
	args   *buffer.IoArgs
	log    zerolog.Logger
	onDone SendCallback

	mu        sync.Mutex
	queue     *queue.Queue
	current   packet.SendPacket
	stream    io.Reader
	remaining int64
	prefixed  bool
	broken    bool
	sending   bool

	closed atomic.Bool
}

// NewLegacySendDispatcher binds a length-prefixed dispatcher to sender.
func NewLegacySendDispatcher(sender api.Sender, opts Options, onDone SendCallback) *LegacySendDispatcher {
	opts = opts.withDefaults()
	d := &LegacySendDispatcher{
		sender: sender,
		args:   buffer.NewIoArgsSize(opts.Capacity),
		log:    opts.Logger,
		onDone: onDone,
		queue:  queue.New(),
	}
	sender.SetSendListener(d)
	return d
}

func (d *LegacySendDispatcher) complete(p packet.SendPacket, ok bool) {
	_ = p.Close()
	if d.onDone != nil {
		d.onDone(p, ok)
	}
}

// Send queues p. A packet arriving after Close completes as failed.
func (d *LegacySendDispatcher) Send(p packet.SendPacket) {
	d.mu.Lock()
	if d.closed.Load() {
		d.mu.Unlock()
		d.complete(p, false)
		return
	}
	d.queue.Add(p)
	start := !d.sending
	d.sending = true
	d.mu.Unlock()
	if start {
		d.post()
	}
}

func (d *LegacySendDispatcher) post() {
	if err := d.sender.PostSendAsync(); err != nil {
		d.log.Debug().Err(err).Msg("post send")
	}
}

// Cancel removes p if it is still queued. A packet on the wire cannot be
// withdrawn under this framing and is left to finish; a finished packet is
// left alone.
func (d *LegacySendDispatcher) Cancel(p packet.SendPacket) {
	d.mu.Lock()
	queued := false
	for i := 0; i < d.queue.Length(); i++ {
		if d.queue.Get(i) == p {
			queued = true
			break
		}
	}
	first := queued && p.Cancel()
	d.mu.Unlock()
	if first {
		d.complete(p, false)
	}
}

// ProvideIoArgs implements api.IoArgsEventProcessor.
func (d *LegacySendDispatcher) ProvideIoArgs() *buffer.IoArgs {
	var failed []packet.SendPacket
	defer func() {
		for _, p := range failed {
			d.complete(p, false)
		}
	}()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed.Load() {
		return nil
	}
	for d.current == nil {
		if d.queue.Length() == 0 {
			return nil
		}
		p := d.queue.Remove().(packet.SendPacket)
		if p.IsCanceled() {
			continue
		}
		r, err := p.Open()
		if err != nil {
			failed = append(failed, p)
			continue
		}
		d.current, d.stream, d.remaining = p, r, p.Length()
		d.prefixed, d.broken = false, false
	}
	if !d.prefixed {
		d.prefixed = true
		d.args.WriteLength(int(d.remaining))
		return d.args
	}
	d.args.Limit(int(min(d.remaining, int64(d.args.Capacity()))))
	d.args.StartWriting()
	n, err := d.args.ReadFromReader(d.stream)
	if err != nil {
		if !d.broken {
			d.log.Debug().Err(err).Msg("legacy packet stream")
		}
		// the declared length must still be delivered
		d.broken = true
		n += d.args.FillEmpty(int(d.remaining) - n)
	}
	d.args.FinishWriting()
	d.remaining -= int64(n)
	return d.args
}

// OnConsumeFailed implements api.IoArgsEventProcessor.
func (d *LegacySendDispatcher) OnConsumeFailed(_ *buffer.IoArgs, err error) {
	if !errors.Is(err, api.ErrNoData) {
		d.log.Debug().Err(err).Msg("send transfer failed")
		return
	}
	d.mu.Lock()
	more := !d.closed.Load() && (d.current != nil || d.queue.Length() > 0)
	d.sending = more
	d.mu.Unlock()
	if more {
		d.post()
	}
}

// OnConsumeCompleted implements api.IoArgsEventProcessor.
func (d *LegacySendDispatcher) OnConsumeCompleted(*buffer.IoArgs) {
	d.mu.Lock()
	var done packet.SendPacket
	ok := false
	if d.current != nil && d.prefixed && d.remaining == 0 {
		done, ok = d.current, !d.broken
		d.current, d.stream = nil, nil
	}
	more := d.current != nil || d.queue.Length() > 0
	d.sending = more
	d.mu.Unlock()
	if done != nil {
		d.complete(done, ok)
	}
	if more {
		d.post()
	}
}

// Close fails the packet in progress and everything queued. Idempotent.
func (d *LegacySendDispatcher) Close() error {
	d.mu.Lock()
	if !d.closed.CompareAndSwap(false, true) {
		d.mu.Unlock()
		return nil
	}
	var failed []packet.SendPacket
	if d.current != nil {
		failed = append(failed, d.current)
		d.current = nil
	}
	for d.queue.Length() > 0 {
		p := d.queue.Remove().(packet.SendPacket)
		if p.Cancel() {
			failed = append(failed, p)
		}
	}
	d.mu.Unlock()
	for _, p := range failed {
		d.complete(p, false)
	}
	return nil
}

// LegacyReceiveDispatcher reads length-prefixed string packets.
type LegacyReceiveDispatcher struct {
	receiver api.Receiver
	args     *buffer.IoArgs
	log      zerolog.Logger
	callback ReceiveCallback

	mu        sync.Mutex
	prefix    [buffer.LengthPrefixSize]byte
	filled    int
	current   *packet.StringReceivePacket
	sink      io.Writer
	remaining int64

	running atomic.Bool
	closed  atomic.Bool
}

// NewLegacyReceiveDispatcher binds a length-prefixed reader to receiver.
func NewLegacyReceiveDispatcher(receiver api.Receiver, opts Options, callback ReceiveCallback) *LegacyReceiveDispatcher {
	opts = opts.withDefaults()
	d := &LegacyReceiveDispatcher{
		receiver: receiver,
		args:     buffer.NewIoArgsSize(opts.Capacity),
		log:      opts.Logger,
		callback: callback,
	}
	receiver.SetReceiveListener(d)
	return d
}

// Start arms the first receive.
func (d *LegacyReceiveDispatcher) Start() {
	if d.closed.Load() || !d.running.CompareAndSwap(false, true) {
		return
	}
	d.post()
}

// Stop halts re-arming.
func (d *LegacyReceiveDispatcher) Stop() {
	d.running.Store(false)
}

func (d *LegacyReceiveDispatcher) post() {
	if !d.running.Load() || d.closed.Load() {
		return
	}
	if err := d.receiver.PostReceiveAsync(); err != nil {
		d.log.Debug().Err(err).Msg("post receive")
	}
}

// ProvideIoArgs implements api.IoArgsEventProcessor.
func (d *LegacyReceiveDispatcher) ProvideIoArgs() *buffer.IoArgs {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		d.args.Limit(buffer.LengthPrefixSize - d.filled)
	} else {
		d.args.Limit(int(min(d.remaining, int64(d.args.Capacity()))))
	}
	return d.args
}

// OnConsumeFailed implements api.IoArgsEventProcessor.
func (d *LegacyReceiveDispatcher) OnConsumeFailed(_ *buffer.IoArgs, err error) {
	d.log.Debug().Err(err).Msg("receive transfer failed")
}

// OnConsumeCompleted implements api.IoArgsEventProcessor. A prefix split
// across reads is accumulated.
func (d *LegacyReceiveDispatcher) OnConsumeCompleted(args *buffer.IoArgs) {
	d.mu.Lock()
	var done *packet.StringReceivePacket
	if d.current == nil {
		length := -1
		if d.filled == 0 {
			length = args.ReadLength()
		}
		if length < 0 {
			d.filled += args.WriteTo(d.prefix[:], d.filled)
			if d.filled == buffer.LengthPrefixSize {
				d.filled = 0
				length = int(binary.BigEndian.Uint32(d.prefix[:]))
			}
		}
		if length >= 0 {
			p := packet.NewStringReceivePacket(int64(length), nil)
			w, _ := p.Open()
			d.current, d.sink, d.remaining = p, w, int64(length)
		}
	} else {
		n, _ := args.WriteToWriter(d.sink)
		d.remaining -= int64(n)
	}
	if d.current != nil && d.remaining == 0 {
		done = d.current
		d.current, d.sink = nil, nil
	}
	d.mu.Unlock()

	if done != nil {
		_ = done.Close()
		if d.callback != nil {
			d.callback(done)
		}
	}
	d.post()
}

// Close drops the packet being assembled. Idempotent.
func (d *LegacyReceiveDispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	d.running.Store(false)
	d.mu.Lock()
	if d.current != nil {
		_ = d.current.Close()
		d.current = nil
	}
	d.mu.Unlock()
	return nil
}
