// File: core/async/receive_dispatcher.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package async

import (
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-clink/api"
	"github.com/momentics/hioload-clink/control"
	"github.com/momentics/hioload-clink/core/buffer"
	"github.com/momentics/hioload-clink/core/packet"
)

// AsyncReceiveDispatcher pulls bytes from a Receiver into a Writer and hands
// completed packets to the callback.
type AsyncReceiveDispatcher struct {
	receiver api.Receiver
	writer   *Writer
	registry *packet.Registry
	control  LinkControl
	callback ReceiveCallback
	onFault  func(error)
	log      zerolog.Logger
	metrics  *control.MetricsRegistry

	running atomic.Bool
	closed  atomic.Bool
}

// NewReceiveDispatcher binds a dispatcher to receiver. ctl may be nil, in
// which case refusals are not signalled to the peer. onFault is invoked on
// protocol faults; the link is expected to close.
func NewReceiveDispatcher(receiver api.Receiver, registry *packet.Registry, ctl LinkControl,
	opts Options, callback ReceiveCallback, onFault func(error)) *AsyncReceiveDispatcher {
	opts = opts.withDefaults()
	d := &AsyncReceiveDispatcher{
		receiver: receiver,
		registry: registry,
		control:  ctl,
		callback: callback,
		onFault:  onFault,
		log:      opts.Logger,
		metrics:  opts.Metrics,
	}
	d.writer = NewWriter(d, opts.Capacity)
	receiver.SetReceiveListener(d)
	return d
}

// Start arms the first receive.
func (d *AsyncReceiveDispatcher) Start() {
	if d.closed.Load() || !d.running.CompareAndSwap(false, true) {
		return
	}
	d.registerReceive()
}

// Stop halts re-arming after the transfer in progress.
func (d *AsyncReceiveDispatcher) Stop() {
	d.running.Store(false)
}

func (d *AsyncReceiveDispatcher) registerReceive() {
	if !d.running.Load() || d.closed.Load() {
		return
	}
	if err := d.receiver.PostReceiveAsync(); err != nil {
		d.log.Debug().Err(err).Msg("post receive")
	}
}

// ProvideIoArgs implements api.IoArgsEventProcessor.
func (d *AsyncReceiveDispatcher) ProvideIoArgs() *buffer.IoArgs {
	if d.closed.Load() {
		return nil
	}
	return d.writer.TakeIoArgs()
}

// OnConsumeFailed implements api.IoArgsEventProcessor.
func (d *AsyncReceiveDispatcher) OnConsumeFailed(_ *buffer.IoArgs, err error) {
	d.log.Debug().Err(err).Msg("receive transfer failed")
}

// OnConsumeCompleted implements api.IoArgsEventProcessor.
func (d *AsyncReceiveDispatcher) OnConsumeCompleted(args *buffer.IoArgs) {
	if d.closed.Load() {
		return
	}
	d.metrics.Add(control.MetricBytesReceived, int64(args.Remaining()))
	if err := d.writer.ConsumeIoArgs(args); err != nil {
		d.log.Warn().Err(err).Msg("protocol fault")
		if d.onFault != nil {
			d.onFault(err)
		}
		return
	}
	d.registerReceive()
}

// TakePacket implements ReceivePacketProvider.
func (d *AsyncReceiveDispatcher) TakePacket(packetType byte, length int64, headerInfo []byte) packet.ReceivePacket {
	p, err := d.registry.Create(packetType, length, headerInfo)
	if err != nil {
		d.log.Warn().Err(err).Uint8("type", packetType).Int64("length", length).Msg("refusing packet")
		return nil
	}
	return p
}

// CompletedPacket implements ReceivePacketProvider. Failed file packets leave
// no partial file behind.
func (d *AsyncReceiveDispatcher) CompletedPacket(p packet.ReceivePacket, ok bool) {
	if err := p.Close(); err != nil {
		d.log.Debug().Err(err).Msg("close receive packet")
		ok = false
	}
	if !ok {
		d.metrics.Add(control.MetricPacketsDropped, 1)
		if fp, isFile := p.(*packet.FileReceivePacket); isFile {
			_ = os.Remove(fp.Path())
		}
		return
	}
	d.metrics.Add(control.MetricPacketsReceived, 1)
	if d.callback != nil {
		d.callback(p)
	}
}

// OnReceiveRejected implements ReceivePacketProvider.
func (d *AsyncReceiveDispatcher) OnReceiveRejected(id byte) {
	if d.control != nil {
		d.control.Reject(id)
	}
}

// OnSendRejected implements ReceivePacketProvider.
func (d *AsyncReceiveDispatcher) OnSendRejected(id byte) {
	if d.control != nil {
		d.control.CancelIdentifier(id)
	}
}

// Close fails packets still being assembled. Idempotent.
func (d *AsyncReceiveDispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	d.running.Store(false)
	d.writer.Close()
	return nil
}
