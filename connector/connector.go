// File: connector/connector.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package connector

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/momentics/hioload-clink/api"
	"github.com/momentics/hioload-clink/control"
	"github.com/momentics/hioload-clink/core/async"
	"github.com/momentics/hioload-clink/core/packet"
	"github.com/momentics/hioload-clink/internal/logging"
	"github.com/momentics/hioload-clink/transport"
)

// Handler receives connection events. Calls arrive on reactor workers and
// must not block for long.
type Handler interface {
	OnReceivedPacket(c *Connector, p packet.ReceivePacket)
	// OnChannelClosed fires once. cause is nil for a local Close and io.EOF
	// when the peer hung up.
	OnChannelClosed(c *Connector, cause error)
}

// SendObserver is optionally implemented by a Handler to observe send
// completions.
type SendObserver interface {
	OnSentPacket(c *Connector, p packet.SendPacket, ok bool)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are ignored.
type HandlerFuncs struct {
	Received func(c *Connector, p packet.ReceivePacket)
	Closed   func(c *Connector, cause error)
	Sent     func(c *Connector, p packet.SendPacket, ok bool)
}

func (h HandlerFuncs) OnReceivedPacket(c *Connector, p packet.ReceivePacket) {
	if h.Received != nil {
		h.Received(c, p)
	}
}

func (h HandlerFuncs) OnChannelClosed(c *Connector, cause error) {
	if h.Closed != nil {
		h.Closed(c, cause)
	}
}

func (h HandlerFuncs) OnSentPacket(c *Connector, p packet.SendPacket, ok bool) {
	if h.Sent != nil {
		h.Sent(c, p, ok)
	}
}

// Options configures a Connector.
type Options struct {
	Provider api.IoProvider
	// Registry builds incoming packets; nil means packet.DefaultRegistry("")
	// which refuses files.
	Registry *packet.Registry
	Link     control.LinkConfig
	Metrics  *control.MetricsRegistry
	// Legacy selects the length-prefixed string protocol.
	Legacy bool
}

// Connector owns one connection.
type Connector struct {
	key     uuid.UUID
	opts    Options
	handler Handler
	log     zerolog.Logger

	mu      sync.Mutex
	adapter *transport.ChannelAdapter
	send    async.SendDispatcher
	recv    async.ReceiveDispatcher

	closed atomic.Bool
}

// New creates an unbound connector. handler may be nil.
func New(opts Options, handler Handler) (*Connector, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("connector: %w: nil io provider", api.ErrInvalidArgument)
	}
	if opts.Registry == nil {
		opts.Registry = packet.DefaultRegistry("")
	}
	if handler == nil {
		handler = HandlerFuncs{}
	}
	key := uuid.New()
	return &Connector{
		key:     key,
		opts:    opts,
		handler: handler,
		log:     logging.Component("connector").With().Str("key", key.String()).Logger(),
	}, nil
}

// Key identifies the connector.
func (c *Connector) Key() uuid.UUID { return c.key }

// Setup takes ownership of fd, which must be non-blocking, and starts
// receiving. It may be called once. On error the caller keeps fd.
func (c *Connector) Setup(fd int) error {
	c.mu.Lock()
	// checked under mu: closeWith reads the adapter under the same lock
	if c.closed.Load() {
		c.mu.Unlock()
		return api.ErrChannelClosed
	}
	if c.adapter != nil {
		c.mu.Unlock()
		return fmt.Errorf("connector: %w: already set up", api.ErrInvalidArgument)
	}
	dopts := async.Options{
		Capacity:    c.opts.Link.IoCapacity,
		MaxInFlight: c.opts.Link.MaxInFlight,
		Logger:      c.log,
		Metrics:     c.opts.Metrics,
	}
	c.adapter = transport.NewChannelAdapter(fd, c.opts.Provider, c.onChannelStatus)
	if c.opts.Legacy {
		c.send = async.NewLegacySendDispatcher(c.adapter, dopts, c.onSent)
		c.recv = async.NewLegacyReceiveDispatcher(c.adapter, dopts, c.onReceived)
	} else {
		sd := async.NewSendDispatcher(c.adapter, dopts, c.onSent)
		c.send = sd
		c.recv = async.NewReceiveDispatcher(c.adapter, c.opts.Registry, sd, dopts, c.onReceived, c.onFault)
	}
	recv := c.recv
	c.mu.Unlock()

	c.opts.Metrics.Add(control.MetricConnections, 1)
	c.log.Info().Int("fd", fd).Bool("legacy", c.opts.Legacy).Msg("connected")
	recv.Start()
	return nil
}

func (c *Connector) dispatchers() (async.SendDispatcher, async.ReceiveDispatcher, *transport.ChannelAdapter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.send, c.recv, c.adapter
}

// Send queues p. On error the caller keeps ownership of p; otherwise the
// dispatcher closes it on completion.
func (c *Connector) Send(p packet.SendPacket) error {
	send, _, _ := c.dispatchers()
	if send == nil || c.closed.Load() {
		return api.ErrChannelClosed
	}
	send.Send(p)
	return nil
}

// SendString queues a string packet.
func (c *Connector) SendString(s string) error {
	return c.Send(packet.NewStringSendPacket(s))
}

// SendFile queues the file at path and returns its packet for Cancel.
func (c *Connector) SendFile(path string) (*packet.FileSendPacket, error) {
	p, err := packet.NewFileSendPacket(path)
	if err != nil {
		return nil, err
	}
	if err := c.Send(p); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

// Cancel aborts p if it is still queued or in flight.
func (c *Connector) Cancel(p packet.SendPacket) {
	if send, _, _ := c.dispatchers(); send != nil {
		send.Cancel(p)
	}
}

// IsClosed reports whether the connector has closed.
func (c *Connector) IsClosed() bool { return c.closed.Load() }

// Close releases the connection. Pending packets complete as failed.
func (c *Connector) Close() error {
	return c.closeWith(nil)
}

func (c *Connector) closeWith(cause error) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	send, recv, adapter := c.dispatchers()
	if adapter == nil {
		c.handler.OnChannelClosed(c, cause)
		return nil
	}
	err := multierr.Combine(send.Close(), recv.Close(), adapter.Close())
	c.opts.Metrics.Add(control.MetricConnections, -1)
	ev := c.log.Info()
	if cause != nil {
		ev = ev.AnErr("cause", cause)
	}
	ev.Msg("closed")
	c.handler.OnChannelClosed(c, cause)
	return err
}

func (c *Connector) onChannelStatus(cause error) {
	_ = c.closeWith(cause)
}

func (c *Connector) onFault(err error) {
	_ = c.closeWith(err)
}

func (c *Connector) onReceived(p packet.ReceivePacket) {
	c.handler.OnReceivedPacket(c, p)
}

func (c *Connector) onSent(p packet.SendPacket, ok bool) {
	if o, is := c.handler.(SendObserver); is {
		o.OnSentPacket(c, p, ok)
	}
}

// IsPeerClosed reports whether cause means the peer hung up.
func IsPeerClosed(cause error) bool {
	return errors.Is(cause, io.EOF)
}
