// File: facade/io_context.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package facade

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/momentics/hioload-clink/api"
	"github.com/momentics/hioload-clink/connector"
	"github.com/momentics/hioload-clink/control"
	"github.com/momentics/hioload-clink/core/packet"
	"github.com/momentics/hioload-clink/internal/logging"
	"github.com/momentics/hioload-clink/reactor"
)

// IoContext owns the reactor and tracks the connectors created through it.
type IoContext struct {
	config   control.Config
	provider *reactor.Reactor
	metrics  *control.MetricsRegistry
	debug    *control.DebugProbes
	log      zerolog.Logger

	mu     sync.Mutex
	conns  map[uuid.UUID]*connector.Connector
	closed bool
}

// Ensure compliance with api.GracefulShutdown.
var _ api.GracefulShutdown = (*IoContext)(nil)

// Setup validates cfg and starts the reactor.
func Setup(cfg control.Config) (*IoContext, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r, err := reactor.NewWithOptions(reactor.Options{
		Workers:  cfg.Reactor.Workers,
		Pin:      true,
		ReadCPU:  cfg.Reactor.ReadCPU,
		WriteCPU: cfg.Reactor.WriteCPU,
	})
	if err != nil {
		return nil, fmt.Errorf("io context: %w", err)
	}
	c := &IoContext{
		config:   cfg,
		provider: r,
		metrics:  control.NewMetricsRegistry(),
		debug:    control.NewDebugProbes(),
		log:      logging.Component("io"),
		conns:    make(map[uuid.UUID]*connector.Connector),
	}
	c.debug.RegisterProbe("connections", func() any { return c.Connections() })
	c.debug.RegisterProbe("metrics", func() any { return c.metrics.GetSnapshot() })
	c.debug.RegisterProbe("reactor.workers", func() any { return cfg.Reactor.Workers })
	c.log.Info().Int("workers", cfg.Reactor.Workers).Msg("io context started")
	return c, nil
}

// Provider is the readiness reactor.
func (c *IoContext) Provider() api.IoProvider { return c.provider }

// Config returns the validated configuration.
func (c *IoContext) Config() control.Config { return c.config }

// Metrics is shared by every connector of this context.
func (c *IoContext) Metrics() *control.MetricsRegistry { return c.metrics }

// Debug exposes the probe registry.
func (c *IoContext) Debug() *control.DebugProbes { return c.debug }

// Connections counts live connectors.
func (c *IoContext) Connections() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.conns)
}

// NewConnector creates a connector bound to this context. A nil registry
// accepts every in-memory packet type and refuses files.
func (c *IoContext) NewConnector(registry *packet.Registry, handler connector.Handler) (*connector.Connector, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, api.ErrProviderClosed
	}
	t := &tracked{ctx: c, inner: handler}
	conn, err := connector.New(connector.Options{
		Provider: c.provider,
		Registry: registry,
		Link:     c.config.Link,
		Metrics:  c.metrics,
	}, t)
	if err != nil {
		return nil, err
	}
	c.conns[conn.Key()] = conn
	return conn, nil
}

func (c *IoContext) forget(conn *connector.Connector) {
	c.mu.Lock()
	delete(c.conns, conn.Key())
	c.mu.Unlock()
}

// Shutdown closes every connector, then the reactor. Idempotent.
func (c *IoContext) Shutdown() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conns := make([]*connector.Connector, 0, len(c.conns))
	for _, conn := range c.conns {
		conns = append(conns, conn)
	}
	c.mu.Unlock()

	var err error
	for _, conn := range conns {
		err = multierr.Append(err, conn.Close())
	}
	err = multierr.Append(err, c.provider.Close())
	if err != nil && !errors.Is(err, api.ErrProviderClosed) {
		c.log.Warn().Err(err).Msg("shutdown")
	}
	c.log.Info().Int("connections", len(conns)).Msg("io context stopped")
	return err
}

// Close is Shutdown.
func (c *IoContext) Close() error { return c.Shutdown() }

// tracked removes its connector from the context once it closes.
type tracked struct {
	ctx   *IoContext
	inner connector.Handler
}

func (t *tracked) OnReceivedPacket(conn *connector.Connector, p packet.ReceivePacket) {
	if t.inner != nil {
		t.inner.OnReceivedPacket(conn, p)
	}
}

func (t *tracked) OnChannelClosed(conn *connector.Connector, cause error) {
	t.ctx.forget(conn)
	if t.inner != nil {
		t.inner.OnChannelClosed(conn, cause)
	}
}

func (t *tracked) OnSentPacket(conn *connector.Connector, p packet.SendPacket, ok bool) {
	if o, is := t.inner.(connector.SendObserver); is {
		o.OnSentPacket(conn, p, ok)
	}
}
