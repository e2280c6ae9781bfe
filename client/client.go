// File: client/client.go
// Package client provides the chat client: server discovery, a framed link
// to the server, and lifecycle callbacks.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-clink/connector"
	"github.com/momentics/hioload-clink/control"
	"github.com/momentics/hioload-clink/core/packet"
	"github.com/momentics/hioload-clink/discovery"
	"github.com/momentics/hioload-clink/facade"
	"github.com/momentics/hioload-clink/internal/logging"
	"github.com/momentics/hioload-clink/server"
	"github.com/momentics/hioload-clink/transport"
)

// ExitCommand typed on the console ends the session.
const ExitCommand = "00bye00"

// Client is one connection to a chat server.
type Client struct {
	conn     *connector.Connector
	cacheDir string
	onMsg    func(msg string)
	onFile   func(name, path string)
	log      zerolog.Logger

	closeOnce sync.Once
	done      chan struct{}
	cause     error
}

// Option customizes a Client.
type Option func(*Client)

// WithMessageHandler receives every string from the server.
func WithMessageHandler(fn func(msg string)) Option {
	return func(c *Client) { c.onMsg = fn }
}

// WithFileHandler receives every file from the server.
func WithFileHandler(fn func(name, path string)) Option {
	return func(c *Client) { c.onFile = fn }
}

// WithCacheDir stores received files in dir.
func WithCacheDir(dir string) Option {
	return func(c *Client) { c.cacheDir = dir }
}

// Search looks for a server with the client section of the configuration.
func Search(ctx context.Context, cfg control.Config) (discovery.ServerInfo, error) {
	return discovery.Search(ctx, discovery.SearchConfig{
		Target:     net.JoinHostPort("255.255.255.255", strconv.Itoa(cfg.Server.DiscoveryPort)),
		ListenAddr: ":" + strconv.Itoa(cfg.Client.ResponsePort),
		Timeout:    cfg.Client.SearchTimeout.Duration,
	})
}

// Dial connects to addr and starts receiving.
func Dial(ctx context.Context, io *facade.IoContext, addr string, opts ...Option) (*Client, error) {
	c := &Client{
		done: make(chan struct{}),
		log:  logging.Component("client"),
	}
	for _, o := range opts {
		o(c)
	}
	if c.cacheDir == "" {
		dir, err := server.CacheDir(io.Config().Client.CacheDir, control.DefaultClientCacheName)
		if err != nil {
			return nil, err
		}
		c.cacheDir = dir
	}
	conn, err := io.NewConnector(packet.DefaultRegistry(c.cacheDir), c)
	if err != nil {
		return nil, err
	}
	fd, err := transport.Dial(ctx, addr)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c.conn = conn
	if err := conn.Setup(fd); err != nil {
		_ = transport.CloseFD(fd)
		_ = conn.Close()
		return nil, err
	}
	c.log.Info().Str("server", addr).Str("key", conn.Key().String()).Msg("connected")
	return c, nil
}

// Send queues a string message.
func (c *Client) Send(msg string) error {
	return c.conn.SendString(msg)
}

// SendFile queues the file at path.
func (c *Client) SendFile(path string) error {
	_, err := c.conn.SendFile(path)
	return err
}

// Closed is closed once the link is gone.
func (c *Client) Closed() <-chan struct{} { return c.done }

// Err returns why the link closed: nil for a local Close, io.EOF when the
// server hung up. Valid after Closed fires.
func (c *Client) Err() error {
	<-c.done
	return c.cause
}

// Close ends the session. Idempotent.
func (c *Client) Close() error {
	return c.conn.Close()
}

// OnReceivedPacket implements connector.Handler.
func (c *Client) OnReceivedPacket(_ *connector.Connector, p packet.ReceivePacket) {
	switch rp := p.(type) {
	case *packet.StringReceivePacket:
		if c.onMsg != nil {
			c.onMsg(rp.String())
		}
	case *packet.FileReceivePacket:
		if c.onFile != nil {
			c.onFile(rp.Name(), rp.Path())
		}
	}
}

// OnChannelClosed implements connector.Handler.
func (c *Client) OnChannelClosed(_ *connector.Connector, cause error) {
	c.closeOnce.Do(func() {
		c.cause = cause
		close(c.done)
		c.log.Info().AnErr("cause", cause).Msg("disconnected")
	})
}
