// File: server/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-clink/connector"
	"github.com/momentics/hioload-clink/control"
	"github.com/momentics/hioload-clink/core/packet"
	"github.com/momentics/hioload-clink/discovery"
	"github.com/momentics/hioload-clink/facade"
	"github.com/momentics/hioload-clink/internal/logging"
	"github.com/momentics/hioload-clink/transport"
	"github.com/momentics/hioload-clink/transport/tcp"
)

var (
	ErrAlreadyRunning = errors.New("server already running")
	ErrNotStarted     = errors.New("server not started")
)

// Server accepts chat clients.
type Server struct {
	io        *facade.IoContext
	cfg       control.ServerConfig
	cacheDir  string
	registry  *packet.Registry
	discovery bool
	onMessage MessageHook
	onFile    FileHook
	log       zerolog.Logger

	mu       sync.Mutex
	clients  map[uuid.UUID]*connector.Connector
	listener *tcp.Listener
	provider *discovery.Provider

	started atomic.Bool
	stopped atomic.Bool
}

// New builds a server from the server section of the context configuration.
func New(io *facade.IoContext, opts ...ServerOption) (*Server, error) {
	s := &Server{
		io:        io,
		cfg:       io.Config().Server,
		discovery: true,
		clients:   make(map[uuid.UUID]*connector.Connector),
		log:       logging.Component("server"),
	}
	for _, o := range opts {
		o(s)
	}
	if s.registry == nil {
		if s.cacheDir == "" {
			dir, err := CacheDir(s.cfg.CacheDir, control.DefaultServerCacheName)
			if err != nil {
				return nil, err
			}
			s.cacheDir = dir
		}
		s.registry = packet.DefaultRegistry(s.cacheDir)
	}
	return s, nil
}

// Start binds the TCP listener and, when enabled, the discovery provider.
func (s *Server) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := tcp.Listen(tcp.ListenerConfig{Addr: addr, ConnHandler: s.accept})
	if err != nil {
		return err
	}
	var provider *discovery.Provider
	if s.discovery {
		port := ln.Addr().(*net.TCPAddr).Port
		provider, err = discovery.NewProvider(":"+strconv.Itoa(s.cfg.DiscoveryPort), port)
		if err != nil {
			_ = ln.Close()
			return err
		}
	}
	s.mu.Lock()
	s.listener, s.provider = ln, provider
	s.mu.Unlock()
	s.log.Info().Str("addr", ln.Addr().String()).Str("cache", s.cacheDir).Msg("server started")
	return nil
}

// Serve accepts clients and answers discovery requests until ctx is done or
// Stop is called, then stops the server.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln, provider := s.listener, s.provider
	s.mu.Unlock()
	if ln == nil {
		return ErrNotStarted
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ln.Serve(gctx) })
	if provider != nil {
		g.Go(func() error { return provider.Serve(gctx) })
	}
	err := g.Wait()
	return multierr.Append(err, s.Stop())
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// DiscoveryAddr returns the provider address, or nil when discovery is off.
func (s *Server) DiscoveryAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.provider == nil {
		return nil
	}
	return s.provider.Addr()
}

// CacheDir is where received files are stored.
func (s *Server) CacheDir() string { return s.cacheDir }

// Clients counts connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Broadcast sends msg to every client.
func (s *Server) Broadcast(msg string) {
	s.forward(nil, msg)
}

func (s *Server) forward(from *connector.Connector, msg string) {
	s.mu.Lock()
	targets := make([]*connector.Connector, 0, len(s.clients))
	for _, c := range s.clients {
		if c != from {
			targets = append(targets, c)
		}
	}
	s.mu.Unlock()
	for _, c := range targets {
		if err := c.SendString(msg); err != nil {
			s.log.Debug().Err(err).Str("client", c.Key().String()).Msg("forward")
		}
	}
}

// Stop closes the listener, the provider and every client. Idempotent.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.stopped.CompareAndSwap(false, true) {
		s.mu.Unlock()
		return nil
	}
	ln, provider := s.listener, s.provider
	clients := make([]*connector.Connector, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = multierr.Append(err, ln.Close())
	}
	if provider != nil {
		err = multierr.Append(err, provider.Close())
	}
	for _, c := range clients {
		err = multierr.Append(err, c.Close())
	}
	s.log.Info().Int("clients", len(clients)).Msg("server stopped")
	return err
}

func (s *Server) accept(fd int, remote net.Addr) {
	h := &clientHandler{server: s, remote: remote.String()}
	c, err := s.io.NewConnector(s.registry, h)
	if err != nil {
		s.log.Warn().Err(err).Str("remote", h.remote).Msg("refusing client")
		_ = transport.CloseFD(fd)
		return
	}
	// registered under mu so Stop either sees the client or refuses it here
	s.mu.Lock()
	if s.stopped.Load() {
		s.mu.Unlock()
		_ = c.Close()
		_ = transport.CloseFD(fd)
		return
	}
	s.clients[c.Key()] = c
	s.mu.Unlock()
	if err := c.Setup(fd); err != nil {
		// Stop may have closed c already; Close releases it from the context
		_ = c.Close()
		s.remove(c)
		_ = transport.CloseFD(fd)
		return
	}
	s.log.Info().Str("remote", h.remote).Str("client", c.Key().String()).Msg("client connected")
}

func (s *Server) remove(c *connector.Connector) {
	s.mu.Lock()
	delete(s.clients, c.Key())
	s.mu.Unlock()
}

type clientHandler struct {
	server *Server
	remote string
}

func (h *clientHandler) OnReceivedPacket(c *connector.Connector, p packet.ReceivePacket) {
	s := h.server
	switch rp := p.(type) {
	case *packet.StringReceivePacket:
		msg := rp.String()
		s.log.Info().Str("client", c.Key().String()).Str("msg", msg).Msg("message")
		if s.onMessage != nil {
			s.onMessage(c, msg)
		}
		s.forward(c, msg)
	case *packet.FileReceivePacket:
		s.log.Info().Str("client", c.Key().String()).Str("name", rp.Name()).Str("path", rp.Path()).Msg("file")
		if s.onFile != nil {
			s.onFile(c, rp)
		}
	}
}

func (h *clientHandler) OnChannelClosed(c *connector.Connector, cause error) {
	h.server.remove(c)
	ev := h.server.log.Info().Str("remote", h.remote).Str("client", c.Key().String())
	if cause != nil && !connector.IsPeerClosed(cause) {
		ev = ev.AnErr("cause", cause)
	}
	ev.Msg("client left")
}
