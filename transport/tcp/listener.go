// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-clink/internal/logging"
	"github.com/momentics/hioload-clink/transport"
)

// ConnHandler receives ownership of an accepted, non-blocking descriptor.
type ConnHandler func(fd int, remote net.Addr)

// ListenerConfig holds configuration for the TCP listener.
type ListenerConfig struct {
	Addr        string      // TCP address to bind (e.g., ":30401")
	ConnHandler ConnHandler // Handler for accepted connections
}

// Listener accepts TCP connections until closed.
type Listener struct {
	ln      net.Listener
	handler ConnHandler
	closed  atomic.Bool
	log     zerolog.Logger
}

// Listen opens the listening socket.
func Listen(cfg ListenerConfig) (*Listener, error) {
	if cfg.ConnHandler == nil {
		return nil, errors.New("tcp listener: nil connection handler")
	}
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("tcp listen failed: %w", err)
	}
	l := &Listener{ln: ln, handler: cfg.ConnHandler, log: logging.Component("tcp")}
	l.log.Info().Str("addr", ln.Addr().String()).Msg("listening")
	return l, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Serve runs the accept loop until ctx is done or the listener is closed.
// A closed listener is not an error.
func (l *Listener) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = l.Close() })
	defer stop()
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if l.closed.Load() {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}
		if tc, ok := conn.(*net.TCPConn); ok {
			_ = tc.SetNoDelay(true)
		}
		remote := conn.RemoteAddr()
		fd, err := transport.DetachFD(conn)
		if err != nil {
			l.log.Warn().Err(err).Str("remote", remote.String()).Msg("detach")
			_ = conn.Close()
			continue
		}
		l.handler(fd, remote)
	}
}

// Close stops accepting. Idempotent.
func (l *Listener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	return l.ln.Close()
}
