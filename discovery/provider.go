// File: discovery/provider.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-clink/internal/logging"
	"github.com/momentics/hioload-clink/pool"
)

var datagrams = pool.NewBytePool(DatagramSize)

// Provider answers search requests on a UDP port.
type Provider struct {
	conn       *net.UDPConn
	serial     string
	serverPort int
	closed     atomic.Bool
	log        zerolog.Logger
}

// NewProvider binds addr (for example ":30201") and will advertise
// serverPort under a fresh serial number.
func NewProvider(addr string, serverPort int) (*Provider, error) {
	if serverPort <= 0 {
		return nil, fmt.Errorf("discovery: invalid server port %d", serverPort)
	}
	ua, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("discovery: resolve %q: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp4", ua)
	if err != nil {
		return nil, fmt.Errorf("discovery: listen: %w", err)
	}
	p := &Provider{
		conn:       conn,
		serial:     uuid.NewString(),
		serverPort: serverPort,
		log:        logging.Component("discovery"),
	}
	p.log.Info().Str("addr", conn.LocalAddr().String()).Str("serial", p.serial).Msg("provider started")
	return p, nil
}

// Serial is the advertised serial number.
func (p *Provider) Serial() string { return p.serial }

// Addr returns the bound address.
func (p *Provider) Addr() net.Addr { return p.conn.LocalAddr() }

// Serve answers requests until ctx is done or the provider is closed.
func (p *Provider) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = p.Close() })
	defer stop()

	in := datagrams.GetBuffer()
	out := datagrams.GetBuffer()
	defer datagrams.PutBuffer(in)
	defer datagrams.PutBuffer(out)

	for {
		n, from, err := p.conn.ReadFromUDP(*in)
		if err != nil {
			if p.closed.Load() {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("discovery: read: %w", err)
		}
		port, ok := DecodeRequest((*in)[:n])
		p.log.Debug().Str("from", from.String()).Bool("valid", ok).Msg("request")
		if !ok {
			continue
		}
		size := EncodeResponse(*out, p.serverPort, p.serial)
		to := &net.UDPAddr{IP: from.IP, Port: port}
		if _, err := p.conn.WriteToUDP((*out)[:size], to); err != nil {
			p.log.Warn().Err(err).Str("to", to.String()).Msg("response")
		}
	}
}

// Close stops the provider. Idempotent.
func (p *Provider) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.log.Info().Msg("provider finished")
	return p.conn.Close()
}
