// File: discovery/searcher.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/momentics/hioload-clink/api"
	"github.com/momentics/hioload-clink/internal/logging"
)

// ServerInfo describes an answering server.
type ServerInfo struct {
	IP     string
	Port   int
	Serial string
}

// Address is the host:port to dial.
func (s ServerInfo) Address() string {
	return net.JoinHostPort(s.IP, strconv.Itoa(s.Port))
}

// SearchConfig controls a single search.
type SearchConfig struct {
	// Target receives the request; "255.255.255.255:30201" broadcasts.
	Target string
	// ListenAddr receives answers, for example ":30202". Port 0 picks an
	// ephemeral port, which is then advertised as the response port.
	ListenAddr string
	Timeout    time.Duration
}

// Search sends one request and returns the first valid answer. It fails
// with api.ErrNotFound when nothing answers within the timeout.
func Search(ctx context.Context, cfg SearchConfig) (ServerInfo, error) {
	log := logging.Component("discovery")
	if cfg.Timeout <= 0 {
		return ServerInfo{}, fmt.Errorf("discovery: %w: timeout", api.ErrInvalidArgument)
	}
	target, err := net.ResolveUDPAddr("udp4", cfg.Target)
	if err != nil {
		return ServerInfo{}, fmt.Errorf("discovery: resolve %q: %w", cfg.Target, err)
	}
	la, err := net.ResolveUDPAddr("udp4", cfg.ListenAddr)
	if err != nil {
		return ServerInfo{}, fmt.Errorf("discovery: resolve %q: %w", cfg.ListenAddr, err)
	}
	conn, err := net.ListenUDP("udp4", la)
	if err != nil {
		return ServerInfo{}, fmt.Errorf("discovery: listen: %w", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()

	buf := datagrams.GetBuffer()
	defer datagrams.PutBuffer(buf)

	responsePort := conn.LocalAddr().(*net.UDPAddr).Port
	n := EncodeRequest(*buf, responsePort)
	if _, err := conn.WriteToUDP((*buf)[:n], target); err != nil {
		return ServerInfo{}, fmt.Errorf("discovery: send request: %w", err)
	}
	log.Debug().Str("target", target.String()).Int("response_port", responsePort).Msg("search sent")

	for {
		n, from, err := conn.ReadFromUDP(*buf)
		if err != nil {
			if ctx.Err() != nil {
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return ServerInfo{}, fmt.Errorf("discovery: %w: no server answered", api.ErrNotFound)
				}
				return ServerInfo{}, ctx.Err()
			}
			return ServerInfo{}, fmt.Errorf("discovery: read: %w", err)
		}
		port, serial, ok := DecodeResponse((*buf)[:n])
		if !ok {
			log.Debug().Str("from", from.String()).Msg("ignored datagram")
			continue
		}
		info := ServerInfo{IP: from.IP.String(), Port: port, Serial: serial}
		log.Info().Str("server", info.Address()).Str("serial", serial).Msg("server found")
		return info, nil
	}
}
