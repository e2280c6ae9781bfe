// File: server/options.go
// Package server defines functional options for the chat server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"github.com/momentics/hioload-clink/connector"
	"github.com/momentics/hioload-clink/core/packet"
)

// MessageHook observes every string received from a client.
type MessageHook func(from *connector.Connector, msg string)

// FileHook observes every file received from a client.
type FileHook func(from *connector.Connector, p *packet.FileReceivePacket)

// ServerOption customizes server initialization.
type ServerOption func(*Server)

// WithCacheDir stores received files in dir instead of the configured cache.
func WithCacheDir(dir string) ServerOption {
	return func(s *Server) {
		s.cacheDir = dir
	}
}

// WithRegistry replaces the receive packet registry.
func WithRegistry(r *packet.Registry) ServerOption {
	return func(s *Server) {
		s.registry = r
	}
}

// WithDiscovery enables or disables the UDP discovery provider.
func WithDiscovery(enabled bool) ServerOption {
	return func(s *Server) {
		s.discovery = enabled
	}
}

// WithMessageHook registers fn for incoming strings.
func WithMessageHook(fn MessageHook) ServerOption {
	return func(s *Server) {
		s.onMessage = fn
	}
}

// WithFileHook registers fn for incoming files.
func WithFileHook(fn FileHook) ServerOption {
	return func(s *Server) {
		s.onFile = fn
	}
}
