// File: core/packet/registry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Registry maps packet type tags from incoming header frames to receive
// packet constructors.

package packet

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/momentics/hioload-clink/api"
)

// Factory builds a receive packet for an announced length and header info.
type Factory func(length int64, headerInfo []byte) (ReceivePacket, error)

// Registry is a thread-safe type→factory table.
type Registry struct {
	mu        sync.RWMutex
	factories map[byte]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[byte]Factory)}
}

// DefaultRegistry registers bytes, string and direct-stream packets in memory
// and file packets as random temp files under cacheDir. An empty cacheDir
// leaves file packets unregistered.
func DefaultRegistry(cacheDir string) *Registry {
	r := NewRegistry()
	r.Register(TypeBytes, func(length int64, info []byte) (ReceivePacket, error) {
		return NewBytesReceivePacket(length, info), nil
	})
	r.Register(TypeString, func(length int64, info []byte) (ReceivePacket, error) {
		return NewStringReceivePacket(length, info), nil
	})
	r.Register(TypeDirect, func(length int64, info []byte) (ReceivePacket, error) {
		p := NewBytesReceivePacket(length, info)
		p.typ = TypeDirect
		return p, nil
	})
	if cacheDir != "" {
		r.Register(TypeFile, TempFileFactory(cacheDir))
	}
	return r
}

// Register installs f for packetType, replacing any previous factory.
func (r *Registry) Register(packetType byte, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[packetType] = f
}

// Create builds the receive packet announced by a header frame.
func (r *Registry) Create(packetType byte, length int64, headerInfo []byte) (ReceivePacket, error) {
	r.mu.RLock()
	f, ok := r.factories[packetType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("packet type %d: %w", packetType, api.ErrNotSupported)
	}
	return f(length, headerInfo)
}

// TempFileFactory stores incoming files as <uuid>.tmp inside dir.
func TempFileFactory(dir string) Factory {
	return func(length int64, info []byte) (ReceivePacket, error) {
		path, err := NewTempFile(dir)
		if err != nil {
			return nil, err
		}
		return NewFileReceivePacket(length, info, path), nil
	}
}

// NewTempFile creates an empty randomly named file in dir.
func NewTempFile(dir string) (string, error) {
	path := filepath.Join(dir, uuid.NewString()+".tmp")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	return path, f.Close()
}
