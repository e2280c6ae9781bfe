//go:build linux

package client_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-clink/client"
	"github.com/momentics/hioload-clink/control"
	"github.com/momentics/hioload-clink/facade"
)

func newContext(t *testing.T) *facade.IoContext {
	t.Helper()
	io, err := facade.Setup(control.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = io.Shutdown() })
	return io
}

func TestDialRefused(t *testing.T) {
	io := newContext(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = client.Dial(context.Background(), io, addr, client.WithCacheDir(t.TempDir()))
	assert.Error(t, err)
	assert.Zero(t, io.Connections())
}

func TestLocalCloseAndServerHangup(t *testing.T) {
	io := newContext(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	accepted := make(chan net.Conn, 2)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			accepted <- conn
		}
	}()

	c, err := client.Dial(context.Background(), io, ln.Addr().String(), client.WithCacheDir(t.TempDir()))
	require.NoError(t, err)
	require.NoError(t, c.Close())
	<-c.Closed()
	assert.NoError(t, c.Err())
	(<-accepted).Close()

	c, err = client.Dial(context.Background(), io, ln.Addr().String(), client.WithCacheDir(t.TempDir()))
	require.NoError(t, err)
	(<-accepted).Close()
	select {
	case <-c.Closed():
		assert.Error(t, c.Err())
	case <-time.After(5 * time.Second):
		t.Fatal("hangup not noticed")
	}
}

func TestSearchTimesOutWithoutServer(t *testing.T) {
	cfg := control.DefaultConfig()
	cfg.Server.DiscoveryPort = 1
	cfg.Client.ResponsePort = 0
	cfg.Client.SearchTimeout = control.Duration{Duration: 50 * time.Millisecond}
	_, err := client.Search(context.Background(), cfg)
	assert.Error(t, err)
}

func TestExitCommand(t *testing.T) {
	assert.Equal(t, "00bye00", client.ExitCommand)
}
