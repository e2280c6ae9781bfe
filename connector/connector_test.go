//go:build linux

// Author: momentics <momentics@gmail.com>

package connector

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-clink/api"
	"github.com/momentics/hioload-clink/control"
	"github.com/momentics/hioload-clink/core/packet"
	"github.com/momentics/hioload-clink/reactor"
	"github.com/momentics/hioload-clink/transport"
)

const wait = 5 * time.Second

type recorder struct {
	received chan packet.ReceivePacket
	closed   chan error
	sent     chan bool
}

func newRecorder() *recorder {
	return &recorder{
		received: make(chan packet.ReceivePacket, 16),
		closed:   make(chan error, 4),
		sent:     make(chan bool, 16),
	}
}

func (r *recorder) handler() HandlerFuncs {
	return HandlerFuncs{
		Received: func(_ *Connector, p packet.ReceivePacket) { r.received <- p },
		Closed:   func(_ *Connector, cause error) { r.closed <- cause },
		Sent:     func(_ *Connector, _ packet.SendPacket, ok bool) { r.sent <- ok },
	}
}

func (r *recorder) packet(t *testing.T) packet.ReceivePacket {
	t.Helper()
	select {
	case p := <-r.received:
		return p
	case <-time.After(wait):
		t.Fatal("no packet received")
		return nil
	}
}

func (r *recorder) closeCause(t *testing.T) error {
	t.Helper()
	select {
	case cause := <-r.closed:
		return cause
	case <-time.After(wait):
		t.Fatal("channel not closed")
		return nil
	}
}

type link struct {
	a, b       *Connector
	recA, recB *recorder
	metrics    *control.MetricsRegistry
}

func newLink(t *testing.T, opts Options) *link {
	t.Helper()
	r, err := reactor.New(2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	fa, fb, err := transport.SocketPair()
	require.NoError(t, err)

	opts.Provider = r
	if opts.Metrics == nil {
		opts.Metrics = control.NewMetricsRegistry()
	}
	l := &link{recA: newRecorder(), recB: newRecorder(), metrics: opts.Metrics}
	l.a, err = New(opts, l.recA.handler())
	require.NoError(t, err)
	l.b, err = New(opts, l.recB.handler())
	require.NoError(t, err)
	require.NoError(t, l.a.Setup(fa))
	require.NoError(t, l.b.Setup(fb))
	t.Cleanup(func() {
		_ = l.a.Close()
		_ = l.b.Close()
	})
	return l
}

func TestNewRequiresProvider(t *testing.T) {
	_, err := New(Options{}, nil)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestStringsBothWays(t *testing.T) {
	l := newLink(t, Options{})
	assert.NotEqual(t, l.a.Key(), l.b.Key())

	require.NoError(t, l.a.SendString("hello"))
	require.NoError(t, l.b.SendString("world"))

	p := l.recB.packet(t)
	assert.Equal(t, "hello", p.Entity())
	p = l.recA.packet(t)
	assert.Equal(t, "world", p.Entity())

	assert.True(t, <-l.recA.sent)
	assert.True(t, <-l.recB.sent)
	assert.Equal(t, int64(2), l.metrics.Counter(control.MetricConnections))
}

func TestManyStringsKeepOrder(t *testing.T) {
	l := newLink(t, Options{Link: control.LinkConfig{MaxInFlight: 1}})
	words := []string{"a", "bb", "", "dddd", "eeeee"}
	for _, w := range words {
		require.NoError(t, l.a.SendString(w))
	}
	for _, w := range words {
		assert.Equal(t, w, l.recB.packet(t).Entity())
	}
}

func TestFileTransfer(t *testing.T) {
	dir := t.TempDir()
	l := newLink(t, Options{Registry: packet.DefaultRegistry(dir)})

	src := filepath.Join(t.TempDir(), "payload.bin")
	data := bytes.Repeat([]byte("0123456789"), 20000)
	require.NoError(t, os.WriteFile(src, data, 0o644))

	fp, err := l.a.SendFile(src)
	require.NoError(t, err)
	require.NotNil(t, fp)

	p := l.recB.packet(t)
	rp, ok := p.(*packet.FileReceivePacket)
	require.True(t, ok)
	assert.Equal(t, "payload.bin", rp.Name())
	got, err := os.ReadFile(rp.Path())
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, dir, filepath.Dir(rp.Path()))
}

func TestFileRefusedWithoutCache(t *testing.T) {
	l := newLink(t, Options{})

	src := filepath.Join(t.TempDir(), "x.bin")
	require.NoError(t, os.WriteFile(src, bytes.Repeat([]byte{1}, 256*1024), 0o644))
	_, err := l.a.SendFile(src)
	require.NoError(t, err)
	require.NoError(t, l.a.SendString("after"))

	// the refused file never surfaces and the link survives it
	assert.Equal(t, "after", l.recB.packet(t).Entity())
	assert.False(t, l.b.IsClosed())
}

func TestSendFileMissing(t *testing.T) {
	l := newLink(t, Options{})
	_, err := l.a.SendFile(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestPeerCloseReportsEOF(t *testing.T) {
	l := newLink(t, Options{})
	require.NoError(t, l.a.Close())

	assert.Nil(t, l.recA.closeCause(t))
	cause := l.recB.closeCause(t)
	assert.True(t, IsPeerClosed(cause), "cause %v", cause)
	assert.True(t, l.b.IsClosed())

	assert.ErrorIs(t, l.a.SendString("late"), api.ErrChannelClosed)
	require.NoError(t, l.a.Close())
	select {
	case <-l.recA.closed:
		t.Fatal("closed twice")
	case <-time.After(50 * time.Millisecond):
	}
	require.Eventually(t, func() bool {
		return l.metrics.Counter(control.MetricConnections) == 0
	}, wait, 10*time.Millisecond)
}

func TestCloseBeforeSetup(t *testing.T) {
	r, err := reactor.New(1)
	require.NoError(t, err)
	defer r.Close()

	rec := newRecorder()
	c, err := New(Options{Provider: r}, rec.handler())
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.Nil(t, rec.closeCause(t))
	assert.ErrorIs(t, c.Setup(-1), api.ErrChannelClosed)
	assert.ErrorIs(t, c.SendString("x"), api.ErrChannelClosed)
}

func TestSetupTwice(t *testing.T) {
	l := newLink(t, Options{})
	assert.ErrorIs(t, l.a.Setup(-1), api.ErrInvalidArgument)
}

func TestLegacyStrings(t *testing.T) {
	l := newLink(t, Options{Legacy: true})
	require.NoError(t, l.a.SendString("one"))
	require.NoError(t, l.a.SendString("two"))
	assert.Equal(t, "one", l.recB.packet(t).Entity())
	assert.Equal(t, "two", l.recB.packet(t).Entity())
}
