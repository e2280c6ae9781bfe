//go:build linux

package facade_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-clink/api"
	"github.com/momentics/hioload-clink/connector"
	"github.com/momentics/hioload-clink/control"
	"github.com/momentics/hioload-clink/core/packet"
	"github.com/momentics/hioload-clink/facade"
	"github.com/momentics/hioload-clink/transport"
)

func TestSetupRejectsInvalidConfig(t *testing.T) {
	cfg := control.DefaultConfig()
	cfg.Reactor.Workers = 0
	_, err := facade.Setup(cfg)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

// Full lifecycle: two connectors over a socketpair, a message, probes and
// shutdown closing whatever is still open.
func TestIoContextLifecycle(t *testing.T) {
	ctx, err := facade.Setup(control.DefaultConfig())
	require.NoError(t, err)

	got := make(chan string, 1)
	closed := make(chan error, 2)
	h := connector.HandlerFuncs{
		Received: func(_ *connector.Connector, p packet.ReceivePacket) { got <- p.Entity().(string) },
		Closed:   func(_ *connector.Connector, cause error) { closed <- cause },
	}
	a, err := ctx.NewConnector(nil, h)
	require.NoError(t, err)
	b, err := ctx.NewConnector(nil, h)
	require.NoError(t, err)
	assert.Equal(t, 2, ctx.Connections())

	fa, fb, err := transport.SocketPair()
	require.NoError(t, err)
	require.NoError(t, a.Setup(fa))
	require.NoError(t, b.Setup(fb))

	require.NoError(t, a.SendString("ping"))
	select {
	case s := <-got:
		assert.Equal(t, "ping", s)
	case <-time.After(5 * time.Second):
		t.Fatal("no message")
	}

	state := ctx.Debug().DumpState()
	assert.Equal(t, 2, state["connections"])
	assert.Contains(t, ctx.Debug().Names(), "metrics")
	assert.Equal(t, int64(1), ctx.Metrics().Counter(control.MetricPacketsReceived))

	require.NoError(t, ctx.Shutdown())
	require.NoError(t, ctx.Shutdown())
	for i := 0; i < 2; i++ {
		select {
		case <-closed:
		case <-time.After(5 * time.Second):
			t.Fatal("connector not closed by shutdown")
		}
	}
	assert.Zero(t, ctx.Connections())
	assert.True(t, a.IsClosed())
	assert.True(t, b.IsClosed())

	_, err = ctx.NewConnector(nil, h)
	assert.ErrorIs(t, err, api.ErrProviderClosed)
}

func TestClosedConnectorIsForgotten(t *testing.T) {
	ctx, err := facade.Setup(control.DefaultConfig())
	require.NoError(t, err)
	defer ctx.Close()

	c, err := ctx.NewConnector(nil, nil)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.Zero(t, ctx.Connections())

	// a closed connector refuses the socket and the caller keeps it
	a, b, err := transport.SocketPair()
	require.NoError(t, err)
	defer transport.CloseFD(a)
	defer transport.CloseFD(b)
	assert.ErrorIs(t, c.Setup(a), api.ErrChannelClosed)
	assert.Zero(t, ctx.Connections())
	assert.Equal(t, control.DefaultWorkers, ctx.Config().Reactor.Workers)
	assert.NotNil(t, ctx.Provider())
}
