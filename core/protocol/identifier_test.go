package protocol_test

import (
	"testing"

	"github.com/momentics/hioload-clink/api"
	"github.com/momentics/hioload-clink/core/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifierCycling(t *testing.T) {
	var g protocol.IdentifierGenerator
	live := map[byte]bool{}
	var order []byte
	for i := 0; i < 300; i++ {
		id, err := g.Next()
		require.NoError(t, err)
		if id == 0 || id == protocol.ReservedIdentifier {
			t.Fatalf("generated reserved identifier %d at step %d", id, i)
		}
		if live[id] {
			t.Fatalf("identifier %d handed out twice while live", id)
		}
		live[id] = true
		order = append(order, id)

		// keep at most 8 packets in flight
		if len(order) > 8 {
			old := order[0]
			order = order[1:]
			g.Release(old)
			delete(live, old)
		}
	}
	assert.Equal(t, len(order), g.Live())
}

func TestIdentifierWrapsBeforeReserved(t *testing.T) {
	var g protocol.IdentifierGenerator
	for i := 1; i <= int(protocol.MaxIdentifier); i++ {
		id, err := g.Next()
		require.NoError(t, err)
		require.Equal(t, byte(i), id)
		g.Release(id)
	}
	id, err := g.Next()
	require.NoError(t, err)
	assert.Equal(t, protocol.MinIdentifier, id)
}

func TestIdentifierSkipsLive(t *testing.T) {
	var g protocol.IdentifierGenerator
	first, _ := g.Next()
	for i := 0; i < protocol.Capacity-1; i++ {
		id, err := g.Next()
		require.NoError(t, err)
		g.Release(id)
	}
	// the counter wrapped; the still-live first identifier must be skipped
	id, err := g.Next()
	require.NoError(t, err)
	assert.NotEqual(t, first, id)
	assert.True(t, g.InUse(first))
}

func TestIdentifierExhaustion(t *testing.T) {
	var g protocol.IdentifierGenerator
	for i := 0; i < protocol.Capacity; i++ {
		_, err := g.Next()
		require.NoError(t, err)
	}
	_, err := g.Next()
	assert.ErrorIs(t, err, api.ErrResourceExhausted)

	g.Release(42)
	id, err := g.Next()
	require.NoError(t, err)
	assert.Equal(t, byte(42), id)
}
