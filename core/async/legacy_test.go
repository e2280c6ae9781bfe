// File: core/async/legacy_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package async

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-clink/core/packet"
	"github.com/momentics/hioload-clink/fake"
)

func TestLegacyDispatchersRoundTrip(t *testing.T) {
	a, b := fake.NewPipe()
	var sent []bool
	send := NewLegacySendDispatcher(a, Options{Capacity: 16}, func(_ packet.SendPacket, ok bool) {
		sent = append(sent, ok)
	})
	var got []string
	recv := NewLegacyReceiveDispatcher(b, Options{Capacity: 16}, func(p packet.ReceivePacket) {
		got = append(got, p.Entity().(string))
	})
	recv.Start()

	long := strings.Repeat("legacy", 20)
	send.Send(packet.NewStringSendPacket("hi"))
	send.Send(packet.NewStringSendPacket(long))
	send.Send(packet.NewStringSendPacket(""))
	fake.Pump(a, b)

	assert.Equal(t, []string{"hi", long, ""}, got)
	assert.Equal(t, []bool{true, true, true}, sent)
	wire := a.Sent()
	require.GreaterOrEqual(t, len(wire), 6)
	assert.Equal(t, []byte{0, 0, 0, 2, 'h', 'i'}, wire[:6])

	require.NoError(t, send.Close())
	require.NoError(t, recv.Close())
	require.NoError(t, recv.Close())
}

func TestLegacyCancelQueued(t *testing.T) {
	a, b := fake.NewPipe()
	results := map[packet.SendPacket][]bool{}
	send := NewLegacySendDispatcher(a, Options{}, func(p packet.SendPacket, ok bool) {
		results[p] = append(results[p], ok)
	})
	var got []string
	recv := NewLegacyReceiveDispatcher(b, Options{}, func(p packet.ReceivePacket) {
		got = append(got, p.Entity().(string))
	})
	recv.Start()

	first := packet.NewStringSendPacket("first")
	second := packet.NewStringSendPacket("second")
	send.Send(first)
	send.Send(second)
	send.Cancel(second)
	fake.Pump(a, b)

	assert.Equal(t, []string{"first"}, got)
	assert.Equal(t, []bool{false}, results[second])
	assert.Equal(t, []bool{true}, results[first])
}

func TestLegacyCancelAfterCompletionIsNoop(t *testing.T) {
	a, b := fake.NewPipe()
	results := map[packet.SendPacket][]bool{}
	send := NewLegacySendDispatcher(a, Options{}, func(p packet.SendPacket, ok bool) {
		results[p] = append(results[p], ok)
	})
	recv := NewLegacyReceiveDispatcher(b, Options{}, nil)
	recv.Start()

	done := packet.NewStringSendPacket("done")
	send.Send(done)
	fake.Pump(a, b)
	send.Cancel(done)
	send.Cancel(done)

	assert.Equal(t, []bool{true}, results[done])
}

func TestLegacySendRacingCloseCompletesOnce(t *testing.T) {
	a, _ := fake.NewPipe()
	var mu sync.Mutex
	results := map[packet.SendPacket]int{}
	send := NewLegacySendDispatcher(a, Options{}, func(p packet.SendPacket, _ bool) {
		mu.Lock()
		results[p]++
		mu.Unlock()
	})
	ps := sendRacingClose(send.Send, send.Close)

	mu.Lock()
	defer mu.Unlock()
	for _, p := range ps {
		assert.Equal(t, 1, results[p])
	}
}

// sendRacingClose sends packets from several goroutines while closeFn runs and
// returns every packet handed to send.
func sendRacingClose(send func(packet.SendPacket), closeFn func() error) []packet.SendPacket {
	const senders, perSender = 8, 64
	ps := make([]packet.SendPacket, senders*perSender)
	for i := range ps {
		ps[i] = packet.NewStringSendPacket("x")
	}
	var wg sync.WaitGroup
	start := make(chan struct{})
	for g := 0; g < senders; g++ {
		wg.Add(1)
		go func(batch []packet.SendPacket) {
			defer wg.Done()
			<-start
			for _, p := range batch {
				send(p)
			}
		}(ps[g*perSender : (g+1)*perSender])
	}
	close(start)
	_ = closeFn()
	wg.Wait()
	return ps
}
