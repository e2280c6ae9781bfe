//go:build linux

// Package benchmarks
// Author: momentics <momentics@gmail.com>
//
// Performance benchmarks for the frame link components.

package benchmarks

import (
	"bytes"
	"testing"

	"github.com/momentics/hioload-clink/connector"
	"github.com/momentics/hioload-clink/control"
	"github.com/momentics/hioload-clink/core/async"
	"github.com/momentics/hioload-clink/core/packet"
	"github.com/momentics/hioload-clink/core/protocol"
	"github.com/momentics/hioload-clink/facade"
	"github.com/momentics/hioload-clink/fake"
	"github.com/momentics/hioload-clink/transport"
)

// BenchmarkHeaderCodec measures frame header encode and decode.
func BenchmarkHeaderCodec(b *testing.B) {
	h, err := protocol.NewHeader(4096, protocol.TypePacketEntity, 0, 7)
	if err != nil {
		b.Fatal(err)
	}
	var raw [protocol.HeaderLength]byte
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.Encode(raw[:])
		if _, err := protocol.DecodeHeader(raw[:]); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDispatcherPipe moves 64 KiB packets through both dispatchers over
// an in-memory pipe.
func BenchmarkDispatcherPipe(b *testing.B) {
	left, right := fake.NewPipe()
	opts := async.Options{MaxInFlight: 4}
	send := async.NewSendDispatcher(left, opts, nil)
	got := 0
	recv := async.NewReceiveDispatcher(right, packet.DefaultRegistry(""), nil, opts,
		func(packet.ReceivePacket) { got++ }, func(err error) { b.Fatal(err) })
	recv.Start()
	defer send.Close()
	defer recv.Close()

	payload := bytes.Repeat([]byte{0xAB}, 64*1024)
	b.SetBytes(int64(len(payload)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		send.Send(packet.NewBytesSendPacket(payload))
		fake.Pump(left, right)
	}
	b.StopTimer()
	if got != b.N {
		b.Fatalf("received %d of %d packets", got, b.N)
	}
}

// BenchmarkConnectorSocketPair measures end-to-end string delivery through
// the reactor.
func BenchmarkConnectorSocketPair(b *testing.B) {
	ctx, err := facade.Setup(control.DefaultConfig())
	if err != nil {
		b.Fatal(err)
	}
	defer ctx.Shutdown()

	done := make(chan struct{}, 1024)
	sink, err := ctx.NewConnector(nil, connector.HandlerFuncs{
		Received: func(*connector.Connector, packet.ReceivePacket) { done <- struct{}{} },
	})
	if err != nil {
		b.Fatal(err)
	}
	src, err := ctx.NewConnector(nil, nil)
	if err != nil {
		b.Fatal(err)
	}
	fa, fb, err := transport.SocketPair()
	if err != nil {
		b.Fatal(err)
	}
	if err := src.Setup(fa); err != nil {
		b.Fatal(err)
	}
	if err := sink.Setup(fb); err != nil {
		b.Fatal(err)
	}

	msg := string(bytes.Repeat([]byte("x"), 1024))
	b.SetBytes(int64(len(msg)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := src.SendString(msg); err != nil {
			b.Fatal(err)
		}
		<-done
	}
}
