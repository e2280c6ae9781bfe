// File: core/async/writer_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package async

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-clink/api"
	"github.com/momentics/hioload-clink/core/packet"
	"github.com/momentics/hioload-clink/core/protocol"
)

type recordingSink struct {
	registry     *packet.Registry
	refuse       bool
	completed    []packet.ReceivePacket
	failed       []packet.ReceivePacket
	rejectedHere []byte
	rejectedPeer []byte
}

func (s *recordingSink) TakePacket(t byte, length int64, info []byte) packet.ReceivePacket {
	if s.refuse {
		return nil
	}
	p, err := s.registry.Create(t, length, info)
	if err != nil {
		return nil
	}
	return p
}

func (s *recordingSink) CompletedPacket(p packet.ReceivePacket, ok bool) {
	_ = p.Close()
	if ok {
		s.completed = append(s.completed, p)
	} else {
		s.failed = append(s.failed, p)
	}
}

func (s *recordingSink) OnReceiveRejected(id byte) { s.rejectedHere = append(s.rejectedHere, id) }
func (s *recordingSink) OnSendRejected(id byte)    { s.rejectedPeer = append(s.rejectedPeer, id) }

// feed pushes raw through w in reads of at most chunk bytes, honoring the
// bound TakeIoArgs asks for.
func feed(t *testing.T, w *Writer, raw []byte, chunk int) error {
	t.Helper()
	for len(raw) > 0 {
		args := w.TakeIoArgs()
		args.StartWriting()
		n := args.ReadFrom(raw, 0, min(chunk, len(raw)))
		require.Positive(t, n)
		raw = raw[n:]
		args.FinishWriting()
		if err := w.ConsumeIoArgs(args); err != nil {
			return err
		}
	}
	return nil
}

var helloWire = []byte{
	0x00, 0x06, 0x0B, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x05, 0x02,
	0x00, 0x05, 0x0C, 0x00, 0x01, 0x00, 'h', 'e', 'l', 'l', 'o',
}

func TestWriterAssemblesHello(t *testing.T) {
	for _, chunk := range []int{1, 2, 5, 256} {
		sink := &recordingSink{registry: packet.DefaultRegistry("")}
		w := NewWriter(sink, 256)
		require.NoError(t, feed(t, w, helloWire, chunk))
		require.Len(t, sink.completed, 1, "chunk %d", chunk)
		assert.Equal(t, "hello", sink.completed[0].Entity())
	}
}

func TestWriterZeroLengthPacket(t *testing.T) {
	sink := &recordingSink{registry: packet.DefaultRegistry("")}
	w := NewWriter(sink, 256)
	require.NoError(t, feed(t, w, []byte{0, 6, 11, 0, 3, 0, 0, 0, 0, 0, 0, 1}, 256))
	require.Len(t, sink.completed, 1)
	assert.Empty(t, sink.completed[0].(*packet.BytesReceivePacket).Bytes())
}

func TestWriterHeaderForLiveIdentifier(t *testing.T) {
	sink := &recordingSink{registry: packet.DefaultRegistry("")}
	w := NewWriter(sink, 256)
	require.NoError(t, feed(t, w, helloWire[:12], 256))
	err := feed(t, w, helloWire[:12], 256)
	assert.ErrorIs(t, err, api.ErrIdentifierInUse)
}

func TestWriterDiscardsUnknownEntity(t *testing.T) {
	sink := &recordingSink{registry: packet.DefaultRegistry("")}
	w := NewWriter(sink, 256)
	require.NoError(t, feed(t, w, []byte{0, 3, 12, 0, 7, 0, 'a', 'b', 'c'}, 256))
	require.NoError(t, feed(t, w, helloWire, 256))
	require.Len(t, sink.completed, 1)
	assert.Empty(t, sink.failed)
}

func TestWriterRefusedPacketIsRejected(t *testing.T) {
	sink := &recordingSink{registry: packet.DefaultRegistry(""), refuse: true}
	w := NewWriter(sink, 256)
	require.NoError(t, feed(t, w, helloWire, 256))
	assert.Equal(t, []byte{1}, sink.rejectedHere)
	assert.Empty(t, sink.completed)

	// the discard entry is gone once the declared length was skipped
	sink.refuse = false
	require.NoError(t, feed(t, w, helloWire, 256))
	assert.Len(t, sink.completed, 1)
}

func TestWriterUnsupportedTypeIsRejected(t *testing.T) {
	sink := &recordingSink{registry: packet.DefaultRegistry("")}
	w := NewWriter(sink, 256)
	// file packets need a cache directory
	require.NoError(t, feed(t, w, []byte{0, 6, 11, 0, 4, 0, 0, 0, 0, 0, 2, 3, 0, 2, 12, 0, 4, 0, 'x', 'y'}, 256))
	assert.Equal(t, []byte{4}, sink.rejectedHere)
}

func TestWriterCancelFrameFailsPacket(t *testing.T) {
	sink := &recordingSink{registry: packet.DefaultRegistry("")}
	w := NewWriter(sink, 256)
	raw := append([]byte{}, helloWire[:12]...)
	raw = append(raw, 0, 0, 41, 0, 1, 0)
	require.NoError(t, feed(t, w, raw, 256))
	assert.Len(t, sink.failed, 1)
	assert.Empty(t, sink.completed)

	require.NoError(t, feed(t, w, helloWire, 256))
	assert.Len(t, sink.completed, 1)
}

func TestWriterRejectFrameReported(t *testing.T) {
	sink := &recordingSink{registry: packet.DefaultRegistry("")}
	w := NewWriter(sink, 256)
	require.NoError(t, feed(t, w, []byte{0, 0, 42, 0, 5, 0}, 256))
	assert.Equal(t, []byte{5}, sink.rejectedPeer)
}

func TestWriterUnknownFrameType(t *testing.T) {
	w := NewWriter(&recordingSink{registry: packet.DefaultRegistry("")}, 256)
	err := feed(t, w, []byte{0, 0, 99, 0, 1, 0}, 256)
	assert.ErrorIs(t, err, api.ErrUnknownFrameType)
}

func TestWriterCloseFailsPartialPackets(t *testing.T) {
	sink := &recordingSink{registry: packet.DefaultRegistry("")}
	w := NewWriter(sink, 256)
	require.NoError(t, feed(t, w, helloWire[:15], 256))
	w.Close()
	w.Close()
	assert.Len(t, sink.failed, 1)
	assert.ErrorIs(t, feed(t, w, helloWire, 256), api.ErrChannelClosed)
}

func TestReaderToWriterRoundTrip(t *testing.T) {
	payloads := []string{"first", "", "third packet"}
	var ps []packet.SendPacket
	for _, s := range payloads {
		ps = append(ps, packet.NewStringSendPacket(s))
	}
	r := NewReader(newSliceSource(ps...), 16, 3)
	sink := &recordingSink{registry: packet.DefaultRegistry("")}
	w := NewWriter(sink, 16)

	r.RequestTakePacket()
	require.NoError(t, feed(t, w, drainReader(r), 7))
	require.Len(t, sink.completed, 3)
	got := make([]string, 0, 3)
	for _, p := range sink.completed {
		got = append(got, p.Entity().(string))
	}
	assert.ElementsMatch(t, payloads, got)
}

func TestCancelledPacketReleasesPeerIdentifier(t *testing.T) {
	a := packet.NewStringSendPacket("aaaa")
	ps := []packet.SendPacket{a}
	for i := 0; i < protocol.Capacity+1; i++ {
		ps = append(ps, packet.NewStringSendPacket("p"))
	}
	r := NewReader(newSliceSource(ps...), 12, 1)
	sink := &recordingSink{registry: packet.DefaultRegistry("")}
	w := NewWriter(sink, 16)

	r.RequestTakePacket()
	first := r.FillData()
	require.NotNil(t, first)
	raw := append([]byte(nil), first.Bytes()...)
	r.Cancel(a)
	raw = append(raw, drainReader(r)...)

	// identifier 1 comes around again after the cancelled packet
	require.NoError(t, feed(t, w, raw, 64))
	assert.Len(t, sink.failed, 1)
	assert.Len(t, sink.completed, protocol.Capacity+1)
}
