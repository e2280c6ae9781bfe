package packet_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/momentics/hioload-clink/api"
	"github.com/momentics/hioload-clink/core/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendPacketOpenIsIdempotent(t *testing.T) {
	p := packet.NewStringSendPacket("hello")
	assert.Equal(t, packet.TypeString, p.Type())
	assert.Equal(t, int64(5), p.Length())

	r1, err := p.Open()
	require.NoError(t, err)
	r2, err := p.Open()
	require.NoError(t, err)
	assert.Same(t, r1, r2)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	_, err = p.Open()
	assert.ErrorIs(t, err, packet.ErrPacketClosed)
}

func TestSendPacketCancelOnce(t *testing.T) {
	p := packet.NewBytesSendPacket([]byte{1, 2, 3})
	assert.False(t, p.IsCanceled())
	assert.True(t, p.Cancel())
	assert.False(t, p.Cancel())
	assert.True(t, p.IsCanceled())
}

func TestReceivePacketBuildsEntityOnClose(t *testing.T) {
	p := packet.NewStringReceivePacket(5, nil)
	w, err := p.Open()
	require.NoError(t, err)
	_, err = w.Write([]byte("hel"))
	require.NoError(t, err)
	_, err = w.Write([]byte("lo"))
	require.NoError(t, err)
	assert.Equal(t, "", p.Entity())

	require.NoError(t, p.Close())
	assert.Equal(t, "hello", p.Entity())

	// second close must not rebuild or reset the entity
	require.NoError(t, p.Close())
	assert.Equal(t, "hello", p.Entity())
}

func TestBytesReceivePacket(t *testing.T) {
	p := packet.NewBytesReceivePacket(3, []byte("meta"))
	w, err := p.Open()
	require.NoError(t, err)
	_, _ = w.Write([]byte{9, 8, 7})
	require.NoError(t, p.Close())
	assert.Equal(t, []byte{9, 8, 7}, p.Bytes())
	assert.Equal(t, []byte("meta"), p.HeaderInfo())
}

func TestFilePacketsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(src, []byte("file body"), 0o644))

	sp, err := packet.NewFileSendPacket(src)
	require.NoError(t, err)
	assert.Equal(t, packet.TypeFile, sp.Type())
	assert.Equal(t, int64(9), sp.Length())
	assert.Equal(t, []byte("notes.txt"), sp.HeaderInfo())

	r, err := sp.Open()
	require.NoError(t, err)

	dst := filepath.Join(dir, "out.bin")
	rp := packet.NewFileReceivePacket(sp.Length(), sp.HeaderInfo(), dst)
	w, err := rp.Open()
	require.NoError(t, err)
	_, err = io.Copy(w, r)
	require.NoError(t, err)
	require.NoError(t, sp.Close())
	require.NoError(t, rp.Close())

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "file body", string(got))
	assert.Equal(t, dst, rp.Entity())
	assert.Equal(t, "notes.txt", rp.Name())
}

func TestFileSendPacketMissingFile(t *testing.T) {
	_, err := packet.NewFileSendPacket(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

type closeRecorder struct {
	bytes.Buffer
	closed int
}

func (c *closeRecorder) Close() error {
	c.closed++
	return nil
}

func TestFileSendPacketLongNameKeepsRunes(t *testing.T) {
	// 253 bytes of three-byte runes: the 249-byte tail starts mid-rune
	name := strings.Repeat("€", 83) + ".bin"
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	p, err := packet.NewFileSendPacket(path)
	require.NoError(t, err)
	info := p.HeaderInfo()
	assert.True(t, utf8.Valid(info))
	assert.Equal(t, strings.Repeat("€", 81)+".bin", string(info))
}

func TestDirectPackets(t *testing.T) {
	sp := packet.NewDirectSendPacket(strings.NewReader("streamed-and-more"), 8, nil)
	r, err := sp.Open()
	require.NoError(t, err)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "streamed", string(body))

	sink := &closeRecorder{}
	rp := packet.NewDirectReceivePacket(8, nil, sink)
	w, err := rp.Open()
	require.NoError(t, err)
	_, _ = w.Write(body)
	require.NoError(t, rp.Close())
	require.NoError(t, rp.Close())
	assert.Equal(t, 1, sink.closed)
	assert.Equal(t, "streamed", sink.String())
}

func TestRegistry(t *testing.T) {
	dir := t.TempDir()
	reg := packet.DefaultRegistry(dir)

	p, err := reg.Create(packet.TypeString, 4, nil)
	require.NoError(t, err)
	assert.IsType(t, &packet.StringReceivePacket{}, p)

	p, err = reg.Create(packet.TypeDirect, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, packet.TypeDirect, p.Type())

	p, err = reg.Create(packet.TypeFile, 4, []byte("a.txt"))
	require.NoError(t, err)
	fp, ok := p.(*packet.FileReceivePacket)
	require.True(t, ok)
	assert.Equal(t, dir, filepath.Dir(fp.Path()))
	assert.True(t, strings.HasSuffix(fp.Path(), ".tmp"))

	_, err = reg.Create(99, 1, nil)
	assert.ErrorIs(t, err, api.ErrNotSupported)

	_, err = packet.DefaultRegistry("").Create(packet.TypeFile, 1, nil)
	assert.ErrorIs(t, err, api.ErrNotSupported)
}
