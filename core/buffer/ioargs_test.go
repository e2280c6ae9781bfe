// File: core/buffer/ioargs_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package buffer

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillCycle(t *testing.T) {
	a := NewIoArgsSize(8)
	a.Limit(5)
	a.StartWriting()
	assert.Equal(t, 5, a.Remaining())
	n := a.ReadFrom([]byte("abcdefgh"), 1, 8)
	assert.Equal(t, 5, n)
	assert.False(t, a.Remained())
	a.FinishWriting()
	assert.Equal(t, "bcdef", a.BufferString())

	dst := make([]byte, 3)
	assert.Equal(t, 3, a.WriteTo(dst, 0))
	assert.Equal(t, "bcd", string(dst))
	assert.Equal(t, "ef", string(a.Bytes()))
}

func TestLimitIsCapped(t *testing.T) {
	a := NewIoArgsSize(4)
	a.Limit(100)
	a.StartWriting()
	assert.Equal(t, 4, a.Remaining())
	a.Limit(-1)
	a.StartWriting()
	assert.Zero(t, a.Remaining())
	assert.Equal(t, DefaultCapacity, NewIoArgs().Capacity())
}

func TestReaderTransfers(t *testing.T) {
	a := NewIoArgsSize(4)
	a.StartWriting()
	n, err := a.ReadFromReader(strings.NewReader("xyz"))
	assert.Equal(t, 3, n)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	a.FinishWriting()

	var out bytes.Buffer
	n, err = a.WriteToN(&out, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = a.WriteToWriter(&out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "xyz", out.String())
}

func TestFillEmpty(t *testing.T) {
	a := NewIoArgsSize(4)
	a.StartWriting()
	a.ReadFrom([]byte{9}, 0, 1)
	assert.Equal(t, 3, a.FillEmpty(10))
	a.FinishWriting()
	assert.Equal(t, []byte{9, 0, 0, 0}, a.Bytes())
}

func TestLengthPrefix(t *testing.T) {
	a := NewIoArgs()
	a.WriteLength(0x01020304)
	assert.Equal(t, []byte{1, 2, 3, 4}, a.Bytes())
	assert.Equal(t, 0x01020304, a.ReadLength())
	assert.Equal(t, -1, a.ReadLength())
}
