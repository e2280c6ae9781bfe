// Author: momentics <momentics@gmail.com>

package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytePoolSize(t *testing.T) {
	p := NewBytePool(128)
	buf := p.GetBuffer()
	require.NotNil(t, buf)
	assert.Len(t, *buf, 128)

	*buf = (*buf)[:3]
	p.PutBuffer(buf)
	again := p.GetBuffer()
	assert.Len(t, *again, 128)
}

func TestBytePoolDropsForeignBuffers(t *testing.T) {
	p := NewBytePool(16)
	foreign := make([]byte, 4)
	p.PutBuffer(&foreign)
	p.PutBuffer(nil)
	assert.Len(t, *p.GetBuffer(), 16)
}

func TestSyncPoolReset(t *testing.T) {
	created := 0
	sp := NewSyncPoolReset(func() []int {
		created++
		return make([]int, 0, 4)
	}, func(s []int) bool { return cap(s) == 4 })
	s := sp.Get()
	assert.Equal(t, 1, created)
	sp.Put(append(s, 1, 2, 3, 4, 5))
	_ = sp.Get()
	assert.GreaterOrEqual(t, created, 1)
}
