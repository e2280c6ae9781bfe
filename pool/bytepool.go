// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>

package pool

// BytePool hands out fixed-size byte buffers.
type BytePool struct {
	pool *SyncPool[*[]byte]
	size int
}

// NewBytePool creates a pool of size-byte buffers.
func NewBytePool(size int) *BytePool {
	b := &BytePool{size: size}
	b.pool = NewSyncPoolReset(
		func() *[]byte {
			buf := make([]byte, size)
			return &buf
		},
		// foreign or resliced buffers are left to the GC
		func(buf *[]byte) bool { return buf != nil && cap(*buf) == size },
	)
	return b
}

// Size is the length of every buffer.
func (b *BytePool) Size() int { return b.size }

// GetBuffer returns a buffer of Size bytes. Contents are undefined.
func (b *BytePool) GetBuffer() *[]byte {
	buf := b.pool.Get()
	*buf = (*buf)[:b.size]
	return buf
}

// PutBuffer returns a buffer to the pool.
func (b *BytePool) PutBuffer(buf *[]byte) {
	b.pool.Put(buf)
}
