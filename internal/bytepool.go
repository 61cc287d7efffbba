package internal

import "sync"

// BytePool recycles encoding buffers.
// Buffers that grew beyond maxSize are dropped instead of pooled.
type BytePool struct {
	pool    sync.Pool
	maxSize int
}

func NewBytePool(initialSize, maxSize int) *BytePool {
	return &BytePool{
		pool: sync.Pool{
			New: func() any {
				b := make([]byte, 0, initialSize)
				return &b
			},
		},
		maxSize: maxSize,
	}
}

// Get returns an empty buffer.
func (p *BytePool) Get() *[]byte {
	b := p.pool.Get().(*[]byte)
	*b = (*b)[:0]
	return b
}

func (p *BytePool) Put(b *[]byte) {
	if cap(*b) > p.maxSize {
		return
	}
	p.pool.Put(b)
}
