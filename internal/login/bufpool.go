package login

import "sync"

// BytePool recycles []byte buffers across login-channel connections so the
// per-packet send/read path avoids allocating on every frame.
type BytePool struct {
	free sync.Pool
}

// NewBytePool builds a pool whose freshly allocated slices start at
// defaultCap capacity.
func NewBytePool(defaultCap int) *BytePool {
	bp := &BytePool{}
	bp.free.New = func() any {
		return make([]byte, 0, defaultCap)
	}
	return bp
}

// Get returns a zeroed slice of exactly size bytes, reusing a pooled one
// when it's large enough.
func (bp *BytePool) Get(size int) []byte {
	b := bp.free.Get().([]byte)
	if cap(b) < size {
		bp.free.Put(b)
		return make([]byte, size)
	}
	b = b[:size]
	clear(b)
	return b
}

// Put returns b to the pool, truncated to zero length.
func (bp *BytePool) Put(b []byte) {
	if b == nil {
		return
	}
	bp.free.Put(b[:0])
}
