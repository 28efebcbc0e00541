package gameserver

import "sync"

// BytePool recycles []byte buffers across connections so the per-packet
// read/write path doesn't hit the allocator on every frame.
type BytePool struct {
	slabs sync.Pool
}

// NewBytePool builds a pool whose freshly allocated slices start at
// defaultCap capacity.
func NewBytePool(defaultCap int) *BytePool {
	bp := &BytePool{}
	bp.slabs.New = func() any {
		return make([]byte, 0, defaultCap)
	}
	return bp
}

// Get returns a zeroed slice of exactly size bytes, reusing a pooled slab
// when one is large enough.
func (bp *BytePool) Get(size int) []byte {
	slab := bp.slabs.Get().([]byte)
	if cap(slab) < size {
		bp.slabs.Put(slab)
		return make([]byte, size)
	}
	slab = slab[:size]
	clear(slab)
	return slab
}

// Put returns b to the pool, truncated to zero length, for a future Get to
// reuse its backing array.
func (bp *BytePool) Put(b []byte) {
	if b == nil {
		return
	}
	bp.slabs.Put(b[:0])
}
