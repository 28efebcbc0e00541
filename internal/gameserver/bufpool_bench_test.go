package gameserver

import (
	"testing"
)

// BenchmarkBytePoolGet times the pool's hot-path Get/Put round trip.
func BenchmarkBytePoolGet(b *testing.B) {
	b.ReportAllocs()

	pool := NewBytePool(1024)

	b.ResetTimer()
	for range b.N {
		buf := pool.Get(1024)
		pool.Put(buf)
	}
}

func BenchmarkBytePoolGetSmallBuffer(b *testing.B) {
	b.ReportAllocs()

	pool := NewBytePool(1024)

	b.ResetTimer()
	for range b.N {
		buf := pool.Get(256)
		pool.Put(buf)
	}
}

func BenchmarkBytePoolGetLargeBuffer(b *testing.B) {
	b.ReportAllocs()

	pool := NewBytePool(1024)

	b.ResetTimer()
	for range b.N {
		buf := pool.Get(8192)
		pool.Put(buf)
	}
}

// BenchmarkBytePoolGetExactCapacity requests exactly the pool's configured
// capacity, the best case for reuse.
func BenchmarkBytePoolGetExactCapacity(b *testing.B) {
	b.ReportAllocs()

	pool := NewBytePool(4096)

	b.ResetTimer()
	for range b.N {
		buf := pool.Get(4096)
		pool.Put(buf)
	}
}

// BenchmarkBytePoolVsMakeSlice compares pooled buffers against allocating fresh each time.
func BenchmarkBytePoolVsMakeSlice(b *testing.B) {
	b.Run("BytePool", func(b *testing.B) {
		b.ReportAllocs()

		pool := NewBytePool(1024)

		b.ResetTimer()
		for range b.N {
			buf := pool.Get(1024)
			for i := range buf {
				buf[i] = byte(i % 256)
			}
			pool.Put(buf)
		}
	})

	b.Run("make_each_time", func(b *testing.B) {
		b.ReportAllocs()

		b.ResetTimer()
		for range b.N {
			buf := make([]byte, 1024)
			for i := range buf {
				buf[i] = byte(i % 256)
			}
		}
	})
}

// BenchmarkBytePoolConcurrent exercises concurrent access, the realistic shape
// of multiple connections pulling buffers at once.
func BenchmarkBytePoolConcurrent(b *testing.B) {
	b.ReportAllocs()

	pool := NewBytePool(1024)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			buf := pool.Get(1024)
			for i := range buf {
				buf[i] = byte(i % 256)
			}
			pool.Put(buf)
		}
	})
}

func BenchmarkBytePoolConcurrentMixedSizes(b *testing.B) {
	b.ReportAllocs()

	pool := NewBytePool(2048)

	sizes := []int{256, 512, 1024, 2048, 4096}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			size := sizes[i%len(sizes)]
			buf := pool.Get(size)
			for j := range buf {
				buf[j] = byte(j % 256)
			}
			pool.Put(buf)
			i++
		}
	})
}
