package packet

import (
	"strconv"
	"testing"
)

// BenchmarkWriterWriteByte times writing single bytes, the hottest Writer call.
func BenchmarkWriterWriteByte(b *testing.B) {
	b.ReportAllocs()

	b.ResetTimer()
	for range b.N {
		w := NewWriter(1024)
		for range 100 {
			if err := w.WriteByte(0x42); err != nil {
				b.Fatal(err)
			}
		}
	}
}

// BenchmarkWriterWriteInt times writing int32 fields, used on almost every packet.
func BenchmarkWriterWriteInt(b *testing.B) {
	b.ReportAllocs()

	b.ResetTimer()
	for range b.N {
		w := NewWriter(1024)
		for range 50 {
			w.WriteInt(0x12345678)
		}
	}
}

func BenchmarkWriterWriteStringShort(b *testing.B) {
	b.ReportAllocs()

	str := "TestUser"

	b.ResetTimer()
	for range b.N {
		w := NewWriter(256)
		w.WriteString(str)
	}
}

func BenchmarkWriterWriteStringLong(b *testing.B) {
	b.ReportAllocs()

	str := "ThisIsAVeryLongAccountNameThatMightBeUsedInSomeEdgeCasesForTestingPurposesAndPerformanceAnalysisOf"

	b.ResetTimer()
	for range b.N {
		w := NewWriter(512)
		w.WriteString(str)
	}
}

func BenchmarkWriterWriteBytes(b *testing.B) {
	sizes := []int{16, 64, 256, 1024}

	for _, size := range sizes {
		b.Run("size="+strconv.Itoa(size), func(b *testing.B) {
			b.ReportAllocs()

			data := make([]byte, size)
			for i := range data {
				data[i] = byte(i % 256)
			}

			b.ResetTimer()
			for range b.N {
				w := NewWriter(size * 2)
				w.WriteBytes(data)
			}
		})
	}
}

// BenchmarkWriterMixedPacket mirrors a KeyPacket response: opcode + unknown byte + Blowfish key.
func BenchmarkWriterMixedPacket(b *testing.B) {
	b.ReportAllocs()

	key := make([]byte, 16)
	for i := range key {
		key[i] = byte(i + 1)
	}

	b.ResetTimer()
	for range b.N {
		w := NewWriter(256)

		if err := w.WriteByte(0x2E); err != nil {
			b.Fatal(err)
		}
		if err := w.WriteByte(0x01); err != nil {
			b.Fatal(err)
		}
		w.WriteBytes(key)
	}
}

// BenchmarkWriterReset times reusing a Writer via Reset between packets.
func BenchmarkWriterReset(b *testing.B) {
	b.ReportAllocs()

	w := NewWriter(256)

	b.ResetTimer()
	for range b.N {
		w.WriteInt(0x12345678)
		w.WriteString("TestUser")
		_ = w.Bytes()
		w.Reset()
	}
}

// BenchmarkWriterVsNewWriter compares reusing one Writer via Reset against
// allocating a fresh one per packet.
func BenchmarkWriterVsNewWriter(b *testing.B) {
	b.Run("NewWriter_each_time", func(b *testing.B) {
		b.ReportAllocs()

		b.ResetTimer()
		for range b.N {
			w := NewWriter(256)
			w.WriteInt(0x12345678)
			w.WriteString("TestUser")
			_ = w.Bytes()
		}
	})

	b.Run("Reset_reuse", func(b *testing.B) {
		b.ReportAllocs()

		w := NewWriter(256)

		b.ResetTimer()
		for range b.N {
			w.WriteInt(0x12345678)
			w.WriteString("TestUser")
			_ = w.Bytes()
			w.Reset()
		}
	})
}
