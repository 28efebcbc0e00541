package packet

import (
	"encoding/binary"
	"strconv"
	"testing"
	"unicode/utf16"
)

// utf16LEString encodes s as null-terminated UTF-16LE, the wire format every
// L2 string field uses.
func utf16LEString(s string) []byte {
	encoded := utf16.Encode([]rune(s))
	data := make([]byte, 0, len(encoded)*2+2)
	buf := make([]byte, 2)
	for _, unit := range encoded {
		binary.LittleEndian.PutUint16(buf, unit)
		data = append(data, buf...)
	}
	return append(data, 0, 0)
}

// BenchmarkReaderReadByte times reading single bytes, the hottest Reader call.
func BenchmarkReaderReadByte(b *testing.B) {
	b.ReportAllocs()

	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i % 256)
	}

	b.ResetTimer()
	for range b.N {
		r := NewReader(data)
		for range 100 {
			if _, err := r.ReadByte(); err != nil {
				b.Fatal(err)
			}
		}
	}
}

// BenchmarkReaderReadInt times reading int32 fields, used on almost every packet.
func BenchmarkReaderReadInt(b *testing.B) {
	b.ReportAllocs()

	data := make([]byte, 1024)
	for i := 0; i < len(data)/4; i++ {
		binary.LittleEndian.PutUint32(data[i*4:], uint32(i))
	}

	b.ResetTimer()
	for range b.N {
		r := NewReader(data)
		for range 50 {
			if _, err := r.ReadInt(); err != nil {
				b.Fatal(err)
			}
		}
	}
}

func BenchmarkReaderReadStringShort(b *testing.B) {
	b.ReportAllocs()

	data := utf16LEString("TestUser")

	b.ResetTimer()
	for range b.N {
		r := NewReader(data)
		if _, err := r.ReadString(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkReaderReadStringLong(b *testing.B) {
	b.ReportAllocs()

	data := utf16LEString("ThisIsAVeryLongAccountNameThatMightBeUsedInSomeEdgeCasesForTestingPurposesAndPerformanceAnalysisOf")

	b.ResetTimer()
	for range b.N {
		r := NewReader(data)
		if _, err := r.ReadString(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkReaderReadBytes(b *testing.B) {
	sizes := []int{16, 64, 256, 1024}

	for _, size := range sizes {
		b.Run("size="+strconv.Itoa(size), func(b *testing.B) {
			b.ReportAllocs()

			data := make([]byte, size*2)
			for i := range data {
				data[i] = byte(i % 256)
			}

			b.ResetTimer()
			for range b.N {
				r := NewReader(data)
				if _, err := r.ReadBytes(size); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkReaderMixedPacket mirrors an AuthLogin payload: account string
// followed by 8 int32 fields (SessionKey plus unused slots).
func BenchmarkReaderMixedPacket(b *testing.B) {
	b.ReportAllocs()

	data := utf16LEString("TestUser123")

	intBuf := make([]byte, 4)
	for i := 0; i < 8; i++ {
		binary.LittleEndian.PutUint32(intBuf, uint32(i+1))
		data = append(data, intBuf...)
	}

	b.ResetTimer()
	for range b.N {
		r := NewReader(data)

		if _, err := r.ReadString(); err != nil {
			b.Fatal(err)
		}

		for range 8 {
			if _, err := r.ReadInt(); err != nil {
				b.Fatal(err)
			}
		}
	}
}
