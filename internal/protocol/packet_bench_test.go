package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"testing"

	"github.com/l2emu/core/internal/constants"
	"github.com/l2emu/core/internal/crypto"
)

func benchKey() []byte {
	key := make([]byte, 16)
	for i := range key {
		key[i] = byte(i + 1)
	}
	return key
}

func benchPayload(size int) []byte {
	payload := make([]byte, size)
	payload[0] = 0x0E // ProtocolVersion opcode
	for i := 1; i < size; i++ {
		payload[i] = byte(i % 256)
	}
	return payload
}

// skipFirstPacketQuirk consumes the XOR-obfuscated Init packet so later calls
// to EncryptPacket use plain checksum encryption, as a game server connection does.
func skipFirstPacketQuirk(b *testing.B, enc *crypto.LoginEncryption) {
	b.Helper()
	dummy := make([]byte, 32)
	if _, err := enc.EncryptPacket(dummy, 0, 8); err != nil {
		b.Fatal(err)
	}
}

// BenchmarkReadPacketFull measures a full packet read with Blowfish decrypt across packet sizes.
func BenchmarkReadPacketFull(b *testing.B) {
	sizes := []int{64, 128, 256, 512, 1024}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("size=%d", size), func(b *testing.B) {
			b.ReportAllocs()

			key := benchKey()
			payload := benchPayload(size)

			encForPrep, err := crypto.NewLoginEncryption(key)
			if err != nil {
				b.Fatal(err)
			}
			skipFirstPacketQuirk(b, encForPrep)

			buf := make([]byte, size+constants.PacketBufferPadding)
			copy(buf, payload)
			encSize, err := encForPrep.EncryptPacket(buf, 0, size)
			if err != nil {
				b.Fatal(err)
			}

			packetData := make([]byte, constants.PacketHeaderSize+encSize)
			binary.LittleEndian.PutUint16(packetData[:constants.PacketHeaderSize], uint16(constants.PacketHeaderSize+encSize))
			copy(packetData[constants.PacketHeaderSize:], buf[:encSize])

			readBuf := make([]byte, 8192)

			b.SetBytes(int64(size))
			b.ResetTimer()

			for range b.N {
				// Fresh cipher state each iteration avoids rolling-key pollution across runs.
				enc, err := crypto.NewLoginEncryption(key)
				if err != nil {
					b.Fatal(err)
				}
				skipFirstPacketQuirk(b, enc)

				reader := &replayReader{data: packetData}

				_, err = ReadPacket(reader, enc, readBuf)
				if err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkWritePacketFull measures a full packet write with Blowfish encrypt across packet sizes.
func BenchmarkWritePacketFull(b *testing.B) {
	sizes := []int{64, 128, 256, 512, 1024}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("size=%d", size), func(b *testing.B) {
			b.ReportAllocs()

			key := benchKey()
			payload := benchPayload(size)
			writer := &discardWriter{}

			b.SetBytes(int64(size))
			b.ResetTimer()

			for range b.N {
				enc, err := crypto.NewLoginEncryption(key)
				if err != nil {
					b.Fatal(err)
				}
				skipFirstPacketQuirk(b, enc)

				buf := make([]byte, constants.PacketHeaderSize+size+constants.PacketBufferPadding)
				copy(buf[constants.PacketHeaderSize:], payload)

				if err := WritePacket(writer, enc, buf, size); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkRoundTripPacket measures a full write-then-read cycle end to end.
func BenchmarkRoundTripPacket(b *testing.B) {
	sizes := []int{128, 256, 512}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("size=%d", size), func(b *testing.B) {
			b.ReportAllocs()

			key := benchKey()
			payload := benchPayload(size)

			b.SetBytes(int64(size))
			b.ResetTimer()

			for range b.N {
				encWrite, err := crypto.NewLoginEncryption(key)
				if err != nil {
					b.Fatal(err)
				}
				encRead, err := crypto.NewLoginEncryption(key)
				if err != nil {
					b.Fatal(err)
				}

				skipFirstPacketQuirk(b, encWrite)
				skipFirstPacketQuirk(b, encRead)

				writeBuf := make([]byte, constants.PacketHeaderSize+size+constants.PacketBufferPadding)
				copy(writeBuf[constants.PacketHeaderSize:], payload)
				writer := &bytes.Buffer{}

				if err := WritePacket(writer, encWrite, writeBuf, size); err != nil {
					b.Fatal(err)
				}

				reader := bytes.NewReader(writer.Bytes())
				readBuf := make([]byte, 8192)

				_, err = ReadPacket(reader, encRead, readBuf)
				if err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// replayReader is a minimal io.Reader over a fixed byte slice, for benchmarks.
type replayReader struct {
	data []byte
	pos  int
}

func (r *replayReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

// discardWriter is a minimal io.Writer that drops everything written to it.
type discardWriter struct{}

func (w *discardWriter) Write(p []byte) (int, error) {
	return len(p), nil
}
