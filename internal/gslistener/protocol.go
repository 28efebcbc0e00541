package gslistener

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/l2emu/core/internal/constants"
	"github.com/l2emu/core/internal/crypto"
)

// WritePacket checksums and Blowfish-encrypts the payload already staged at
// buf[constants.PacketHeaderSize:constants.PacketHeaderSize+payloadLen],
// prefixes it with a little-endian length header, and writes the whole
// frame to w. buf must have room for header + payload + checksum +
// alignment padding.
func WritePacket(w io.Writer, cipher *crypto.BlowfishCipher, buf []byte, payloadLen int) error {
	minBufSize := constants.PacketHeaderSize + constants.PacketBufferPadding
	if payloadLen < 0 || payloadLen > len(buf)-minBufSize {
		return fmt.Errorf("invalid payload length: %d", payloadLen)
	}

	withChecksum := payloadLen + constants.PacketChecksumSize
	pad := (constants.PacketPaddingAlign - withChecksum%constants.PacketPaddingAlign) % constants.PacketPaddingAlign
	frameSize := withChecksum + pad

	crypto.AppendChecksum(buf, constants.PacketHeaderSize, frameSize)
	cipher.Encrypt(buf, constants.PacketHeaderSize, frameSize)

	totalSize := constants.PacketHeaderSize + frameSize
	binary.LittleEndian.PutUint16(buf[0:constants.PacketHeaderSize], uint16(totalSize))

	if _, err := w.Write(buf[0:totalSize]); err != nil {
		return fmt.Errorf("writing packet: %w", err)
	}
	return nil
}

// ReadPacket reads one length-prefixed frame from r into buf, decrypts it
// with cipher, verifies its trailing checksum, and returns the subslice of
// buf holding the payload with the checksum stripped; any alignment padding
// WritePacket added stays at the end of the returned slice.
func ReadPacket(r io.Reader, cipher *crypto.BlowfishCipher, buf []byte) ([]byte, error) {
	var header [constants.PacketHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("reading packet header: %w", err)
	}

	totalLen := binary.LittleEndian.Uint16(header[:])
	if totalLen < constants.PacketHeaderSize {
		return nil, fmt.Errorf("invalid packet length: %d", totalLen)
	}

	frameSize := int(totalLen) - constants.PacketHeaderSize
	if frameSize > len(buf) {
		return nil, fmt.Errorf("packet too large: %d bytes (buffer: %d)", frameSize, len(buf))
	}

	if _, err := io.ReadFull(r, buf[0:frameSize]); err != nil {
		return nil, fmt.Errorf("reading encrypted payload: %w", err)
	}

	cipher.Decrypt(buf, 0, frameSize)
	if !crypto.VerifyChecksum(buf, 0, frameSize) {
		return nil, fmt.Errorf("checksum verification failed")
	}

	payloadLen := frameSize - constants.PacketChecksumSize
	return buf[0:payloadLen], nil
}
