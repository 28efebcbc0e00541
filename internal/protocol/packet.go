package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"

	"github.com/l2emu/core/internal/crypto"
)

const (
	headerSize     = 2
	encryptSlack   = 16 // covers the padding + checksum overhead of a checksummed frame (at most 11 bytes); the first, XOR-passed frame EncryptPacket produces can reach 23 bytes past the payload
	minFrameLength = 2
)

// The first headerSize bytes of every login-channel frame hold its
// little-endian length prefix, ahead of the (possibly encrypted) body.

// WritePacket encrypts the payload staged at buf[headerSize:headerSize+payloadLen]
// in place, prefixes it with its little-endian length, and writes the frame to w.
func WritePacket(w io.Writer, enc *crypto.LoginEncryption, buf []byte, payloadLen int) error {
	limit := headerSize + payloadLen + encryptSlack
	if len(buf) < limit {
		return fmt.Errorf("write packet: buffer too small (need %d, have %d)", limit, len(buf))
	}
	clear(buf[headerSize+payloadLen : limit])

	encSize, err := enc.EncryptPacket(buf, headerSize, payloadLen)
	if err != nil {
		return fmt.Errorf("encrypting packet: %w", err)
	}

	frameLen := headerSize + encSize
	binary.LittleEndian.PutUint16(buf[:headerSize], uint16(frameLen))

	if _, err := w.Write(buf[:frameLen]); err != nil {
		return fmt.Errorf("writing packet: %w", err)
	}
	return nil
}

// ReadPacket reads one length-prefixed frame from r, decrypts it in place, and
// returns the payload as a subslice of buf (header stripped).
func ReadPacket(r io.Reader, enc *crypto.LoginEncryption, buf []byte) ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("reading packet header: %w", err)
	}

	frameLen := int(binary.LittleEndian.Uint16(header[:]))
	if frameLen < minFrameLength {
		return nil, fmt.Errorf("invalid packet length: %d", frameLen)
	}

	payloadLen := frameLen - headerSize
	if payloadLen == 0 {
		return nil, fmt.Errorf("empty packet")
	}
	if payloadLen > len(buf) {
		return nil, fmt.Errorf("packet payload %d exceeds buffer size %d", payloadLen, len(buf))
	}

	payload := buf[:payloadLen]
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("reading packet payload: %w", err)
	}

	checksumOK, err := enc.DecryptPacket(payload, 0, payloadLen)
	if err != nil {
		return nil, fmt.Errorf("decrypting packet: %w", err)
	}
	if !checksumOK {
		slog.Warn("packet checksum verification failed")
	}

	return payload, nil
}
