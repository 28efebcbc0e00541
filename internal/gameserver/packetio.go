package gameserver

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/l2emu/core/internal/crypto"
)

// writeGamePacket frames and XOR-encrypts a game-client packet.
// Precondition: the payload lives at buf[2 : 2+payloadLen].
func writeGamePacket(w io.Writer, gc *crypto.GameCrypt, buf []byte, payloadLen int) error {
	needed := 2 + payloadLen
	if len(buf) < needed {
		return fmt.Errorf("write game packet: buffer too small (need %d, have %d)", needed, len(buf))
	}

	gc.Encrypt(buf[2:needed])
	binary.LittleEndian.PutUint16(buf[:2], uint16(needed))

	if _, err := w.Write(buf[:needed]); err != nil {
		return fmt.Errorf("writing game packet: %w", err)
	}
	return nil
}

// readGamePacket reads one length-prefixed packet from r into buf and
// XOR-decrypts it in place. Returns the payload without the length header.
func readGamePacket(r io.Reader, gc *crypto.GameCrypt, buf []byte) ([]byte, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("reading game packet header: %w", err)
	}

	totalLen := int(binary.LittleEndian.Uint16(header[:]))
	if totalLen < 2 {
		return nil, fmt.Errorf("invalid game packet length: %d", totalLen)
	}

	payloadLen := totalLen - 2
	if payloadLen == 0 {
		return nil, fmt.Errorf("empty game packet")
	}
	if payloadLen > len(buf) {
		return nil, fmt.Errorf("game packet payload %d exceeds buffer size %d", payloadLen, len(buf))
	}

	payload := buf[:payloadLen]
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("reading game packet payload: %w", err)
	}

	gc.Decrypt(payload)
	return payload, nil
}
