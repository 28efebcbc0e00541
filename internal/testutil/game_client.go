package testutil

import (
	"encoding/binary"
	"fmt"
	"net"
	"testing"
	"unicode/utf16"

	"github.com/l2emu/core/internal/crypto"
	gsclientpackets "github.com/l2emu/core/internal/gameserver/clientpackets"
	"github.com/l2emu/core/internal/login"
)

// GameClient stands in for an L2 client talking to the game server: it
// reads the plaintext KeyPacket handshake, then switches to the rolling
// XOR GameCrypt cipher for everything after, mirroring the wire format
// internal/gameserver/packetio.go implements from the server side.
type GameClient struct {
	t      *testing.T
	conn   net.Conn
	crypt  *crypto.GameCrypt
	buf    []byte
}

// NewGameClient dials addr and reads the server's KeyPacket.
func NewGameClient(t *testing.T, addr string) (*GameClient, error) {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	c := &GameClient{t: t, conn: conn, crypt: crypto.NewGameCrypt(), buf: make([]byte, 8192)}

	data, err := c.readRaw()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading KeyPacket: %w", err)
	}
	if len(data) < 18 || data[0] != 0x2E {
		conn.Close()
		return nil, fmt.Errorf("expected KeyPacket, got %v", data)
	}
	bfKey := make([]byte, 16)
	copy(bfKey, data[2:18])
	c.crypt.SetKey(bfKey)

	return c, nil
}

// Encryption reports whether the GameCrypt cipher is set up (always true
// once NewGameClient returns, kept for parity with the test suite's
// nil-check style).
func (c *GameClient) Encryption() *crypto.GameCrypt {
	return c.crypt
}

// Close closes the underlying connection.
func (c *GameClient) Close() error {
	return c.conn.Close()
}

func (c *GameClient) readRaw() ([]byte, error) {
	var header [2]byte
	if _, err := readFull(c.conn, header[:]); err != nil {
		return nil, err
	}
	totalLen := int(binary.LittleEndian.Uint16(header[:]))
	payloadLen := totalLen - 2
	if payloadLen <= 0 || payloadLen > len(c.buf) {
		return nil, fmt.Errorf("invalid game packet length: %d", totalLen)
	}
	payload := c.buf[:payloadLen]
	if _, err := readFull(c.conn, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// ReadPacket reads and XOR-decrypts one packet.
func (c *GameClient) ReadPacket() ([]byte, error) {
	payload, err := c.readRaw()
	if err != nil {
		return nil, err
	}
	c.crypt.Decrypt(payload)
	return payload, nil
}

func (c *GameClient) sendPacket(body []byte) error {
	buf := make([]byte, 2+len(body))
	copy(buf[2:], body)
	c.crypt.Encrypt(buf[2:])
	binary.LittleEndian.PutUint16(buf[:2], uint16(len(buf)))
	_, err := c.conn.Write(buf)
	return err
}

// SendProtocolVersion sends ProtocolVersion (opcode 0x00) announcing
// revision.
func (c *GameClient) SendProtocolVersion(revision int32) error {
	body := make([]byte, 5)
	body[0] = gsclientpackets.ProtocolVersionOpcode
	binary.LittleEndian.PutUint32(body[1:], uint32(revision))
	return c.sendPacket(body)
}

// SendAuthLogin sends AuthLogin (opcode 0x08) presenting account and the
// play_ok half of key, per the wire's play_key_2-then-play_key_1 ordering.
func (c *GameClient) SendAuthLogin(account string, key login.SessionKey) error {
	body := make([]byte, 1+2*(len(account)+1)+16)
	pos := 0
	body[pos] = gsclientpackets.AuthLoginOpcode
	pos++
	for _, r := range utf16.Encode([]rune(account)) {
		body[pos] = byte(r)
		body[pos+1] = byte(r >> 8)
		pos += 2
	}
	body[pos] = 0
	body[pos+1] = 0
	pos += 2

	binary.LittleEndian.PutUint32(body[pos:], uint32(key.PlayOkID2))
	pos += 4
	binary.LittleEndian.PutUint32(body[pos:], uint32(key.PlayOkID1))
	pos += 4
	binary.LittleEndian.PutUint32(body[pos:], uint32(key.LoginOkID1))
	pos += 4
	binary.LittleEndian.PutUint32(body[pos:], uint32(key.LoginOkID2))
	pos += 4

	return c.sendPacket(body[:pos])
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
