package testutil

import (
	"crypto/rsa"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"
	"net"
	"testing"

	"github.com/l2emu/core/internal/constants"
	"github.com/l2emu/core/internal/crypto"
	"github.com/l2emu/core/internal/login/serverpackets"
	"github.com/l2emu/core/internal/protocol"
)

// LoginClient stands in for an L2 client talking to the login server: it
// performs the Init handshake (static-key framing, RSA modulus exchange)
// then switches to dynamic-key framing for everything after, mirroring
// what internal/login/server.go does for real from the other side.
type LoginClient struct {
	t         *testing.T
	conn      net.Conn
	enc       *crypto.LoginEncryption
	sessionID int32
	pub       *rsa.PublicKey
	buf       []byte
}

// NewLoginClient dials addr and reads+decodes the server's Init packet.
func NewLoginClient(t *testing.T, addr string) (*LoginClient, error) {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	c := &LoginClient{t: t, conn: conn, buf: make([]byte, constants.DefaultSendBufSize*2)}

	payload, err := readStaticFramedPacket(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading Init: %w", err)
	}
	if len(payload) == 0 || payload[0] != serverpackets.InitOpcode {
		conn.Close()
		return nil, fmt.Errorf("expected Init, got %v", payload)
	}

	c.sessionID = int32(binary.LittleEndian.Uint32(payload[1:5]))
	scrambled := make([]byte, constants.RSA1024ModulusSize)
	copy(scrambled, payload[9:9+constants.RSA1024ModulusSize])
	modulus := crypto.UnscrambleModulus(scrambled)
	c.pub = &rsa.PublicKey{N: new(big.Int).SetBytes(modulus), E: constants.RSAPublicExponent}

	bfKey := make([]byte, constants.BlowfishKeySize)
	copy(bfKey, payload[169:169+constants.BlowfishKeySize])

	enc, err := crypto.NewLoginEncryption(bfKey)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating login encryption: %w", err)
	}
	c.enc = enc

	return c, nil
}

// readStaticFramedPacket reads one length-prefixed packet and decrypts it
// with the static-key + XOR-pass framing used only for Init.
func readStaticFramedPacket(r io.Reader) ([]byte, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	totalLen := int(binary.LittleEndian.Uint16(header[:]))
	payloadLen := totalLen - 2
	if payloadLen <= 0 {
		return nil, fmt.Errorf("invalid Init packet length: %d", totalLen)
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}

	staticCipher, err := crypto.NewBlowfishCipher(crypto.StaticBlowfishKey)
	if err != nil {
		return nil, fmt.Errorf("creating static blowfish cipher: %w", err)
	}
	if err := staticCipher.Decrypt(payload, 0, payloadLen); err != nil {
		return nil, fmt.Errorf("decrypting Init packet: %w", err)
	}
	crypto.DecXORPass(payload, 0, payloadLen)

	return payload, nil
}

// Close closes the underlying connection.
func (c *LoginClient) Close() error {
	return c.conn.Close()
}

func (c *LoginClient) send(body []byte) error {
	buf := make([]byte, len(body)+2+16)
	copy(buf[2:], body)
	n, err := c.enc.EncryptPacketClient(buf, 2, len(body))
	if err != nil {
		return fmt.Errorf("encrypting client packet: %w", err)
	}
	totalLen := 2 + n
	binary.LittleEndian.PutUint16(buf[:2], uint16(totalLen))
	_, err = c.conn.Write(buf[:totalLen])
	return err
}

func (c *LoginClient) readPacket() ([]byte, error) {
	return protocol.ReadPacket(c.conn, c.enc, c.buf)
}

// SendAuthGameGuard sends the AuthGameGuard (opcode 0x07) response carrying
// this connection's session ID.
func (c *LoginClient) SendAuthGameGuard() error {
	body := make([]byte, 20)
	body[0] = 0x07
	binary.LittleEndian.PutUint32(body[1:], uint32(c.sessionID))
	return c.send(body)
}

// ReadGGAuth reads and validates the GGAuth (opcode 0x0B) reply.
func (c *LoginClient) ReadGGAuth() error {
	data, err := c.readPacket()
	if err != nil {
		return err
	}
	if len(data) == 0 || data[0] != serverpackets.GGAuthOpcode {
		return fmt.Errorf("expected GGAuth, got %v", data)
	}
	return nil
}

// SendRequestAuthLogin RSA-encrypts account/password into the one-form
// 128-byte layout the login handler expects and sends RequestAuthLogin
// (opcode 0x00).
func (c *LoginClient) SendRequestAuthLogin(account, password string) error {
	plaintext := make([]byte, constants.RSA1024ModulusSize)
	copy(plaintext[constants.AuthLoginUsernameOffset:], []byte(account))
	copy(plaintext[constants.AuthLoginPasswordOffset:], []byte(password))

	encrypted, err := crypto.RSAEncryptNoPadding(c.pub, plaintext)
	if err != nil {
		return fmt.Errorf("RSA-encrypting credentials: %w", err)
	}

	body := make([]byte, 1+len(encrypted))
	body[0] = 0x00
	copy(body[1:], encrypted)
	return c.send(body)
}

// ReadLoginOk reads the LoginOk (opcode 0x03) reply and returns its two
// session-key halves.
func (c *LoginClient) ReadLoginOk() (int32, int32, error) {
	data, err := c.readPacket()
	if err != nil {
		return 0, 0, err
	}
	if len(data) == 0 {
		return 0, 0, fmt.Errorf("empty LoginOk reply")
	}
	if data[0] == serverpackets.LoginFailOpcode {
		reason := byte(0)
		if len(data) > 1 {
			reason = data[1]
		}
		return 0, 0, fmt.Errorf("login failed: reason 0x%02x", reason)
	}
	if data[0] != serverpackets.LoginOkOpcode {
		return 0, 0, fmt.Errorf("expected LoginOk, got opcode 0x%02x", data[0])
	}
	id1 := int32(binary.LittleEndian.Uint32(data[1:5]))
	id2 := int32(binary.LittleEndian.Uint32(data[5:9]))
	return id1, id2, nil
}

// SendRequestServerList sends RequestServerList (opcode 0x05) carrying the
// loginOk session-key pair.
func (c *LoginClient) SendRequestServerList(loginOkID1, loginOkID2 int32) error {
	body := make([]byte, 9)
	body[0] = 0x05
	binary.LittleEndian.PutUint32(body[1:], uint32(loginOkID1))
	binary.LittleEndian.PutUint32(body[5:], uint32(loginOkID2))
	return c.send(body)
}

// ServerListEntry is one game server entry decoded from ServerList.
type ServerListEntry struct {
	ID   byte
	IP   net.IP
	Port int32
}

// ReadServerList reads the ServerList (opcode 0x04) reply.
func (c *LoginClient) ReadServerList() ([]ServerListEntry, error) {
	data, err := c.readPacket()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || data[0] != serverpackets.ServerListOpcode {
		return nil, fmt.Errorf("expected ServerList, got %v", data)
	}
	count := int(data[1])
	off := 3
	entries := make([]ServerListEntry, 0, count)
	const entrySize = 21 // id(1) + ip(4) + port(4) + ageLimit(1) + pvp(1) + cur(2) + max(2) + status(1) + type(4) + brackets(1)
	for i := 0; i < count; i++ {
		if off+entrySize > len(data) {
			return nil, fmt.Errorf("ServerList truncated")
		}
		id := data[off]
		ip := net.IPv4(data[off+1], data[off+2], data[off+3], data[off+4])
		port := int32(binary.LittleEndian.Uint32(data[off+5 : off+9]))
		entries = append(entries, ServerListEntry{ID: id, IP: ip, Port: port})
		off += entrySize
	}
	return entries, nil
}

// SendRequestServerLogin sends RequestServerLogin (opcode 0x02) choosing
// serverID with the loginOk session-key pair.
func (c *LoginClient) SendRequestServerLogin(loginOkID1, loginOkID2 int32, serverID byte) error {
	body := make([]byte, 10)
	body[0] = 0x02
	binary.LittleEndian.PutUint32(body[1:], uint32(loginOkID1))
	binary.LittleEndian.PutUint32(body[5:], uint32(loginOkID2))
	body[9] = serverID
	return c.send(body)
}

// ReadPlayOk reads the PlayOk (opcode 0x07) reply and returns its two
// session-key halves.
func (c *LoginClient) ReadPlayOk() (int32, int32, error) {
	data, err := c.readPacket()
	if err != nil {
		return 0, 0, err
	}
	if len(data) == 0 {
		return 0, 0, fmt.Errorf("empty PlayOk reply")
	}
	if data[0] != serverpackets.PlayOkOpcode {
		return 0, 0, fmt.Errorf("expected PlayOk, got opcode 0x%02x", data[0])
	}
	id1 := int32(binary.LittleEndian.Uint32(data[1:5]))
	id2 := int32(binary.LittleEndian.Uint32(data[5:9]))
	return id1, id2, nil
}
