package testutil

import (
	cryptorand "crypto/rand"
	"crypto/rsa"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"net"
	"testing"

	"github.com/l2emu/core/internal/constants"
	"github.com/l2emu/core/internal/crypto"
	"github.com/l2emu/core/internal/gslistener"
	gsclientpackets "github.com/l2emu/core/internal/gsdial/clientpackets"
	gsserverpackets "github.com/l2emu/core/internal/gsdial/serverpackets"
	"github.com/l2emu/core/internal/login"
	"github.com/l2emu/core/internal/registry"
)

// GSClient stands in for a game server dialing the login server's GS↔LS
// listener. It mirrors the handshake gsdial.Client performs for real,
// reusing the same wire-level encode/decode helpers.
type GSClient struct {
	t         *testing.T
	conn      net.Conn
	cipher    *crypto.BlowfishCipher
	buf       []byte
	lsModulus []byte
}

// NewGSClient dials addr and reads the initial InitLS packet, leaving the
// connection on the static Blowfish key until SendBlowFishKey negotiates
// a fresh one.
func NewGSClient(t *testing.T, addr string) (*GSClient, error) {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	cipher, err := crypto.NewBlowfishCipher(crypto.DefaultGSBlowfishKey)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating static blowfish cipher: %w", err)
	}

	c := &GSClient{
		t:      t,
		conn:   conn,
		cipher: cipher,
		buf:    make([]byte, constants.GSListenerReadBufSize),
	}

	data, err := c.read()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading InitLS: %w", err)
	}
	if len(data) == 0 || data[0] != gslistener.OpcodeLSInitLS {
		conn.Close()
		return nil, fmt.Errorf("expected InitLS, got %v", data)
	}
	var initLS gsserverpackets.InitLS
	if err := initLS.Parse(data[1:]); err != nil {
		conn.Close()
		return nil, fmt.Errorf("parsing InitLS: %w", err)
	}
	c.lsModulus = initLS.Modulus

	return c, nil
}

func (c *GSClient) read() ([]byte, error) {
	return gslistener.ReadPacket(c.conn, c.cipher, c.buf)
}

func (c *GSClient) write(n int) error {
	return gslistener.WritePacket(c.conn, c.cipher, c.buf, n)
}

// Close closes the underlying connection.
func (c *GSClient) Close() {
	_ = c.conn.Close()
}

// SendBlowFishKey RSA-encrypts a fresh Blowfish key against the LS's
// InitLS modulus and switches this connection's cipher to it once sent.
func (c *GSClient) SendBlowFishKey(bfKey []byte) error {
	pub := &rsa.PublicKey{N: new(big.Int).SetBytes(c.lsModulus), E: constants.RSAPublicExponent}
	plaintext := make([]byte, constants.RSA512ModulusSize)
	copy(plaintext[constants.RSA512ModulusSize-len(bfKey):], bfKey)
	encrypted, err := crypto.RSAEncryptNoPadding(pub, plaintext)
	if err != nil {
		return fmt.Errorf("RSA-encrypting blowfish key: %w", err)
	}

	buf := make([]byte, constants.GSListenerSendBufSize)
	n := gsclientpackets.BlowFishKey(buf[constants.PacketHeaderSize:], encrypted)
	copy(c.buf, buf)
	if err := c.write(n); err != nil {
		return fmt.Errorf("sending BlowFishKey: %w", err)
	}

	newCipher, err := crypto.NewBlowfishCipher(bfKey)
	if err != nil {
		return fmt.Errorf("creating negotiated cipher: %w", err)
	}
	c.cipher = newCipher
	return nil
}

// CompleteRegistration runs the full BlowFishKey→GameServerAuth handshake
// and expects an AuthResponse back.
func (c *GSClient) CompleteRegistration(serverID byte, hexID string) error {
	bfKey := make([]byte, 40)
	if _, err := cryptorand.Read(bfKey); err != nil {
		return fmt.Errorf("generating blowfish key: %w", err)
	}
	if err := c.SendBlowFishKey(bfKey); err != nil {
		return err
	}
	if err := c.SendGameServerAuth(serverID, hexID, true); err != nil {
		return err
	}

	data, err := c.read()
	if err != nil {
		return fmt.Errorf("reading auth reply: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("empty auth reply")
	}
	switch data[0] {
	case gslistener.OpcodeLSAuthResponse:
		var resp gsserverpackets.AuthResponse
		return resp.Parse(data[1:])
	case gslistener.OpcodeLSLoginServerFail:
		var fail gsserverpackets.LoginServerFail
		if err := fail.Parse(data[1:]); err != nil {
			return err
		}
		return fmt.Errorf("login server rejected registration: reason 0x%02x", fail.Reason)
	default:
		return fmt.Errorf("unexpected opcode 0x%02x in auth reply", data[0])
	}
}

// SendGameServerAuth sends the GameServerAuth registration request.
func (c *GSClient) SendGameServerAuth(serverID byte, hexID string, acceptAlternate bool) error {
	raw, err := hex.DecodeString(hexID)
	if err != nil {
		return fmt.Errorf("invalid hexID %q: %w", hexID, err)
	}
	hexBytes := make([]byte, 32)
	copy(hexBytes, raw)

	buf := make([]byte, constants.GSListenerSendBufSize)
	n := gsclientpackets.GameServerAuth(buf[constants.PacketHeaderSize:], serverID, acceptAlternate, false, 5000, 7777, hexBytes, nil)
	copy(c.buf, buf)
	return c.write(n)
}

// ReadLoginServerFail reads a single packet and expects it to be a
// LoginServerFail, returning its reason code.
func (c *GSClient) ReadLoginServerFail() (byte, error) {
	data, err := c.read()
	if err != nil {
		return 0, err
	}
	if len(data) == 0 || data[0] != gslistener.OpcodeLSLoginServerFail {
		return 0, fmt.Errorf("expected LoginServerFail, got %v", data)
	}
	var fail gsserverpackets.LoginServerFail
	if err := fail.Parse(data[1:]); err != nil {
		return 0, err
	}
	return fail.Reason, nil
}

// SendPlayerAuthRequest asks the LS to validate account's session key.
func (c *GSClient) SendPlayerAuthRequest(account string, key login.SessionKey) error {
	buf := make([]byte, constants.GSListenerSendBufSize)
	n := gsclientpackets.PlayerAuthRequest(buf[constants.PacketHeaderSize:], account, registry.SessionKey{
		LoginOkID1: key.LoginOkID1,
		LoginOkID2: key.LoginOkID2,
		PlayOkID1:  key.PlayOkID1,
		PlayOkID2:  key.PlayOkID2,
	})
	copy(c.buf, buf)
	return c.write(n)
}

// ReadPlayerAuthResponse reads the LS's reply to PlayerAuthRequest.
func (c *GSClient) ReadPlayerAuthResponse() (string, bool, error) {
	data, err := c.read()
	if err != nil {
		return "", false, err
	}
	if len(data) == 0 || data[0] != gslistener.OpcodeLSPlayerAuthResponse {
		return "", false, fmt.Errorf("expected PlayerAuthResponse, got %v", data)
	}
	var resp gsserverpackets.PlayerAuthResponse
	if err := resp.Parse(data[1:]); err != nil {
		return "", false, err
	}
	return resp.Account, resp.Success, nil
}

// SendPlayerInGame reports account as having just entered the world.
func (c *GSClient) SendPlayerInGame(account string) error {
	buf := make([]byte, constants.GSListenerSendBufSize)
	n := gsclientpackets.PlayerInGame(buf[constants.PacketHeaderSize:], []string{account})
	copy(c.buf, buf)
	return c.write(n)
}

// SendPlayerLogout reports account as having just left the world.
func (c *GSClient) SendPlayerLogout(account string) error {
	buf := make([]byte, constants.GSListenerSendBufSize)
	n := gsclientpackets.PlayerLogout(buf[constants.PacketHeaderSize:], account)
	copy(c.buf, buf)
	return c.write(n)
}

// SendServerStatus pushes a ServerStatus attribute update. serverID is
// unused on the wire (the LS correlates by connection, not payload) but
// kept in the signature for call-site symmetry with the other Send* methods.
func (c *GSClient) SendServerStatus(_ byte, attributes map[int]int32) error {
	buf := make([]byte, constants.GSListenerSendBufSize)
	body := buf[constants.PacketHeaderSize:]
	pos := 0
	body[pos] = gslistener.OpcodeGSServerStatus
	pos++
	binary.LittleEndian.PutUint32(body[pos:], uint32(len(attributes)))
	pos += 4
	for id, value := range attributes {
		binary.LittleEndian.PutUint32(body[pos:], uint32(id))
		pos += 4
		binary.LittleEndian.PutUint32(body[pos:], uint32(value))
		pos += 4
	}
	copy(c.buf, buf)
	return c.write(pos)
}
