// Package gsdial is this game server's outbound connection to the login
// server: the GS-side mirror of internal/gslistener's LS-side acceptor.
// It performs the InitLS→BlowFish→GameServerAuth handshake, then serves a
// steady-state loop answering RequestCharacters/KickPlayer and brokering
// PlayerAuthRequest/PlayerAuthResponse for the client-facing handler.
package gsdial

import (
	"context"
	cryptorand "crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"sync"

	"github.com/l2emu/core/internal/broker"
	"github.com/l2emu/core/internal/config"
	"github.com/l2emu/core/internal/constants"
	"github.com/l2emu/core/internal/crypto"
	"github.com/l2emu/core/internal/gsdial/clientpackets"
	"github.com/l2emu/core/internal/gsdial/serverpackets"
	"github.com/l2emu/core/internal/gslistener"
	"github.com/l2emu/core/internal/registry"
)

const lsPeerID = "ls"

// blowfishKeySize is the length of the fresh Blowfish key this GS generates
// and hands to the LS during the handshake (matches the LS side's
// "last 40 bytes of the RSA-decrypted block" convention).
const blowfishKeySize = 40

// rsaBlockSize is the RSA-512 modulus size in bytes; BlowFishKey's
// plaintext block is padded out to it before encryption.
const rsaBlockSize = constants.RSA512ModulusSize

// CharacterSource answers RequestCharacters with an account's character
// census: total character count and the per-character seconds-until-
// deletion schedule for any pending deletions.
type CharacterSource interface {
	CharacterCensus(ctx context.Context, account string) (total int, deletionSchedule []int64, err error)
}

// Kicker force-disconnects a locally-connected client by account name, in
// response to a KickPlayer push from the LS.
type Kicker func(account string)

// Client is this GS's connection to the LS.
type Client struct {
	cfg config.GameServer

	conn net.Conn

	mu             sync.Mutex
	state          connState
	blowfishCipher *crypto.BlowfishCipher

	writeMu sync.Mutex

	sendPool *gslistener.BytePool
	readPool *gslistener.BytePool

	authBroker *broker.Broker[string]
	authReg    *lsRegistry

	chars  CharacterSource
	onKick Kicker
}

// New creates an unconnected Client. Dial starts the handshake.
func New(cfg config.GameServer, chars CharacterSource, onKick Kicker) *Client {
	c := &Client{
		cfg:      cfg,
		state:    stateInitial,
		sendPool: gslistener.NewBytePool(constants.GSListenerSendBufSize),
		readPool: gslistener.NewBytePool(constants.GSListenerReadBufSize),
		chars:    chars,
		onKick:   onKick,
	}
	c.authReg = &lsRegistry{sink: c}
	c.authBroker = broker.New[string](c.authReg, constants.BrokerRequestTimeout)
	return c
}

func (c *Client) State() connState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s connState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func (c *Client) cipher() *crypto.BlowfishCipher {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blowfishCipher
}

func (c *Client) setCipher(cipher *crypto.BlowfishCipher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blowfishCipher = cipher
}

// Send implements broker.Sink: frames payload as a GS→LS packet using the
// connection's current Blowfish cipher.
func (c *Client) Send(payload []byte) error {
	buf := c.sendPool.Get(constants.GSListenerSendBufSize)
	defer c.sendPool.Put(buf)

	n := copy(buf[constants.PacketHeaderSize:], payload)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return gslistener.WritePacket(c.conn, c.cipher(), buf, n)
}

// Run dials the LS, performs the handshake, and serves the steady-state
// read loop until ctx is cancelled or the connection is lost.
func (c *Client) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", c.cfg.LoginHost, c.cfg.LoginPort)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dialing login server at %s: %w", addr, err)
	}
	c.conn = conn
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	cipher, err := crypto.NewBlowfishCipher(crypto.DefaultGSBlowfishKey)
	if err != nil {
		return fmt.Errorf("creating initial Blowfish cipher: %w", err)
	}
	c.setCipher(cipher)

	if err := c.handshake(); err != nil {
		return fmt.Errorf("GS-LS handshake: %w", err)
	}

	slog.Info("connected to login server", "address", addr, "state", c.State())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := c.readDispatch(ctx); err != nil {
				return fmt.Errorf("GS-LS read loop: %w", err)
			}
		}
	}
}

func (c *Client) handshake() error {
	readBuf := c.readPool.Get(constants.GSListenerReadBufSize)
	defer c.readPool.Put(readBuf)

	data, err := gslistener.ReadPacket(c.conn, c.cipher(), readBuf)
	if err != nil {
		return fmt.Errorf("reading InitLS: %w", err)
	}
	if len(data) == 0 || data[0] != gslistener.OpcodeLSInitLS {
		return fmt.Errorf("expected InitLS, got opcode 0x%02x", firstByte(data))
	}
	var initLS serverpackets.InitLS
	if err := initLS.Parse(data[1:]); err != nil {
		return fmt.Errorf("parsing InitLS: %w", err)
	}
	c.setState(stateConnected)

	newKey := make([]byte, blowfishKeySize)
	if _, err := cryptorand.Read(newKey); err != nil {
		return fmt.Errorf("generating Blowfish key: %w", err)
	}

	pub := rsaPublicKeyFromModulus(initLS.Modulus)
	plaintext := make([]byte, rsaBlockSize)
	copy(plaintext[rsaBlockSize-blowfishKeySize:], newKey)
	encrypted, err := crypto.RSAEncryptNoPadding(pub, plaintext)
	if err != nil {
		return fmt.Errorf("RSA-encrypting Blowfish key: %w", err)
	}

	if err := c.sendHandshake(func(buf []byte) int {
		return clientpackets.BlowFishKey(buf, encrypted)
	}); err != nil {
		return fmt.Errorf("sending BlowFishKey: %w", err)
	}

	newCipher, err := crypto.NewBlowfishCipher(newKey)
	if err != nil {
		return fmt.Errorf("creating negotiated Blowfish cipher: %w", err)
	}
	c.setCipher(newCipher)
	c.setState(stateBFConnected)

	hexID, err := decodeHexID(c.cfg.HexID)
	if err != nil {
		return fmt.Errorf("decoding hex_id: %w", err)
	}
	hosts := make([]clientpackets.HostPair, 0, len(c.cfg.Hosts))
	for _, h := range c.cfg.Hosts {
		hosts = append(hosts, clientpackets.HostPair{Subnet: h.Subnet, IP: h.IP})
	}
	if err := c.sendHandshake(func(buf []byte) int {
		return clientpackets.GameServerAuth(buf, byte(c.cfg.ServerID), true, false, c.cfg.MaxOnline, c.cfg.Port, hexID, hosts)
	}); err != nil {
		return fmt.Errorf("sending GameServerAuth: %w", err)
	}

	data, err = gslistener.ReadPacket(c.conn, c.cipher(), readBuf)
	if err != nil {
		return fmt.Errorf("reading auth reply: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("empty auth reply")
	}
	switch data[0] {
	case gslistener.OpcodeLSAuthResponse:
		var resp serverpackets.AuthResponse
		if err := resp.Parse(data[1:]); err != nil {
			return fmt.Errorf("parsing AuthResponse: %w", err)
		}
		c.setState(stateRegistered)
		slog.Info("registered with login server", "server_id", resp.ServerID, "server_name", resp.ServerName)
		return nil
	case gslistener.OpcodeLSLoginServerFail:
		var fail serverpackets.LoginServerFail
		if err := fail.Parse(data[1:]); err != nil {
			return fmt.Errorf("parsing LoginServerFail: %w", err)
		}
		return fmt.Errorf("login server rejected registration: reason 0x%02x", fail.Reason)
	default:
		return fmt.Errorf("unexpected opcode 0x%02x in auth reply", data[0])
	}
}

// sendHandshake encodes one handshake packet via encode and writes it
// synchronously — the handshake has no concurrent writers yet, so it
// bypasses writeMu/Send's pooled buffer path for simplicity.
func (c *Client) sendHandshake(encode func(buf []byte) int) error {
	buf := c.sendPool.Get(constants.GSListenerSendBufSize)
	defer c.sendPool.Put(buf)
	n := encode(buf[constants.PacketHeaderSize:])
	return gslistener.WritePacket(c.conn, c.cipher(), buf, n)
}

func (c *Client) readDispatch(ctx context.Context) error {
	readBuf := c.readPool.Get(constants.GSListenerReadBufSize)
	defer c.readPool.Put(readBuf)

	data, err := gslistener.ReadPacket(c.conn, c.cipher(), readBuf)
	if err != nil {
		return err
	}
	return c.handle(ctx, data)
}

func firstByte(data []byte) byte {
	if len(data) == 0 {
		return 0
	}
	return data[0]
}

func decodeHexID(s string) ([]byte, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex_id %q: %w", s, err)
	}
	out := make([]byte, 32)
	copy(out, raw)
	return out, nil
}

// rsaPublicKeyFromModulus reconstructs the LS's RSA-512 public key from the
// raw modulus InitLS carries; the GS↔LS channel always uses exponent 65537.
func rsaPublicKeyFromModulus(modulus []byte) *rsa.PublicKey {
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(modulus),
		E: constants.RSAPublicExponent,
	}
}

// PlayerAuthRequest asks the LS to validate account's claimed session key,
// blocking until PlayerAuthResponse arrives or the broker times out.
func (c *Client) PlayerAuthRequest(ctx context.Context, account string, key registry.SessionKey) (bool, error) {
	reply, err := c.authBroker.Ask(ctx, lsPeerID, account, encodePlayerAuthRequest(account, key))
	if err != nil {
		return false, err
	}
	if reply == nil {
		return false, fmt.Errorf("login server did not answer PlayerAuthRequest for %q in time", account)
	}
	resp, ok := reply.Body.(serverpackets.PlayerAuthResponse)
	if !ok {
		return false, fmt.Errorf("unexpected reply type for PlayerAuthRequest")
	}
	return resp.Success, nil
}

func encodePlayerAuthRequest(account string, key registry.SessionKey) []byte {
	buf := make([]byte, constants.GSListenerSendBufSize)
	n := clientpackets.PlayerAuthRequest(buf, account, key)
	return buf[:n]
}

// NotifyPlayerInGame reports accounts that just entered the world.
func (c *Client) NotifyPlayerInGame(accounts []string) error {
	buf := make([]byte, constants.GSListenerSendBufSize)
	n := clientpackets.PlayerInGame(buf, accounts)
	return c.Send(buf[:n])
}

// NotifyPlayerLogout reports that account just left the world.
func (c *Client) NotifyPlayerLogout(account string) error {
	buf := make([]byte, constants.GSListenerSendBufSize)
	n := clientpackets.PlayerLogout(buf, account)
	return c.Send(buf[:n])
}
