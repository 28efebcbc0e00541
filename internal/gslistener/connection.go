package gslistener

import (
	"fmt"
	"net"
	"sync"

	"github.com/l2emu/core/internal/constants"
	"github.com/l2emu/core/internal/crypto"
	"github.com/l2emu/core/internal/gameserver"
	"github.com/l2emu/core/internal/registry"
)

var gsSendPool = NewBytePool(constants.GSListenerSendBufSize)

// GSConnection represents one GameServer's connection to the LoginServer.
type GSConnection struct {
	conn       net.Conn
	ip         string
	rsaKeyPair *crypto.RSAKeyPair

	mu             sync.Mutex
	state          gameserver.GSConnectionState
	blowfishCipher *crypto.BlowfishCipher
	info           *registry.GameServerInfo // attached after auth
	accounts       map[string]struct{}      // online accounts, local cache mirroring the Player Registry

	writeMu sync.Mutex // serializes writes against the async broker path and the packet loop

	pendingMu     sync.Mutex
	pendingChars  []string // account names awaiting ReplyChars, FIFO
}

// NewGSConnection creates a connection tracker in GSStateInitial. initialKey
// seeds the Blowfish cipher until the GS sends its dynamic key; nil falls
// back to the static key every stock game server ships with.
func NewGSConnection(conn net.Conn, rsaKeyPair *crypto.RSAKeyPair, initialKey []byte) (*GSConnection, error) {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		host = conn.RemoteAddr().String()
	}

	if len(initialKey) == 0 {
		initialKey = crypto.DefaultGSBlowfishKey
	}
	cipher, err := crypto.NewBlowfishCipher(initialKey)
	if err != nil {
		return nil, fmt.Errorf("creating initial Blowfish cipher: %w", err)
	}

	return &GSConnection{
		conn:           conn,
		ip:             host,
		rsaKeyPair:     rsaKeyPair,
		state:          gameserver.GSStateInitial,
		blowfishCipher: cipher,
		accounts:       make(map[string]struct{}),
	}, nil
}

// IP returns the remote IP address.
func (c *GSConnection) IP() string {
	return c.ip
}

func (c *GSConnection) State() gameserver.GSConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *GSConnection) SetState(s gameserver.GSConnectionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func (c *GSConnection) BlowfishCipher() *crypto.BlowfishCipher {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blowfishCipher
}

func (c *GSConnection) SetBlowfishCipher(cipher *crypto.BlowfishCipher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blowfishCipher = cipher
}

func (c *GSConnection) RSAKeyPair() *crypto.RSAKeyPair {
	return c.rsaKeyPair
}

// AttachGameServerInfo binds the registry entry once GameServerAuth succeeds.
func (c *GSConnection) AttachGameServerInfo(info *registry.GameServerInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info = info
}

// GameServerInfo returns the bound registry entry, nil before auth.
func (c *GSConnection) GameServerInfo() *registry.GameServerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

func (c *GSConnection) AddAccount(account string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[account] = struct{}{}
}

func (c *GSConnection) RemoveAccount(account string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.accounts, account)
}

func (c *GSConnection) HasAccount(account string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.accounts[account]
	return ok
}

// Accounts returns a snapshot of this GS's locally-cached online accounts,
// used to tell the Player Registry which entries to drop on disconnect.
func (c *GSConnection) Accounts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.accounts))
	for a := range c.accounts {
		out = append(out, a)
	}
	return out
}

// PushPendingCharRequest records that a RequestChars for account has just
// been sent to this GS. ReplyChars carries no account field on the wire,
// so replies are matched to requests in FIFO order per
// connection — callers must push before calling broker.Ask/AskAll's send.
func (c *GSConnection) PushPendingCharRequest(account string) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	c.pendingChars = append(c.pendingChars, account)
}

// PopPendingCharRequest returns and removes the oldest pending account name,
// if any.
func (c *GSConnection) PopPendingCharRequest() (string, bool) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	if len(c.pendingChars) == 0 {
		return "", false
	}
	account := c.pendingChars[0]
	c.pendingChars = c.pendingChars[1:]
	return account, true
}

// Send implements broker.Sink: it frames payload as an LS→GS packet and
// writes it using the connection's current Blowfish cipher. writeMu keeps
// this safe to call concurrently with the connection's own packet loop,
// which is the point — broker-driven pushes (KickPlayer, RequestChars)
// happen on a goroutine other than the one reading this connection.
func (c *GSConnection) Send(payload []byte) error {
	buf := gsSendPool.Get(constants.GSListenerSendBufSize)
	defer gsSendPool.Put(buf)

	n := copy(buf[constants.PacketHeaderSize:], payload)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return WritePacket(c.conn, c.BlowfishCipher(), buf, n)
}
