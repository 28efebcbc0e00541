package login

import (
	"context"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/l2emu/core/internal/config"
	"github.com/l2emu/core/internal/crypto"
	"github.com/l2emu/core/internal/login/serverpackets"
	"github.com/l2emu/core/internal/model"
	"github.com/l2emu/core/internal/registry"
)

// stubAccountRepository is a hand-rolled AccountRepository double: each
// method falls back to a sane default when its Func field is left nil, so
// a test only needs to wire up the behavior it cares about.
type stubAccountRepository struct {
	GetAccountFunc         func(ctx context.Context, login string) (*model.Account, error)
	CreateAccountFunc      func(ctx context.Context, login, passwordHash, ip string) error
	GetOrCreateAccountFunc func(ctx context.Context, login, passwordHash, ip string) (*model.Account, error)
	UpdateLastLoginFunc    func(ctx context.Context, login, ip string) error
}

func (m *stubAccountRepository) GetAccount(ctx context.Context, login string) (*model.Account, error) {
	if m.GetAccountFunc != nil {
		return m.GetAccountFunc(ctx, login)
	}
	return nil, nil
}

func (m *stubAccountRepository) CreateAccount(ctx context.Context, login, passwordHash, ip string) error {
	if m.CreateAccountFunc != nil {
		return m.CreateAccountFunc(ctx, login, passwordHash, ip)
	}
	return nil
}

func (m *stubAccountRepository) GetOrCreateAccount(ctx context.Context, login, passwordHash, ip string) (*model.Account, error) {
	if m.GetOrCreateAccountFunc != nil {
		return m.GetOrCreateAccountFunc(ctx, login, passwordHash, ip)
	}
	return &model.Account{Login: login, PasswordHash: passwordHash}, nil
}

func (m *stubAccountRepository) UpdateLastLogin(ctx context.Context, login, ip string) error {
	if m.UpdateLastLoginFunc != nil {
		return m.UpdateLastLoginFunc(ctx, login, ip)
	}
	return nil
}

func authGameGuardPacket(sessionID int32) []byte {
	packet := make([]byte, 5)
	packet[0] = OpcodeAuthGameGuard
	binary.LittleEndian.PutUint32(packet[1:], uint32(sessionID))
	return packet
}

func newTestHandler() (*Handler, *Client) {
	handler := NewHandler(&stubAccountRepository{}, config.DefaultLoginServer(), NewSessionManager())
	rsaKeyPair, _ := crypto.GenerateRSAKeyPair()
	client := &Client{
		sessionID:  12345,
		rsaKeyPair: rsaKeyPair,
		state:      StateConnected,
		ip:         "127.0.0.1",
	}
	return handler, client
}

func TestHandlerAuthGameGuardAcceptsMatchingSessionID(t *testing.T) {
	handler, client := newTestHandler()
	buf := make([]byte, 1024)

	n, keepOpen, err := handler.HandlePacket(context.Background(), client, authGameGuardPacket(client.SessionID()), buf)

	require.NoError(t, err)
	require.True(t, keepOpen)
	require.NotZero(t, n, "expected a GGAuth response")
	require.Equal(t, StateAuthedGG, client.State())
	require.Equal(t, byte(0x0B), buf[0], "GGAuth opcode")
}

func TestHandlerAuthGameGuardRejectsMismatchedSessionID(t *testing.T) {
	handler, client := newTestHandler()
	buf := make([]byte, 1024)

	_, keepOpen, err := handler.HandlePacket(context.Background(), client, authGameGuardPacket(99999), buf)

	require.NoError(t, err)
	require.False(t, keepOpen, "mismatched session ID should close the connection")
	require.Equal(t, byte(0x01), buf[0], "LoginFail opcode")
	require.Equal(t, serverpackets.ReasonAccessFailed, buf[1])
}

func TestHandlerAuthGameGuardRejectsWrongState(t *testing.T) {
	handler, client := newTestHandler()
	client.state = StateAuthedGG
	buf := make([]byte, 1024)

	n, keepOpen, err := handler.HandlePacket(context.Background(), client, authGameGuardPacket(client.SessionID()), buf)

	require.NoError(t, err)
	require.False(t, keepOpen, "an out-of-order packet closes the connection")
	require.NotZero(t, n)
	require.Equal(t, byte(0x01), buf[0], "LoginFail opcode")
	require.Equal(t, serverpackets.ReasonAccessFailed, buf[1])
}

func TestStubAccountRepositoryGetAccount(t *testing.T) {
	expected := &model.Account{Login: "testuser", PasswordHash: "hash"}
	mock := &stubAccountRepository{
		GetAccountFunc: func(ctx context.Context, login string) (*model.Account, error) {
			if login == "testuser" {
				return expected, nil
			}
			return nil, fmt.Errorf("user not found")
		},
	}

	acc, err := mock.GetAccount(context.Background(), "testuser")

	require.NoError(t, err)
	require.Equal(t, "testuser", acc.Login)
}

func TestStubAccountRepositoryCreateAccount(t *testing.T) {
	var gotLogin, gotHash, gotIP string
	mock := &stubAccountRepository{
		CreateAccountFunc: func(ctx context.Context, login, passwordHash, ip string) error {
			gotLogin, gotHash, gotIP = login, passwordHash, ip
			return nil
		},
	}

	err := mock.CreateAccount(context.Background(), "newuser", "hashvalue", "192.168.1.1")

	require.NoError(t, err)
	require.Equal(t, "newuser", gotLogin)
	require.Equal(t, "hashvalue", gotHash)
	require.Equal(t, "192.168.1.1", gotIP)
}

func TestStubAccountRepositoryPropagatesDatabaseError(t *testing.T) {
	mock := &stubAccountRepository{
		GetAccountFunc: func(ctx context.Context, login string) (*model.Account, error) {
			return nil, fmt.Errorf("connection lost")
		},
	}

	acc, err := mock.GetAccount(context.Background(), "anyuser")

	require.Nil(t, acc)
	require.EqualError(t, err, "connection lost")
}


func TestWriteServerListPrefersRegistryState(t *testing.T) {
	handler, client := newTestHandler()
	client.state = StateAuthedLogin
	client.account = "admin"

	gsTable := registry.NewGSRegistry()
	info := registry.NewGameServerInfo(1, []byte{0xAA, 0xBB})
	info.SetAuthed(true)
	info.SetPort(7777)
	info.SetMaxPlayers(5000)
	hosts, err := registry.ParseHostEntries([]string{"10.0.0.0/24=10.0.0.1", "0.0.0.0/0=1.2.3.4"})
	require.NoError(t, err)
	info.SetHosts(hosts)
	require.True(t, gsTable.Register(1, info))
	handler.gsTable = gsTable

	players := registry.NewPlayerRegistry()
	require.True(t, players.OnPlayerLogin("admin", registry.SessionKey{}, func(string, int, bool) {}))
	require.True(t, players.UpdateChars(1, "admin", registry.CharsOnServer{TotalChars: 3}))
	handler.playerRegistry = players

	buf := make([]byte, 1024)
	n := handler.writeServerList(context.Background(), client, buf)
	require.Greater(t, n, 0)

	require.Equal(t, byte(serverpackets.ServerListOpcode), buf[0])
	require.Equal(t, byte(1), buf[1], "one registered server")
	require.Equal(t, byte(1), buf[3], "server id")
	// 127.0.0.1 matches neither LAN subnet, so the catch-all address wins.
	require.Equal(t, []byte{1, 2, 3, 4}, buf[4:8])
	require.Equal(t, uint32(7777), binary.LittleEndian.Uint32(buf[8:12]))

	// Trailer: 0xA4 marker then (id, charCount) pairs.
	entryEnd := 3 + 21
	require.Equal(t, uint16(0xA4), binary.LittleEndian.Uint16(buf[entryEnd:entryEnd+2]))
	require.Equal(t, byte(1), buf[entryEnd+2])
	require.Equal(t, byte(3), buf[entryEnd+3])
	require.Equal(t, entryEnd+4, n)
}

func TestWriteServerListOmitsUnknownCensus(t *testing.T) {
	handler, client := newTestHandler()
	client.state = StateAuthedLogin
	client.account = "admin"

	gsTable := registry.NewGSRegistry()
	info := registry.NewGameServerInfo(2, []byte{0x01})
	info.SetAuthed(true)
	require.True(t, gsTable.Register(2, info))
	handler.gsTable = gsTable

	buf := make([]byte, 1024)
	n := handler.writeServerList(context.Background(), client, buf)

	// No census arrived for server 2, so the char-count table stays empty:
	// just the entry block plus the 0xA4 marker.
	require.Equal(t, 3+21+2, n)
}

func TestWriteServerListFallsBackToConfig(t *testing.T) {
	handler, client := newTestHandler()
	client.state = StateAuthedLogin

	buf := make([]byte, 1024)
	n := handler.writeServerList(context.Background(), client, buf)
	require.Greater(t, n, 0)
	require.Equal(t, byte(serverpackets.ServerListOpcode), buf[0])
	require.Equal(t, byte(len(handler.cfg.GameServers)), buf[1])
}
