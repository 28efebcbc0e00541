package gameserver

import (
	"net"
	"testing"
)

// fakeAddrConn wraps net.Pipe's client side with a host:port RemoteAddr —
// net.Pipe's own "pipe" address fails net.SplitHostPort, which NewGameClient
// requires.
type fakeAddrConn struct {
	net.Conn
	remote net.Addr
}

func (f *fakeAddrConn) RemoteAddr() net.Addr { return f.remote }

func newTestConnPair(t *testing.T) net.Conn {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return &fakeAddrConn{
		Conn:   client,
		remote: &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5000},
	}
}

func TestNewClientManager(t *testing.T) {
	cm := NewClientManager()
	if cm == nil {
		t.Fatal("NewClientManager returned nil")
	}

	if cm.Count() != 0 {
		t.Errorf("Initial Count() = %d, want 0", cm.Count())
	}
}

func TestClientManager_Register_Unregister(t *testing.T) {
	cm := NewClientManager()

	client1, err := NewGameClient(newTestConnPair(t), make([]byte, 16), nil, 0, 0)
	if err != nil {
		t.Fatalf("NewGameClient: %v", err)
	}
	client1.SetAccountName("account1")

	client2, err := NewGameClient(newTestConnPair(t), make([]byte, 16), nil, 0, 0)
	if err != nil {
		t.Fatalf("NewGameClient: %v", err)
	}
	client2.SetAccountName("account2")

	cm.Register("account1", client1)
	if cm.Count() != 1 {
		t.Errorf("After register client1, Count() = %d, want 1", cm.Count())
	}

	cm.Register("account2", client2)
	if cm.Count() != 2 {
		t.Errorf("After register client2, Count() = %d, want 2", cm.Count())
	}

	got := cm.GetClient("account1")
	if got != client1 {
		t.Error("GetClient returned wrong client")
	}

	cm.Unregister("account1")
	if cm.Count() != 1 {
		t.Errorf("After unregister client1, Count() = %d, want 1", cm.Count())
	}

	got = cm.GetClient("account1")
	if got != nil {
		t.Error("GetClient should return nil after unregister")
	}
}

func TestClientManager_ForEachClient(t *testing.T) {
	cm := NewClientManager()

	for i := range 5 {
		client, err := NewGameClient(newTestConnPair(t), make([]byte, 16), nil, 0, 0)
		if err != nil {
			t.Fatalf("NewGameClient: %v", err)
		}
		accountName := "account" + string(rune('0'+i))
		client.SetAccountName(accountName)
		cm.Register(accountName, client)
	}

	count := 0
	cm.ForEachClient(func(c *GameClient) bool {
		count++
		return true
	})

	if count != 5 {
		t.Errorf("ForEachClient iterated %d clients, want 5", count)
	}

	count = 0
	cm.ForEachClient(func(c *GameClient) bool {
		count++
		return count < 3 // stop after 3
	})

	if count != 3 {
		t.Errorf("ForEachClient with early stop iterated %d clients, want 3", count)
	}
}

func TestClientManager_AccountNames(t *testing.T) {
	cm := NewClientManager()

	for i := range 3 {
		client, err := NewGameClient(newTestConnPair(t), make([]byte, 16), nil, 0, 0)
		if err != nil {
			t.Fatalf("NewGameClient: %v", err)
		}
		accountName := "account" + string(rune('0'+i))
		client.SetAccountName(accountName)
		cm.Register(accountName, client)
	}

	names := cm.AccountNames()
	if len(names) != 3 {
		t.Errorf("AccountNames() returned %d names, want 3", len(names))
	}
}
