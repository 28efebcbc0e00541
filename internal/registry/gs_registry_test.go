package registry

import (
	"net"
	"testing"
)

func TestGameServerInfo_ResolveHost_NarrowestSubnetWins(t *testing.T) {
	hosts, err := ParseHostEntries([]string{
		"0.0.0.0/0=3.3.3.3",
		"10.0.0.0/24=1.1.1.1",
		"10.0.0.0/8=2.2.2.2",
	})
	if err != nil {
		t.Fatalf("ParseHostEntries: %v", err)
	}

	info := NewGameServerInfo(1, nil)
	info.SetHosts(hosts)

	cases := []struct {
		client string
		want   string
	}{
		{"10.0.0.5", "1.1.1.1"},
		{"10.5.0.5", "2.2.2.2"},
		{"8.8.8.8", "3.3.3.3"},
	}
	for _, c := range cases {
		got := info.ResolveHost(net.ParseIP(c.client))
		if !got.Equal(net.ParseIP(c.want)) {
			t.Errorf("ResolveHost(%s) = %v, want %s", c.client, got, c.want)
		}
	}
}

func TestGameServerInfo_ResolveHost_DefaultsToLoopback(t *testing.T) {
	info := NewGameServerInfo(1, nil)
	if got := info.ResolveHost(net.ParseIP("8.8.8.8")); !got.Equal(net.IPv4(127, 0, 0, 1)) {
		t.Errorf("ResolveHost with no hosts = %v, want 127.0.0.1", got)
	}

	hosts, err := ParseHostEntries([]string{"192.168.0.0/16=192.168.0.1"})
	if err != nil {
		t.Fatalf("ParseHostEntries: %v", err)
	}
	info.SetHosts(hosts)
	if got := info.ResolveHost(net.ParseIP("8.8.8.8")); !got.Equal(net.IPv4(127, 0, 0, 1)) {
		t.Errorf("ResolveHost outside every subnet = %v, want 127.0.0.1", got)
	}
}

func TestGSRegistry_Register_RejectsTakenID(t *testing.T) {
	r := NewGSRegistry()

	if !r.Register(1, NewGameServerInfo(1, []byte{0xAA})) {
		t.Fatal("first registration for a free id must succeed")
	}
	if r.Register(1, NewGameServerInfo(1, []byte{0xBB})) {
		t.Fatal("second registration for the same id must be rejected")
	}

	r.Remove(1)
	if !r.Register(1, NewGameServerInfo(1, []byte{0xBB})) {
		t.Fatal("registration after explicit removal must succeed")
	}
}

func TestGSRegistry_RegisterWithFirstAvailableID_SkipsTaken(t *testing.T) {
	r := NewGSRegistry()
	r.Register(1, NewGameServerInfo(1, nil))
	r.Register(2, NewGameServerInfo(2, nil))

	info := NewGameServerInfo(0, nil)
	id, ok := r.RegisterWithFirstAvailableID(info, 127)
	if !ok {
		t.Fatal("ids remain free, registration must succeed")
	}
	if id != 3 {
		t.Fatalf("assigned id = %d, want 3 (first free)", id)
	}
	if info.ID() != 3 {
		t.Fatalf("info.ID() = %d, want the assigned id", info.ID())
	}
}

func TestParseHostEntries_RejectsMalformed(t *testing.T) {
	for _, bad := range []string{"not-a-cidr=1.2.3.4", "10.0.0.0/8", "10.0.0.0/8=not-an-ip"} {
		if _, err := ParseHostEntries([]string{bad}); err == nil {
			t.Errorf("ParseHostEntries(%q) expected an error", bad)
		}
	}
}
