package clientpackets

import (
	"fmt"

	"github.com/l2emu/core/internal/gslistener/packet"
)

// GameServerAuth [0x01] — GS → LS registration request.
//
// Format (opcode already stripped):
//   [id byte]                  // desired server id
//   [acceptAlternate byte]     // 0x01 = accept a different free id if taken
//   [reserveHost byte]         // reserve this id even while not authed
//   [port uint16]
//   [maxPlayers uint32]
//   [hexLen uint32]
//   [hexId byte[hexLen]]
//   [hostPairs uint32]         // number of (subnet, ip) pairs that follow
//   repeat 2*hostPairs: NUL-terminated UTF-16LE string, alternating subnet/ip
type GameServerAuth struct {
	ID              byte
	AcceptAlternate bool
	ReserveHost     bool
	Port            int16
	MaxPlayers      int32
	HexID           []byte
	Hosts           []HostEntry
}

// HostEntry pairs a subnet CIDR with the IP advertised for clients inside it.
type HostEntry struct {
	Subnet string
	Host   string
}

// Parse parses a GameServerAuth packet from body (opcode already stripped).
func (p *GameServerAuth) Parse(body []byte) error {
	r := packet.NewReader(body)

	id, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("reading id: %w", err)
	}
	p.ID = id

	acceptAlt, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("reading acceptAlternate: %w", err)
	}
	p.AcceptAlternate = acceptAlt != 0

	reserveHost, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("reading reserveHost: %w", err)
	}
	p.ReserveHost = reserveHost != 0

	port, err := r.ReadShort()
	if err != nil {
		return fmt.Errorf("reading port: %w", err)
	}
	p.Port = port

	maxPlayers, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading maxPlayers: %w", err)
	}
	p.MaxPlayers = maxPlayers

	hexLen, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading hexLen: %w", err)
	}
	if hexLen < 0 || hexLen > 4096 {
		return fmt.Errorf("hexLen out of range: %d", hexLen)
	}
	hexID, err := r.ReadBytes(int(hexLen))
	if err != nil {
		return fmt.Errorf("reading hexId: %w", err)
	}
	p.HexID = hexID

	hostPairs, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading hostPairs: %w", err)
	}
	if hostPairs < 0 || hostPairs > 4096 {
		return fmt.Errorf("hostPairs out of range: %d", hostPairs)
	}

	hosts := make([]HostEntry, 0, hostPairs)
	for i := int32(0); i < hostPairs; i++ {
		subnet, err := r.ReadString()
		if err != nil {
			return fmt.Errorf("reading host subnet %d: %w", i, err)
		}
		host, err := r.ReadString()
		if err != nil {
			return fmt.Errorf("reading host ip %d: %w", i, err)
		}
		hosts = append(hosts, HostEntry{Subnet: subnet, Host: host})
	}
	p.Hosts = hosts

	return nil
}
