package serverpackets

import (
	"fmt"

	"github.com/l2emu/core/internal/gslistener/packet"
)

// AuthResponse [0x02] — LS confirms this GS's registration.
type AuthResponse struct {
	ServerID   byte
	ServerName string
}

// Parse parses an AuthResponse packet from body (opcode already stripped).
func (p *AuthResponse) Parse(body []byte) error {
	r := packet.NewReader(body)
	id, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("reading serverID: %w", err)
	}
	p.ServerID = id

	name, err := r.ReadString()
	if err != nil {
		return fmt.Errorf("reading serverName: %w", err)
	}
	p.ServerName = name
	return nil
}

// LoginServerFail [0x01] — LS rejects this GS's registration.
type LoginServerFail struct {
	Reason byte
}

// Parse parses a LoginServerFail packet from body (opcode already stripped).
func (p *LoginServerFail) Parse(body []byte) error {
	if len(body) < 1 {
		return fmt.Errorf("LoginServerFail too short")
	}
	p.Reason = body[0]
	return nil
}
