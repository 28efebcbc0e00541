package clientpackets

import (
	"fmt"

	"github.com/l2emu/core/internal/gameserver/packet"
)

// ProtocolVersionOpcode is the first packet a game client sends, before any encryption is active.
const ProtocolVersionOpcode = 0x00

// ProtocolVersion [0x00] — announces the client's protocol revision.
type ProtocolVersion struct {
	Version int32
}

// Parse parses a ProtocolVersion packet from body (opcode already stripped).
func (p *ProtocolVersion) Parse(body []byte) error {
	r := packet.NewReader(body)
	v, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading version: %w", err)
	}
	p.Version = v
	return nil
}
