package clientpackets

import (
	"fmt"

	"github.com/l2emu/core/internal/gameserver/packet"
)

// EnterWorldOpcode is the final handshake packet; on success the session
// reaches ClientStateInGame.
const EnterWorldOpcode = 0x03

// EnterWorld [0x03] — commits to the selected character and carries the
// client's network-tracert diagnostic payload. Tracert content is opaque;
// the wire only requires it be read off so framing stays in sync.
type EnterWorld struct {
	Tracert [5]int32
}

// Parse parses an EnterWorld packet from body (opcode already stripped).
func (p *EnterWorld) Parse(body []byte) error {
	r := packet.NewReader(body)
	for i := range p.Tracert {
		v, err := r.ReadInt()
		if err != nil {
			return fmt.Errorf("reading tracert[%d]: %w", i, err)
		}
		p.Tracert[i] = v
	}
	return nil
}
