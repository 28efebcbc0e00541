package clientpackets

import (
	"fmt"

	"github.com/l2emu/core/internal/gameserver/packet"
)

// SelectCharOpcode picks a character slot from the selection screen.
const SelectCharOpcode = 0x0D

// SelectChar [0x0D] — chooses a character slot to enter with.
type SelectChar struct {
	Slot int32
}

// Parse parses a SelectChar packet from body (opcode already stripped).
func (p *SelectChar) Parse(body []byte) error {
	r := packet.NewReader(body)
	slot, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading slot: %w", err)
	}
	p.Slot = slot
	return nil
}
