package clientpackets

import (
	"fmt"

	"github.com/l2emu/core/internal/gslistener/packet"
)

// PlayerLogout [0x05] tells the LS that account has left the GS's world, so
// its player-registry entry can drop its joined-GS flag.
//
// Format: [opcode 0x05][account UTF-16LE null-terminated]
type PlayerLogout struct {
	Account string
}

// Parse reads PlayerLogout's body (opcode already stripped).
func (p *PlayerLogout) Parse(body []byte) error {
	account, err := packet.NewReader(body).ReadString()
	if err != nil {
		return fmt.Errorf("reading account: %w", err)
	}
	p.Account = account
	return nil
}
