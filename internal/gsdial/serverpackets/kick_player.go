package serverpackets

import (
	"fmt"

	"github.com/l2emu/core/internal/gslistener/packet"
)

// KickPlayer [0x04] — LS orders this GS to force-disconnect an account.
type KickPlayer struct {
	Account string
}

// Parse parses a KickPlayer packet from body (opcode already stripped).
func (p *KickPlayer) Parse(body []byte) error {
	r := packet.NewReader(body)
	account, err := r.ReadString()
	if err != nil {
		return fmt.Errorf("reading account: %w", err)
	}
	p.Account = account
	return nil
}

// RequestCharacters [0x05] — LS asks this GS for an account's character
// census; answered with clientpackets.ReplyCharacters.
type RequestCharacters struct {
	Account string
}

// Parse parses a RequestCharacters packet from body (opcode already stripped).
func (p *RequestCharacters) Parse(body []byte) error {
	r := packet.NewReader(body)
	account, err := r.ReadString()
	if err != nil {
		return fmt.Errorf("reading account: %w", err)
	}
	p.Account = account
	return nil
}
