package clientpackets

import (
	"fmt"

	"github.com/l2emu/core/internal/gslistener/packet"
)

// maxPlayerInGameCount bounds PlayerInGame's account list against a
// corrupt/malicious length prefix.
const maxPlayerInGameCount = 10000

// PlayerInGame [0x02] reports the GS's full online-account roster, used to
// reconcile the LS's player registry after a GS (re)connects.
//
// Format: [opcode 0x02][count short][account UTF-16LE null-terminated]...
type PlayerInGame struct {
	Accounts []string
}

// Parse reads PlayerInGame's body (opcode already stripped).
func (p *PlayerInGame) Parse(body []byte) error {
	r := packet.NewReader(body)

	count, err := r.ReadShort()
	if err != nil {
		return fmt.Errorf("reading count: %w", err)
	}
	if count < 0 || count > maxPlayerInGameCount {
		return fmt.Errorf("invalid count: %d", count)
	}

	p.Accounts = make([]string, 0, count)
	for range count {
		account, err := r.ReadString()
		if err != nil {
			return fmt.Errorf("reading account: %w", err)
		}
		p.Accounts = append(p.Accounts, account)
	}
	return nil
}
