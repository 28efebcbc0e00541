package clientpackets

import (
	"fmt"

	"github.com/l2emu/core/internal/gameserver/packet"
)

// AuthLoginOpcode is sent once in ClientStateProtocolChosen to present the
// session key the LoginServer minted and forwarded via PlayerAuthRequest.
const AuthLoginOpcode = 0x08

// AuthLogin [0x08] — presents account name and the play_ok half of the
// session key for validation against what LS forwarded.
//
// Field order on the wire is play_key_2 then play_key_1 — preserved as
// observed in the source client; do not "fix" the ordering.
type AuthLogin struct {
	Account   string
	PlayOkID2 int32
	PlayOkID1 int32
	LoginOkID1 int32
	LoginOkID2 int32
}

// Parse parses an AuthLogin packet from body (opcode already stripped).
func (p *AuthLogin) Parse(body []byte) error {
	r := packet.NewReader(body)

	account, err := r.ReadString()
	if err != nil {
		return fmt.Errorf("reading account: %w", err)
	}
	p.Account = account

	playOk2, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading playOkID2: %w", err)
	}
	p.PlayOkID2 = playOk2

	playOk1, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading playOkID1: %w", err)
	}
	p.PlayOkID1 = playOk1

	loginOk1, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading loginOkID1: %w", err)
	}
	p.LoginOkID1 = loginOk1

	loginOk2, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading loginOkID2: %w", err)
	}
	p.LoginOkID2 = loginOk2

	return nil
}
