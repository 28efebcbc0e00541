package clientpackets

import (
	"fmt"

	"github.com/l2emu/core/internal/gslistener/packet"
	"github.com/l2emu/core/internal/login"
)

// PlayerAuthRequest [0x07] asks the LS to validate a player's session key
// before the GS admits them into the world — the GS↔LS leg of the
// single-login handshake.
//
// Format:
//
//	[opcode 0x07]
//	[account UTF-16LE null-terminated]
//	[playOkID1 int32][playOkID2 int32]
//	[loginOkID1 int32][loginOkID2 int32]
type PlayerAuthRequest struct {
	Account    string
	SessionKey login.SessionKey
}

// Parse reads PlayerAuthRequest's body (opcode already stripped).
func (p *PlayerAuthRequest) Parse(body []byte) error {
	r := packet.NewReader(body)

	account, err := r.ReadString()
	if err != nil {
		return fmt.Errorf("reading account: %w", err)
	}

	playOkID1, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading playOkID1: %w", err)
	}
	playOkID2, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading playOkID2: %w", err)
	}
	loginOkID1, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading loginOkID1: %w", err)
	}
	loginOkID2, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading loginOkID2: %w", err)
	}

	p.Account = account
	p.SessionKey = login.SessionKey{
		LoginOkID1: loginOkID1,
		LoginOkID2: loginOkID2,
		PlayOkID1:  playOkID1,
		PlayOkID2:  playOkID2,
	}
	return nil
}
