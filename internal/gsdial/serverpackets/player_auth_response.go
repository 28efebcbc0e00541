package serverpackets

import (
	"fmt"

	"github.com/l2emu/core/internal/gslistener/packet"
)

// PlayerAuthResponse [0x03] — LS's answer to this GS's PlayerAuthRequest.
type PlayerAuthResponse struct {
	Account string
	Success bool
}

// Parse parses a PlayerAuthResponse packet from body (opcode already stripped).
func (p *PlayerAuthResponse) Parse(body []byte) error {
	r := packet.NewReader(body)
	account, err := r.ReadString()
	if err != nil {
		return fmt.Errorf("reading account: %w", err)
	}
	p.Account = account

	result, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("reading result: %w", err)
	}
	p.Success = result != 0
	return nil
}
