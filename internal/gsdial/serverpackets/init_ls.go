// Package serverpackets decodes the packets the login server sends to this
// game server over the GS↔LS channel — the mirror image of
// gslistener/serverpackets, which encodes the same wire shapes from the LS
// side.
package serverpackets

import (
	"encoding/binary"
	"fmt"

	"github.com/l2emu/core/internal/constants"
)

// InitLS [0x00] — first packet the LS sends, carrying its RSA-512 modulus
// in the clear (no scrambling on the GS↔LS channel).
type InitLS struct {
	Revision int32
	Modulus  []byte
}

// Parse parses an InitLS packet from body (opcode already stripped).
func (p *InitLS) Parse(body []byte) error {
	if len(body) < 8+constants.RSA512ModulusSize {
		return fmt.Errorf("InitLS too short: got %d bytes", len(body))
	}
	p.Revision = int32(binary.LittleEndian.Uint32(body[0:4]))
	keySize := int(binary.LittleEndian.Uint32(body[4:8]))
	if keySize != constants.RSA512ModulusSize {
		return fmt.Errorf("InitLS: unexpected modulus size %d", keySize)
	}
	p.Modulus = make([]byte, constants.RSA512ModulusSize)
	copy(p.Modulus, body[8:8+constants.RSA512ModulusSize])
	return nil
}
