package clientpackets

import (
	"fmt"

	"github.com/l2emu/core/internal/gslistener/packet"
)

// maxServerStatusAttrs bounds ServerStatus's attribute list against a
// corrupt/malicious length prefix.
const maxServerStatusAttrs = 100

// ServerStatus [0x06] pushes a GS's live status attributes to the LS — used
// for the server-select list's online/offline/bracket/age-limit display.
//
// Attribute IDs:
//
//	0x01 SERVER_LIST_STATUS    0x02 SERVER_TYPE
//	0x03 SQUARE_BRACKET        0x04 MAX_PLAYERS
//	0x05 TEST_SERVER           0x06 SERVER_AGE
//
// Format: [opcode 0x06][count int32]{[attributeID int32][value int32]}...
type ServerStatus struct {
	Attributes []Attribute
}

// Attribute is one (id, value) pair in a ServerStatus update.
type Attribute struct {
	ID    int32
	Value int32
}

// Parse reads ServerStatus's body (opcode already stripped).
func (p *ServerStatus) Parse(body []byte) error {
	r := packet.NewReader(body)

	count, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading count: %w", err)
	}
	if count < 0 || count > maxServerStatusAttrs {
		return fmt.Errorf("invalid count: %d", count)
	}

	p.Attributes = make([]Attribute, 0, count)
	for range count {
		id, err := r.ReadInt()
		if err != nil {
			return fmt.Errorf("reading attribute ID: %w", err)
		}
		value, err := r.ReadInt()
		if err != nil {
			return fmt.Errorf("reading attribute value: %w", err)
		}
		p.Attributes = append(p.Attributes, Attribute{ID: id, Value: value})
	}
	return nil
}
