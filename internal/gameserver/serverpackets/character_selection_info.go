package serverpackets

import (
	"github.com/l2emu/core/internal/db"
	"github.com/l2emu/core/internal/gameserver/packet"
)

// CharacterSelectionInfoOpcode lists the account's characters once AuthLogin succeeds.
const CharacterSelectionInfoOpcode = 0x09

// CharacterSelectionInfo writes the character-selection list into buf using
// the package's pooled Writer. Only the fields the wire's selection screen
// actually needs are populated — deep character state (inventory, skills,
// appearance) is out of scope.
func CharacterSelectionInfo(buf []byte, chars []db.CharacterSummary) int {
	w := packet.Get()
	defer w.Put()

	w.WriteByte(CharacterSelectionInfoOpcode)
	w.WriteInt(int32(len(chars)))
	for _, c := range chars {
		w.WriteString(c.Name)
		w.WriteInt(c.Slot)
		w.WriteInt(int32(c.Level))
		w.WriteInt(int32(c.ClassID))
	}

	return copy(buf, w.Bytes())
}
