package serverpackets

import "github.com/l2emu/core/internal/gameserver/packet"

// UserInfoOpcode is pushed right after EnterWorld succeeds; the client uses
// it to paint the local player. Full character appearance/stats are
// in-world gameplay state and out of scope — only the identity fields the
// handshake itself needs are populated.
const UserInfoOpcode = 0x04

// UserInfo writes a minimal post-EnterWorld identity packet into buf.
func UserInfo(buf []byte, objectID int32, name string) int {
	w := packet.Get()
	defer w.Put()

	w.WriteByte(UserInfoOpcode)
	w.WriteInt(objectID)
	w.WriteString(name)

	return copy(buf, w.Bytes())
}
