package clientpackets

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/l2emu/core/internal/gslistener"
	"github.com/l2emu/core/internal/registry"
)

// PlayerAuthRequest asks the LS to validate a client's claimed session key
// after it connects to this GS with AuthLogin.
func PlayerAuthRequest(buf []byte, account string, key registry.SessionKey) int {
	pos := 0
	buf[pos] = gslistener.OpcodeGSPlayerAuthRequest
	pos++

	for _, r := range utf16.Encode([]rune(account)) {
		buf[pos] = byte(r)
		buf[pos+1] = byte(r >> 8)
		pos += 2
	}
	buf[pos] = 0
	buf[pos+1] = 0
	pos += 2

	binary.LittleEndian.PutUint32(buf[pos:], uint32(key.PlayOkID1))
	pos += 4
	binary.LittleEndian.PutUint32(buf[pos:], uint32(key.PlayOkID2))
	pos += 4
	binary.LittleEndian.PutUint32(buf[pos:], uint32(key.LoginOkID1))
	pos += 4
	binary.LittleEndian.PutUint32(buf[pos:], uint32(key.LoginOkID2))
	pos += 4

	return pos
}
