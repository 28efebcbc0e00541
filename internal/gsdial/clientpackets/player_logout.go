package clientpackets

import (
	"unicode/utf16"

	"github.com/l2emu/core/internal/gslistener"
)

// PlayerLogout reports that account just left the world on this GS.
func PlayerLogout(buf []byte, account string) int {
	pos := 0
	buf[pos] = gslistener.OpcodeGSPlayerLogout
	pos++

	for _, r := range utf16.Encode([]rune(account)) {
		buf[pos] = byte(r)
		buf[pos+1] = byte(r >> 8)
		pos += 2
	}
	buf[pos] = 0
	buf[pos+1] = 0
	pos += 2

	return pos
}
