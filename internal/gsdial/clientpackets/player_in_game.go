package clientpackets

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/l2emu/core/internal/gslistener"
)

// PlayerInGame reports the accounts that just entered the world on this GS.
func PlayerInGame(buf []byte, accounts []string) int {
	pos := 0
	buf[pos] = gslistener.OpcodeGSPlayerInGame
	pos++

	binary.LittleEndian.PutUint16(buf[pos:], uint16(len(accounts)))
	pos += 2

	for _, account := range accounts {
		for _, r := range utf16.Encode([]rune(account)) {
			buf[pos] = byte(r)
			buf[pos+1] = byte(r >> 8)
			pos += 2
		}
		buf[pos] = 0
		buf[pos+1] = 0
		pos += 2
	}

	return pos
}
