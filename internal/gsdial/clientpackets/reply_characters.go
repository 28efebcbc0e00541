package clientpackets

import (
	"encoding/binary"

	"github.com/l2emu/core/internal/gslistener"
)

// ReplyCharacters answers the LS's RequestCharacters with this account's
// character census. No account field is carried — replies are matched to
// requests in FIFO order by the LS side's GSConnection.
func ReplyCharacters(buf []byte, total int, deletionSchedule []int64) int {
	pos := 0
	buf[pos] = gslistener.OpcodeGSReplyCharacters
	pos++

	binary.LittleEndian.PutUint32(buf[pos:], uint32(total))
	pos += 4

	binary.LittleEndian.PutUint32(buf[pos:], uint32(len(deletionSchedule)))
	pos += 4

	for _, seconds := range deletionSchedule {
		binary.LittleEndian.PutUint64(buf[pos:], uint64(seconds))
		pos += 8
	}

	return pos
}
