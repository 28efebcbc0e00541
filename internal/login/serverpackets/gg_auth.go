package serverpackets

import "encoding/binary"

const GGAuthOpcode = 0x0B

// GGAuth writes the GGAuth response: the session ID echoed back followed by
// four reserved zero fields the client ignores.
func GGAuth(buf []byte, sessionID int32) int {
	buf[0] = GGAuthOpcode
	binary.LittleEndian.PutUint32(buf[1:], uint32(sessionID))
	clear(buf[5:21])
	return 21
}
