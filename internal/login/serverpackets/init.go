package serverpackets

import "encoding/binary"

const InitOpcode = 0x00

// protocolRevision is the LS protocol version this Init packet advertises.
const protocolRevision = 0x0000C621

// GameGuard constants the client expects verbatim in every Init packet —
// opaque to the server, just bytes the client's GG stub checks.
const (
	ggConst1 = 0x29DD954E
	ggConst2 = 0x77C39CFC
	ggConst3 = 0x97ADB620 // -0x685249E0 as uint32
	ggConst4 = 0x07BDE0F7
)

// Init writes the LS's opening handshake packet: session ID, protocol
// revision, the scrambled RSA modulus, the fixed GameGuard constants, and
// the dynamic Blowfish key the rest of the session will use.
func Init(buf []byte, sessionID int32, scrambledModulus, blowfishKey []byte) int {
	buf[0] = InitOpcode
	binary.LittleEndian.PutUint32(buf[1:], uint32(sessionID))
	binary.LittleEndian.PutUint32(buf[5:], protocolRevision)

	copy(buf[9:], scrambledModulus) // 128 bytes
	clear(buf[137:153])             // 16 bytes padding after modulus

	binary.LittleEndian.PutUint32(buf[153:], ggConst1)
	binary.LittleEndian.PutUint32(buf[157:], ggConst2)
	binary.LittleEndian.PutUint32(buf[161:], ggConst3)
	binary.LittleEndian.PutUint32(buf[165:], ggConst4)

	copy(buf[169:], blowfishKey) // 16 bytes
	buf[185] = 0x00

	return 186
}
