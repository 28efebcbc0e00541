package serverpackets

import "encoding/binary"

// KeyPacketOpcode — first packet sent to a freshly accepted game client,
// in plaintext (GameCrypt is not yet enabled).
const KeyPacketOpcode = 0x2E

// KeyPacket writes the handshake packet carrying the XOR game-crypt key
// into buf. Returns the number of bytes written.
func KeyPacket(buf []byte, blowfishKey []byte) int {
	buf[0] = KeyPacketOpcode
	buf[1] = 1 // protocol OK

	copy(buf[2:18], blowfishKey) // 16 bytes

	binary.LittleEndian.PutUint32(buf[18:], 0x29DD954E) // GG constants, unused w/o GameGuard
	binary.LittleEndian.PutUint32(buf[22:], 0x77C39CFC)
	binary.LittleEndian.PutUint32(buf[26:], 0x97ADB620)
	binary.LittleEndian.PutUint32(buf[30:], 0x07BDE0F7)
	buf[34] = 0 // GameGuard not required

	return 35
}
