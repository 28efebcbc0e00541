package serverpackets

import "encoding/binary"

const PlayOkOpcode = 0x07

// PlayOk confirms the client's GSSelected choice with the PlayOk key pair
// the GS will validate via PlayerAuthRequest.
func PlayOk(buf []byte, playOkID1, playOkID2 int32) int {
	buf[0] = PlayOkOpcode
	binary.LittleEndian.PutUint32(buf[1:], uint32(playOkID1))
	binary.LittleEndian.PutUint32(buf[5:], uint32(playOkID2))
	return 9
}
