package serverpackets

import "encoding/binary"

const LoginOkOpcode = 0x03

// loginOkUnknownField is a fixed value the client expects at byte offset 17
// of LoginOk; every other reserved field in the packet is zero.
const loginOkUnknownField = 0x000003EA

// LoginOk confirms login/password acceptance with the LoginOk key pair the
// client must echo on every later login-channel request.
func LoginOk(buf []byte, loginOkID1, loginOkID2 int32) int {
	buf[0] = LoginOkOpcode
	binary.LittleEndian.PutUint32(buf[1:], uint32(loginOkID1))
	binary.LittleEndian.PutUint32(buf[5:], uint32(loginOkID2))
	clear(buf[9:17])
	binary.LittleEndian.PutUint32(buf[17:], loginOkUnknownField)
	clear(buf[21:49])
	return 49
}
