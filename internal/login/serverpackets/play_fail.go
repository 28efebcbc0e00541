package serverpackets

const PlayFailOpcode = 0x06

// PlayFail writes the PlayFail packet into buf and returns the byte count
// written — sent when a client's chosen server-list entry can't be joined.
func PlayFail(buf []byte, reason byte) int {
	buf[0] = PlayFailOpcode
	buf[1] = reason
	return 2
}
