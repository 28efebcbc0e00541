package serverpackets

import "encoding/binary"

const AccountKickedOpcode = 0x02

// AccountKicked reason codes — why the LS force-disconnected a client
// rather than simply rejecting a login.
const (
	ReasonDataStealer       int32 = 0x01
	ReasonGenericViolation  int32 = 0x08
	Reason7DaysSuspended    int32 = 0x10
	ReasonPermanentlyBanned int32 = 0x20
)

// AccountKicked writes the AccountKicked packet into buf and returns the
// byte count written.
func AccountKicked(buf []byte, reason int32) int {
	buf[0] = AccountKickedOpcode
	binary.LittleEndian.PutUint32(buf[1:], uint32(reason))
	return 5
}
