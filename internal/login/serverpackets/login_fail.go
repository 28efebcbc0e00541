package serverpackets

const LoginFailOpcode = 0x01

// LoginFail reason codes the client renders as a localized message.
const (
	ReasonNoMessage            byte = 0x00
	ReasonSystemError          byte = 0x01
	ReasonUserOrPassWrong      byte = 0x02
	ReasonAccessFailedTryLater byte = 0x04
	ReasonAccountInfoIncorrect byte = 0x05
	ReasonNotAuthed            byte = 0x06
	ReasonAccountInUse         byte = 0x07
	ReasonServerOverloaded     byte = 0x0F
	ReasonServerMaintenance    byte = 0x10
	ReasonAccessFailed         byte = 0x15
	ReasonRestrictedIP         byte = 0x16
	ReasonDualBox              byte = 0x23
)

// LoginFail writes the LoginFail packet into buf and returns the byte count
// written.
func LoginFail(buf []byte, reason byte) int {
	buf[0] = LoginFailOpcode
	buf[1] = reason
	return 2
}
