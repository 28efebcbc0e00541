package serverpackets

import (
	"encoding/binary"

	"github.com/l2emu/core/internal/constants"
)

const opcodeInitLS = 0x00

// InitLS [0x00] is the first packet the LS sends a GS right after accept,
// carrying the RSA-512 public modulus the GS will use to wrap its chosen
// Blowfish key in BlowFishKey. Unlike the client-facing Init, this modulus
// is sent raw — no byte scrambling, since the GS side isn't the obfuscated
// client protocol.
//
// Format:
//
//	[opcodeInitLS][revision int32 LE][keySize int32 LE]
//	[rsaModulus constants.RSA512ModulusSize bytes]
//
// Returns: number of bytes written to buf
func InitLS(buf []byte, revision int32, rsaModulus []byte) int {
	binary.LittleEndian.PutUint32(buf[1:], uint32(revision))
	binary.LittleEndian.PutUint32(buf[5:], constants.RSA512ModulusSize)

	modulus := buf[9 : 9+constants.RSA512ModulusSize]
	clear(modulus)
	if len(rsaModulus) >= constants.RSA512ModulusSize {
		copy(modulus, rsaModulus[:constants.RSA512ModulusSize])
	} else {
		copy(modulus[constants.RSA512ModulusSize-len(rsaModulus):], rsaModulus)
	}

	buf[0] = opcodeInitLS
	return 9 + constants.RSA512ModulusSize
}
