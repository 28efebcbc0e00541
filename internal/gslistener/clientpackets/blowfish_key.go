package clientpackets

import (
	"fmt"
)

// rsaEncryptedKeySize is the fixed ciphertext size of an RSA-512-wrapped
// Blowfish key.
const rsaEncryptedKeySize = 64

// BlowFishKey [0x00] carries the GS's chosen dynamic Blowfish key, RSA
// encrypted against the LS public key the GS received in InitLS.
//
// Format: [opcode 0x00][encryptedKey byte[64]]
type BlowFishKey struct {
	EncryptedKey []byte
}

// Parse reads BlowFishKey's body (opcode already stripped).
func (p *BlowFishKey) Parse(body []byte) error {
	if len(body) < rsaEncryptedKeySize {
		return fmt.Errorf("BlowFishKey packet too short: got %d, want %d", len(body), rsaEncryptedKeySize)
	}

	p.EncryptedKey = make([]byte, rsaEncryptedKeySize)
	copy(p.EncryptedKey, body[:rsaEncryptedKeySize])
	return nil
}
