// Package clientpackets encodes the packets this game server sends to the
// login server over the GS↔LS channel — the mirror image of
// gslistener/clientpackets, which decodes the same wire shapes from the LS
// side.
package clientpackets

import "github.com/l2emu/core/internal/gslistener"

// BlowFishKey writes the 64-byte RSA-enciphered Blowfish key block into buf.
// encryptedKey must already be RSA-encrypted against the LS's InitLS
// modulus (crypto.RSAEncryptNoPadding).
func BlowFishKey(buf []byte, encryptedKey []byte) int {
	pos := 0
	buf[pos] = gslistener.OpcodeGSBlowFishKey
	pos++
	pos += copy(buf[pos:], encryptedKey)
	return pos
}
