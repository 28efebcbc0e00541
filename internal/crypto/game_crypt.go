package crypto

import (
	"encoding/binary"
	"sync/atomic"
)

// GameCrypt is the GS↔client game-channel cipher: a per-connection rolling
// XOR stream keyed by a 16-byte secret that evolves after every packet.
// Unlike the login channel, the game channel never runs Blowfish — the Init
// packet is the one frame ever sent in the clear, and isEnabled tracks
// whether that frame has already gone out.
type GameCrypt struct {
	inKey, outKey [16]byte
	isEnabled     atomic.Bool
}

// NewGameCrypt returns a GameCrypt with encryption not yet armed.
func NewGameCrypt() *GameCrypt {
	return &GameCrypt{}
}

// SetKey seeds both the inbound and outbound key schedules from the same
// 16-byte secret agreed on during the GS handshake.
func (gc *GameCrypt) SetKey(key []byte) {
	copy(gc.inKey[:], key[:16])
	copy(gc.outKey[:], key[:16])
}

// IsEnabled reports whether the cipher has been armed by a prior Encrypt
// call.
func (gc *GameCrypt) IsEnabled() bool {
	return gc.isEnabled.Load()
}

// Encrypt transforms data in place. The first call only arms the cipher and
// leaves data untouched — the one cleartext Init frame; every call after
// that XORs each byte against the rolling key and the previously produced
// ciphertext byte, then rolls the key forward by len(data).
func (gc *GameCrypt) Encrypt(data []byte) {
	if !gc.isEnabled.Swap(true) {
		return
	}

	var chain byte
	for i, b := range data {
		chain = b ^ gc.outKey[i&0x0F] ^ chain
		data[i] = chain
	}
	rollKey(gc.outKey[:], len(data))
}

// Decrypt is Encrypt's inverse. Before the cipher is armed it is a no-op,
// since nothing has been encrypted yet to undo.
func (gc *GameCrypt) Decrypt(data []byte) {
	if !gc.isEnabled.Load() {
		return
	}

	var chain byte
	for i, c := range data {
		data[i] = c ^ gc.inKey[i&0x0F] ^ chain
		chain = c
	}
	rollKey(gc.inKey[:], len(data))
}

// rollKey advances the 4-byte little-endian counter at key[8:12] by size,
// evolving the key schedule after every packet exchanged.
func rollKey(key []byte, size int) {
	ctr := binary.LittleEndian.Uint32(key[8:12])
	binary.LittleEndian.PutUint32(key[8:12], ctr+uint32(size))
}
