package crypto

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blowfish"

	"github.com/l2emu/core/internal/constants"
)

// DefaultGSBlowfishKey is the static Blowfish key both LS and GS fall back
// to on the GS-dial channel before a dynamic key has been exchanged via
// InitLS/BlowFish.
var DefaultGSBlowfishKey = []byte(
	"_;v.]05-31!|+-%xT!^[$\x00",
)

// BlowfishCipher is the little-endian, independent-8-byte-block Blowfish
// transform every channel runs except the opening client-auth RSA payload.
type BlowfishCipher struct {
	impl *blowfish.Cipher
}

// NewBlowfishCipher builds a BlowfishCipher from an arbitrary-length key.
func NewBlowfishCipher(key []byte) (*BlowfishCipher, error) {
	impl, err := blowfish.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("blowfish: invalid key: %w", err)
	}
	return &BlowfishCipher{impl: impl}, nil
}

func blockRange(offset, size int, dataLen int) error {
	if size%constants.BlowfishBlockSize != 0 {
		return fmt.Errorf("blowfish: size %d not a multiple of block size %d", size, constants.BlowfishBlockSize)
	}
	if offset+size > dataLen {
		return fmt.Errorf("blowfish: range [%d:%d] exceeds buffer of length %d", offset, offset+size, dataLen)
	}
	return nil
}

// Encrypt transforms data[offset:offset+size] in place, one 8-byte block at
// a time. size must be a multiple of the block size.
func (b *BlowfishCipher) Encrypt(data []byte, offset, size int) error {
	if err := blockRange(offset, size, len(data)); err != nil {
		return err
	}
	for pos := offset; pos < offset+size; pos += constants.BlowfishBlockSize {
		block := data[pos : pos+constants.BlowfishBlockSize]
		b.impl.Encrypt(block, block)
	}
	return nil
}

// Decrypt is Encrypt's inverse.
func (b *BlowfishCipher) Decrypt(data []byte, offset, size int) error {
	if err := blockRange(offset, size, len(data)); err != nil {
		return err
	}
	for pos := offset; pos < offset+size; pos += constants.BlowfishBlockSize {
		block := data[pos : pos+constants.BlowfishBlockSize]
		b.impl.Decrypt(block, block)
	}
	return nil
}

// xorWords folds every little-endian 32-bit word in data[offset:offset+size]
// together with XOR, excluding the trailing word at offset+size-4 (the
// checksum slot itself).
func xorWords(data []byte, offset, size int) uint32 {
	var acc uint32
	last := offset + size - constants.PacketChecksumSize
	for pos := offset; pos < last; pos += constants.PacketChecksumSize {
		acc ^= binary.LittleEndian.Uint32(data[pos:])
	}
	return acc
}

// AppendChecksum overwrites the trailing 4-byte word of
// data[offset:offset+size] with the XOR-fold of every word before it. size
// must be a multiple of 4 and large enough to hold the checksum word.
func AppendChecksum(data []byte, offset, size int) {
	checksum := xorWords(data, offset, size)
	binary.LittleEndian.PutUint32(data[offset+size-constants.PacketChecksumSize:], checksum)
}

// VerifyChecksum reports whether every 4-byte word in
// data[offset:offset+size], XOR-folded together including the trailing
// checksum word, cancels out to zero.
func VerifyChecksum(data []byte, offset, size int) bool {
	if size%constants.PacketChecksumSize != 0 || size <= constants.PacketChecksumSize {
		return false
	}
	acc := xorWords(data, offset, size)
	trailing := binary.LittleEndian.Uint32(data[offset+size-constants.PacketChecksumSize:])
	return acc^trailing == 0
}

// EncXORPass is the login-channel encXORPass construction used to scramble
// the Init packet ahead of the static-key Blowfish pass: a rolling 32-bit
// accumulator, seeded with key, walks 4-byte LE words from offset+4 up to
// offset+size-8, adding each word into the running accumulator and writing
// the word XORed with the updated accumulator back out; the final word (at
// offset+size-8) holds the accumulator's terminal value.
func EncXORPass(data []byte, offset, size int, key int32) {
	acc := uint32(key)
	end := offset + size - constants.XOREncryptStopOffset
	for pos := offset + constants.XOREncryptSkipBytes; pos < end; pos += constants.PacketChecksumSize {
		word := binary.LittleEndian.Uint32(data[pos:])
		acc += word
		binary.LittleEndian.PutUint32(data[pos:], word^acc)
	}
	binary.LittleEndian.PutUint32(data[end:], acc)
}

// DecXORPass reverses EncXORPass: it reads the terminal accumulator back
// out of the final word and walks the words in reverse, undoing the XOR
// and rewinding the accumulator one step at a time.
func DecXORPass(data []byte, offset, size int) {
	start := offset + constants.XOREncryptSkipBytes
	end := offset + size - constants.XOREncryptStopOffset

	acc := binary.LittleEndian.Uint32(data[end:])
	for pos := end - constants.PacketChecksumSize; pos >= start; pos -= constants.PacketChecksumSize {
		scrambled := binary.LittleEndian.Uint32(data[pos:])
		word := scrambled ^ acc
		binary.LittleEndian.PutUint32(data[pos:], word)
		acc -= word
	}
}
