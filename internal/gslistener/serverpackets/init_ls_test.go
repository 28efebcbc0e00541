package serverpackets

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/l2emu/core/internal/constants"
)

func TestInitLSWiresRevisionKeySizeAndModulus(t *testing.T) {
	buf := make([]byte, 256)
	modulus := make([]byte, 64)
	for i := range modulus {
		modulus[i] = byte(i)
	}

	n := InitLS(buf, 0x0106, modulus)

	// opcode(1) + revision(4) + keySize(4) + modulus(64) = 73
	require.Equal(t, 73, n)

	assert.Equal(t, byte(0x00), buf[0])

	revision := binary.LittleEndian.Uint32(buf[1:5])
	assert.Equal(t, uint32(0x0106), revision)

	keySize := binary.LittleEndian.Uint32(buf[5:9])
	assert.Equal(t, uint32(constants.RSA512ModulusSize), keySize)

	assert.Equal(t, modulus, buf[9:9+constants.RSA512ModulusSize])
}

func TestInitLSKeySizeFieldIsFixedRegardlessOfModulusLength(t *testing.T) {
	buf := make([]byte, 256)

	tests := []struct {
		name    string
		modSize int
	}{
		{"exact 64 bytes", 64},
		{"less than 64 bytes", 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			modulus := make([]byte, tt.modSize)
			n := InitLS(buf, 0x0106, modulus)

			assert.Equal(t, 73, n, "frame size must stay fixed regardless of modulus length")

			keySize := binary.LittleEndian.Uint32(buf[5:9])
			assert.Equal(t, uint32(constants.RSA512ModulusSize), keySize)
		})
	}
}
