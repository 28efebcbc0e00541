package crypto

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/l2emu/core/internal/constants"
)

// TestRSA1024EncryptDecryptRoundTrip checks basic RSA-1024 encrypt/decrypt correctness.
func TestRSA1024EncryptDecryptRoundTrip(t *testing.T) {
	kp, err := GenerateRSAKeyPair()
	require.NoError(t, err, "Failed to generate RSA-1024 key pair")

	// Random plaintext standing in for a RequestAuthLogin payload (~94 bytes on the wire).
	plaintext := make([]byte, constants.RSA1024ModulusSize)
	_, err = rand.Read(plaintext[:94])
	require.NoError(t, err, "Failed to generate random plaintext")

	m := new(big.Int).SetBytes(plaintext)
	m.Mod(m, kp.PrivateKey.N) // plaintext must be < N for valid RSA

	e := big.NewInt(int64(kp.PrivateKey.E))
	c := new(big.Int).Exp(m, e, kp.PrivateKey.N)
	ciphertext := c.Bytes()

	if len(ciphertext) < constants.RSA1024ModulusSize {
		padded := make([]byte, constants.RSA1024ModulusSize)
		copy(padded[constants.RSA1024ModulusSize-len(ciphertext):], ciphertext)
		ciphertext = padded
	}

	decrypted, err := RSADecryptNoPadding(kp.PrivateKey, ciphertext)
	require.NoError(t, err, "Failed to decrypt ciphertext")
	require.Len(t, decrypted, constants.RSA1024ModulusSize, "Decrypted result must be 128 bytes")

	mDecrypted := new(big.Int).SetBytes(decrypted)
	assert.Equal(t, m, mDecrypted, "Decrypt(Encrypt(m)) must equal m")
}

// TestRSA1024CRTMatchesFallbackPath checks that the CRT fast path and the plain
// modexp fallback agree on the same ciphertext.
func TestRSA1024CRTMatchesFallbackPath(t *testing.T) {
	kp, err := GenerateRSAKeyPair()
	require.NoError(t, err)

	plaintext := make([]byte, constants.RSA1024ModulusSize)
	_, err = rand.Read(plaintext[:94])
	require.NoError(t, err)

	m := new(big.Int).SetBytes(plaintext)
	m.Mod(m, kp.PrivateKey.N)
	e := big.NewInt(int64(kp.PrivateKey.E))
	c := new(big.Int).Exp(m, e, kp.PrivateKey.N)
	ciphertext := padToSize(c.Bytes(), constants.RSA1024ModulusSize)

	resultCRT, err := RSADecryptNoPadding(kp.PrivateKey, ciphertext)
	require.NoError(t, err, "CRT decryption failed")

	// Force the fallback path by stripping the CRT precomputed values.
	keyNoPrecompute := *kp.PrivateKey
	keyNoPrecompute.Precomputed.Dp = nil
	keyNoPrecompute.Precomputed.Dq = nil
	keyNoPrecompute.Precomputed.Qinv = nil

	resultFallback, err := RSADecryptNoPadding(&keyNoPrecompute, ciphertext)
	require.NoError(t, err, "Fallback decryption failed")

	assert.Equal(t, resultCRT, resultFallback,
		"CRT and fallback paths must produce identical results")
}

// TestRSA1024HandlesNegativeCRTRemainder exercises the CRT branch where m1 < m2
// makes the intermediate h = (m1 - m2) negative; big.Int.Mod must still return
// the correctly-reduced positive remainder.
func TestRSA1024HandlesNegativeCRTRemainder(t *testing.T) {
	kp, err := GenerateRSAKeyPair()
	require.NoError(t, err)

	for i := range 100 {
		plaintext := make([]byte, constants.RSA1024ModulusSize)
		_, err = rand.Read(plaintext)
		require.NoError(t, err)

		m := new(big.Int).SetBytes(plaintext)
		m.Mod(m, kp.PrivateKey.N)

		e := big.NewInt(int64(kp.PrivateKey.E))
		c := new(big.Int).Exp(m, e, kp.PrivateKey.N)

		ciphertext := padToSize(c.Bytes(), constants.RSA1024ModulusSize)
		decrypted, err := RSADecryptNoPadding(kp.PrivateKey, ciphertext)
		require.NoError(t, err, "Iteration %d: decryption failed", i)

		mDecrypted := new(big.Int).SetBytes(decrypted)
		assert.True(t, m.Cmp(mDecrypted) == 0, "Iteration %d: decrypt result incorrect", i)
	}
}

// TestRSA1024PreservesLeadingZeroBytes checks that a plaintext with many leading
// zero bytes still decrypts to a full keySize-length result.
func TestRSA1024PreservesLeadingZeroBytes(t *testing.T) {
	kp, err := GenerateRSAKeyPair()
	require.NoError(t, err)

	plaintext := make([]byte, constants.RSA1024ModulusSize)
	_, err = rand.Read(plaintext[64:]) // first 64 bytes stay zero
	require.NoError(t, err)

	m := new(big.Int).SetBytes(plaintext)
	m.Mod(m, kp.PrivateKey.N)
	e := big.NewInt(int64(kp.PrivateKey.E))
	c := new(big.Int).Exp(m, e, kp.PrivateKey.N)
	ciphertext := padToSize(c.Bytes(), constants.RSA1024ModulusSize)

	decrypted, err := RSADecryptNoPadding(kp.PrivateKey, ciphertext)
	require.NoError(t, err)
	require.Len(t, decrypted, constants.RSA1024ModulusSize, "Result must be padded to keySize")

	mDecrypted := new(big.Int).SetBytes(decrypted)
	assert.Equal(t, m, mDecrypted, "Leading zeros must be preserved")
}

// TestRSA1024ZeroCiphertextDoesNotPanic checks the (invalid but possible) all-zero
// ciphertext case: the function must not panic and must return 0.
func TestRSA1024ZeroCiphertextDoesNotPanic(t *testing.T) {
	kp, err := GenerateRSAKeyPair()
	require.NoError(t, err)

	ciphertext := make([]byte, constants.RSA1024ModulusSize)

	decrypted, err := RSADecryptNoPadding(kp.PrivateKey, ciphertext)
	require.NoError(t, err, "Should handle ciphertext=0 without panic")
	require.Len(t, decrypted, constants.RSA1024ModulusSize)

	assert.Equal(t, ciphertext, decrypted, "Decrypt(0) must equal 0") // 0^d mod n = 0
}

// TestRSA1024DifferentKeysProduceDifferentCiphertext checks that distinct keys
// applied to the same plaintext shape still decrypt correctly under their own key.
func TestRSA1024DifferentKeysProduceDifferentCiphertext(t *testing.T) {
	keys := make([]*RSAKeyPair, 3)
	for i := range keys {
		kp, err := GenerateRSAKeyPair()
		require.NoError(t, err, "Failed to generate key %d", i)
		keys[i] = kp
	}

	for i, kp := range keys {
		plaintext := make([]byte, constants.RSA1024ModulusSize)
		_, err := rand.Read(plaintext[:94])
		require.NoError(t, err)

		m := new(big.Int).SetBytes(plaintext)
		m.Mod(m, kp.PrivateKey.N)

		e := big.NewInt(int64(kp.PrivateKey.E))
		c := new(big.Int).Exp(m, e, kp.PrivateKey.N)
		ciphertext := padToSize(c.Bytes(), constants.RSA1024ModulusSize)

		decrypted, err := RSADecryptNoPadding(kp.PrivateKey, ciphertext)
		require.NoError(t, err, "Key %d: decryption failed", i)

		mDecrypted := new(big.Int).SetBytes(decrypted)
		assert.True(t, m.Cmp(mDecrypted) == 0, "Key %d: incorrect decryption", i)
	}
}

func TestRSA1024DecryptRejectsWrongCiphertextSize(t *testing.T) {
	kp, err := GenerateRSAKeyPair()
	require.NoError(t, err)

	tests := []struct {
		name string
		size int
	}{
		{"empty", 0},
		{"too_short", 64},
		{"too_long", 256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext := make([]byte, tt.size)
			_, err := RSADecryptNoPadding(kp.PrivateKey, ciphertext)
			assert.Error(t, err, "Should return error for invalid ciphertext size")
		})
	}
}

// padToSize left-pads data with zero bytes up to size, or trims to the
// trailing size bytes if it is already longer.
func padToSize(data []byte, size int) []byte {
	if len(data) >= size {
		return data[len(data)-size:]
	}
	padded := make([]byte, size)
	copy(padded[size-len(data):], data)
	return padded
}
