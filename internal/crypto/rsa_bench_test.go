package crypto

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/l2emu/core/internal/constants"
)

// BenchmarkRSADecrypt1024 times the decrypt path a client login hits.
func BenchmarkRSADecrypt1024(b *testing.B) {
	b.ReportAllocs()

	keyPair, err := GenerateRSAKeyPair()
	if err != nil {
		b.Fatalf("failed to generate key pair: %v", err)
	}

	plaintext := make([]byte, constants.RSA1024ModulusSize)
	if _, err := rand.Read(plaintext); err != nil {
		b.Fatal(err)
	}

	m := new(big.Int).SetBytes(plaintext)
	e := big.NewInt(int64(constants.RSAPublicExponent))
	c := new(big.Int).Exp(m, e, keyPair.PrivateKey.N)
	ciphertext := c.Bytes()

	if len(ciphertext) < constants.RSA1024ModulusSize {
		padded := make([]byte, constants.RSA1024ModulusSize)
		copy(padded[constants.RSA1024ModulusSize-len(ciphertext):], ciphertext)
		ciphertext = padded
	}

	b.ResetTimer()
	for range b.N {
		_, err := RSADecryptNoPadding(keyPair.PrivateKey, ciphertext)
		if err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkRSADecrypt512 times the decrypt path a game server registration hits.
func BenchmarkRSADecrypt512(b *testing.B) {
	b.ReportAllocs()

	keyPair, err := GenerateRSAKeyPair512()
	if err != nil {
		b.Fatalf("failed to generate key pair: %v", err)
	}

	plaintext := make([]byte, constants.RSA512ModulusSize)
	if _, err := rand.Read(plaintext); err != nil {
		b.Fatal(err)
	}

	m := new(big.Int).SetBytes(plaintext)
	e := big.NewInt(int64(constants.RSAPublicExponent))
	c := new(big.Int).Exp(m, e, keyPair.PrivateKey.N)
	ciphertext := c.Bytes()

	if len(ciphertext) < constants.RSA512ModulusSize {
		padded := make([]byte, constants.RSA512ModulusSize)
		copy(padded[constants.RSA512ModulusSize-len(ciphertext):], ciphertext)
		ciphertext = padded
	}

	b.ResetTimer()
	for range b.N {
		_, err := RSADecryptNoPadding(keyPair.PrivateKey, ciphertext)
		if err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkGenerateRSAKeyPair times key generation at login server startup.
func BenchmarkGenerateRSAKeyPair(b *testing.B) {
	b.ReportAllocs()

	b.ResetTimer()
	for range b.N {
		_, err := GenerateRSAKeyPair()
		if err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkGenerateRSAKeyPair512 times key generation at GS<->LS listener startup.
func BenchmarkGenerateRSAKeyPair512(b *testing.B) {
	b.ReportAllocs()

	b.ResetTimer()
	for range b.N {
		_, err := GenerateRSAKeyPair512()
		if err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkScrambleModulus times modulus scrambling for the Init packet.
func BenchmarkScrambleModulus(b *testing.B) {
	b.ReportAllocs()

	modulus := make([]byte, constants.RSA1024ModulusSize)
	if _, err := rand.Read(modulus); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for range b.N {
		_ = ScrambleModulus(modulus)
	}
}

// BenchmarkUnscrambleModulus times the client-side unscramble step.
func BenchmarkUnscrambleModulus(b *testing.B) {
	b.ReportAllocs()

	modulus := make([]byte, constants.RSA1024ModulusSize)
	if _, err := rand.Read(modulus); err != nil {
		b.Fatal(err)
	}
	scrambled := ScrambleModulus(modulus)

	b.ResetTimer()
	for range b.N {
		_ = UnscrambleModulus(scrambled)
	}
}

// BenchmarkRSAKeyPairGenerationComplete times key generation plus scrambling together.
func BenchmarkRSAKeyPairGenerationComplete(b *testing.B) {
	b.ReportAllocs()

	b.ResetTimer()
	for range b.N {
		keyPair, err := GenerateRSAKeyPair()
		if err != nil {
			b.Fatal(err)
		}
		_ = keyPair.ScrambledModulus // already scrambled by GenerateRSAKeyPair
	}
}

// BenchmarkRSAFullLoginCycle times key generation plus one encrypt/decrypt round trip.
func BenchmarkRSAFullLoginCycle(b *testing.B) {
	b.ReportAllocs()

	keyPair, err := GenerateRSAKeyPair()
	if err != nil {
		b.Fatalf("failed to generate key pair: %v", err)
	}

	plaintext := make([]byte, constants.RSA1024ModulusSize)

	b.ResetTimer()
	for range b.N {
		// Client generates random data and encrypts it with the public key.
		if _, err := rand.Read(plaintext); err != nil {
			b.Fatal(err)
		}

		m := new(big.Int).SetBytes(plaintext)
		e := big.NewInt(int64(constants.RSAPublicExponent))
		c := new(big.Int).Exp(m, e, keyPair.PrivateKey.N)
		ciphertext := c.Bytes()

		if len(ciphertext) < constants.RSA1024ModulusSize {
			padded := make([]byte, constants.RSA1024ModulusSize)
			copy(padded[constants.RSA1024ModulusSize-len(ciphertext):], ciphertext)
			ciphertext = padded
		}

		// Server decrypts with the private key.
		_, err := RSADecryptNoPadding(keyPair.PrivateKey, ciphertext)
		if err != nil {
			b.Fatal(err)
		}
	}
}
