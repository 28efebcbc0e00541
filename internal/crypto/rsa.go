package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"math/big"

	"github.com/l2emu/core/internal/constants"
)

// RSAKeyPair is one entry of a listener's pre-generated key pool: the
// private key plus the modulus bytes a peer is shown. On the client channel
// ScrambledModulus really is scrambled; on the GS channel it holds the raw
// modulus, since InitLS announces it unobfuscated.
type RSAKeyPair struct {
	PrivateKey       *rsa.PrivateKey
	ScrambledModulus []byte
}

// GenerateRSAKeyPair creates an RSA-1024 pair with exponent 65537 and
// pre-computes the scrambled modulus the Init packet advertises.
func GenerateRSAKeyPair() (*RSAKeyPair, error) {
	key, err := rsa.GenerateKey(rand.Reader, constants.RSAKeyBits)
	if err != nil {
		return nil, fmt.Errorf("rsa: generating key: %w", err)
	}
	// CRT components make RSADecryptNoPadding's fast path available.
	key.Precompute()

	modulus := normalizeModulus(key.PublicKey.N, constants.RSA1024ModulusSize)
	return &RSAKeyPair{
		PrivateKey:       key,
		ScrambledModulus: ScrambleModulus(modulus),
	}, nil
}

// GenerateRSAKeyPair512 returns an RSA-512 pair for the GS↔LS channel, raw
// modulus, no scrambling. Go refuses to generate keys under 1024 bits, so
// this hands out a fixed pair generated externally (openssl genrsa 512);
// deployments wanting distinct keys load their own the same way.
func GenerateRSAKeyPair512() (*RSAKeyPair, error) {
	key := fixedRSA512Key()
	key.Precompute()

	return &RSAKeyPair{
		PrivateKey:       key,
		ScrambledModulus: normalizeModulus(key.PublicKey.N, constants.RSA512ModulusSize),
	}, nil
}

// normalizeModulus renders n as exactly size big-endian bytes: leading
// zeros stripped first (Java's BigInteger.toByteArray can emit size+1 bytes
// with a 0x00 sign byte, and both peers mirror that), then left-padded back
// up if the modulus happens to be short.
func normalizeModulus(n *big.Int, size int) []byte {
	b := n.Bytes()
	if len(b) == size+1 && b[0] == 0 {
		b = b[1:]
	}
	return leftPad(b, size)
}

// leftPad zero-extends b on the left to exactly size bytes.
func leftPad(b []byte, size int) []byte {
	if len(b) >= size {
		return b
	}
	padded := make([]byte, size)
	copy(padded[size-len(b):], b)
	return padded
}

// fixedRSA512Key is the static GS-channel pair (openssl genrsa 512).
func fixedRSA512Key() *rsa.PrivateKey {
	n, _ := new(big.Int).SetString("a7f58ef05452ac91062310847dba84f92168437ff032fea96c2df71c2f62b80ca6130ab1aeb861d0e28acba3dec82965803e81ad1dd09d331816c8bd9647e31b", 16)
	d, _ := new(big.Int).SetString("9e391ba0972f12d5c3bc40912f88084051125194328937920f10f61b1d209853fb3df6f6dc22cddf46e182585f95a9985b4f4a5530f1a8591ee0cffb80ae8a61", 16)
	p, _ := new(big.Int).SetString("d57bbc1f292819d705f4228509f0efa56d577f0806969a89fc47ae7df41235b3", 16)
	q, _ := new(big.Int).SetString("c968d09cf98b4c05d1350550bf781fa4bc6a3df2690f3aab449ea24ff3a3b8f9", 16)

	return &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{N: n, E: constants.RSAPublicExponent},
		D:         d,
		Primes:    []*big.Int{p, q},
	}
}

// ScrambleModulus obfuscates a 128-byte modulus with the four-step
// swap/XOR permutation every L2 client carries the inverse of: swap
// [0x00..0x04) with [0x4D..0x51), fold the first 64 bytes into the last 64,
// XOR [0x0D..0x11) with [0x34..0x38), then fold the last 64 back into the
// first 64.
func ScrambleModulus(modulus []byte) []byte {
	if len(modulus) != constants.RSA1024ModulusSize {
		panic(fmt.Sprintf("ScrambleModulus: expected %d bytes, got %d", constants.RSA1024ModulusSize, len(modulus)))
	}

	out := make([]byte, constants.RSA1024ModulusSize)
	copy(out, modulus)

	for i := range constants.ScrambleSwapLength {
		out[constants.ScrambleSwapOffset1+i], out[constants.ScrambleSwapOffset2+i] =
			out[constants.ScrambleSwapOffset2+i], out[constants.ScrambleSwapOffset1+i]
	}
	for i := range constants.ScrambleXORBlock1Size {
		out[constants.ScrambleXORBlock1Start+i] ^= out[constants.ScrambleXORBlock2Start+i]
	}
	for i := range constants.ScrambleXORLength {
		out[constants.ScrambleXOROffset1+i] ^= out[constants.ScrambleXOROffset2+i]
	}
	for i := range constants.ScrambleXORBlock1Size {
		out[constants.ScrambleXORBlock2Start+i] ^= out[constants.ScrambleXORBlock1Start+i]
	}

	return out
}

// UnscrambleModulus is ScrambleModulus's inverse: the same four steps,
// applied in reverse order. The client runs this on the Init packet's
// modulus; the server only needs it for tests.
func UnscrambleModulus(scrambled []byte) []byte {
	if len(scrambled) != constants.RSA1024ModulusSize {
		panic(fmt.Sprintf("UnscrambleModulus: expected %d bytes, got %d", constants.RSA1024ModulusSize, len(scrambled)))
	}

	out := make([]byte, constants.RSA1024ModulusSize)
	copy(out, scrambled)

	for i := range constants.ScrambleXORBlock1Size {
		out[constants.ScrambleXORBlock2Start+i] ^= out[constants.ScrambleXORBlock1Start+i]
	}
	for i := range constants.ScrambleXORLength {
		out[constants.ScrambleXOROffset1+i] ^= out[constants.ScrambleXOROffset2+i]
	}
	for i := range constants.ScrambleXORBlock1Size {
		out[constants.ScrambleXORBlock1Start+i] ^= out[constants.ScrambleXORBlock2Start+i]
	}
	for i := range constants.ScrambleSwapLength {
		out[constants.ScrambleSwapOffset1+i], out[constants.ScrambleSwapOffset2+i] =
			out[constants.ScrambleSwapOffset2+i], out[constants.ScrambleSwapOffset1+i]
	}

	return out
}

// RSADecryptNoPadding performs the raw private-key operation c^d mod n —
// the client-auth payload and the GS BlowFishKey block carry no padding
// scheme, so the plaintext comes back zero-extended on the left to the
// modulus size. Takes the CRT shortcut (Garner's recombination, as in
// stdlib crypto/rsa) whenever the key's pre-computed components are
// present; that path is not constant-time, which the legacy protocol
// tolerates.
func RSADecryptNoPadding(key *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	keySize := key.N.BitLen() / 8
	if len(ciphertext) != keySize {
		return nil, fmt.Errorf("rsa decrypt: expected %d bytes for %d-bit key, got %d", keySize, key.N.BitLen(), len(ciphertext))
	}

	c := new(big.Int).SetBytes(ciphertext)

	if key.Precomputed.Dp != nil && key.Precomputed.Dq != nil &&
		key.Precomputed.Qinv != nil && len(key.Primes) >= 2 {
		m1 := new(big.Int).Exp(c, key.Precomputed.Dp, key.Primes[0])
		m2 := new(big.Int).Exp(c, key.Precomputed.Dq, key.Primes[1])
		h := new(big.Int).Sub(m1, m2)
		h.Mul(h, key.Precomputed.Qinv)
		h.Mod(h, key.Primes[0])
		m := new(big.Int).Mul(h, key.Primes[1])
		m.Add(m, m2)
		return leftPad(m.Bytes(), keySize), nil
	}

	m := new(big.Int).Exp(c, key.D, key.N)
	return leftPad(m.Bytes(), keySize), nil
}

// RSAEncryptNoPadding is the matching public-key operation m^e mod n, used
// by the GS side to seal the outgoing BlowFishKey packet against the
// modulus the LS announced in InitLS.
func RSAEncryptNoPadding(pub *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	keySize := pub.N.BitLen() / 8
	if len(plaintext) > keySize {
		return nil, fmt.Errorf("rsa encrypt: plaintext %d bytes exceeds key size %d", len(plaintext), keySize)
	}

	m := new(big.Int).SetBytes(plaintext)
	c := new(big.Int).Exp(m, big.NewInt(int64(pub.E)), pub.N)
	return leftPad(c.Bytes(), keySize), nil
}
