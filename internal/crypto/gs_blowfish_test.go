package crypto

import (
	"bytes"
	"testing"
)

func TestDefaultGSBlowfishKeyIs22Bytes(t *testing.T) {
	const wantLen = 22
	if len(DefaultGSBlowfishKey) != wantLen {
		t.Errorf("Expected DefaultGSBlowfishKey length %d, got %d", wantLen, len(DefaultGSBlowfishKey))
	}
}

func TestDefaultGSBlowfishKeyMatchesKnownString(t *testing.T) {
	expected := []byte("_;v.]05-31!|+-%xT!^[$\x00")
	if !bytes.Equal(DefaultGSBlowfishKey, expected) {
		t.Errorf("DefaultGSBlowfishKey mismatch.\nExpected: %v\nGot:      %v", expected, DefaultGSBlowfishKey)
	}
}

func TestDefaultGSBlowfishKeyBuildsWorkingCipher(t *testing.T) {
	cipher, err := NewBlowfishCipher(DefaultGSBlowfishKey)
	if err != nil {
		t.Fatalf("Failed to create BlowfishCipher with DefaultGSBlowfishKey: %v", err)
	}

	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	original := make([]byte, len(data))
	copy(original, data)

	if err := cipher.Encrypt(data, 0, len(data)); err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if bytes.Equal(data, original) {
		t.Error("Data should be encrypted (different from original)")
	}

	if err := cipher.Decrypt(data, 0, len(data)); err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(data, original) {
		t.Error("Decrypted data does not match original")
	}
}

func TestDefaultGSBlowfishKeyHandlesMultipleBlocks(t *testing.T) {
	cipher, err := NewBlowfishCipher(DefaultGSBlowfishKey)
	if err != nil {
		t.Fatalf("Failed to create cipher: %v", err)
	}

	data := make([]byte, 32)
	for i := range data {
		data[i] = byte(i)
	}
	original := make([]byte, len(data))
	copy(original, data)

	if err := cipher.Encrypt(data, 0, len(data)); err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if err := cipher.Decrypt(data, 0, len(data)); err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(data, original) {
		t.Error("Decrypted multi-block data does not match original")
	}
}
