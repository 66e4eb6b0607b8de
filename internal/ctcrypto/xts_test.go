package ctcrypto

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, KeyLen)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("rand.Read failed: %v", err)
	}
	return key
}

func TestXTSRoundTripBlockAligned(t *testing.T) {
	c, err := New(testKey(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for _, size := range []int{16, 32, 64, 16 * 17} {
		plaintext := make([]byte, size)
		if _, err := rand.Read(plaintext); err != nil {
			t.Fatal(err)
		}
		var sector [TweakLen]byte
		sector[0] = 7

		ciphertext := make([]byte, size)
		if err := c.Encrypt(ciphertext, plaintext, sector); err != nil {
			t.Fatalf("Encrypt(size=%d) failed: %v", size, err)
		}
		if bytes.Equal(ciphertext, plaintext) {
			t.Fatalf("ciphertext equals plaintext for size=%d", size)
		}

		decrypted := make([]byte, size)
		if err := c.Decrypt(decrypted, ciphertext, sector); err != nil {
			t.Fatalf("Decrypt(size=%d) failed: %v", size, err)
		}
		if !bytes.Equal(decrypted, plaintext) {
			t.Fatalf("round trip mismatch for size=%d", size)
		}
	}
}

func TestXTSRoundTripCiphertextStealing(t *testing.T) {
	c, err := New(testKey(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for _, size := range []int{17, 20, 31, 33, 16*4 + 5} {
		plaintext := make([]byte, size)
		if _, err := rand.Read(plaintext); err != nil {
			t.Fatal(err)
		}
		var sector [TweakLen]byte
		sector[1] = 0xaa

		ciphertext := make([]byte, size)
		if err := c.Encrypt(ciphertext, plaintext, sector); err != nil {
			t.Fatalf("Encrypt(size=%d) failed: %v", size, err)
		}

		decrypted := make([]byte, size)
		if err := c.Decrypt(decrypted, ciphertext, sector); err != nil {
			t.Fatalf("Decrypt(size=%d) failed: %v", size, err)
		}
		if !bytes.Equal(decrypted, plaintext) {
			t.Fatalf("round trip mismatch for size=%d (ciphertext stealing)", size)
		}
	}
}

func TestXTSDifferentSectorsDifferentCiphertext(t *testing.T) {
	c, err := New(testKey(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	plaintext := bytes.Repeat([]byte{0x42}, 64)

	var sectorA, sectorB [TweakLen]byte
	sectorB[0] = 1

	ctA := make([]byte, len(plaintext))
	ctB := make([]byte, len(plaintext))
	if err := c.Encrypt(ctA, plaintext, sectorA); err != nil {
		t.Fatal(err)
	}
	if err := c.Encrypt(ctB, plaintext, sectorB); err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(ctA, ctB) {
		t.Fatal("identical plaintext under different sectors produced identical ciphertext")
	}
}

func TestXTSRejectsBadKeyLength(t *testing.T) {
	if _, err := New(make([]byte, 32)); err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestXTSRejectsShortInput(t *testing.T) {
	c, err := New(testKey(t))
	if err != nil {
		t.Fatal(err)
	}
	var sector [TweakLen]byte
	if err := c.Encrypt(make([]byte, 4), make([]byte, 4), sector); err == nil {
		t.Fatal("expected error for input shorter than one block")
	}
}

func TestDeriveIVDeterministic(t *testing.T) {
	ivKey := make([]byte, IVKeyLen)
	if _, err := rand.Read(ivKey); err != nil {
		t.Fatal(err)
	}
	data := []byte("chunk plaintext prefix")

	a, err := DeriveIV(ivKey, data)
	if err != nil {
		t.Fatalf("DeriveIV failed: %v", err)
	}
	b, err := DeriveIV(ivKey, data)
	if err != nil {
		t.Fatalf("DeriveIV failed: %v", err)
	}
	if a != b {
		t.Error("DeriveIV is not deterministic for identical input")
	}

	c, err := DeriveIV(ivKey, []byte("different plaintext"))
	if err != nil {
		t.Fatalf("DeriveIV failed: %v", err)
	}
	if a == c {
		t.Error("DeriveIV produced identical IVs for different plaintext")
	}
}

func TestDeriveIVRejectsBadKeyLength(t *testing.T) {
	if _, err := DeriveIV(make([]byte, 10), []byte("x")); err == nil {
		t.Fatal("expected error for short iv key")
	}
}
