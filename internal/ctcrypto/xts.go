// Package ctcrypto implements the chunk cipher and IV derivation described
// in spec §4.3, grounded on original_source/cyphertite/ct_crypto.c's
// ct_crypto_crypt/ct_encrypt/ct_decrypt (AES-256-XTS) and ct_create_iv
// (HMAC-SHA256 IV derivation).
//
// No package in the retrieved pack — including cloudflare/circl, which
// covers PQC and HPKE primitives but no classical block-cipher modes —
// implements AES-XTS, so the tweak scheduling and ciphertext-stealing logic
// here is built directly on crypto/aes's cipher.Block. This is the one
// necessary standard-library exception in the crypto layer; see DESIGN.md.
package ctcrypto

import (
	"crypto/aes"
	"crypto/cipher"
)

const (
	// KeyLen is the XTS key size: two concatenated AES-256 keys.
	KeyLen = 64
	// BlockSize is the AES block size XTS operates on.
	BlockSize = aes.BlockSize
	// TweakLen is the sector/tweak input size (one AES block).
	TweakLen = aes.BlockSize
)

// Cipher implements AES-256-XTS per IEEE P1619, with ciphertext stealing for
// inputs whose length is not a multiple of BlockSize.
type Cipher struct {
	dataBlock  cipher.Block
	tweakBlock cipher.Block
}

// New constructs an XTS cipher from a 64-byte key: the first half encrypts
// data blocks, the second half encrypts the tweak (original ct_encrypt
// passes the full 64-byte aes_key to EVP_aes_256_xts, which performs the
// same split internally).
func New(key []byte) (*Cipher, error) {
	if len(key) != KeyLen {
		return nil, errKeyLength
	}
	dataBlock, err := aes.NewCipher(key[:32])
	if err != nil {
		return nil, err
	}
	tweakBlock, err := aes.NewCipher(key[32:])
	if err != nil {
		return nil, err
	}
	return &Cipher{dataBlock: dataBlock, tweakBlock: tweakBlock}, nil
}

// Encrypt writes len(src) bytes of ciphertext into dst, tweaked by sector.
// dst and src may overlap exactly. len(src) must be at least one block.
func (c *Cipher) Encrypt(dst, src []byte, sector [TweakLen]byte) error {
	return c.crypt(dst, src, sector, true)
}

// Decrypt writes len(src) bytes of plaintext into dst, tweaked by sector.
func (c *Cipher) Decrypt(dst, src []byte, sector [TweakLen]byte) error {
	return c.crypt(dst, src, sector, false)
}

func (c *Cipher) crypt(dst, src []byte, sector [TweakLen]byte, encrypt bool) error {
	n := len(src)
	if n < BlockSize {
		return errShortInput
	}
	if len(dst) < n {
		return errDstTooShort
	}

	var tweak [TweakLen]byte
	c.tweakBlock.Encrypt(tweak[:], sector[:])

	full := n / BlockSize
	remainder := n % BlockSize
	// A whole-number-of-blocks input with no trailing partial block steals
	// nothing; reserve the last full block as the "stolen" block whenever
	// there is a remainder so the final two ciphertext blocks swap tails.
	stealing := remainder != 0
	if stealing {
		full--
	}

	off := 0
	for i := 0; i < full; i++ {
		xorBlock(dst[off:off+BlockSize], src[off:off+BlockSize], tweak[:])
		if encrypt {
			c.dataBlock.Encrypt(dst[off:off+BlockSize], dst[off:off+BlockSize])
		} else {
			c.dataBlock.Decrypt(dst[off:off+BlockSize], dst[off:off+BlockSize])
		}
		xorBlock(dst[off:off+BlockSize], dst[off:off+BlockSize], tweak[:])
		mul2(&tweak)
		off += BlockSize
	}

	if !stealing {
		return nil
	}

	if encrypt {
		return c.encryptStolen(dst, src, off, remainder, tweak)
	}
	return c.decryptStolen(dst, src, off, remainder, tweak)
}

// encryptStolen handles the final two blocks of an encrypt operation whose
// total length is not a multiple of BlockSize (IEEE P1619 §5.1 steps 9-11).
func (c *Cipher) encryptStolen(dst, src []byte, off, remainder int, tweakPenult [TweakLen]byte) error {
	var tweakLast [TweakLen]byte
	copy(tweakLast[:], tweakPenult[:])
	mul2(&tweakLast)

	var cc [BlockSize]byte
	xorBlock(cc[:], src[off:off+BlockSize], tweakPenult[:])
	c.dataBlock.Encrypt(cc[:], cc[:])
	xorBlock(cc[:], cc[:], tweakPenult[:])

	var combined [BlockSize]byte
	copy(combined[:remainder], src[off+BlockSize:off+BlockSize+remainder])
	copy(combined[remainder:], cc[remainder:])

	// Final short ciphertext block is the first `remainder` bytes of CC.
	copy(dst[off+BlockSize:off+BlockSize+remainder], cc[:remainder])

	xorBlock(combined[:], combined[:], tweakLast[:])
	c.dataBlock.Encrypt(combined[:], combined[:])
	xorBlock(combined[:], combined[:], tweakLast[:])
	copy(dst[off:off+BlockSize], combined[:])

	return nil
}

// decryptStolen is encryptStolen's inverse.
func (c *Cipher) decryptStolen(dst, src []byte, off, remainder int, tweakPenult [TweakLen]byte) error {
	var tweakLast [TweakLen]byte
	copy(tweakLast[:], tweakPenult[:])
	mul2(&tweakLast)

	var combined [BlockSize]byte
	copy(combined[:], src[off:off+BlockSize])
	xorBlock(combined[:], combined[:], tweakLast[:])
	c.dataBlock.Decrypt(combined[:], combined[:])
	xorBlock(combined[:], combined[:], tweakLast[:])

	var cc [BlockSize]byte
	copy(cc[:remainder], src[off+BlockSize:off+BlockSize+remainder])
	copy(cc[remainder:], combined[remainder:])

	xorBlock(cc[:], cc[:], tweakPenult[:])
	c.dataBlock.Decrypt(cc[:], cc[:])
	xorBlock(cc[:], cc[:], tweakPenult[:])
	copy(dst[off:off+BlockSize], cc[:])

	copy(dst[off+BlockSize:off+BlockSize+remainder], combined[:remainder])

	return nil
}

func xorBlock(dst, a, b []byte) {
	for i := 0; i < BlockSize; i++ {
		dst[i] = a[i] ^ b[i]
	}
}

// mul2 multiplies tweak by the primitive element x in GF(2^128), using the
// P1619 reduction polynomial x^128 + x^7 + x^2 + x + 1, operating on the
// tweak's little-endian byte representation.
func mul2(tweak *[TweakLen]byte) {
	var carryIn byte
	for i := 0; i < TweakLen; i++ {
		carryOut := (tweak[i] >> 7) & 1
		tweak[i] = (tweak[i] << 1) | carryIn
		carryIn = carryOut
	}
	if carryIn != 0 {
		tweak[0] ^= 0x87
	}
}
