package ctcrypto

import (
	"crypto/hmac"
	"crypto/sha256"
)

// IVKeyLen is the HMAC key size used to derive per-chunk IVs (spec §4.3;
// secrets.CTIVLen must match).
const IVKeyLen = 32

// DeriveIV computes the per-chunk tweak from the chunk's plaintext, grounded
// on ct_create_iv (original_source/cyphertite/ct_crypto.c): HMAC-SHA256
// keyed by ivKey over min(len(plaintext), digest length) bytes of the
// chunk's plaintext — ct_create_iv feeds only the first ivlen source bytes
// to the HMAC, never the full chunk. The original requires the destination
// IV length to equal the digest length (32); this returns the full 32-byte
// digest so callers needing a 16-byte XTS tweak take the first TweakLen
// bytes via Tweak.
func DeriveIV(ivKey, plaintext []byte) ([sha256.Size]byte, error) {
	var out [sha256.Size]byte
	if len(ivKey) != IVKeyLen {
		return out, errIVKeyLength
	}
	n := len(plaintext)
	if n > sha256.Size {
		n = sha256.Size
	}
	mac := hmac.New(sha256.New, ivKey)
	mac.Write(plaintext[:n])
	copy(out[:], mac.Sum(nil))
	return out, nil
}

// Tweak extracts the first TweakLen bytes of a derived IV for use as an XTS
// sector value.
func Tweak(iv [sha256.Size]byte) [TweakLen]byte {
	var t [TweakLen]byte
	copy(t[:], iv[:TweakLen])
	return t
}
