package secrets

import "errors"

var (
	errECBLength       = errors.New("ciphertext not a multiple of the block size")
	errECBPad          = errors.New("invalid pkcs7 padding")
	errMissingKey      = errors.New("secrets file missing required field")
	errZeroRounds      = errors.New("rounds must be non-zero")
	errHexLengthRounds = errors.New("rounds field is not a 4-byte value")
	errHexLengthAES    = errors.New("decrypted aes_key has unexpected length")
	errHexLengthIV     = errors.New("decrypted iv_key has unexpected length")
)

// ErrWrongPassphrase is returned by Unlock when the stored hmac_maskkey does
// not match the passphrase-derived key (spec §4.2).
var ErrWrongPassphrase = errors.New("wrong passphrase")
