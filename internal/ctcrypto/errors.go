package ctcrypto

import "errors"

var (
	errKeyLength   = errors.New("ctcrypto: key must be 64 bytes (two concatenated AES-256 keys)")
	errShortInput  = errors.New("ctcrypto: input shorter than one AES block")
	errDstTooShort = errors.New("ctcrypto: destination buffer too short")
	errIVKeyLength = errors.New("ctcrypto: iv key must be 32 bytes")
)
