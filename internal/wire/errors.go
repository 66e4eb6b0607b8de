package wire

import "errors"

var (
	errShortHeader = errors.New("short header frame")
	errOddHex      = errors.New("odd-length hex string")
	errBadHex      = errors.New("invalid hex digit")
	errHexLength   = errors.New("decoded hex length mismatch")
	errBadSHA1     = errors.New("invalid sha1 hex string")
)
