package wire

import "github.com/kenneth/cyphertite-go/internal/ctxerr"

// EncodeHex renders b as lowercase %02x pairs, matching the secrets file's
// on-disk hex encoding (spec §4.1).
func EncodeHex(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0x0f]
	}
	return string(out)
}

// DecodeHex parses a lowercase- or uppercase-hex string into bytes. It
// rejects odd-length input and any non-hex digit.
func DecodeHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, ctxerr.New(ctxerr.KindMalformedSecret, "wire.DecodeHex", errOddHex)
	}
	out := make([]byte, len(s)/2)
	for i := range out {
		hi, ok := hexVal(s[i*2])
		if !ok {
			return nil, ctxerr.New(ctxerr.KindMalformedSecret, "wire.DecodeHex", errBadHex)
		}
		lo, ok := hexVal(s[i*2+1])
		if !ok {
			return nil, ctxerr.New(ctxerr.KindMalformedSecret, "wire.DecodeHex", errBadHex)
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

// DecodeHexInto decodes s and requires the result to be exactly len(dst)
// bytes, copying into dst. Used for fixed-size fields like the secrets
// file's salt and key material.
func DecodeHexInto(s string, dst []byte) error {
	b, err := DecodeHex(s)
	if err != nil {
		return err
	}
	if len(b) != len(dst) {
		return ctxerr.New(ctxerr.KindMalformedSecret, "wire.DecodeHexInto", errHexLength)
	}
	copy(dst, b)
	return nil
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// ParseSHA1Hex parses a 40-character hex string into a 20-byte SHA-1 digest,
// failing on any non-hex byte, wrong length, or trailing data.
func ParseSHA1Hex(s string) ([20]byte, error) {
	var out [20]byte
	if len(s) != 40 {
		return out, ctxerr.New(ctxerr.KindMalformedSecret, "wire.ParseSHA1Hex", errBadSHA1)
	}
	b, err := DecodeHex(s)
	if err != nil {
		return out, ctxerr.New(ctxerr.KindMalformedSecret, "wire.ParseSHA1Hex", errBadSHA1)
	}
	copy(out[:], b)
	return out, nil
}
