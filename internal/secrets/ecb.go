package secrets

import (
	"crypto/aes"

	"github.com/kenneth/cyphertite-go/internal/ctxerr"
)

// ecbEncrypt and ecbDecrypt implement ECB-mode AES-256 with no IV, used only
// to protect key material inside the secrets envelope (spec §4.2/§4.3's
// "passphrase helpers"). No package across the retrieved pack exposes ECB
// mode — it is deliberately absent from crypto/cipher's mode helpers and
// from golang.org/x/crypto because unauthenticated ECB is unsafe for bulk
// data — so this operates crypto/aes's raw cipher.Block directly,
// block-by-block, which is the narrowest possible standard-library surface
// for the one legitimate ECB use case here: wrapping fixed-size key
// material that is itself indistinguishable from random.

func ecbEncrypt(key, src []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ctxerr.New(ctxerr.KindCrypto, "secrets.ecbEncrypt", err)
	}
	bs := block.BlockSize()
	padded := pkcs7Pad(src, bs)
	dst := make([]byte, len(padded))
	for off := 0; off < len(padded); off += bs {
		block.Encrypt(dst[off:off+bs], padded[off:off+bs])
	}
	return dst, nil
}

func ecbDecrypt(key, src []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ctxerr.New(ctxerr.KindCrypto, "secrets.ecbDecrypt", err)
	}
	bs := block.BlockSize()
	if len(src) == 0 || len(src)%bs != 0 {
		return nil, ctxerr.New(ctxerr.KindCrypto, "secrets.ecbDecrypt", errECBLength)
	}
	dst := make([]byte, len(src))
	for off := 0; off < len(src); off += bs {
		block.Decrypt(dst[off:off+bs], src[off:off+bs])
	}
	return pkcs7Unpad(dst, bs)
}

func pkcs7Pad(src []byte, blockSize int) []byte {
	padLen := blockSize - len(src)%blockSize
	out := make([]byte, len(src)+padLen)
	copy(out, src)
	for i := len(src); i < len(out); i++ {
		out[i] = byte(padLen)
	}
	return out
}

func pkcs7Unpad(src []byte, blockSize int) ([]byte, error) {
	if len(src) == 0 || len(src)%blockSize != 0 {
		return nil, ctxerr.New(ctxerr.KindCrypto, "secrets.pkcs7Unpad", errECBLength)
	}
	padLen := int(src[len(src)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(src) {
		return nil, ctxerr.New(ctxerr.KindCrypto, "secrets.pkcs7Unpad", errECBPad)
	}
	for _, b := range src[len(src)-padLen:] {
		if int(b) != padLen {
			return nil, ctxerr.New(ctxerr.KindCrypto, "secrets.pkcs7Unpad", errECBPad)
		}
	}
	return src[:len(src)-padLen], nil
}
