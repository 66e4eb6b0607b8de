package secrets

import "context"

// KeyManager abstracts an external KMS that can additionally wrap/unwrap the
// secrets envelope's mask key, grounded on the teacher's KeyManager
// interface (internal/crypto/keymanager.go) and generalized from "per-object
// data encryption key" to "mask key".
//
// A concrete KMIP-backed implementation (e.g. over github.com/ovh/kmip-go)
// is an external collaborator: the retrieved pack carries only the
// abstract interface shape, never a concrete KMIP call site to ground an
// implementation against, so this package ships no concrete KMIP client
// (see DESIGN.md). Create/Unlock accept a nil KeyManager and fall back to
// the passphrase-only path described in spec §4.2.
type KeyManager interface {
	// Provider returns a short identifier used for diagnostics and the
	// secrets file's optional kmip_envelope metadata.
	Provider() string

	// WrapKey encrypts the mask key and returns an opaque envelope suitable
	// for persisting in the secrets file.
	WrapKey(ctx context.Context, maskKey []byte) (*KeyEnvelope, error)

	// UnwrapKey decrypts the ciphertext contained in envelope and returns
	// the plaintext mask key.
	UnwrapKey(ctx context.Context, envelope *KeyEnvelope) ([]byte, error)

	// HealthCheck verifies the KMS is reachable without performing a real
	// wrap/unwrap.
	HealthCheck(ctx context.Context) error

	// Close releases any underlying resources.
	Close(ctx context.Context) error
}

// KeyEnvelope captures the information required to unwrap a KMS-wrapped
// mask key, persisted hex-encoded as the secrets file's optional seventh
// field (kmip_envelope).
type KeyEnvelope struct {
	KeyID      string
	Provider   string
	Ciphertext []byte
}
