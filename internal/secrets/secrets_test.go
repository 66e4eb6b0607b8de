package secrets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kenneth/cyphertite-go/internal/ctxerr"
)

// testRounds keeps PBKDF2 cheap in unit tests; production defaults to
// DefaultRounds.
const testRounds = 10

func TestSecretsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets")

	if err := Create(context.Background(), "hunter2", path, testRounds, nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0400 {
		t.Errorf("secrets file mode = %o, want 0400", mode)
	}

	aesKey, ivKey, err := Unlock(context.Background(), "hunter2", path, nil)
	if err != nil {
		t.Fatalf("Unlock with correct passphrase failed: %v", err)
	}
	if len(aesKey) != CTKeyLen {
		t.Errorf("aesKey len = %d, want %d", len(aesKey), CTKeyLen)
	}
	if len(ivKey) != CTIVLen {
		t.Errorf("ivKey len = %d, want %d", len(ivKey), CTIVLen)
	}
}

func TestSecretsWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets")

	if err := Create(context.Background(), "hunter2", path, testRounds, nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, _, err := Unlock(context.Background(), "wrong-passphrase", path, nil)
	if err == nil {
		t.Fatal("expected error unlocking with wrong passphrase")
	}
	if !ctxerr.Is(err, ctxerr.KindWrongPassphrase) {
		t.Errorf("Unlock error kind = %v, want %v", err, ctxerr.KindWrongPassphrase)
	}
}

func TestSecretsDistinctKeysPerCreate(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a")
	pathB := filepath.Join(dir, "b")

	if err := Create(context.Background(), "hunter2", pathA, testRounds, nil); err != nil {
		t.Fatalf("Create(a) failed: %v", err)
	}
	if err := Create(context.Background(), "hunter2", pathB, testRounds, nil); err != nil {
		t.Fatalf("Create(b) failed: %v", err)
	}

	aesA, ivA, err := Unlock(context.Background(), "hunter2", pathA, nil)
	if err != nil {
		t.Fatalf("Unlock(a) failed: %v", err)
	}
	aesB, ivB, err := Unlock(context.Background(), "hunter2", pathB, nil)
	if err != nil {
		t.Fatalf("Unlock(b) failed: %v", err)
	}

	if string(aesA) == string(aesB) {
		t.Error("two independently created secrets files produced the same aes_key")
	}
	if string(ivA) == string(ivB) {
		t.Error("two independently created secrets files produced the same iv_key")
	}
}

func TestSecretsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets")
	if err := os.WriteFile(path, []byte("not a secrets file\n"), 0600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	_, _, err := Unlock(context.Background(), "hunter2", path, nil)
	if err == nil {
		t.Fatal("expected error on malformed secrets file")
	}
	if !ctxerr.Is(err, ctxerr.KindMalformedSecret) {
		t.Errorf("Unlock error kind = %v, want %v", err, ctxerr.KindMalformedSecret)
	}
}
