// Package session collapses the engine's former global state — the active
// chunk set, the cull UUID, the "sent complete" flag, the operation FIFO —
// into an explicitly passed *Context, the way the teacher threads a
// dependency-injected *Handler through every request path instead of
// reaching for package-level state (internal/api/handlers.go).
package session

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kenneth/cyphertite-go/internal/ctcrypto"
	"github.com/kenneth/cyphertite-go/internal/opqueue"
	"github.com/kenneth/cyphertite-go/internal/txn"
)

// DefaultChunkSize is the plaintext size a FileNode reads per transaction,
// matching the teacher's 64KB chunk-buffer pool sizing
// (internal/crypto/buffer_pool.go's pool64K).
const DefaultChunkSize = 64 * 1024

// Sender is the transport seam a producer uses to hand a transaction to the
// server. internal/transport provides the concrete implementation; tests use
// fakes.
type Sender interface {
	Send(t *txn.Transaction) error
}

// Context is the single piece of state threaded through every operation in
// place of the former C globals: the transaction pool, the operation queue,
// the data-encryption keys, and the in-progress cull's identity.
type Context struct {
	Pool   *txn.Pool
	Queue  *opqueue.Queue
	Sender Sender
	Log    *logrus.Entry

	AESKey []byte // 64-byte XTS key, from secrets.Unlock
	IVKey  []byte // 32-byte HMAC key, from secrets.Unlock
	Cipher *ctcrypto.Cipher

	// CullUUID identifies the in-progress cull cycle (spec §4.8); it is
	// generated once when cull_setup starts and reused by every
	// subsequent cull transaction.
	CullUUID uuid.UUID

	// SentComplete is set once cull_complete has been sent, so a
	// concurrent shutdown doesn't re-send it.
	SentComplete bool
}

// NewContext wires a Context from already-unlocked key material.
func NewContext(pool *txn.Pool, queue *opqueue.Queue, sender Sender, aesKey, ivKey []byte, log *logrus.Entry) (*Context, error) {
	cipher, err := ctcrypto.New(aesKey)
	if err != nil {
		return nil, err
	}
	return &Context{
		Pool:   pool,
		Queue:  queue,
		Sender: sender,
		Log:    log,
		AESKey: aesKey,
		IVKey:  ivKey,
		Cipher: cipher,
	}, nil
}

// BeginCull assigns a fresh cull UUID, called once per cull cycle.
func (c *Context) BeginCull() {
	c.CullUUID = uuid.New()
	c.SentComplete = false
}
