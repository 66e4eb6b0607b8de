// Package txn implements the bounded transaction pool described in spec
// §4.4: a fixed-capacity set of in-flight transaction slots identified by a
// strictly increasing trans_id. Alloc blocks when the pool is full; TryAlloc
// instead reports saturation, which the session producers turn into
// StateWaitingTrans. The pool's condvar/ring-buffer
// shape is grounded on the teacher's BoundedQueue
// (internal/crypto/buffer_pool.go), generalized from a byte ring to a
// transaction-slot ring: instead of pooling bytes, it pools fixed *Transaction
// slots and blocks Alloc exactly the way BoundedQueue.Write blocks on a full
// buffer.
package txn

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kenneth/cyphertite-go/internal/ctxerr"
)

// Type distinguishes the payload kind a transaction carries.
type Type int

const (
	TypeUnknown Type = iota
	TypeWriteChunk
	TypeReadChunk
	TypeOpen
	TypeClose
	TypeDelete
	TypeList
	TypeCullSetup
	TypeCullShas
	TypeCullComplete
)

// State is a transaction's position in its lifecycle (spec §4.4).
type State int

const (
	// StateFree marks a slot available for Alloc.
	StateFree State = iota
	// StateAllocated marks a slot claimed by a producer but not yet queued
	// to be sent.
	StateAllocated
	// StateQueued marks a transaction waiting in the operation FIFO to be
	// sent to the server.
	StateQueued
	// StateSent marks a transaction written to the wire, awaiting a
	// server reply.
	StateSent
	// StateComplete marks a transaction whose reply has been processed;
	// Complete releases it back to StateFree.
	StateComplete
)

// Transaction is one in-flight unit of work against the server. Three
// payload slots mirror the original implementation's ability to carry a
// header, a ctfile/chunk body, and a trailer in the same slot (spec §3).
type Transaction struct {
	ID         uint64
	State      State
	Type       Type
	Payload    [3][]byte
	DataSlot   int
	PayloadLen int
	ChunkNum   uint32
	IV         [32]byte
	EOF        bool

	// Name carries the remote ctfile name for TypeOpen, TypeClose, and
	// TypeDelete transactions; it is unused by chunk and cull traffic.
	Name string

	// Owner is an opaque back-reference to the session-level producer
	// that allocated this transaction (an internal/session producer). It is
	// typed as interface{} here to avoid an import cycle; callers type-
	// assert it back to their own concrete type.
	Owner interface{}

	slot       int
	generation uint64
}

// Slot reports the transaction's pool slot index.
func (t *Transaction) Slot() int { return t.slot }

// Generation reports the transaction's allocation generation, used by
// callers that hold a slot index rather than a *Transaction to detect reuse
// (spec §9's "slot index + generation counter" ownership model).
func (t *Transaction) Generation() uint64 { return t.generation }

// Pool is a fixed-capacity set of transaction slots. Alloc blocks when the
// pool is saturated; TryAlloc returns a KindSaturated error instead, which
// the session producers handle by reporting StateWaitingTrans.
type Pool struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	slots    []*Transaction
	free     []int
	closed   bool
	nextID   uint64
	inFlight int
}

// NewPool constructs a pool with the given number of transaction slots.
func NewPool(capacity int) *Pool {
	p := &Pool{
		slots: make([]*Transaction, capacity),
		free:  make([]int, capacity),
	}
	p.notFull = sync.NewCond(&p.mu)
	for i := 0; i < capacity; i++ {
		p.slots[i] = &Transaction{slot: i, State: StateFree}
		p.free[i] = capacity - 1 - i
	}
	return p
}

// Cap reports the pool's fixed slot count.
func (p *Pool) Cap() int { return len(p.slots) }

// InFlight reports the number of currently allocated (non-free) slots.
func (p *Pool) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

// Alloc claims a free slot, blocking until one is available, ctx is
// cancelled, or the pool is closed. The returned transaction's ID is
// strictly greater than every previously allocated ID (spec §8 invariant on
// trans_id ordering).
func (p *Pool) Alloc(ctx context.Context) (*Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// A single watcher goroutine bridges ctx cancellation into the cond
	// variable: sync.Cond has no select-based wait, so cancellation must
	// wake Wait() via Broadcast rather than via the context directly. The
	// stop channel guarantees the goroutine exits when Alloc returns,
	// whether or not ctx was ever cancelled.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			p.mu.Lock()
			p.notFull.Broadcast()
			p.mu.Unlock()
		case <-stop:
		}
	}()

	for len(p.free) == 0 && !p.closed {
		if err := ctx.Err(); err != nil {
			return nil, ctxerr.New(ctxerr.KindIO, "txn.Pool.Alloc", err)
		}
		p.notFull.Wait()
	}
	if err := ctx.Err(); err != nil {
		return nil, ctxerr.New(ctxerr.KindIO, "txn.Pool.Alloc", err)
	}
	if p.closed {
		return nil, ctxerr.New(ctxerr.KindIO, "txn.Pool.Alloc", errPoolClosed)
	}

	return p.allocLocked()
}

// allocLocked claims a free slot; callers must hold p.mu and have already
// verified len(p.free) > 0.
func (p *Pool) allocLocked() (*Transaction, error) {
	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.inFlight++

	t := p.slots[idx]
	t.ID = atomic.AddUint64(&p.nextID, 1)
	t.State = StateAllocated
	t.Type = TypeUnknown
	t.Payload = [3][]byte{}
	t.DataSlot = 0
	t.PayloadLen = 0
	t.ChunkNum = 0
	t.IV = [32]byte{}
	t.EOF = false
	t.Name = ""
	t.Owner = nil
	t.generation++
	return t, nil
}

// TryAlloc is Alloc's non-blocking variant: it returns a *ctxerr.Error of
// KindSaturated (an internal, never-surfaced kind per spec §7) when the pool
// has no free slot, letting a caller fall back to queuing work instead of
// blocking the event loop.
func (p *Pool) TryAlloc() (*Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ctxerr.New(ctxerr.KindIO, "txn.Pool.TryAlloc", errPoolClosed)
	}
	if len(p.free) == 0 {
		return nil, ctxerr.New(ctxerr.KindSaturated, "txn.Pool.TryAlloc", errSaturated)
	}
	return p.allocLocked()
}

// Complete releases t back to the free list and advances it to
// StateComplete first, so any racing observer of the slot sees a terminal
// state before it is recycled.
func (p *Pool) Complete(t *Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t.State = StateComplete
	p.free = append(p.free, t.slot)
	p.inFlight--
	p.notFull.Signal()
}

// Close unblocks every pending Alloc with an error; used during session
// shutdown.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.notFull.Broadcast()
}
