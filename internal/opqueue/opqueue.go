// Package opqueue implements the operation FIFO described in spec §4.5: the
// ordered list of in-flight archive/extract/list/delete/cull operations the
// engine drains one at a time, each completing before the next is allowed
// to start sending transactions.
package opqueue

import "sync"

// Op is anything the queue can drive to completion. Cleanup runs exactly
// once, right before the operation is removed from the queue.
type Op interface {
	// Cleanup releases any resources the operation is holding (open file
	// descriptors, ctfile handles). Called once, regardless of whether
	// the operation succeeded.
	Cleanup()
}

// entry wraps an Op with the bookkeeping the queue needs without requiring
// every Op implementation to carry it.
type entry struct {
	op       Op
	complete bool
}

// Queue is a FIFO of operations. The engine always acts on Front(); Add and
// AddAfter are the only ways new work joins the tail (Add) or follows the
// operation currently in front (AddAfter, used when an operation spawns a
// dependent follow-up, e.g. cull's setup step queuing send_shas).
type Queue struct {
	mu      sync.Mutex
	entries []*entry
	onEmpty func()
}

// New constructs an empty queue. onEmpty, if non-nil, is invoked exactly
// once, synchronously, the moment the queue transitions from non-empty to
// empty — the engine uses this to trigger session shutdown.
func New(onEmpty func()) *Queue {
	return &Queue{onEmpty: onEmpty}
}

// Add appends op to the tail of the queue.
func (q *Queue) Add(op Op) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, &entry{op: op})
}

// AddAfter inserts op immediately after the current front entry, so it runs
// next rather than after everything already queued.
func (q *Queue) AddAfter(op Op) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		q.entries = append(q.entries, &entry{op: op})
		return
	}
	next := make([]*entry, 0, len(q.entries)+1)
	next = append(next, q.entries[0], &entry{op: op})
	next = append(next, q.entries[1:]...)
	q.entries = next
}

// Front returns the operation currently being driven, or nil if the queue
// is empty.
func (q *Queue) Front() Op {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return nil
	}
	return q.entries[0].op
}

// Len reports the number of queued operations.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Complete runs Cleanup on the front operation, advances the queue, and — if
// the queue becomes empty — invokes onEmpty. Complete panics if called on an
// empty queue; callers must check Front() first, matching the engine's
// single-threaded event-loop discipline (spec §5).
func (q *Queue) Complete() {
	q.mu.Lock()
	if len(q.entries) == 0 {
		q.mu.Unlock()
		panic("opqueue: Complete called on empty queue")
	}
	front := q.entries[0]
	q.entries = q.entries[1:]
	empty := len(q.entries) == 0
	onEmpty := q.onEmpty
	q.mu.Unlock()

	front.op.Cleanup()

	if empty && onEmpty != nil {
		onEmpty()
	}
}
