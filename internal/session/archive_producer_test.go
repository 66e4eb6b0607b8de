package session

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/kenneth/cyphertite-go/internal/opqueue"
	"github.com/kenneth/cyphertite-go/internal/txn"
)

// fakeSender records every transaction sent through it and, for
// TypeReadChunk requests, replays a scripted sequence of replies so
// extract-side tests can drive truncation scenarios.
type fakeSender struct {
	sent     []*txn.Transaction
	sendErr  error
	replay   [][]byte   // successive ciphertexts returned for TypeReadChunk
	replayIV [][32]byte // IV to attach alongside each replay entry, if any
	replayAt int
	eofAt    int // index (1-based count of reads) at which EOF is reported
}

func (s *fakeSender) Send(t *txn.Transaction) error {
	// The pool recycles *Transaction slots after Complete, so keep a copy
	// of what was sent rather than the slot pointer itself.
	snapshot := *t
	s.sent = append(s.sent, &snapshot)
	if s.sendErr != nil {
		return s.sendErr
	}
	if t.Type == txn.TypeReadChunk && s.replayAt < len(s.replay) {
		data := s.replay[s.replayAt]
		if s.replayAt < len(s.replayIV) {
			t.IV = s.replayIV[s.replayAt]
		}
		s.replayAt++
		t.Payload[t.DataSlot] = data
		t.PayloadLen = len(data)
		if s.eofAt != 0 && s.replayAt >= s.eofAt {
			t.EOF = true
		}
	}
	return nil
}

func testAESKey() []byte { return make([]byte, 64) }
func testIVKey() []byte  { return make([]byte, 32) }

func newTestContext(t *testing.T, sender Sender) *Context {
	t.Helper()
	pool := txn.NewPool(4)
	queue := opqueue.New(nil)
	log := logrus.NewEntry(logrus.New())
	ctx, err := NewContext(pool, queue, sender, testAESKey(), testIVKey(), log)
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	return ctx
}

func TestArchiveProducerEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	node, err := OpenForArchive(path)
	if err != nil {
		t.Fatalf("OpenForArchive failed: %v", err)
	}
	sender := &fakeSender{}
	ctx := newTestContext(t, sender)
	p := NewArchiveProducer(ctx, node)

	state, err := p.Poll() // STARTING -> sends Open
	if err != nil {
		t.Fatalf("Poll (open) failed: %v", err)
	}
	if state != StateRunning {
		t.Fatalf("state after open = %v, want RUNNING", state)
	}

	state, err = p.Poll() // RUNNING: reads 0 bytes, EOF true -> sends Close
	if err != nil {
		t.Fatalf("Poll (close) failed: %v", err)
	}
	if state != StateFinished {
		t.Fatalf("state after empty read = %v, want FINISHED", state)
	}

	if len(sender.sent) != 2 {
		t.Fatalf("sent %d transactions, want 2 (open, close)", len(sender.sent))
	}
	if sender.sent[0].Type != txn.TypeOpen || sender.sent[1].Type != txn.TypeClose {
		t.Errorf("unexpected transaction sequence: %+v", sender.sent)
	}
	p.Cleanup()
}

func TestArchiveProducerChunkedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data")
	content := bytes.Repeat([]byte{0x5a}, DefaultChunkSize+100)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	node, err := OpenForArchive(path)
	if err != nil {
		t.Fatalf("OpenForArchive failed: %v", err)
	}
	sender := &fakeSender{}
	ctx := newTestContext(t, sender)
	p := NewArchiveProducer(ctx, node)

	for i := 0; i < 10 && p.State() != StateFinished; i++ {
		if _, err := p.Poll(); err != nil {
			t.Fatalf("Poll iteration %d failed: %v", i, err)
		}
	}
	if p.State() != StateFinished {
		t.Fatalf("producer did not reach FINISHED, state = %v", p.State())
	}

	var sawChunks int
	for _, tr := range sender.sent {
		if tr.Type == txn.TypeWriteChunk {
			sawChunks++
			if bytes.Equal(tr.Payload[tr.DataSlot][:tr.PayloadLen], content[:len(tr.Payload[tr.DataSlot][:tr.PayloadLen])]) {
				t.Error("chunk payload was not encrypted")
			}
		}
	}
	if sawChunks != 2 {
		t.Errorf("saw %d write_chunk transactions, want 2", sawChunks)
	}
	p.Cleanup()
}

func TestArchiveProducerBackpressure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data")
	content := bytes.Repeat([]byte{0x11}, 10)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	node, err := OpenForArchive(path)
	if err != nil {
		t.Fatalf("OpenForArchive failed: %v", err)
	}
	sender := &fakeSender{}
	ctx := newTestContext(t, sender)

	// Saturate the pool with unrelated allocations so the producer's own
	// TryAlloc calls must fail.
	pool := ctx.Pool
	var held []*txn.Transaction
	for i := 0; i < pool.Cap(); i++ {
		tr, err := pool.Alloc(context.Background())
		if err != nil {
			t.Fatalf("Alloc failed: %v", err)
		}
		held = append(held, tr)
	}

	p := NewArchiveProducer(ctx, node)
	state, err := p.Poll()
	if err != nil {
		t.Fatalf("Poll on saturated pool returned error: %v", err)
	}
	if state != StateWaitingTrans {
		t.Fatalf("state = %v, want WAITING_TRANS while pool is saturated", state)
	}

	for _, tr := range held {
		pool.Complete(tr)
	}

	state, err = p.Poll()
	if err != nil {
		t.Fatalf("Poll after release failed: %v", err)
	}
	if state != StateRunning {
		t.Fatalf("state = %v, want RUNNING once a slot freed", state)
	}
	p.Cleanup()
}
