package transport

import (
	"bufio"
	"io"
	"net"
	"testing"
	"time"

	"github.com/kenneth/cyphertite-go/internal/txn"
	"github.com/kenneth/cyphertite-go/internal/wire"
)

// serveChunkReply runs a single scripted reply for a ReadChunk request,
// echoing back iv and ciphertext with the given status.
func serveChunkReply(t *testing.T, server net.Conn, iv [32]byte, ciphertext []byte, status wire.Status) {
	t.Helper()
	go func() {
		r := bufio.NewReader(server)
		var hb [wire.HeaderSize]byte
		if _, err := io.ReadFull(r, hb[:]); err != nil {
			return
		}
		hdr, err := wire.Unmarshal(hb[:])
		if err != nil {
			return
		}
		reqBody := make([]byte, hdr.Size)
		if hdr.Size > 0 {
			if _, err := io.ReadFull(r, reqBody); err != nil {
				return
			}
		}
		replyBody := append(append([]byte{}, iv[:]...), ciphertext...)
		replyHdr := wire.Header{Opcode: wire.OpReadChunk, Status: status, Size: uint32(len(replyBody))}
		frame := replyHdr.Marshal()
		server.Write(frame[:])
		server.Write(replyBody)
	}()
}

func TestChunkSenderSendRead(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	conn := &Conn{nc: client, r: bufio.NewReader(client)}
	var iv [32]byte
	for i := range iv {
		iv[i] = byte(i)
	}
	ciphertext := []byte("some-ciphertext-bytes")
	serveChunkReply(t, server, iv, ciphertext, wire.StatusOK)

	sender := NewChunkSender(conn)
	tr := &txn.Transaction{Type: txn.TypeReadChunk, ChunkNum: 3}

	done := make(chan error, 1)
	go func() { done <- sender.Send(tr) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not return in time")
	}

	if tr.IV != iv {
		t.Errorf("IV = %x, want %x", tr.IV, iv)
	}
	if string(tr.Payload[tr.DataSlot][:tr.PayloadLen]) != string(ciphertext) {
		t.Errorf("payload = %q, want %q", tr.Payload[tr.DataSlot][:tr.PayloadLen], ciphertext)
	}
}

func TestChunkSenderSendWrite(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	conn := &Conn{nc: client, r: bufio.NewReader(client)}

	go func() {
		r := bufio.NewReader(server)
		var hb [wire.HeaderSize]byte
		if _, err := io.ReadFull(r, hb[:]); err != nil {
			return
		}
		hdr, err := wire.Unmarshal(hb[:])
		if err != nil {
			return
		}
		body := make([]byte, hdr.Size)
		if _, err := io.ReadFull(r, body); err != nil {
			return
		}
		replyHdr := wire.Header{Opcode: wire.OpWriteChunk, Status: wire.StatusOK}
		frame := replyHdr.Marshal()
		server.Write(frame[:])
	}()

	sender := NewChunkSender(conn)
	tr := &txn.Transaction{Type: txn.TypeWriteChunk, ChunkNum: 1, DataSlot: 0, PayloadLen: 4}
	tr.Payload[0] = []byte{1, 2, 3, 4}

	done := make(chan error, 1)
	go func() { done <- sender.Send(tr) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not return in time")
	}
}
