package rpc

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/kenneth/cyphertite-go/internal/wire"
)

// jsonCodec is a test-only stand-in for the real XML codec; the wire schema
// itself is an open question (see Codec's doc comment), so tests only need
// something that round-trips.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

type fakeTransport struct {
	lastReq Request
	reply   Request
	err     error
	delay   time.Duration
}

func (f *fakeTransport) RoundTrip(ctx context.Context, req Request) (Request, error) {
	f.lastReq = req
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Request{}, ctx.Err()
		}
	}
	if f.err != nil {
		return Request{}, f.err
	}
	return f.reply, nil
}

func okReply(body []byte) Request {
	return Request{Header: wire.Header{Status: wire.StatusOK}, Body: body}
}

func TestClientOpen(t *testing.T) {
	replyBody, _ := json.Marshal(OpenReply{Size: 1024})
	transport := &fakeTransport{reply: okReply(replyBody)}
	client := NewClient(transport, jsonCodec{})

	reply, err := client.Open(context.Background(), "backup.ctfile", false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if reply.Size != 1024 {
		t.Errorf("Size = %d, want 1024", reply.Size)
	}
	if transport.lastReq.Header.Opcode != wire.OpXMLOpen {
		t.Errorf("opcode = %v, want OpXMLOpen", transport.lastReq.Header.Opcode)
	}
}

func TestClientOpenRejectsBadName(t *testing.T) {
	transport := &fakeTransport{reply: okReply(nil)}
	client := NewClient(transport, jsonCodec{})

	if _, err := client.Open(context.Background(), "../escape", false); err == nil {
		t.Fatal("expected error opening a name containing a path separator")
	}
}

func TestClientCallPropagatesServerError(t *testing.T) {
	transport := &fakeTransport{reply: Request{Header: wire.Header{Status: wire.StatusErr}}}
	client := NewClient(transport, jsonCodec{})

	if err := client.Close(context.Background(), "x"); err == nil {
		t.Fatal("expected error on non-OK server status")
	}
}

func TestClientCallTimesOut(t *testing.T) {
	transport := &fakeTransport{delay: ControlTimeout + 50*time.Millisecond}
	client := NewClient(transport, jsonCodec{})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	// Use a client with a short effective timeout by racing the parent
	// context instead of waiting the full ControlTimeout.
	err := client.Close(ctx, "x")
	if err == nil {
		t.Fatal("expected error when the round trip outlives the context")
	}
}

func TestClientCullLifecycle(t *testing.T) {
	transport := &fakeTransport{reply: okReply(nil)}
	client := NewClient(transport, jsonCodec{})

	if err := client.CullSetup(context.Background(), "uuid-1"); err != nil {
		t.Fatalf("CullSetup failed: %v", err)
	}
	if err := client.CullShas(context.Background(), "uuid-1", []string{"deadbeef"}, true); err != nil {
		t.Fatalf("CullShas failed: %v", err)
	}
	if err := client.CullComplete(context.Background(), "uuid-1"); err != nil {
		t.Fatalf("CullComplete failed: %v", err)
	}
}

func TestCookRemoteName(t *testing.T) {
	cases := []struct {
		name    string
		wantErr bool
	}{
		{"", true},
		{".", true},
		{"..", true},
		{"has/slash", true},
		{`has\backslash`, true},
		{"normal-name.ctfile", false},
	}
	for _, c := range cases {
		_, err := CookRemoteName(c.name)
		if (err != nil) != c.wantErr {
			t.Errorf("CookRemoteName(%q) error = %v, wantErr %v", c.name, err, c.wantErr)
		}
	}
}

func TestCookRemoteNameRejectsTooLong(t *testing.T) {
	long := make([]byte, MaxRemoteNameLen+1)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := CookRemoteName(string(long)); err == nil {
		t.Fatal("expected error for name exceeding MaxRemoteNameLen")
	}
}
