package transport

import (
	"context"
	"time"

	"github.com/kenneth/cyphertite-go/internal/ctcrypto"
	"github.com/kenneth/cyphertite-go/internal/ctxerr"
	"github.com/kenneth/cyphertite-go/internal/session"
	"github.com/kenneth/cyphertite-go/internal/txn"
	"github.com/kenneth/cyphertite-go/internal/wire"
)

// ChunkTimeout bounds a single chunk read/write round trip. Chunk traffic
// gets its own (longer) timeout than rpc.ControlTimeout since chunk bodies
// can be up to session.DefaultChunkSize.
const ChunkTimeout = 60 * time.Second

// exchanger is satisfied by both *Conn and *RateLimitedConn, letting
// ChunkSender work either directly on a socket or behind a send limiter.
type exchanger interface {
	Exchange(ctx context.Context, hdr wire.Header, body []byte) (wire.Header, []byte, error)
}

// ChunkSender implements session.Sender over a Conn, framing each
// transaction as one wire.Header-prefixed request and blocking for its
// reply. Control-plane traffic (open/close/list/...) flows through
// rpc.Client on the same Conn; chunk traffic flows through ChunkSender so
// the hot path never goes through Codec marshaling.
type ChunkSender struct {
	conn exchanger
}

// NewChunkSender wraps conn as a session.Sender.
func NewChunkSender(conn exchanger) *ChunkSender {
	return &ChunkSender{conn: conn}
}

var _ session.Sender = (*ChunkSender)(nil)

// Send implements session.Sender. For TypeWriteChunk it writes the chunk
// number, IV and ciphertext; for TypeReadChunk it writes a request carrying
// only the chunk number and fills t.Payload/PayloadLen/IV/EOF from the
// reply, mirroring how ExtractProducer expects Send to behave (see
// internal/session/extract_producer.go).
func (s *ChunkSender) Send(t *txn.Transaction) error {
	ctx, cancel := context.WithTimeout(context.Background(), ChunkTimeout)
	defer cancel()

	switch t.Type {
	case txn.TypeWriteChunk:
		return s.sendWrite(ctx, t)
	case txn.TypeReadChunk:
		return s.sendRead(ctx, t)
	default:
		return s.sendControlFrame(ctx, t)
	}
}

func (s *ChunkSender) sendWrite(ctx context.Context, t *txn.Transaction) error {
	body := make([]byte, 4+32+t.PayloadLen)
	putUint32At(body[0:4], t.ChunkNum)
	copy(body[4:36], t.IV[:])
	copy(body[36:], t.Payload[t.DataSlot][:t.PayloadLen])

	flags := wire.Flag(0)
	if t.PayloadLen >= ctcrypto.BlockSize {
		flags |= wire.FlagEncrypted
	}
	hdr := wire.Header{Opcode: wire.OpWriteChunk, Flags: flags}
	replyHdr, _, err := s.conn.Exchange(ctx, hdr, body)
	if err != nil {
		return err
	}
	if replyHdr.Status != wire.StatusOK {
		return ctxerr.New(ctxerr.KindServer, "transport.ChunkSender.sendWrite", errServerRejectedChunk)
	}
	return nil
}

func (s *ChunkSender) sendRead(ctx context.Context, t *txn.Transaction) error {
	body := make([]byte, 4)
	putUint32At(body, t.ChunkNum)

	hdr := wire.Header{Opcode: wire.OpReadChunk}
	replyHdr, replyBody, err := s.conn.Exchange(ctx, hdr, body)
	if err != nil {
		return err
	}
	if replyHdr.Status != wire.StatusOK {
		return ctxerr.New(ctxerr.KindServer, "transport.ChunkSender.sendRead", errServerRejectedChunk)
	}
	if len(replyBody) < 32 {
		return ctxerr.New(ctxerr.KindProtocol, "transport.ChunkSender.sendRead", errShortChunkReply)
	}
	copy(t.IV[:], replyBody[:32])
	ciphertext := replyBody[32:]
	if t.Payload[t.DataSlot] == nil || cap(t.Payload[t.DataSlot]) < len(ciphertext) {
		t.Payload[t.DataSlot] = make([]byte, len(ciphertext))
	}
	t.Payload[t.DataSlot] = t.Payload[t.DataSlot][:len(ciphertext)]
	copy(t.Payload[t.DataSlot], ciphertext)
	t.PayloadLen = len(ciphertext)
	t.EOF = replyHdr.Flags&wire.FlagEncrypted == 0 && replyHdr.ExStatus == 1
	return nil
}

// sendControlFrame handles the Open/Close/Delete/List/Cull* transaction
// types when they are driven through the transaction pool rather than
// directly through rpc.Client (archive/extract producers issue Open/Close
// this way so they share the same backpressure accounting as chunk
// traffic).
func (s *ChunkSender) sendControlFrame(ctx context.Context, t *txn.Transaction) error {
	opcode := controlOpcode(t.Type)
	var body []byte
	if t.Name != "" {
		body = []byte(t.Name)
	}
	hdr := wire.Header{Opcode: opcode, Flags: wire.FlagMetadata}
	replyHdr, _, err := s.conn.Exchange(ctx, hdr, body)
	if err != nil {
		return err
	}
	if replyHdr.Status != wire.StatusOK {
		return ctxerr.New(ctxerr.KindServer, "transport.ChunkSender.sendControlFrame", errServerRejectedChunk)
	}
	return nil
}

func controlOpcode(t txn.Type) wire.Opcode {
	switch t {
	case txn.TypeOpen:
		return wire.OpXMLOpen
	case txn.TypeClose:
		return wire.OpXMLClose
	case txn.TypeDelete:
		return wire.OpXMLDelete
	case txn.TypeList:
		return wire.OpXMLList
	case txn.TypeCullSetup:
		return wire.OpXMLCullSetup
	case txn.TypeCullShas:
		return wire.OpXMLCullShas
	case txn.TypeCullComplete:
		return wire.OpXMLCullComplete
	default:
		return wire.OpNop
	}
}

func putUint32At(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
