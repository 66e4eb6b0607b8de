package session

import (
	"github.com/kenneth/cyphertite-go/internal/ctcrypto"
	"github.com/kenneth/cyphertite-go/internal/ctxerr"
	"github.com/kenneth/cyphertite-go/internal/txn"
)

// ArchiveProducer drives one local file through the STARTING -> RUNNING ->
// FINISHED poll cycle (spec §4.6), encrypting each chunk with the session's
// XTS cipher before handing it to the transport. If the source file
// shrinks after its size was stat'd at open, the short read is logged as a
// single warning and archiving completes with the partial data received
// (spec §7, scenario S3) rather than failing the operation.
type ArchiveProducer struct {
	ctx   *Context
	node  *FileNode
	state ProducerState

	// pending holds a chunk already read from disk but not yet handed to
	// a transaction, so a saturated pool never loses data: the file
	// offset has already moved past it.
	pending    []byte
	pendingEOF bool
	hasPending bool
}

// NewArchiveProducer constructs a producer for an already-opened file node.
func NewArchiveProducer(ctx *Context, node *FileNode) *ArchiveProducer {
	return &ArchiveProducer{ctx: ctx, node: node, state: StateStarting}
}

// State implements Producer.
func (p *ArchiveProducer) State() ProducerState { return p.state }

// Cleanup implements opqueue.Op.
func (p *ArchiveProducer) Cleanup() { p.node.Close() }

// Poll implements Producer.
func (p *ArchiveProducer) Poll() (ProducerState, error) {
	switch p.state {
	case StateStarting:
		return p.sendControl(txn.TypeOpen, StateRunning)
	case StateRunning:
		return p.pollRunning()
	default:
		return p.state, nil
	}
}

func (p *ArchiveProducer) sendControl(t txn.Type, next ProducerState) (ProducerState, error) {
	tr, err := p.ctx.Pool.TryAlloc()
	if err != nil {
		if ctxerr.Is(err, ctxerr.KindSaturated) {
			return StateWaitingTrans, nil
		}
		return p.state, err
	}
	tr.Type = t
	tr.Name = p.node.Name
	tr.Owner = p
	sendErr := p.ctx.Sender.Send(tr)
	p.ctx.Pool.Complete(tr)
	if sendErr != nil {
		return p.state, sendErr
	}
	p.state = next
	return p.state, nil
}

func (p *ArchiveProducer) pollRunning() (ProducerState, error) {
	var data []byte
	var eof bool
	if p.hasPending {
		data, eof = p.pending, p.pendingEOF
	} else {
		var err error
		data, eof, err = p.node.ReadChunk()
		if err != nil {
			return p.state, err
		}
	}

	if len(data) == 0 {
		p.hasPending = false
		if eof {
			p.logTruncationIfAny()
			return p.sendControl(txn.TypeClose, StateFinished)
		}
		return p.state, nil
	}

	tr, err := p.ctx.Pool.TryAlloc()
	if err != nil {
		if ctxerr.Is(err, ctxerr.KindSaturated) {
			p.pending, p.pendingEOF, p.hasPending = data, eof, true
			return StateWaitingTrans, nil
		}
		return p.state, err
	}
	p.hasPending = false

	iv, iverr := ctcrypto.DeriveIV(p.ctx.IVKey, data)
	if iverr != nil {
		p.ctx.Pool.Complete(tr)
		return p.state, iverr
	}

	ciphertext := make([]byte, len(data))
	if len(data) >= ctcrypto.BlockSize {
		if err := p.ctx.Cipher.Encrypt(ciphertext, data, ctcrypto.Tweak(iv)); err != nil {
			p.ctx.Pool.Complete(tr)
			return p.state, err
		}
		tr.IV = iv
	} else {
		// A trailing remainder shorter than one AES block cannot carry an
		// XTS tweak; it is sent unencrypted with FlagEncrypted unset on
		// its header rather than attempting sub-block ciphertext
		// stealing (out of scope — see spec Non-goals).
		copy(ciphertext, data)
	}

	tr.Type = txn.TypeWriteChunk
	tr.ChunkNum = p.node.ChunkNum
	tr.Payload[tr.DataSlot] = ciphertext
	tr.PayloadLen = len(ciphertext)
	tr.EOF = eof

	sendErr := p.ctx.Sender.Send(tr)
	p.ctx.Pool.Complete(tr)
	if sendErr != nil {
		return p.state, sendErr
	}

	if eof {
		p.node.EOF = true
		p.logTruncationIfAny()
	}
	return p.state, nil
}

// logTruncationIfAny warns once if the source file read fewer bytes than
// its stat'd Size promised, per spec §7 scenario S3. It is only called once
// EOF has been observed, so node.Truncated's BytesRead comparison is final.
func (p *ArchiveProducer) logTruncationIfAny() {
	if !p.node.Truncated() {
		return
	}
	if p.ctx.Log != nil {
		p.ctx.Log.WithError(ctxerr.New(ctxerr.KindTruncated, "session.ArchiveProducer.pollRunning", errSourceTruncated)).
			Warn("file truncated during backup")
	}
}
