package session

import (
	"github.com/kenneth/cyphertite-go/internal/ctcrypto"
	"github.com/kenneth/cyphertite-go/internal/ctxerr"
	"github.com/kenneth/cyphertite-go/internal/txn"
)

// ExtractProducer drives one remote file through retrieval and decryption,
// mirroring ArchiveProducer's poll cycle in reverse (spec §4.6). A chunk
// reply shorter than the requested size that does not also carry the
// server's EOF flag is treated as a truncation: logged as a warning
// (ctxerr.KindTruncated is non-fatal per spec §7) and taken as the end of
// the file rather than failing the whole extract.
type ExtractProducer struct {
	ctx   *Context
	node  *FileNode
	state ProducerState
}

// NewExtractProducer constructs a producer for an already-created
// destination file node.
func NewExtractProducer(ctx *Context, node *FileNode) *ExtractProducer {
	return &ExtractProducer{ctx: ctx, node: node, state: StateStarting}
}

// State implements Producer.
func (p *ExtractProducer) State() ProducerState { return p.state }

// Cleanup implements opqueue.Op.
func (p *ExtractProducer) Cleanup() { p.node.Close() }

// Poll implements Producer.
func (p *ExtractProducer) Poll() (ProducerState, error) {
	switch p.state {
	case StateStarting:
		return p.sendControl(txn.TypeOpen, StateRunning)
	case StateRunning:
		return p.pollRunning()
	default:
		return p.state, nil
	}
}

func (p *ExtractProducer) sendControl(t txn.Type, next ProducerState) (ProducerState, error) {
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

func (p *ExtractProducer) pollRunning() (ProducerState, error) {
	tr, err := p.ctx.Pool.TryAlloc()
	if err != nil {
		if ctxerr.Is(err, ctxerr.KindSaturated) {
			return StateWaitingTrans, nil
		}
		return p.state, err
	}
	tr.Type = txn.TypeReadChunk
	tr.ChunkNum = p.node.ChunkNum

	sendErr := p.ctx.Sender.Send(tr)
	if sendErr != nil {
		p.ctx.Pool.Complete(tr)
		return p.state, sendErr
	}

	ciphertext := tr.Payload[tr.DataSlot][:tr.PayloadLen]
	iv := tr.IV
	eof := tr.EOF
	p.ctx.Pool.Complete(tr)

	truncated := !eof && len(ciphertext) < p.node.ChunkSize
	if truncated {
		if p.ctx.Log != nil {
			p.ctx.Log.WithError(ctxerr.New(ctxerr.KindTruncated, "session.ExtractProducer.pollRunning", errShortWrite)).
				Warn("chunk shorter than requested with no server EOF flag, treating as end of file")
		}
		eof = true
	}

	if len(ciphertext) > 0 {
		plaintext := make([]byte, len(ciphertext))
		if len(ciphertext) >= ctcrypto.BlockSize {
			if err := p.ctx.Cipher.Decrypt(plaintext, ciphertext, ctcrypto.Tweak(iv)); err != nil {
				return p.state, err
			}
		} else {
			copy(plaintext, ciphertext)
		}
		if err := p.node.WriteChunk(plaintext); err != nil {
			return p.state, err
		}
	}

	if eof {
		p.node.EOF = true
		return p.sendControl(txn.TypeClose, StateFinished)
	}
	return p.state, nil
}
