package session

// ProducerState is a FileNode producer's position in the polling state
// machine driven by the engine's event loop (spec §4.6).
type ProducerState int

const (
	// StateStarting marks a producer that has not yet issued its first
	// transaction.
	StateStarting ProducerState = iota
	// StateRunning marks a producer actively allocating and sending
	// transactions.
	StateRunning
	// StateWaitingTrans marks a producer blocked because the transaction
	// pool is saturated; the engine re-polls it once a slot frees.
	StateWaitingTrans
	// StateWaitingServer marks a producer that has sent everything it can
	// and is waiting on server replies before it can proceed.
	StateWaitingServer
	// StateFinished marks a producer with nothing left to do; the engine
	// removes it from the operation queue.
	StateFinished
)

func (s ProducerState) String() string {
	switch s {
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateWaitingTrans:
		return "WAITING_TRANS"
	case StateWaitingServer:
		return "WAITING_SERVER"
	case StateFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// Producer is polled repeatedly by the engine's single-threaded event loop
// until it reaches StateFinished. Poll must never block: a saturated
// transaction pool is reported as StateWaitingTrans rather than waited on,
// so the loop can service other producers in the meantime.
type Producer interface {
	Poll() (ProducerState, error)
	State() ProducerState
}
