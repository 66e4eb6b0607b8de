package transport

import "errors"

var (
	errServerRejectedChunk = errors.New("server rejected chunk transaction")
	errShortChunkReply     = errors.New("chunk reply shorter than IV field")
)
