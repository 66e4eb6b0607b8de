package session

import "errors"

var (
	errShortWrite      = errors.New("session: short write extracting chunk")
	errOrphanChunk     = errors.New("session: chunk number has no matching file node")
	errSourceTruncated = errors.New("session: source file truncated during backup")
)
