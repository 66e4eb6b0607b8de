package session

import (
	"io"
	"os"

	"github.com/kenneth/cyphertite-go/internal/wire"
)

// FileNode tracks one file moving through an archive or extract operation:
// its local handle, its position, and the remote chunk bookkeeping needed to
// resume or verify (spec §3).
type FileNode struct {
	Path      string
	Name      string
	Size      int64
	ChunkSize int
	ChunkNum  uint32
	EOF       bool

	// BytesRead tracks cumulative bytes consumed by ReadChunk so Truncated
	// can detect a source file that shrank after Size was stat'd at open
	// (spec §7, scenario S3).
	BytesRead int64

	fd *os.File
}

// OpenForArchive opens path for reading and stats its size.
func OpenForArchive(path string) (*FileNode, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := fd.Stat()
	if err != nil {
		fd.Close()
		return nil, err
	}
	return &FileNode{
		Path:      path,
		Name:      info.Name(),
		Size:      info.Size(),
		ChunkSize: DefaultChunkSize,
		fd:        fd,
	}, nil
}

// CreateForExtract creates (or truncates) path for writing.
func CreateForExtract(path, name string) (*FileNode, error) {
	fd, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	return &FileNode{
		Path:      path,
		Name:      name,
		ChunkSize: DefaultChunkSize,
		fd:        fd,
	}, nil
}

// ReadChunk reads up to ChunkSize bytes, reporting io.EOF via the returned
// bool once the file is exhausted (wrapping os.File.Read's convention into
// the explicit flag the producer state machine checks).
func (f *FileNode) ReadChunk() (data []byte, eof bool, err error) {
	buf := make([]byte, f.ChunkSize)
	n, rerr := f.fd.Read(buf)
	if n > 0 {
		f.ChunkNum++
		f.BytesRead += int64(n)
	}
	if rerr == io.EOF {
		return buf[:n], true, nil
	}
	if rerr != nil {
		return buf[:n], false, rerr
	}
	return buf[:n], false, nil
}

// Truncated reports whether fewer bytes were actually read than Size
// promised when the file was opened for archive — the source shrank while
// being read (spec §7, scenario S3). Only meaningful once EOF has been
// reached.
func (f *FileNode) Truncated() bool {
	return f.BytesRead < f.Size
}

// WriteChunk appends data to the file being extracted.
func (f *FileNode) WriteChunk(data []byte) error {
	_, err := f.fd.Write(data)
	if err == nil {
		f.ChunkNum++
	}
	return err
}

// Close releases the file descriptor.
func (f *FileNode) Close() error {
	if f.fd == nil {
		return nil
	}
	err := f.fd.Close()
	f.fd = nil
	return err
}

// NextHeader builds the wire header for the next outgoing transaction,
// carrying the running chunk number so the server can detect gaps.
func (f *FileNode) NextHeader(op wire.Opcode) wire.Header {
	return wire.Header{
		Opcode: op,
		Size:   uint32(f.ChunkNum),
	}
}
