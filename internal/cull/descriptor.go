package cull

// CtfileDescriptor is one remote catalog entry as returned by list, before
// its body has been fetched and parsed (spec §3/§4.8). Name carries the
// cooked "YYYYMMDD-HHMMSS-..." remote name the retention cutoff compares
// against directly, the same way ct_cull_collect_ctfiles does
// (strncmp(file->mlf_name, buf, timelen)) rather than against a separately
// tracked timestamp field.
type CtfileDescriptor struct {
	Name      string
	Encrypted bool

	// Previous is the name of the ctfile this one supersedes, if any, read
	// from the ctfile's own body once fetched. A kept ctfile's Previous
	// chain is walked so an older ctfile still referenced by a newer one
	// is upgraded to kept rather than deleted out from under it.
	Previous string
}

// Fetcher retrieves the raw bytes of a named ctfile so its chunk
// references can be parsed. internal/transport supplies the concrete
// implementation, S3Mirror, which reads ctfiles from an S3 cache bucket.
type Fetcher interface {
	FetchCtfile(name string) ([]byte, error)
}

// ChunkParser extracts the chunk SHA1 hex identifiers a ctfile body
// references, and the name of the ctfile it supersedes, if any. The
// on-disk ctfile format is binary and undocumented in the retrieved
// sources beyond the encrypted/plaintext SHA distinction
// (ct_cull_collect_ctfiles picks the encrypted or plain SHA per descriptor);
// ChunkParser is kept as an explicit interface seam for the same reason
// rpc.Codec is — the exact format must come from a reference trace rather
// than be invented.
type ChunkParser interface {
	ParseChunkSHAs(body []byte, encrypted bool) ([]string, error)

	// ParsePrevious reports the name of the ctfile body references as its
	// predecessor, mirroring ctfile_get_previous's chain lookup
	// (ct_ctfile_mode.c:1048-1068). ok is false when body records no
	// predecessor.
	ParsePrevious(body []byte) (name string, ok bool)
}
