// Package ctfile provides the production cull.ChunkParser: extracting the
// chunk SHA1 identifiers a fetched ctfile body references, and the name of
// the ctfile it supersedes. The on-disk ctfile format is binary and
// undocumented in the retrieved sources beyond the encrypted/plaintext SHA
// distinction cull.Engine already threads through (see
// internal/cull/descriptor.go's ChunkParser doc comment), so this parser
// follows the same simple line-based convention the rest of this codebase
// uses for its own on-disk records (internal/secrets' "field = hexvalue\n"
// envelope): one hex SHA1 per line, blank lines ignored, plus an optional
// "previous = <name>" line recording the ctfile_get_previous chain link.
package ctfile

import (
	"strings"

	"github.com/kenneth/cyphertite-go/internal/ctxerr"
)

// previousPrefix marks the line carrying the predecessor ctfile's name.
const previousPrefix = "previous = "

// LineParser implements cull.ChunkParser against the line-based SHA list
// format described above.
type LineParser struct{}

// ParseChunkSHAs implements cull.ChunkParser. encrypted is accepted to
// satisfy the interface but does not change how lines are split; it exists
// so a future format revision distinguishing encrypted and plaintext SHA
// fields per line can be introduced without changing the call sites.
func (LineParser) ParseChunkSHAs(body []byte, encrypted bool) ([]string, error) {
	lines := strings.Split(string(body), "\n")
	shas := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, previousPrefix) {
			continue
		}
		if !isHex(line) {
			return nil, ctxerr.New(ctxerr.KindMalformedSecret, "ctfile.LineParser.ParseChunkSHAs", errNotHex)
		}
		shas = append(shas, line)
	}
	return shas, nil
}

// ParsePrevious implements cull.ChunkParser.
func (LineParser) ParsePrevious(body []byte) (string, bool) {
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if name, ok := strings.CutPrefix(line, previousPrefix); ok && name != "" {
			return name, true
		}
	}
	return "", false
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
