// Package ctxerr defines the client's error taxonomy. Every fatal failure
// that reaches session shutdown is wrapped in an *Error so the event loop and
// the logger can classify it without parsing strings.
package ctxerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure the way the session shutdown path and the
// metrics layer need to distinguish them.
type Kind string

const (
	KindConfig          Kind = "config"
	KindIO              Kind = "io"
	KindCrypto          Kind = "crypto"
	KindWrongPassphrase Kind = "wrong_passphrase"
	KindMalformedSecret Kind = "malformed_secrets"
	KindProtocol        Kind = "protocol"
	KindServer          Kind = "server"
	KindName            Kind = "name"
	KindSaturated       Kind = "saturated"
	KindTruncated       Kind = "truncated"
)

// Error is the uniform error envelope the engine surfaces. Op names the
// failing operation (e.g. "secrets.unlock", "rpc.open") for log correlation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err (which may be nil) as an *Error of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err is an *Error of the given kind, following wrapping.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Internal reports whether kind is backpressure the engine must never
// surface to a caller (spec §7: Saturated and WAITING_SERVER are internal).
func (k Kind) Internal() bool {
	return k == KindSaturated
}

// Fatal reports whether kind terminates the session (everything except
// Saturated, which is handled internally, and Truncated, which is a
// logged warning that lets the archive complete).
func (k Kind) Fatal() bool {
	return !k.Internal() && k != KindTruncated
}
