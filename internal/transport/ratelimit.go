package transport

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/kenneth/cyphertite-go/internal/wire"
)

// RateLimitedConn wraps a Conn with a token-bucket send limiter so a single
// archive run cannot saturate the link to the server. One token is consumed
// per byte of outgoing frame body; the header itself is not rate limited.
type RateLimitedConn struct {
	*Conn
	limiter *rate.Limiter
}

// NewRateLimitedConn wraps conn with a limiter allowing bytesPerSec
// sustained throughput and a burst of burst bytes. A frame body larger than
// burst is never admitted: Exchange returns the limiter's error for it.
func NewRateLimitedConn(conn *Conn, bytesPerSec, burst int) *RateLimitedConn {
	return &RateLimitedConn{
		Conn:    conn,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst),
	}
}

// Exchange waits for the limiter to admit len(body) bytes before delegating
// to the underlying Conn.
func (c *RateLimitedConn) Exchange(ctx context.Context, hdr wire.Header, body []byte) (wire.Header, []byte, error) {
	if len(body) > 0 {
		if err := c.limiter.WaitN(ctx, len(body)); err != nil {
			return wire.Header{}, nil, err
		}
	}
	return c.Conn.Exchange(ctx, hdr, body)
}
