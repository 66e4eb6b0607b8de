package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kenneth/cyphertite-go/internal/audit"
	"github.com/kenneth/cyphertite-go/internal/config"
	"github.com/kenneth/cyphertite-go/internal/hwaccel"
	"github.com/kenneth/cyphertite-go/internal/metrics"
	"github.com/kenneth/cyphertite-go/internal/opqueue"
	"github.com/kenneth/cyphertite-go/internal/rpc"
	"github.com/kenneth/cyphertite-go/internal/secrets"
	"github.com/kenneth/cyphertite-go/internal/session"
	"github.com/kenneth/cyphertite-go/internal/transport"
	"github.com/kenneth/cyphertite-go/internal/txn"
)

// client bundles every long-lived piece a subcommand needs: the network
// connection, the control-plane RPC client, and the session.Context the
// producers drive through the transaction pool. Close releases the
// connection once the command's op queue has drained.
type client struct {
	cfg  *config.Config
	conn *transport.Conn
	rpc  *rpc.Client
	ctx  *session.Context
}

// dial unlocks the secrets envelope, opens the transport connection, and
// assembles a session.Context, the same three steps the archive and extract
// subcommands need before they can touch the wire.
func dial(ctx context.Context, cfg *config.Config, log *logrus.Entry) (*client, error) {
	aesKey, ivKey, err := secrets.Unlock(ctx, passphraseFromEnv(), cfg.Secrets.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("unlock secrets: %w", err)
	}

	conn, err := transport.Dial(ctx, cfg.Transport.Address, cfg.Transport.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Transport.Address, err)
	}

	var sender session.Sender
	if cfg.Transport.SendRateBps > 0 {
		sender = transport.NewChunkSender(transport.NewRateLimitedConn(conn, cfg.Transport.SendRateBps, cfg.Transport.SendRateBps))
	} else {
		sender = transport.NewChunkSender(conn)
	}

	pool := txn.NewPool(cfg.Session.TransactionPoolSize)
	queue := opqueue.New(nil)

	sctx, err := session.NewContext(pool, queue, sender, aesKey, ivKey, log)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("build session context: %w", err)
	}

	rpcClient := rpc.NewClient(conn, rpc.XMLCodec{})

	return &client{cfg: cfg, conn: conn, rpc: rpcClient, ctx: sctx}, nil
}

func (c *client) Close() error {
	c.ctx.Pool.Close()
	return c.conn.Close()
}

// newMetricsForCommand builds a metrics.Metrics against the default
// registry, matching the teacher's one-metrics-instance-per-process
// convention. Only the serve subcommand builds one; its diagnostics server
// exposes the default registry on /metrics.
func newMetricsForCommand(hw config.HardwareConfig) *metrics.Metrics {
	m := metrics.NewMetrics()
	m.SetHardwareAccelerationStatus("aes-ni", hwaccel.IsHardwareAccelerationEnabled(hw))
	return m
}

// mustAuditLogger builds the audit trail logger from cfg.Audit. A disabled
// audit config gets a logger that discards every event; a bad sink
// configuration falls back to a stdout logger rather than failing the whole
// command over audit plumbing.
func mustAuditLogger(cfg config.AuditConfig) audit.Logger {
	if !cfg.Enabled {
		return audit.NewLogger(0, discardWriter{})
	}
	logger, err := audit.NewLoggerFromConfig(cfg)
	if err != nil {
		log.WithError(err).Warn("invalid audit sink configuration, falling back to stdout")
		return audit.NewLogger(cfg.MaxEvents, nil)
	}
	return logger
}

type discardWriter struct{}

func (discardWriter) WriteEvent(*audit.AuditEvent) error { return nil }

// driveProducer polls p to completion. Poll must never block (spec §4.6),
// so StateWaitingTrans and StateWaitingServer are handled by looping rather
// than sleeping on a condition variable. The producers complete each
// transaction inside Poll right after sending it, so their own slots are
// back in the pool by the next iteration.
func driveProducer(p session.Producer) error {
	for {
		state, err := p.Poll()
		if err != nil {
			return err
		}
		if state == session.StateFinished {
			return nil
		}
	}
}
