package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/kenneth/cyphertite-go/internal/config"
	"github.com/kenneth/cyphertite-go/internal/ctfile"
	"github.com/kenneth/cyphertite-go/internal/cull"
	"github.com/kenneth/cyphertite-go/internal/rpc"
	"github.com/kenneth/cyphertite-go/internal/transport"
)

var cullCmd = &cobra.Command{
	Use:   "cull",
	Short: "Run one cull cycle: list, mark live chunks, report to the server",
	Args:  cobra.NoArgs,
	RunE:  runCull,
}

func runCull(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if !cfg.Transport.CacheMirror.Enabled {
		return errCullNeedsCacheMirror
	}

	ctx := context.Background()
	entry := log.WithField("op", "cull")
	auditLog := mustAuditLogger(cfg.Audit)
	defer auditLog.Close()
	start := time.Now()

	conn, err := transport.Dial(ctx, cfg.Transport.Address, cfg.Transport.DialTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	mirror, err := transport.NewS3Mirror(ctx, cfg.Transport.CacheMirror)
	if err != nil {
		return err
	}

	client := rpc.NewClient(conn, rpc.XMLCodec{})
	engine := cull.NewEngine(client, mirror, ctfile.LineParser{}, cfg.Cull.KeepDays, entry, nil)

	runErr := engine.Kick(ctx)
	auditLog.LogCull("", 0, runErr == nil, runErr, time.Since(start))
	if runErr != nil {
		return runErr
	}
	entry.Info("cull cycle finished")
	return nil
}
