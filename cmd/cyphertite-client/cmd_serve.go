package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/kenneth/cyphertite-go/internal/config"
	"github.com/kenneth/cyphertite-go/internal/ctfile"
	"github.com/kenneth/cyphertite-go/internal/cull"
	"github.com/kenneth/cyphertite-go/internal/diagctl"
	"github.com/kenneth/cyphertite-go/internal/middleware"
	"github.com/kenneth/cyphertite-go/internal/rpc"
	"github.com/kenneth/cyphertite-go/internal/scheduler"
	"github.com/kenneth/cyphertite-go/internal/transport"
	"github.com/kenneth/cyphertite-go/internal/wire"
)

// shutdownTimeout bounds how long the diagnostics HTTP server waits for
// in-flight requests to finish during a graceful shutdown.
const shutdownTimeout = 5 * time.Second

// wireNop builds the header for a zero-cost liveness probe against the
// server: OpNop carries no body and expects a plain StatusOK reply.
func wireNop() wire.Header {
	return wire.Header{Opcode: wire.OpNop}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the diagnostics HTTP surface and the periodic cull scheduler",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	entry := log.WithField("op", "serve")
	m := newMetricsForCommand(cfg.Hardware)

	conn, err := transport.Dial(ctx, cfg.Transport.Address, cfg.Transport.DialTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	readyCheck := func(ctx context.Context) error {
		_, _, err := conn.Exchange(ctx, wireNop(), nil)
		return err
	}

	handler := diagctl.NewHandler(log, m, func() diagctl.SessionSnapshot {
		return diagctl.SessionSnapshot{State: "serving"}
	}, readyCheck)

	router := mux.NewRouter()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggingMiddleware(log))
	handler.RegisterRoutes(router)

	var cullScheduler *scheduler.CullScheduler
	switch {
	case cfg.Cull.Schedule == "":
		// Periodic culling disabled.
	case !cfg.Transport.CacheMirror.Enabled:
		entry.Warn("cull.schedule is set but transport.cache_mirror is disabled; no ctfile fetcher available, skipping scheduler")
	default:
		mirror, merr := transport.NewS3Mirror(ctx, cfg.Transport.CacheMirror)
		if merr != nil {
			return merr
		}
		client := rpc.NewClient(conn, rpc.XMLCodec{})
		engine := cull.NewEngine(client, mirror, ctfile.LineParser{}, cfg.Cull.KeepDays, entry, nil)
		cullScheduler = scheduler.NewCullScheduler(engine, entry)
		if err := cullScheduler.Start(cfg.Cull.Schedule); err != nil {
			return err
		}
		defer cullScheduler.Stop()
	}

	addr := cfg.Diagnostics.Addr
	if addr == "" {
		addr = ":8090"
	}
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	entry.WithField("addr", addr).Info("diagnostics server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
