package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kenneth/cyphertite-go/internal/config"
	"github.com/kenneth/cyphertite-go/internal/session"
)

var archiveCmd = &cobra.Command{
	Use:   "archive <local-file> [remote-name]",
	Short: "Encrypt and upload a local file as a ctfile",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runArchive,
}

func runArchive(cmd *cobra.Command, args []string) error {
	localPath := args[0]
	remoteName := filepath.Base(localPath)
	if len(args) == 2 {
		remoteName = args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	entry := log.WithField("op", "archive")
	auditLog := mustAuditLogger(cfg.Audit)
	defer auditLog.Close()
	start := time.Now()

	c, err := dial(ctx, cfg, entry)
	if err != nil {
		return err
	}
	defer c.Close()

	node, err := session.OpenForArchive(localPath)
	if err != nil {
		return err
	}
	node.Name = remoteName

	producer := session.NewArchiveProducer(c.ctx, node)
	defer producer.Cleanup()
	runErr := driveProducer(producer)
	auditLog.LogArchive(remoteName, localPath, int(node.ChunkNum), runErr == nil, runErr, time.Since(start), nil)
	if runErr != nil {
		return runErr
	}

	entry.WithField("local_path", localPath).WithField("remote_name", remoteName).
		WithField("chunks", node.ChunkNum).Info("archive complete")
	return nil
}
