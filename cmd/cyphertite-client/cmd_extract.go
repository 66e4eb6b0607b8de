package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/kenneth/cyphertite-go/internal/config"
	"github.com/kenneth/cyphertite-go/internal/session"
)

var extractCmd = &cobra.Command{
	Use:   "extract <remote-name> <local-file>",
	Short: "Download and decrypt a ctfile to a local path",
	Args:  cobra.ExactArgs(2),
	RunE:  runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	remoteName, localPath := args[0], args[1]

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	entry := log.WithField("op", "extract")
	auditLog := mustAuditLogger(cfg.Audit)
	defer auditLog.Close()
	start := time.Now()

	c, err := dial(ctx, cfg, entry)
	if err != nil {
		return err
	}
	defer c.Close()

	node, err := session.CreateForExtract(localPath, remoteName)
	if err != nil {
		return err
	}

	producer := session.NewExtractProducer(c.ctx, node)
	defer producer.Cleanup()
	runErr := driveProducer(producer)
	auditLog.LogExtract(remoteName, localPath, int(node.ChunkNum), runErr == nil, runErr, time.Since(start), nil)
	if runErr != nil {
		return runErr
	}

	entry.WithField("remote_name", remoteName).WithField("local_path", localPath).
		WithField("chunks", node.ChunkNum).Info("extract complete")
	return nil
}
