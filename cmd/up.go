package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Start the orchestrator, watch for changes, and serve the status endpoint",
	Long: `up builds every configured Lambda handler once, starts watching both the
handler source trees and the CDK infra app, and serves the status
WebSocket/HTTP endpoint until interrupted.`,
	RunE: runUp,
}

func init() {
	rootCmd.AddCommand(upCmd)
}

func runUp(cmd *cobra.Command, args []string) error {
	w, err := wire()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := w.orch.Start(ctx, false); err != nil {
		return err
	}
	defer w.orch.Stop()

	if err := w.status.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = w.status.Shutdown(context.Background()) }()

	w.logger.Info(ctx, "rebuildctl up: watching for changes", "host", w.cfg.Server.Host, "port", w.cfg.Server.Port)

	<-ctx.Done()
	w.logger.Info(context.Background(), "rebuildctl up: shutting down")
	return nil
}
