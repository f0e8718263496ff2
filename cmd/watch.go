package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Build every handler once, then watch for changes without serving status",
	Long: `watch is up without the status HTTP/WebSocket endpoint: useful when a
separate process already serves status. watch reads no input of its own,
so a deploy awaiting approval in this process stays pending.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	w.logger.Info(ctx, "rebuildctl watch: watching for changes")

	<-ctx.Done()
	w.logger.Info(context.Background(), "rebuildctl watch: shutting down")
	return nil
}
