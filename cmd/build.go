package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build every configured handler once and exit",
	Long: `build performs the same initial build every handler gets at orchestrator
startup, then exits without installing any watchers. Useful for CI or a
one-shot production build.`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	w, err := wire()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := w.orch.Start(ctx, true); err != nil {
		return err
	}
	defer w.orch.Stop()

	w.logger.Info(context.Background(), "rebuildctl build: all handlers built successfully")
	return nil
}
