package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var deployApproveCmd = &cobra.Command{
	Use:   "deploy-approve",
	Short: "Approve a pending infra deploy on a running orchestrator",
	Long: `deploy-approve POSTs to /input on a running "rebuildctl up" process's
status server, the non-interactive equivalent of pressing the approval
key in a terminal UI. A no-op if the orchestrator isn't AwaitingApproval.`,
	RunE: runDeployApprove,
}

func init() {
	rootCmd.AddCommand(deployApproveCmd)
}

func runDeployApprove(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigOnly()
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://%s:%d/input", cfg.Server.Host, cfg.Server.Port)
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(url, "application/octet-stream", nil)
	if err != nil {
		return fmt.Errorf("deploy-approve: no orchestrator reachable at %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("deploy-approve: orchestrator returned %s", resp.Status)
	}

	fmt.Println("deploy approval sent")
	return nil
}
