package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running orchestrator's busy/infra state over HTTP",
	Long: `status GETs /state from a running "rebuildctl up" process's status server
and prints the result. Fails if no orchestrator is listening.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigOnly()
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://%s:%d/state", cfg.Server.Host, cfg.Server.Port)
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("status: no orchestrator reachable at %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status: orchestrator returned %s", resp.Status)
	}

	var state struct {
		Busy       bool   `json:"Busy"`
		InfraBusy  bool   `json:"InfraBusy"`
		InfraState string `json:"InfraState"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return fmt.Errorf("status: decode response: %w", err)
	}

	fmt.Printf("handlers busy: %v\ninfra busy:    %v\ninfra state:   %s\n", state.Busy, state.InfraBusy, state.InfraState)
	return nil
}
