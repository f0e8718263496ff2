package cmd

import (
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/conneroisu/rebuildctl/internal/config"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the local toolchain and configuration are ready to run",
	Long: `doctor validates .rebuildctl.yml, then checks that every external
command the configured builders/checkers/infra driver shell out to (go,
node, cdk, the lint/type-check commands) is on PATH, reporting each
check's pass/fail rather than stopping at the first failure.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("[FAIL] configuration: %v\n", err)
		return err
	}
	fmt.Println("[ OK ] configuration loaded and validated")

	checks := []struct {
		name    string
		command string
		want    bool
	}{
		{"go toolchain", "go", true},
		{"node runtime", "node", cfg.Handlers.AppPath != ""},
		{"cdk CLI", "cdk", cfg.Infra.AppPath != ""},
	}
	if cfg.Lint.Enabled {
		checks = append(checks, struct {
			name    string
			command string
			want    bool
		}{"golangci-lint", "golangci-lint", true})
	}
	if cfg.TypeCheck.Enabled {
		checks = append(checks, struct {
			name    string
			command string
			want    bool
		}{"tsc", "tsc", true})
	}

	anyFailed := false
	for _, c := range checks {
		if !c.want {
			continue
		}
		if _, err := exec.LookPath(c.command); err != nil {
			fmt.Printf("[FAIL] %s: %q not found on PATH\n", c.name, c.command)
			anyFailed = true
			continue
		}
		fmt.Printf("[ OK ] %s\n", c.name)
	}

	if anyFailed {
		return fmt.Errorf("doctor: one or more checks failed")
	}
	return nil
}
