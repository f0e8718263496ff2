// Package cmd provides the rebuildctl command-line interface with
// configuration management supporting multiple configuration sources.
//
// Configuration System:
//
//	Configuration loads from, in increasing priority:
//	1. .rebuildctl.yml in the current directory
//	2. REBUILDCTL_<SECTION>_<OPTION> environment variables
//	3. Command-line flags (--config, --log-level, --json-logs)
//
// Environment Variables:
//
//	REBUILDCTL_CONFIG_FILE: path to a custom configuration file
//	REBUILDCTL_SERVER_PORT: override the status server port
//	REBUILDCTL_SERVER_HOST: override the status server host
//	REBUILDCTL_LINT_ENABLED / REBUILDCTL_TYPE_CHECK_ENABLED: toggle checkers
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd is the base command when rebuildctl is called without any
// subcommand.
var rootCmd = &cobra.Command{
	Use:   "rebuildctl",
	Short: "A reactive rebuild orchestrator for serverless app development",
	Long: `rebuildctl watches a serverless application's Lambda handlers and
CDK infrastructure code, rebuilding only what changed and driving infra
through a rebuild -> lint/typecheck -> synth -> (approve) -> deploy
pipeline, so a local dev loop stays warm without re-synthesizing the
whole app on every keystroke.

Quick Start:
  rebuildctl up                    Start the orchestrator and watch for changes
  rebuildctl build                 Build every configured handler once and exit
  rebuildctl watch                 Watch without serving the status endpoint
  rebuildctl status                Query a running orchestrator's state
  rebuildctl deploy-approve        Approve a pending infra deploy
  rebuildctl doctor                Check the local toolchain and config

Documentation: see .rebuildctl.yml for configuration options.`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default .rebuildctl.yml, or REBUILDCTL_CONFIG_FILE)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "emit structured JSON logs instead of text")
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("json-logs", rootCmd.PersistentFlags().Lookup("json-logs"))
}

// initConfig wires up Viper's config-file discovery and REBUILDCTL_* env
// binding: flag, then REBUILDCTL_CONFIG_FILE, then .rebuildctl.yml in the
// working directory.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("REBUILDCTL_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".rebuildctl")
	}

	viper.SetEnvPrefix("REBUILDCTL")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
