// Package config provides configuration management for rebuildctl using
// Viper for flexible loading from YAML files, environment variables, and
// command-line flags.
//
// The configuration system supports a `.rebuildctl.yml` file, environment
// variable overrides with a REBUILDCTL_ prefix, and validation of the
// resulting values. It configures the status server, builder concurrency,
// lint/type-check toggles, and the host-supplied handler list that seeds
// the entry-point registry at startup.
package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/conneroisu/rebuildctl/internal/types"
)

// Config is the root orchestrator configuration, loaded from
// `.rebuildctl.yml` plus REBUILDCTL_* environment variables and CLI flags.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Build    BuildConfig    `yaml:"build"`
	Handlers HandlersConfig `yaml:"handlers"`
	Infra    InfraConfig    `yaml:"infra"`
	Lint     CheckerConfig  `yaml:"lint"`
	TypeCheck CheckerConfig `yaml:"type_check"`
}

// ServerConfig controls the status/control HTTP+WebSocket endpoint.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	Environment    string   `yaml:"environment"`
}

// BuildConfig controls the Handler Build Scheduler.
type BuildConfig struct {
	// BuilderConcurrency bounds how many go-like builds run at once.
	// Zero means "use runtime.NumCPU()".
	BuilderConcurrency int           `yaml:"builder_concurrency"`
	CacheDir           string        `yaml:"cache_dir"`
	Ignore             []string      `yaml:"ignore"`
}

// HandlersConfig describes the host-supplied handler list: where the app
// lives on disk, and which deployable functions within it the orchestrator
// should track as entry points.
type HandlersConfig struct {
	AppPath  string          `yaml:"app_path"`
	Handlers []HandlerEntry  `yaml:"handlers"`
}

// HandlerEntry is one deployable function as declared in .rebuildctl.yml.
type HandlerEntry struct {
	SrcPath string `yaml:"src_path"`
	Handler string `yaml:"handler"`
	Runtime string `yaml:"runtime"` // "go", "node", or "python"
	Bundle  bool   `yaml:"bundle"`
}

// ToHandlerConfigs converts the declared handler entries into the
// orchestrator's types.HandlerConfig, resolving each runtime string.
// Unrecognized runtime strings default to node, matching the build
// contract's node-like fallback for unlisted languages.
func (h HandlersConfig) ToHandlerConfigs() []types.HandlerConfig {
	out := make([]types.HandlerConfig, 0, len(h.Handlers))
	for _, entry := range h.Handlers {
		out = append(out, types.HandlerConfig{
			SrcPath: entry.SrcPath,
			Handler: entry.Handler,
			Runtime: parseRuntime(entry.Runtime),
			Bundle:  entry.Bundle,
		})
	}
	return out
}

func parseRuntime(s string) types.Runtime {
	switch strings.ToLower(s) {
	case "go":
		return types.RuntimeGo
	case "python":
		return types.RuntimePython
	default:
		return types.RuntimeNode
	}
}

// InfraConfig seeds the CdkState machine and configures internal/infra's
// CDK driver.
type InfraConfig struct {
	AppPath      string   `yaml:"app_path"`
	OutDir       string   `yaml:"out_dir"`
	BuildCommand []string `yaml:"build_command"`
	InputFiles   []string `yaml:"input_files"`
	SnapshotPath string   `yaml:"snapshot_path"`
}

// CheckerConfig toggles one of the lint/type-check coordinators.
type CheckerConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads configuration via Viper (file + env + flags already bound by
// cmd/root.go) and applies defaults for anything left unset.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8350
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Environment == "" {
		cfg.Server.Environment = "development"
	}

	if cfg.Build.BuilderConcurrency <= 0 {
		cfg.Build.BuilderConcurrency = runtime.NumCPU()
	}
	if cfg.Build.CacheDir == "" {
		cfg.Build.CacheDir = ".rebuildctl/cache"
	}
	if len(cfg.Build.Ignore) == 0 {
		cfg.Build.Ignore = []string{"node_modules", ".git"}
	}

	if cfg.Handlers.AppPath == "" {
		cfg.Handlers.AppPath = "."
	}
	if cfg.Infra.SnapshotPath == "" {
		cfg.Infra.SnapshotPath = filepath.Join(cfg.Build.CacheDir, "infra-manifest.yml")
	}

	// Lint and type-check default to enabled, matching the teacher's
	// development-mode defaults, unless a config file explicitly turns
	// them off.
	if !viper.IsSet("lint.enabled") {
		cfg.Lint.Enabled = true
	}
	if !viper.IsSet("type_check.enabled") {
		cfg.TypeCheck.Enabled = true
	}
}

func validateConfig(cfg *Config) error {
	if err := validateServerConfig(&cfg.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := validateBuildConfig(&cfg.Build); err != nil {
		return fmt.Errorf("build config: %w", err)
	}
	return nil
}

func validateServerConfig(cfg *ServerConfig) error {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", cfg.Port)
	}

	dangerous := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerous {
		if strings.Contains(cfg.Host, char) {
			return fmt.Errorf("host contains dangerous character: %s", char)
		}
	}
	return nil
}

func validateBuildConfig(cfg *BuildConfig) error {
	if cfg.BuilderConcurrency < 0 {
		return fmt.Errorf("builder_concurrency must not be negative")
	}
	if cfg.CacheDir != "" {
		clean := filepath.Clean(cfg.CacheDir)
		if strings.Contains(clean, "..") {
			return fmt.Errorf("cache_dir contains path traversal: %s", cfg.CacheDir)
		}
		if filepath.IsAbs(clean) {
			return fmt.Errorf("cache_dir should be a relative path: %s", cfg.CacheDir)
		}
	}
	return nil
}
