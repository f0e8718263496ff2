package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/conneroisu/rebuildctl/internal/builders"
	"github.com/conneroisu/rebuildctl/internal/cdkstate"
	"github.com/conneroisu/rebuildctl/internal/checker"
	"github.com/conneroisu/rebuildctl/internal/config"
	"github.com/conneroisu/rebuildctl/internal/infra"
	"github.com/conneroisu/rebuildctl/internal/interfaces"
	"github.com/conneroisu/rebuildctl/internal/logging"
	"github.com/conneroisu/rebuildctl/internal/orchestrator"
	"github.com/conneroisu/rebuildctl/internal/statusserver"
	"github.com/conneroisu/rebuildctl/internal/types"
	"github.com/conneroisu/rebuildctl/internal/watcher"
	"github.com/spf13/viper"
)

// buildLogger constructs the logger every command shares, honoring the
// --log-level/--json-logs persistent flags.
func buildLogger() *logging.RebuildLogger {
	cfg := logging.DefaultConfig()
	cfg.Component = "rebuildctl"
	if viper.GetBool("json-logs") {
		cfg.Format = "json"
	}
	switch viper.GetString("log-level") {
	case "debug":
		cfg.Level = logging.LevelDebug
	case "warn":
		cfg.Level = logging.LevelWarn
	case "error":
		cfg.Level = logging.LevelError
	default:
		cfg.Level = logging.LevelInfo
	}
	return logging.New(cfg)
}

// wired bundles everything a command needs to run the orchestrator and
// its status server, so up/build/watch share one construction path.
type wired struct {
	cfg    *config.Config
	orch   *orchestrator.Orchestrator
	status *statusserver.Server
	driver *infra.Driver
	logger *logging.RebuildLogger
}

// orchestratorAdapter adapts *orchestrator.Orchestrator's cdkstate-typed
// State to statusserver.StateView's plain-string InfraState, avoiding a
// statusserver -> cdkstate import.
type orchestratorAdapter struct {
	orch *orchestrator.Orchestrator
}

func (a orchestratorAdapter) GetState() statusserver.StateView {
	s := a.orch.GetState()
	return statusserver.StateView{Busy: s.Busy, InfraBusy: s.InfraBusy, InfraState: s.InfraState.String()}
}
func (a orchestratorAdapter) OnInput()                      { a.orch.OnInput() }
func (a orchestratorAdapter) NotifyFileChanged(path string) { a.orch.NotifyFileChanged(path) }

func wire() (*wired, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := buildLogger()

	fw, err := watcher.NewFileWatcher(150 * time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	goBinDir := cfg.Build.CacheDir + "/bin"
	buildersByRuntime := map[types.Runtime]interfaces.Builder{
		types.RuntimeGo:     builders.NewGoBuilder(goBinDir),
		types.RuntimeNode:   builders.NewNodeBuilder(cfg.Handlers.AppPath+"/bundle.js", cfg.Build.CacheDir+"/bundles", true, false),
		types.RuntimePython: builders.NewPythonBuilder(),
	}

	var lintLauncher, typeCheckLauncher interfaces.ManagedProcessLauncher
	if cfg.Lint.Enabled {
		lintLauncher = checker.NewLintLauncher("golangci-lint", true)
	}
	if cfg.TypeCheck.Enabled {
		typeCheckLauncher = checker.NewTypeCheckLauncher("tsc", false)
	}

	deployedChecksums, err := cdkstate.ReadSnapshot(cfg.Infra.SnapshotPath)
	if err != nil {
		return nil, fmt.Errorf("read infra snapshot: %w", err)
	}

	driver := infra.NewDriver(cfg.Infra.AppPath, cfg.Infra.OutDir, cfg.Infra.BuildCommand)

	orchCfg := orchestrator.Config{
		AppPath:            cfg.Handlers.AppPath,
		LambdaHandlers:     cfg.Handlers.ToHandlerConfigs(),
		CDKInputFiles:      cfg.Infra.InputFiles,
		CDKChecksumData:    deployedChecksums,
		IsLintEnabled:      cfg.Lint.Enabled,
		IsTypeCheckEnabled: cfg.TypeCheck.Enabled,
		OnBuildInfra:       driver.Build,
		OnReSynthApp:       driver.Synth,
		OnReDeployApp: func(ctx context.Context, checksumData map[string]string) error {
			if err := driver.Deploy(ctx, checksumData); err != nil {
				return err
			}
			return cdkstate.WriteSnapshot(cfg.Infra.SnapshotPath, checksumData)
		},
	}

	orch := orchestrator.New(orchCfg, fw, buildersByRuntime, lintLauncher, typeCheckLauncher, cfg.Build.BuilderConcurrency, logger)

	statusSrv := statusserver.New(statusserver.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, orchestratorAdapter{orch: orch}, logger)

	return &wired{cfg: cfg, orch: orch, status: statusSrv, driver: driver, logger: logger}, nil
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// loadConfigOnly loads config for commands (status, deploy-approve) that
// only need the status server's address, not a full orchestrator wiring.
func loadConfigOnly() (*config.Config, error) {
	return config.Load()
}
