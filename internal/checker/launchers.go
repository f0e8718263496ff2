package checker

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/conneroisu/rebuildctl/internal/interfaces"
	"github.com/conneroisu/rebuildctl/internal/types"
	"github.com/conneroisu/rebuildctl/internal/validation"
)

var lintAllowedCommands = map[string]bool{"eslint": true, "golangci-lint": true}
var typeCheckAllowedCommands = map[string]bool{"tsc": true}

// LintLauncher starts the linter as a separate worker process reading a
// file list and an optional color flag, matching the build contract's
// linter child-process description. Its exit code is ignored by the core.
type LintLauncher struct {
	command string
	noColor bool
}

var _ interfaces.ManagedProcessLauncher = (*LintLauncher)(nil)

// NewLintLauncher creates a lint launcher invoking command ("eslint" or
// "golangci-lint" for go-like source paths).
func NewLintLauncher(command string, noColor bool) *LintLauncher {
	return &LintLauncher{command: command, noColor: noColor}
}

// Launch starts the linter over the given (already filtered) files.
func (l *LintLauncher) Launch(ctx context.Context, sourcePath *types.SourcePath, files []string) (types.ManagedProcess, error) {
	if err := validation.ValidateCommand(l.command, lintAllowedCommands); err != nil {
		return nil, fmt.Errorf("checker: command validation failed: %w", err)
	}

	args := make([]string, 0, len(files)+1)
	for _, file := range files {
		if err := validation.ValidateBuildArgument(file); err != nil {
			return nil, fmt.Errorf("checker: invalid input file %q: %w", file, err)
		}
		args = append(args, file)
	}
	if l.noColor {
		args = append(args, "--no-color")
	}

	cmd := exec.CommandContext(ctx, l.command, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return start(cmd)
}

// TypeCheckLauncher invokes the type checker once per source path, with
// the source path as working directory and flags `--noEmit --pretty
// <true|false>`, matching the build contract exactly.
type TypeCheckLauncher struct {
	command string
	pretty  bool
}

var _ interfaces.ManagedProcessLauncher = (*TypeCheckLauncher)(nil)

// NewTypeCheckLauncher creates a type-check launcher invoking command
// ("tsc" for node-like source paths).
func NewTypeCheckLauncher(command string, pretty bool) *TypeCheckLauncher {
	return &TypeCheckLauncher{command: command, pretty: pretty}
}

// Launch starts the type checker for sourcePath. files is the gated .ts
// set Coordinator computed (tsc itself type-checks the whole project
// rooted at sourcePath.SrcPath via tsconfig, so files is used only to
// decide whether to launch at all, not passed as arguments).
func (l *TypeCheckLauncher) Launch(ctx context.Context, sourcePath *types.SourcePath, files []string) (types.ManagedProcess, error) {
	if err := validation.ValidateCommand(l.command, typeCheckAllowedCommands); err != nil {
		return nil, fmt.Errorf("checker: command validation failed: %w", err)
	}

	prettyFlag := "false"
	if l.pretty {
		prettyFlag = "true"
	}
	args := []string{"--noEmit", "--pretty", prettyFlag}
	for _, arg := range args {
		if err := validation.ValidateArgument(arg); err != nil {
			return nil, fmt.Errorf("checker: invalid argument %q: %w", arg, err)
		}
	}

	cmd := exec.CommandContext(ctx, l.command, args...)
	cmd.Dir = sourcePath.SrcPath
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return start(cmd)
}
