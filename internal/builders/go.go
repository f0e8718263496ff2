// Package builders invokes the per-runtime build tool for a single entry
// point: go build for go-like handlers, an incremental bundler for
// node-like handlers, and a no-op passthrough for python-like handlers
// (which ship source directly, per spec). Command construction and
// argument validation follow the teacher's internal/build.TemplCompiler:
// an allowlisted command plus per-argument security checks before
// exec.CommandContext ever runs.
package builders

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/conneroisu/rebuildctl/internal/interfaces"
	"github.com/conneroisu/rebuildctl/internal/types"
	"github.com/conneroisu/rebuildctl/internal/validation"
)

var goAllowedCommands = map[string]bool{"go": true}

// GoBuilder invokes `go build` for go-like entry points.
type GoBuilder struct {
	command string
	binDir  string
}

var _ interfaces.Builder = (*GoBuilder)(nil)

// NewGoBuilder creates a Go builder that writes binaries under binDir.
func NewGoBuilder(binDir string) *GoBuilder {
	return &GoBuilder{command: "go", binDir: binDir}
}

func (b *GoBuilder) Runtime() types.Runtime { return types.RuntimeGo }

// Build runs `go build -ldflags "-s -w" -o <relBinPath> <absHandlerPath>`,
// per the build contract: the handler path is absolute, the output path is
// relative to binDir, and a Windows host gets a .exe suffix.
func (b *GoBuilder) Build(ctx context.Context, ep *types.EntryPoint) (types.Artifact, error) {
	if err := validation.ValidateCommand(b.command, goAllowedCommands); err != nil {
		return types.Artifact{}, fmt.Errorf("builders: command validation failed: %w", err)
	}

	absHandlerPath, err := filepath.Abs(ep.Key.SrcPath)
	if err != nil {
		return types.Artifact{}, fmt.Errorf("builders: resolving handler path: %w", err)
	}

	outBinary := binaryName(ep.Key)
	relBinPath := filepath.Join(b.binDir, outBinary)

	args := []string{"build", "-ldflags", "-s -w", "-o", relBinPath, absHandlerPath}
	for _, arg := range args[:len(args)-1] {
		if err := validation.ValidateArgument(arg); err != nil {
			return types.Artifact{}, fmt.Errorf("builders: invalid argument %q: %w", arg, err)
		}
	}
	if err := validation.ValidateBuildArgument(absHandlerPath); err != nil {
		return types.Artifact{}, fmt.Errorf("builders: invalid handler path %q: %w", absHandlerPath, err)
	}

	cmd := exec.CommandContext(ctx, b.command, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return types.Artifact{}, fmt.Errorf("builders: go build timed out: %w", ctx.Err())
		}
		return types.Artifact{}, fmt.Errorf("builders: go build failed: %w\noutput: %s", err, output)
	}

	return types.Artifact{
		EntryFile:    relBinPath,
		HandlerSym:   ep.Key.Handler,
		OutDir:       b.binDir,
		OriginalPath: ep.Key.SrcPath,
	}, nil
}

func binaryName(key types.EntryPointKey) string {
	name := filepath.Base(key.SrcPath)
	ext := filepath.Ext(name)
	name = name[:len(name)-len(ext)]
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return name
}
