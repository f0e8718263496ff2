// Package infra implements the host callbacks the orchestrator's infra
// state machine drives (OnBuildInfra, OnReSynthApp, OnReDeployApp) for a
// real CDK application: shelling out to the `cdk` CLI and deriving a
// per-stack checksum from its synthesized cloud assembly, the same way
// internal/checker launches a linter and internal/builders launches
// `go build` — an allowlisted command, validated arguments, exec.Command
// run to completion rather than the checker's long-lived variant.
package infra

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/conneroisu/rebuildctl/internal/cdkstate"
	"github.com/conneroisu/rebuildctl/internal/validation"
)

var cdkAllowedCommands = map[string]bool{"cdk": true, "npx": true}

// cloudAssemblyManifest is the subset of a CDK cloud assembly's
// manifest.json this driver needs: which artifact IDs are CloudFormation
// stacks, and the template file backing each one.
type cloudAssemblyManifest struct {
	Artifacts map[string]struct {
		Type       string `json:"type"`
		Properties struct {
			TemplateFile string `json:"templateFile"`
		} `json:"properties"`
	} `json:"artifacts"`
}

// Driver runs a CDK app's build/synth/deploy steps as child processes
// rooted at AppPath, using OutDir as the cloud assembly output directory
// (cdk synth's --output).
type Driver struct {
	AppPath       string
	OutDir        string
	BuildCommand  []string // e.g. []string{"npx", "tsc"}; empty skips the build step
	SynthExtraArgs []string
}

// NewDriver creates a CDK driver rooted at appPath, synthesizing into
// outDir (created if missing).
func NewDriver(appPath, outDir string, buildCommand []string) *Driver {
	if outDir == "" {
		outDir = filepath.Join(appPath, "cdk.out")
	}
	return &Driver{AppPath: appPath, OutDir: outDir, BuildCommand: buildCommand}
}

// Build runs the configured transpile/compile step (e.g. `tsc` for a
// TypeScript CDK app) and returns the app's infra source files, used by
// the orchestrator to diff the watch set. A nil/empty BuildCommand is a
// no-op that still re-globs the source tree, matching the build
// contract's "ships untranspiled" case.
func (d *Driver) Build(ctx context.Context) ([]string, error) {
	if len(d.BuildCommand) > 0 {
		if err := d.run(ctx, d.AppPath, d.BuildCommand[0], d.BuildCommand[1:]...); err != nil {
			return nil, fmt.Errorf("infra: build step failed: %w", err)
		}
	}
	return d.sourceFiles()
}

// Synth invokes `cdk synth` and reduces the resulting cloud assembly to a
// checksum per stack, by hashing each stack's rendered CloudFormation
// template. A stack whose template bytes haven't changed since the last
// synth keeps the same checksum, so ApproveDeploy's plan skips it.
func (d *Driver) Synth(ctx context.Context) (*cdkstate.Manifest, error) {
	args := append([]string{"synth", "--output", d.OutDir, "--quiet"}, d.SynthExtraArgs...)
	if err := d.run(ctx, d.AppPath, "cdk", args...); err != nil {
		return nil, fmt.Errorf("infra: cdk synth failed: %w", err)
	}

	manifestPath := filepath.Join(d.OutDir, "manifest.json")
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("infra: read cloud assembly manifest: %w", err)
	}
	var manifest cloudAssemblyManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("infra: parse cloud assembly manifest: %w", err)
	}

	checksums := make(map[string]string)
	for artifactID, artifact := range manifest.Artifacts {
		if artifact.Type != "aws:cloudformation:stack" || artifact.Properties.TemplateFile == "" {
			continue
		}
		templatePath := filepath.Join(d.OutDir, artifact.Properties.TemplateFile)
		body, err := os.ReadFile(templatePath)
		if err != nil {
			return nil, fmt.Errorf("infra: read template for stack %s: %w", artifactID, err)
		}
		sum := sha256.Sum256(body)
		checksums[artifactID] = hex.EncodeToString(sum[:])
	}

	return &cdkstate.Manifest{ChecksumData: checksums}, nil
}

// Deploy runs `cdk deploy` for exactly the stacks named in checksumData
// (the deploy plan narrowed by cdkstate.Machine.ApproveDeploy), so an
// unchanged stack is never redeployed.
func (d *Driver) Deploy(ctx context.Context, checksumData map[string]string) error {
	if len(checksumData) == 0 {
		return nil
	}
	stacks := make([]string, 0, len(checksumData))
	for stack := range checksumData {
		stacks = append(stacks, stack)
	}
	sort.Strings(stacks)

	args := append([]string{"deploy", "--app", d.OutDir, "--require-approval", "never"}, stacks...)
	if err := d.run(ctx, d.AppPath, "cdk", args...); err != nil {
		return fmt.Errorf("infra: cdk deploy failed: %w", err)
	}
	return nil
}

func (d *Driver) run(ctx context.Context, dir, command string, args ...string) error {
	if err := validation.ValidateCommand(command, cdkAllowedCommands); err != nil {
		return err
	}
	for _, a := range args {
		if err := validation.ValidateBuildArgument(a); err != nil {
			return fmt.Errorf("invalid argument %q: %w", a, err)
		}
	}
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", command, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// sourceFiles walks AppPath for infra source files (.ts excluding
// generated output, .go, .py), mirroring the coarse source-discovery the
// build contract expects the watch set to be seeded with.
func (d *Driver) sourceFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(d.AppPath, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			name := entry.Name()
			if name == "node_modules" || name == ".git" || path == d.OutDir {
				return filepath.SkipDir
			}
			return nil
		}
		switch filepath.Ext(path) {
		case ".ts", ".go", ".py":
			if !strings.HasSuffix(path, ".d.ts") {
				files = append(files, path)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("infra: walk app path: %w", err)
	}
	return files, nil
}
