package builders

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/conneroisu/rebuildctl/internal/interfaces"
	"github.com/conneroisu/rebuildctl/internal/types"
	"github.com/conneroisu/rebuildctl/internal/validation"
)

var nodeAllowedCommands = map[string]bool{"node": true}

// Metafile is the subset of an esbuild-style bundler metafile the core
// cares about: the set of input files that went into an output bundle,
// used to recompute an entry point's inputFiles after every build.
type Metafile struct {
	Inputs  map[string]json.RawMessage `json:"inputs"`
	Outputs map[string]struct {
		EntryPoint string `json:"entryPoint,omitempty"`
	} `json:"outputs"`
}

// NodeBuilder invokes an incremental Node bundler script and parses its
// emitted metafile to recover the entry point's current input-file set.
type NodeBuilder struct {
	command      string
	bundlerScript string
	outDir       string
	noColor      bool
	debug        bool
}

var _ interfaces.Builder = (*NodeBuilder)(nil)

// NewNodeBuilder creates a Node builder that drives bundlerScript via
// `node <bundlerScript>`, writing bundles under outDir. noColor/debug
// mirror the NO_COLOR and DEBUG environment flags from the build contract.
func NewNodeBuilder(bundlerScript, outDir string, noColor, debug bool) *NodeBuilder {
	return &NodeBuilder{
		command:       "node",
		bundlerScript: bundlerScript,
		outDir:        outDir,
		noColor:       noColor,
		debug:         debug,
	}
}

func (b *NodeBuilder) Runtime() types.Runtime { return types.RuntimeNode }

// Build runs the bundler for a single handler and reads back its metafile.
// A metafile read/parse failure degrades to an empty input-file set rather
// than failing the build outright, per the MetafileReadError contract.
func (b *NodeBuilder) Build(ctx context.Context, ep *types.EntryPoint) (types.Artifact, error) {
	if err := validation.ValidateCommand(b.command, nodeAllowedCommands); err != nil {
		return types.Artifact{}, fmt.Errorf("builders: command validation failed: %w", err)
	}

	absHandlerPath, err := filepath.Abs(ep.Key.SrcPath)
	if err != nil {
		return types.Artifact{}, fmt.Errorf("builders: resolving handler path: %w", err)
	}
	if err := validation.ValidateBuildArgument(absHandlerPath); err != nil {
		return types.Artifact{}, fmt.Errorf("builders: invalid handler path %q: %w", absHandlerPath, err)
	}

	metaPath := filepath.Join(b.outDir, metafileName(ep.Key))
	logLevel := "error"
	if b.debug {
		logLevel = "warning"
	}

	args := []string{b.bundlerScript, "--entry", absHandlerPath, "--outdir", b.outDir, "--metafile", metaPath, "--log-level", logLevel}
	if b.noColor {
		args = append(args, "--no-color")
	}
	for _, arg := range args {
		if arg == absHandlerPath {
			continue
		}
		if err := validation.ValidateArgument(arg); err != nil {
			return types.Artifact{}, fmt.Errorf("builders: invalid argument %q: %w", arg, err)
		}
	}

	cmd := exec.CommandContext(ctx, b.command, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return types.Artifact{}, fmt.Errorf("builders: node bundle timed out: %w", ctx.Err())
		}
		return types.Artifact{}, fmt.Errorf("builders: node bundle failed: %w\noutput: %s", err, output)
	}

	inputs, err := ReadMetafileInputs(metaPath)
	if err != nil {
		inputs = make(map[string]struct{})
	}
	ep.InputFiles = inputs

	return types.Artifact{
		EntryFile:    filepath.Join(b.outDir, filepath.Base(absHandlerPath)),
		HandlerSym:   ep.Key.Handler,
		OutDir:       b.outDir,
		OriginalPath: ep.Key.SrcPath,
	}, nil
}

// ReadMetafileInputs reads and parses a bundler metafile, resolving every
// input path to an absolute path as the build contract requires.
func ReadMetafileInputs(path string) (map[string]struct{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("builders: reading metafile: %w", err)
	}
	var meta Metafile
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("builders: parsing metafile: %w", err)
	}
	inputs := make(map[string]struct{}, len(meta.Inputs))
	for rel := range meta.Inputs {
		abs, err := filepath.Abs(rel)
		if err != nil {
			continue
		}
		inputs[abs] = struct{}{}
	}
	return inputs, nil
}

func metafileName(key types.EntryPointKey) string {
	return filepath.Base(key.SrcPath) + ".meta.json"
}
