package builders

import (
	"context"

	"github.com/conneroisu/rebuildctl/internal/interfaces"
	"github.com/conneroisu/rebuildctl/internal/types"
)

// PythonBuilder is a no-op build step: python-like handlers ship source
// directly with no compile stage, so "building" one just produces an
// artifact pointing at its own source path.
type PythonBuilder struct{}

var _ interfaces.Builder = (*PythonBuilder)(nil)

// NewPythonBuilder creates a no-op Python builder.
func NewPythonBuilder() *PythonBuilder { return &PythonBuilder{} }

func (b *PythonBuilder) Runtime() types.Runtime { return types.RuntimePython }

func (b *PythonBuilder) Build(ctx context.Context, ep *types.EntryPoint) (types.Artifact, error) {
	return types.Artifact{
		EntryFile:    ep.Key.SrcPath,
		HandlerSym:   ep.Key.Handler,
		OriginalPath: ep.Key.SrcPath,
	}, nil
}
