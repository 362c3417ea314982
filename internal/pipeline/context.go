package pipeline

import (
	"errors"

	"github.com/funvibe/july/internal/ast"
	"github.com/funvibe/july/internal/compiler"
	"github.com/funvibe/july/internal/object"
	"github.com/funvibe/july/internal/token"
)

// Processor is one stage of the pipeline.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// PipelineContext carries a compilation unit through the stages. A stage
// whose output is already present leaves it alone, so a context seeded
// with Bytecode (for example from the cache) goes straight to execution.
type PipelineContext struct {
	SourceCode  string
	FilePath    string
	TokenStream []token.Token
	AstRoot     *ast.Program
	Bytecode    *compiler.Bytecode
	Result      object.Object
	Errors      []error
}

func (ctx *PipelineContext) AddError(err error) {
	ctx.Errors = append(ctx.Errors, err)
}

func (ctx *PipelineContext) Failed() bool {
	return len(ctx.Errors) > 0
}

// Err joins every recorded error, or returns nil.
func (ctx *PipelineContext) Err() error {
	if len(ctx.Errors) == 1 {
		return ctx.Errors[0]
	}
	return errors.Join(ctx.Errors...)
}
