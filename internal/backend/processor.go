package backend

import (
	"github.com/rs/zerolog"

	"github.com/funvibe/july/internal/compiler"
	"github.com/funvibe/july/internal/pipeline"
)

// CompileProcessor lowers ctx.AstRoot into ctx.Bytecode.
type CompileProcessor struct {
	MaxGlobals int
	Logger     zerolog.Logger
}

func (p *CompileProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Bytecode != nil || ctx.AstRoot == nil {
		return ctx
	}

	c := compiler.New(compiler.WithMaxGlobals(p.MaxGlobals), compiler.WithLogger(p.Logger))
	if err := c.Compile(ctx.AstRoot); err != nil {
		ctx.AddError(err)
		return ctx
	}
	ctx.Bytecode = c.Bytecode()

	p.Logger.Debug().
		Str("file", ctx.FilePath).
		Int("bytes", len(ctx.Bytecode.Instructions)).
		Int("constants", len(ctx.Bytecode.Constants)).
		Msg("compiled")
	return ctx
}

// ExecutionProcessor runs ctx.Bytecode on a Backend and stores the result.
type ExecutionProcessor struct {
	Backend Backend
}

func NewExecutionProcessor(b Backend) *ExecutionProcessor {
	return &ExecutionProcessor{Backend: b}
}

func (p *ExecutionProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Bytecode == nil || ctx.Failed() {
		return ctx
	}

	result, err := p.Backend.Run(ctx)
	if err != nil {
		ctx.AddError(err)
		return ctx
	}
	ctx.Result = result
	return ctx
}

// NewPipeline wires the stages that take source text to a result. The
// lexer and parser stages are supplied by the caller to keep this package
// free of front-end imports.
func NewPipeline(frontEnd []pipeline.Processor, maxGlobals int, vmBackend *VMBackend, logger zerolog.Logger) *pipeline.Pipeline {
	stages := append([]pipeline.Processor{}, frontEnd...)
	stages = append(stages,
		&CompileProcessor{MaxGlobals: maxGlobals, Logger: logger},
		NewExecutionProcessor(vmBackend),
	)
	return pipeline.New(stages...)
}
