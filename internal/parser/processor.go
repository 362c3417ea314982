package parser

import (
	"github.com/funvibe/july/internal/lexer"
	"github.com/funvibe/july/internal/pipeline"
)

type ParserProcessor struct{}

func (pp *ParserProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.AstRoot != nil || ctx.Bytecode != nil {
		return ctx
	}

	var source TokenSource
	if ctx.TokenStream != nil {
		source = lexer.NewStream(ctx.TokenStream)
	} else {
		source = lexer.New(ctx.SourceCode)
	}

	p := New(source)
	program := p.ParseProgram()
	program.File = ctx.FilePath

	if err := p.Err(); err != nil {
		ctx.AddError(err)
		return ctx
	}
	ctx.AstRoot = program
	return ctx
}
