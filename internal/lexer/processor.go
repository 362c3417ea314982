package lexer

import (
	"github.com/funvibe/july/internal/pipeline"
	"github.com/funvibe/july/internal/token"
)

type LexerProcessor struct{}

func (lp *LexerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.TokenStream != nil || ctx.AstRoot != nil || ctx.Bytecode != nil {
		return ctx
	}
	ctx.TokenStream = Tokenize(ctx.SourceCode)
	return ctx
}

// Tokenize lexes the whole input. The result always ends with an EOF token.
func Tokenize(input string) []token.Token {
	l := New(input)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens
		}
	}
}

// Stream replays a token slice through the same NextToken interface as the
// Lexer. Reading past the end keeps returning the final token.
type Stream struct {
	tokens []token.Token
	pos    int
}

func NewStream(tokens []token.Token) *Stream {
	return &Stream{tokens: tokens}
}

func (s *Stream) NextToken() token.Token {
	if len(s.tokens) == 0 {
		return token.Token{Type: token.EOF}
	}
	if s.pos >= len(s.tokens) {
		return s.tokens[len(s.tokens)-1]
	}
	tok := s.tokens[s.pos]
	s.pos++
	return tok
}
