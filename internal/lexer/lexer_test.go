package lexer

import (
	"testing"

	"github.com/funvibe/july/internal/pipeline"
	"github.com/funvibe/july/internal/token"
)

func TestNextToken(t *testing.T) {
	input := `let five = 5;
let ten = 10;

let add = fn() { five + ten };
!-/*5;
5 < 10 > 5;

if (5 < 10) {
	return true;
} else {
	return false;
}

10 == 10;
10 != 9;
"foobar"
"foo bar"
[1, 2];
{"foo": "bar"}
// comment
add();
`

	tests := []struct {
		expectedType    token.TokenType
		expectedLiteral string
	}{
		{token.LET, "let"},
		{token.IDENT, "five"},
		{token.ASSIGN, "="},
		{token.INT, "5"},
		{token.SEMICOLON, ";"},
		{token.LET, "let"},
		{token.IDENT, "ten"},
		{token.ASSIGN, "="},
		{token.INT, "10"},
		{token.SEMICOLON, ";"},
		{token.LET, "let"},
		{token.IDENT, "add"},
		{token.ASSIGN, "="},
		{token.FUNCTION, "fn"},
		{token.LPAREN, "("},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.IDENT, "five"},
		{token.PLUS, "+"},
		{token.IDENT, "ten"},
		{token.RBRACE, "}"},
		{token.SEMICOLON, ";"},
		{token.BANG, "!"},
		{token.MINUS, "-"},
		{token.SLASH, "/"},
		{token.ASTERISK, "*"},
		{token.INT, "5"},
		{token.SEMICOLON, ";"},
		{token.INT, "5"},
		{token.LT, "<"},
		{token.INT, "10"},
		{token.GT, ">"},
		{token.INT, "5"},
		{token.SEMICOLON, ";"},
		{token.IF, "if"},
		{token.LPAREN, "("},
		{token.INT, "5"},
		{token.LT, "<"},
		{token.INT, "10"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.RETURN, "return"},
		{token.TRUE, "true"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.ELSE, "else"},
		{token.LBRACE, "{"},
		{token.RETURN, "return"},
		{token.FALSE, "false"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.INT, "10"},
		{token.EQ, "=="},
		{token.INT, "10"},
		{token.SEMICOLON, ";"},
		{token.INT, "10"},
		{token.NOT_EQ, "!="},
		{token.INT, "9"},
		{token.SEMICOLON, ";"},
		{token.STRING, "foobar"},
		{token.STRING, "foo bar"},
		{token.LBRACKET, "["},
		{token.INT, "1"},
		{token.COMMA, ","},
		{token.INT, "2"},
		{token.RBRACKET, "]"},
		{token.SEMICOLON, ";"},
		{token.LBRACE, "{"},
		{token.STRING, "foo"},
		{token.COLON, ":"},
		{token.STRING, "bar"},
		{token.RBRACE, "}"},
		{token.IDENT, "add"},
		{token.LPAREN, "("},
		{token.RPAREN, ")"},
		{token.SEMICOLON, ";"},
		{token.EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (%q)",
				i, tt.expectedType, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"a\nb"`, "a\nb"},
		{`"tab\there"`, "tab\there"},
		{`"say \"hi\""`, `say "hi"`},
		{`"back\\slash"`, `back\slash`},
		{`""`, ""},
	}

	for _, tt := range tests {
		tok := New(tt.input).NextToken()
		if tok.Type != token.STRING || tok.Literal != tt.expected {
			t.Errorf("input %s: got %s %q, want STRING %q", tt.input, tok.Type, tok.Literal, tt.expected)
		}
	}
}

func TestIllegalTokens(t *testing.T) {
	tests := []struct {
		input   string
		literal string
	}{
		{`"never closed`, "unterminated string"},
		{"@", "@"},
		{"#", "#"},
	}

	for _, tt := range tests {
		tok := New(tt.input).NextToken()
		if tok.Type != token.ILLEGAL || tok.Literal != tt.literal {
			t.Errorf("input %q: got %s %q, want ILLEGAL %q", tt.input, tok.Type, tok.Literal, tt.literal)
		}
	}
}

func TestTokenPositions(t *testing.T) {
	tokens := Tokenize("let x = 1;\n  x")

	last := tokens[len(tokens)-2]
	if last.Type != token.IDENT || last.Line != 2 || last.Column != 3 {
		t.Fatalf("expected x at 2:3, got %+v", last)
	}
	if tokens[0].Line != 1 || tokens[0].Column != 1 {
		t.Fatalf("expected let at 1:1, got %+v", tokens[0])
	}
}

func TestLexerProcessor(t *testing.T) {
	ctx := &pipeline.PipelineContext{SourceCode: "1 + 2"}
	ctx = (&LexerProcessor{}).Process(ctx)

	if len(ctx.TokenStream) != 4 || ctx.TokenStream[3].Type != token.EOF {
		t.Fatalf("unexpected token stream %+v", ctx.TokenStream)
	}

	s := NewStream(ctx.TokenStream)
	for i := 0; i < 6; i++ {
		s.NextToken()
	}
	if tok := s.NextToken(); tok.Type != token.EOF {
		t.Fatalf("stream past end should yield EOF, got %+v", tok)
	}
}
