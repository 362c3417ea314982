package parser_test

import (
	"strings"
	"testing"

	"github.com/joomcode/errorx"

	"github.com/funvibe/july/internal/ast"
	"github.com/funvibe/july/internal/diagnostics"
	"github.com/funvibe/july/internal/lexer"
	"github.com/funvibe/july/internal/parser"
	"github.com/funvibe/july/internal/pipeline"
)

func parse(t *testing.T, input string) *ast.Program {
	t.Helper()
	p := parser.New(lexer.New(input))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parser had %d errors:\n%s", len(errs), strings.Join(errs, "\n"))
	}
	return program
}

func TestLetStatements(t *testing.T) {
	tests := []struct {
		input              string
		expectedIdentifier string
		expectedValue      string
	}{
		{"let x = 5;", "x", "5"},
		{"let y = true;", "y", "true"},
		{"let foobar = y", "foobar", "y"},
		{`let s = "hi";`, "s", `"hi"`},
	}

	for _, tt := range tests {
		program := parse(t, tt.input)
		if len(program.Statements) != 1 {
			t.Fatalf("program.Statements does not contain 1 statement. got=%d", len(program.Statements))
		}

		stmt, ok := program.Statements[0].(*ast.LetStatement)
		if !ok {
			t.Fatalf("statement is not *ast.LetStatement. got=%T", program.Statements[0])
		}
		if stmt.Name.Value != tt.expectedIdentifier {
			t.Errorf("stmt.Name.Value not %q. got=%q", tt.expectedIdentifier, stmt.Name.Value)
		}
		if stmt.Value.String() != tt.expectedValue {
			t.Errorf("stmt.Value not %q. got=%q", tt.expectedValue, stmt.Value.String())
		}
	}
}

func TestReturnStatement(t *testing.T) {
	program := parse(t, "return 5 + 1;")

	stmt, ok := program.Statements[0].(*ast.ReturnStatement)
	if !ok {
		t.Fatalf("statement is not *ast.ReturnStatement. got=%T", program.Statements[0])
	}
	if stmt.ReturnValue.String() != "(5 + 1)" {
		t.Errorf("wrong return value %q", stmt.ReturnValue.String())
	}
}

func TestOperatorPrecedenceParsing(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"-a * b", "((-a) * b)"},
		{"!-a", "(!(-a))"},
		{"a + b + c", "((a + b) + c)"},
		{"a + b - c", "((a + b) - c)"},
		{"a * b * c", "((a * b) * c)"},
		{"a + b / c", "(a + (b / c))"},
		{"a + b * c + d / e - f", "(((a + (b * c)) + (d / e)) - f)"},
		{"3 + 4; -5 * 5", "(3 + 4)((-5) * 5)"},
		{"5 > 4 == 3 < 4", "((5 > 4) == (3 < 4))"},
		{"5 < 4 != 3 > 4", "((5 < 4) != (3 > 4))"},
		{"3 + 4 * 5 == 3 * 1 + 4 * 5", "((3 + (4 * 5)) == ((3 * 1) + (4 * 5)))"},
		{"true", "true"},
		{"3 > 5 == false", "((3 > 5) == false)"},
		{"1 + (2 + 3) + 4", "((1 + (2 + 3)) + 4)"},
		{"(5 + 5) * 2", "((5 + 5) * 2)"},
		{"-(5 + 5)", "(-(5 + 5))"},
		{"!(true == true)", "(!(true == true))"},
		{"a * [1, 2, 3, 4][b * c] * d", "((a * ([1, 2, 3, 4][(b * c)])) * d)"},
		{"f()[0]", "(f()[0])"},
		{"fn() { 1 }()", "fn() 1()"},
	}

	for _, tt := range tests {
		program := parse(t, tt.input)
		if actual := program.String(); actual != tt.expected {
			t.Errorf("input %q: expected=%q, got=%q", tt.input, tt.expected, actual)
		}
	}
}

func TestIfExpression(t *testing.T) {
	program := parse(t, "if (x < y) { x } else { y }")

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	exp, ok := stmt.Expression.(*ast.IfExpression)
	if !ok {
		t.Fatalf("stmt.Expression is not *ast.IfExpression. got=%T", stmt.Expression)
	}
	if exp.Condition.String() != "(x < y)" {
		t.Errorf("wrong condition %q", exp.Condition.String())
	}
	if len(exp.Consequence.Statements) != 1 || exp.Consequence.String() != "x" {
		t.Errorf("wrong consequence %q", exp.Consequence.String())
	}
	if exp.Alternative == nil || exp.Alternative.String() != "y" {
		t.Errorf("wrong alternative %v", exp.Alternative)
	}
}

func TestIfExpressionInsideParens(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"!(if (false) {3};)", "(!iffalse 3)"},
		{"if (if (false) {1};) {3} else {4};", "ififfalse 1 3else 4"},
		{"if (1 == 2) {3};", "if(1 == 2) 3"},
	}

	for _, tt := range tests {
		program := parse(t, tt.input)
		if actual := program.String(); actual != tt.expected {
			t.Errorf("input %q: expected=%q, got=%q", tt.input, tt.expected, actual)
		}
	}
}

func TestFunctionLiteralParsing(t *testing.T) {
	program := parse(t, "fn(x, y) { x + y; }")

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	function, ok := stmt.Expression.(*ast.FunctionLiteral)
	if !ok {
		t.Fatalf("stmt.Expression is not *ast.FunctionLiteral. got=%T", stmt.Expression)
	}
	if len(function.Parameters) != 2 {
		t.Fatalf("function literal parameters wrong. want 2, got=%d", len(function.Parameters))
	}
	if function.Body.String() != "(x + y)" {
		t.Errorf("wrong body %q", function.Body.String())
	}
}

func TestCallExpressionParsing(t *testing.T) {
	program := parse(t, "add(1, 2 * 3, 4 + 5);")

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	exp, ok := stmt.Expression.(*ast.CallExpression)
	if !ok {
		t.Fatalf("stmt.Expression is not *ast.CallExpression. got=%T", stmt.Expression)
	}
	if exp.Function.String() != "add" || len(exp.Arguments) != 3 {
		t.Fatalf("wrong call %q", exp.String())
	}
	if exp.Arguments[1].String() != "(2 * 3)" {
		t.Errorf("wrong argument %q", exp.Arguments[1].String())
	}
}

func TestHashLiteralParsing(t *testing.T) {
	tests := []struct {
		input    string
		pairs    int
		expected string
	}{
		{`{"one": 1, "two": 2, "three": 3}`, 3, `{"one":1, "two":2, "three":3}`},
		{"{}", 0, "{}"},
		{`{1: 0 + 1, true: 10 - 8}`, 2, "{1:(0 + 1), true:(10 - 8)}"},
	}

	for _, tt := range tests {
		program := parse(t, tt.input)
		stmt := program.Statements[0].(*ast.ExpressionStatement)
		hash, ok := stmt.Expression.(*ast.HashLiteral)
		if !ok {
			t.Fatalf("exp is not *ast.HashLiteral. got=%T", stmt.Expression)
		}
		if len(hash.Pairs) != tt.pairs {
			t.Errorf("hash.Pairs has wrong length. got=%d", len(hash.Pairs))
		}
		if hash.String() != tt.expected {
			t.Errorf("expected=%q, got=%q", tt.expected, hash.String())
		}
	}
}

func TestArrayAndIndexParsing(t *testing.T) {
	program := parse(t, "[1, 2 * 2, 3 + 3][1 + 1]")

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	index, ok := stmt.Expression.(*ast.IndexExpression)
	if !ok {
		t.Fatalf("exp not *ast.IndexExpression. got=%T", stmt.Expression)
	}
	array, ok := index.Left.(*ast.ArrayLiteral)
	if !ok || len(array.Elements) != 3 {
		t.Fatalf("wrong array literal %v", index.Left)
	}
	if index.Index.String() != "(1 + 1)" {
		t.Errorf("wrong index %q", index.Index.String())
	}
}

func TestIntegerLiteralsAreDecimal(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"5", 5},
		{"010", 10},
		{"09", 9},
		{"0", 0},
		{"007", 7},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			program, err := parser.Parse(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			stmt, ok := program.Statements[0].(*ast.ExpressionStatement)
			if !ok {
				t.Fatalf("expected an expression statement, got %T", program.Statements[0])
			}
			literal, ok := stmt.Expression.(*ast.IntegerLiteral)
			if !ok {
				t.Fatalf("expected *ast.IntegerLiteral, got %T", stmt.Expression)
			}
			if literal.Value != tt.expected {
				t.Errorf("literal.Value = %d, want %d", literal.Value, tt.expected)
			}
		})
	}
}

func TestParserErrors(t *testing.T) {
	tests := []struct {
		input    string
		contains string
	}{
		{"let = 5;", "expected next token to be IDENT, got = instead"},
		{"let x 5;", "expected next token to be =, got INT instead"},
		{"+ 1", "no prefix parse function for + found"},
		{"let x = 99999999999999999999;", "could not parse"},
		{`let s = "open`, `illegal token "unterminated string"`},
		{"if (true) { 1", "unterminated block"},
		{"[1, 2", "expected next token to be ], got EOF instead"},
		{"x @ y", `illegal token "@"`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := parser.Parse(tt.input)
			if err == nil {
				t.Fatalf("expected a syntax error")
			}
			if !errorx.IsOfType(err, diagnostics.SyntaxError) {
				t.Fatalf("expected syntax error type, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.contains)
			}
		})
	}
}

func TestErrorPositions(t *testing.T) {
	_, err := parser.Parse("let a = 1;\nlet = 2;")
	if err == nil || !strings.Contains(err.Error(), "2:5:") {
		t.Fatalf("expected error at 2:5, got %v", err)
	}
}

func TestParserProcessor(t *testing.T) {
	ctx := &pipeline.PipelineContext{SourceCode: "let a = 1; a + 2", FilePath: "main.jl"}
	ctx = (&lexer.LexerProcessor{}).Process(ctx)
	ctx = (&parser.ParserProcessor{}).Process(ctx)

	if ctx.Failed() {
		t.Fatalf("unexpected errors: %v", ctx.Err())
	}
	if ctx.AstRoot == nil || ctx.AstRoot.File != "main.jl" || len(ctx.AstRoot.Statements) != 2 {
		t.Fatalf("unexpected program %+v", ctx.AstRoot)
	}

	bad := (&parser.ParserProcessor{}).Process(&pipeline.PipelineContext{SourceCode: "let"})
	if !bad.Failed() || bad.AstRoot != nil {
		t.Fatalf("expected parser processor to record an error")
	}
}
