// Package prettyprinter renders a syntax tree back to canonical source.
package prettyprinter

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/funvibe/july/internal/ast"
)

// Operator precedence (higher = binds tighter). Mirrors the parser.
const (
	precLowest = iota
	precEquals
	precLessGreater
	precSum
	precProduct
	precPrefix
	precCall
	precIndex
)

var operatorPrecedence = map[string]int{
	"==": precEquals,
	"!=": precEquals,
	"<":  precLessGreater,
	">":  precLessGreater,
	"+":  precSum,
	"-":  precSum,
	"*":  precProduct,
	"/":  precProduct,
}

func getPrecedence(op string) int {
	if p, ok := operatorPrecedence[op]; ok {
		return p
	}
	return precIndex
}

const indentWidth = 4

type CodePrinter struct {
	buf       bytes.Buffer
	indent    int
	lineWidth int // max line width (0 = unlimited)
	column    int // current column position
}

func NewCodePrinter() *CodePrinter {
	return &CodePrinter{lineWidth: 80}
}

func NewCodePrinterWithWidth(width int) *CodePrinter {
	return &CodePrinter{lineWidth: width}
}

// Format renders program with the default line width.
func Format(program *ast.Program) string {
	p := NewCodePrinter()
	p.PrintProgram(program)
	return p.String()
}

func (p *CodePrinter) String() string {
	return p.buf.String()
}

func (p *CodePrinter) write(s string) {
	p.buf.WriteString(s)
	if idx := strings.LastIndex(s, "\n"); idx != -1 {
		p.column = len(s) - idx - 1
	} else {
		p.column += len(s)
	}
}

func (p *CodePrinter) writeln() {
	p.buf.WriteString("\n")
	p.column = 0
}

func (p *CodePrinter) writeIndent() {
	pad := strings.Repeat(" ", p.indent*indentWidth)
	p.buf.WriteString(pad)
	p.column = len(pad)
}

// fits reports whether s can be written on the current line.
func (p *CodePrinter) fits(s string) bool {
	if strings.Contains(s, "\n") {
		return false
	}
	return p.lineWidth == 0 || p.column+len(s) <= p.lineWidth
}

// render prints with a scratch printer that shares this printer's
// position, so the caller can measure the result before committing.
func (p *CodePrinter) render(print func(*CodePrinter)) string {
	scratch := &CodePrinter{indent: p.indent, lineWidth: p.lineWidth, column: p.column}
	print(scratch)
	return scratch.String()
}

func (p *CodePrinter) PrintProgram(n *ast.Program) {
	for _, stmt := range n.Statements {
		p.printStatement(stmt, true)
		p.writeln()
	}
}

// printStatement writes one statement. terminate adds the trailing ';'
// which keeps a following statement from being read as a continuation.
func (p *CodePrinter) printStatement(stmt ast.Statement, terminate bool) {
	switch s := stmt.(type) {
	case *ast.LetStatement:
		p.write("let " + s.Name.Value + " = ")
		p.printExpr(s.Value, precLowest)
	case *ast.ReturnStatement:
		p.write("return ")
		p.printExpr(s.ReturnValue, precLowest)
	case *ast.ExpressionStatement:
		p.printExpr(s.Expression, precLowest)
	case *ast.BlockStatement:
		p.printBlock(s)
		return
	default:
		p.write(stmt.String())
	}
	if terminate {
		p.write(";")
	}
}

// printBlock writes a block inline when it holds one statement that fits,
// and one statement per line otherwise.
func (p *CodePrinter) printBlock(b *ast.BlockStatement) {
	if b == nil || len(b.Statements) == 0 {
		p.write("{}")
		return
	}

	if len(b.Statements) == 1 {
		inline := p.render(func(q *CodePrinter) {
			q.write("{ ")
			q.printStatement(b.Statements[0], false)
			q.write(" }")
		})
		if p.fits(inline) {
			p.write(inline)
			return
		}
	}

	p.write("{")
	p.writeln()
	p.indent++
	for _, stmt := range b.Statements {
		p.writeIndent()
		p.printStatement(stmt, true)
		p.writeln()
	}
	p.indent--
	p.writeIndent()
	p.write("}")
}

// printExpr prints an expression, adding parentheses only if needed.
// Every binary operator is left-associative, so a right operand of equal
// precedence is parenthesized.
func (p *CodePrinter) printExpr(expr ast.Expression, parentPrec int) {
	switch e := expr.(type) {
	case *ast.InfixExpression:
		prec := getPrecedence(e.Operator)
		needParens := prec < parentPrec
		if needParens {
			p.write("(")
		}
		p.printExpr(e.Left, prec)
		p.write(" " + e.Operator + " ")
		p.printExpr(e.Right, prec+1)
		if needParens {
			p.write(")")
		}

	case *ast.PrefixExpression:
		needParens := precPrefix < parentPrec
		if needParens {
			p.write("(")
		}
		p.write(e.Operator)
		p.printExpr(e.Right, precPrefix)
		if needParens {
			p.write(")")
		}

	case *ast.Identifier:
		p.write(e.Value)
	case *ast.IntegerLiteral:
		p.write(strconv.FormatInt(e.Value, 10))
	case *ast.Boolean:
		p.write(strconv.FormatBool(e.Value))
	case *ast.StringLiteral:
		p.write(quote(e.Value))

	case *ast.IfExpression:
		p.write("if (")
		p.printExpr(e.Condition, precLowest)
		p.write(") ")
		p.printBlock(e.Consequence)
		if e.Alternative != nil {
			p.write(" else ")
			p.printBlock(e.Alternative)
		}

	case *ast.FunctionLiteral:
		params := make([]string, len(e.Parameters))
		for i, param := range e.Parameters {
			params[i] = param.Value
		}
		p.write("fn(" + strings.Join(params, ", ") + ") ")
		p.printBlock(e.Body)

	case *ast.CallExpression:
		p.printExpr(e.Function, precCall)
		p.printList("(", ")", len(e.Arguments), func(q *CodePrinter, i int) {
			q.printExpr(e.Arguments[i], precLowest)
		})

	case *ast.IndexExpression:
		p.printExpr(e.Left, precIndex)
		p.write("[")
		p.printExpr(e.Index, precLowest)
		p.write("]")

	case *ast.ArrayLiteral:
		p.printList("[", "]", len(e.Elements), func(q *CodePrinter, i int) {
			q.printExpr(e.Elements[i], precLowest)
		})

	case *ast.HashLiteral:
		p.printList("{", "}", len(e.Pairs), func(q *CodePrinter, i int) {
			q.printExpr(e.Pairs[i].Key, precLowest)
			q.write(": ")
			q.printExpr(e.Pairs[i].Value, precLowest)
		})

	case nil:
		p.write("<???>")
	default:
		p.write(expr.String())
	}
}

// printList writes n comma separated items between open and close, on
// one line if they fit and one item per line otherwise.
func (p *CodePrinter) printList(open, close string, n int, item func(*CodePrinter, int)) {
	flat := p.render(func(q *CodePrinter) {
		q.write(open)
		for i := 0; i < n; i++ {
			if i > 0 {
				q.write(", ")
			}
			item(q, i)
		}
		q.write(close)
	})
	if n == 0 || p.fits(flat) {
		p.write(flat)
		return
	}

	p.write(open)
	p.writeln()
	p.indent++
	for i := 0; i < n; i++ {
		p.writeIndent()
		item(p, i)
		if i < n-1 {
			p.write(",")
		}
		p.writeln()
	}
	p.indent--
	p.writeIndent()
	p.write(close)
}

// quote renders s as a string literal using only the escapes the lexer
// understands.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
