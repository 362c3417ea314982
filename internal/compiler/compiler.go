// Package compiler lowers a parsed program into bytecode for the virtual
// machine: a flat instruction stream for the top level plus a constant
// pool holding literals and compiled function bodies.
package compiler

import (
	"fmt"

	"github.com/joomcode/errorx"
	"github.com/rs/zerolog"

	"github.com/funvibe/july/internal/ast"
	"github.com/funvibe/july/internal/code"
	"github.com/funvibe/july/internal/config"
	"github.com/funvibe/july/internal/diagnostics"
	"github.com/funvibe/july/internal/object"
)

type Compiler struct {
	constants   []object.Object
	symbolTable *SymbolTable

	scopes     []CompilationScope
	scopeIndex int

	maxGlobals int
	logger     zerolog.Logger
}

// Bytecode is the output of a compilation: the top-level instructions and
// the constant pool they index into.
type Bytecode struct {
	Instructions code.Instructions
	Constants    []object.Object
}

type Option func(*Compiler)

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Compiler) { c.logger = logger }
}

// WithMaxGlobals caps the number of distinct global names, matching the
// globals capacity of the machine that will run the result.
func WithMaxGlobals(n int) Option {
	return func(c *Compiler) {
		if n > 0 {
			c.maxGlobals = n
		}
	}
}

func New(opts ...Option) *Compiler {
	return NewWithState(NewSymbolTable(), []object.Object{}, opts...)
}

// NewWithState continues from an earlier compilation, so a REPL can keep
// its globals and constant indices stable across inputs.
func NewWithState(s *SymbolTable, constants []object.Object, opts ...Option) *Compiler {
	c := &Compiler{
		constants:   constants,
		symbolTable: s,
		scopes:      []CompilationScope{{}},
		maxGlobals:  config.GlobalsSize,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Compiler) Compile(node ast.Node) error {
	switch node := node.(type) {
	case *ast.Program:
		for _, s := range node.Statements {
			if err := c.Compile(s); err != nil {
				return err
			}
		}

	case *ast.ExpressionStatement:
		if err := c.Compile(node.Expression); err != nil {
			return err
		}
		c.emit(code.OpPop)

	case *ast.BlockStatement:
		for _, s := range node.Statements {
			if err := c.Compile(s); err != nil {
				return err
			}
		}

	case *ast.LetStatement:
		if err := c.Compile(node.Value); err != nil {
			return err
		}
		symbol := c.symbolTable.Define(node.Name.Value)
		if symbol.Index >= c.maxGlobals {
			return withPosition(diagnostics.GlobalsOverflow.New(
				"cannot define %q: more than %d globals", node.Name.Value, c.maxGlobals), node)
		}
		c.emit(code.OpSetGlobal, symbol.Index)

	case *ast.ReturnStatement:
		if err := c.Compile(node.ReturnValue); err != nil {
			return err
		}
		c.emit(code.OpReturnValue)

	case *ast.Identifier:
		symbol, ok := c.symbolTable.Resolve(node.Value)
		if !ok {
			return withPosition(diagnostics.UndefinedVariable.New("undefined variable %s", node.Value), node)
		}
		c.emit(code.OpGetGlobal, symbol.Index)

	case *ast.IntegerLiteral:
		integer := &object.Integer{Value: node.Value}
		c.emit(code.OpConstant, c.addConstant(integer))

	case *ast.StringLiteral:
		str := &object.String{Value: node.Value}
		c.emit(code.OpConstant, c.addConstant(str))

	case *ast.Boolean:
		if node.Value {
			c.emit(code.OpTrue)
		} else {
			c.emit(code.OpFalse)
		}

	case *ast.PrefixExpression:
		if err := c.Compile(node.Right); err != nil {
			return err
		}
		switch node.Operator {
		case "!":
			c.emit(code.OpBang)
		case "-":
			c.emit(code.OpMinus)
		default:
			return withPosition(diagnostics.CompileError.New("unknown operator %s", node.Operator), node)
		}

	case *ast.InfixExpression:
		return c.compileInfix(node)

	case *ast.IfExpression:
		return c.compileIf(node)

	case *ast.ArrayLiteral:
		for _, el := range node.Elements {
			if err := c.Compile(el); err != nil {
				return err
			}
		}
		c.emit(code.OpArray, len(node.Elements))

	case *ast.HashLiteral:
		for _, pair := range node.Pairs {
			if err := c.Compile(pair.Key); err != nil {
				return err
			}
			if err := c.Compile(pair.Value); err != nil {
				return err
			}
		}
		c.emit(code.OpHash, len(node.Pairs)*2)

	case *ast.IndexExpression:
		if err := c.Compile(node.Left); err != nil {
			return err
		}
		if err := c.Compile(node.Index); err != nil {
			return err
		}
		c.emit(code.OpIndex)

	case *ast.FunctionLiteral:
		return c.compileFunction(node)

	case *ast.CallExpression:
		if len(node.Arguments) > 0 {
			return withPosition(diagnostics.CompileError.New(
				"function calls take no arguments, got %d", len(node.Arguments)), node)
		}
		if err := c.Compile(node.Function); err != nil {
			return err
		}
		c.emit(code.OpCall)

	case nil:
		return diagnostics.CompileError.New("missing node")

	default:
		return withPosition(diagnostics.CompileError.New("unsupported node %T", node), node)
	}

	return nil
}

func (c *Compiler) compileInfix(node *ast.InfixExpression) error {
	// a < b is compiled as b > a.
	if node.Operator == "<" {
		if err := c.Compile(node.Right); err != nil {
			return err
		}
		if err := c.Compile(node.Left); err != nil {
			return err
		}
		c.emit(code.OpGreaterThan)
		return nil
	}

	if err := c.Compile(node.Left); err != nil {
		return err
	}
	if err := c.Compile(node.Right); err != nil {
		return err
	}

	switch node.Operator {
	case "+":
		c.emit(code.OpAdd)
	case "-":
		c.emit(code.OpSub)
	case "*":
		c.emit(code.OpMul)
	case "/":
		c.emit(code.OpDiv)
	case ">":
		c.emit(code.OpGreaterThan)
	case "==":
		c.emit(code.OpEqual)
	case "!=":
		c.emit(code.OpNotEqual)
	default:
		return withPosition(diagnostics.CompileError.New("unknown operator %s", node.Operator), node)
	}
	return nil
}

func (c *Compiler) compileIf(node *ast.IfExpression) error {
	if err := c.Compile(node.Condition); err != nil {
		return err
	}

	jumpNotTruthy := c.emitJump(code.OpJumpNotTruthy)

	if err := c.compileBranch(node.Consequence); err != nil {
		return err
	}

	jump := c.emitJump(code.OpJump)

	c.patchJump(jumpNotTruthy)

	if node.Alternative == nil {
		c.emit(code.OpNull)
	} else if err := c.compileBranch(node.Alternative); err != nil {
		return err
	}

	c.patchJump(jump)
	return nil
}

// compileBranch compiles one arm of an if-expression so that it leaves
// exactly one value on the stack. An arm that does not end in an
// expression statement yields null.
func (c *Compiler) compileBranch(block *ast.BlockStatement) error {
	start := len(c.currentInstructions())
	if err := c.Compile(block); err != nil {
		return err
	}

	if len(c.currentInstructions()) > start && c.lastInstructionIs(code.OpPop) {
		c.removeLastPop()
		return nil
	}
	c.emit(code.OpNull)
	return nil
}

func (c *Compiler) compileFunction(node *ast.FunctionLiteral) error {
	if len(node.Parameters) > 0 {
		return withPosition(diagnostics.CompileError.New(
			"functions take no parameters, got %d", len(node.Parameters)), node)
	}

	c.enterScope()

	if err := c.Compile(node.Body); err != nil {
		c.leaveScope()
		return err
	}

	if c.lastInstructionIs(code.OpPop) {
		c.replaceLastPopWithReturn()
	}
	if !c.lastInstructionIs(code.OpReturnValue) {
		c.emit(code.OpReturn)
	}

	instructions := c.leaveScope()

	compiledFn := &object.CompiledFunction{Instructions: instructions}
	c.emit(code.OpConstant, c.addConstant(compiledFn))
	return nil
}

func (c *Compiler) addConstant(obj object.Object) int {
	c.constants = append(c.constants, obj)
	return len(c.constants) - 1
}

func (c *Compiler) Bytecode() *Bytecode {
	return &Bytecode{
		Instructions: c.currentInstructions(),
		Constants:    c.constants,
	}
}

// SymbolTable exposes the table so callers can carry it into the next
// compilation.
func (c *Compiler) SymbolTable() *SymbolTable {
	return c.symbolTable
}

func withPosition(err *errorx.Error, node ast.Node) error {
	tok := node.GetToken()
	if tok.Line == 0 {
		return err
	}
	return err.WithProperty(diagnostics.PropertyPosition, fmt.Sprintf("%d:%d", tok.Line, tok.Column))
}
