// Package repl implements the interactive read-compile-run loop. Bindings
// made by one line stay visible to the next.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/funvibe/july/internal/compiler"
	"github.com/funvibe/july/internal/config"
	"github.com/funvibe/july/internal/object"
	"github.com/funvibe/july/internal/parser"
	"github.com/funvibe/july/internal/vm"
)

// Session holds the state shared by successive inputs.
type Session struct {
	symbols   *compiler.SymbolTable
	constants []object.Object
	globals   []object.Object
	cfg       config.VMConfig
	logger    zerolog.Logger
}

func NewSession(cfg config.VMConfig, logger zerolog.Logger) *Session {
	cfg = cfg.WithDefaults()
	return &Session{
		symbols: compiler.NewSymbolTable(),
		globals: vm.NewGlobals(cfg),
		cfg:     cfg,
		logger:  logger,
	}
}

// Eval compiles and runs one input. A compile failure leaves no constants
// behind; names it defined before failing stay defined but read as null.
func (s *Session) Eval(ctx context.Context, input string) (object.Object, error) {
	program, err := parser.Parse(input)
	if err != nil {
		return nil, err
	}

	comp := compiler.NewWithState(s.symbols, s.constants,
		compiler.WithMaxGlobals(s.cfg.GlobalsSize),
		compiler.WithLogger(s.logger),
	)
	if err := comp.Compile(program); err != nil {
		return nil, err
	}

	bytecode := comp.Bytecode()
	s.constants = bytecode.Constants

	machine := vm.NewWithGlobals(bytecode, s.cfg, s.globals, vm.WithLogger(s.logger))
	if err := machine.RunContext(ctx); err != nil {
		return nil, err
	}

	result := machine.LastPoppedStackElem()
	if result == nil {
		result = object.NULL
	}
	return result, nil
}

// Start runs the loop until in is exhausted. Errors are printed and the
// loop goes on; only a read failure ends it early.
func Start(ctx context.Context, in io.Reader, out io.Writer, cfg *config.Config, logger zerolog.Logger) error {
	if cfg == nil {
		cfg = config.Default()
	}
	session := NewSession(cfg.VM, logger)

	prompt := cfg.REPL.Prompt
	if !interactive(in) {
		prompt = ""
	}

	scanner := bufio.NewScanner(in)
	for {
		if prompt != "" {
			fmt.Fprint(out, prompt)
		}
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		result, err := session.Eval(ctx, line)
		if err != nil {
			fmt.Fprintf(out, "error: %s\n", err)
			continue
		}
		fmt.Fprintln(out, result.Inspect())
	}
	if prompt != "" {
		fmt.Fprintln(out)
	}
	return scanner.Err()
}

func interactive(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
