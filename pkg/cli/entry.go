// Package cli implements the july command line.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/funvibe/july/internal/backend"
	"github.com/funvibe/july/internal/bundle"
	"github.com/funvibe/july/internal/cache"
	"github.com/funvibe/july/internal/code"
	"github.com/funvibe/july/internal/compiler"
	"github.com/funvibe/july/internal/config"
	"github.com/funvibe/july/internal/lexer"
	"github.com/funvibe/july/internal/object"
	"github.com/funvibe/july/internal/parser"
	"github.com/funvibe/july/internal/pipeline"
	"github.com/funvibe/july/internal/prettyprinter"
	"github.com/funvibe/july/internal/repl"
)

// Version can be set at build time using: -ldflags "-X github.com/funvibe/july/pkg/cli.Version=..."
var Version = "dev"

// errUsage means the arguments were wrong; the usage text has already
// been printed.
var errUsage = errors.New("usage")

type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// Run executes the command named by args (without the program name) and
// returns the process exit code.
func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	e := &env{stdin: stdin, stdout: stdout, stderr: stderr}

	command := "repl"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	var err error
	switch command {
	case "run":
		err = e.handleRun(args)
	case "disasm":
		err = e.handleDisasm(args)
	case "build":
		err = e.handleBuild(args)
	case "fmt":
		err = e.handleFmt(args)
	case "exec":
		err = e.handleExec(args)
	case "repl":
		err = e.handleRepl(args)
	case "version":
		fmt.Fprintf(stdout, "july %s\n", Version)
	case "help", "-help", "--help", "-h":
		e.usage()
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", command)
		e.usage()
		return 2
	}

	if err != nil {
		if errors.Is(err, errUsage) {
			return 2
		}
		fmt.Fprintf(stderr, "error: %s\n", err)
		return 1
	}
	return 0
}

func (e *env) usage() {
	fmt.Fprint(e.stderr, `Usage: july <command> [flags] [file]

Commands:
  run [-config f] [-cache db] [-trace] file.jl   compile and run a program
  disasm [-config f] file.jl                      print the compiled instructions
  build [-config f] [-o out.julb] file.jl         write a compiled bundle
  exec [-config f] [-trace] file.julb             run a compiled bundle
  fmt [-w] file.jl                                print the source in canonical form
  repl [-config f]                                start the interactive loop (default)
  version                                         print the version
`)
}

// commonFlags are shared by every command that loads a program.
type commonFlags struct {
	configPath string
	trace      bool
}

func (e *env) newFlagSet(name string, common *commonFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.StringVar(&common.configPath, "config", "", "config file (default: nearest july.yaml, july.yml or july.toml)")
	fs.BoolVar(&common.trace, "trace", false, "log every executed instruction")
	return fs
}

// setup loads the configuration and builds the logger it describes.
func (e *env) setup(common commonFlags) (*config.Config, zerolog.Logger, error) {
	var cfg *config.Config
	var err error
	if common.configPath != "" {
		cfg, err = config.Load(common.configPath)
	} else {
		var wd string
		wd, err = os.Getwd()
		if err == nil {
			cfg, err = config.FindAndLoad(wd)
		}
	}
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	if common.trace {
		cfg.Log.Level = zerolog.LevelTraceValue
	}
	logger := cfg.Log.NewLogger(e.stderr)
	if cfg.Path != "" {
		logger.Debug().Str("path", cfg.Path).Msg("loaded config")
	}
	return cfg, logger, nil
}

// singleFile returns the only positional argument, which must carry ext.
func (e *env) singleFile(fs *flag.FlagSet, ext string) (string, error) {
	if fs.NArg() != 1 {
		fmt.Fprintf(e.stderr, "%s expects exactly one %s file\n", fs.Name(), ext)
		return "", errUsage
	}
	path := fs.Arg(0)
	if filepath.Ext(path) != ext {
		return "", fmt.Errorf("%s: expected a %s file", path, ext)
	}
	return path, nil
}

func frontEnd() []pipeline.Processor {
	return []pipeline.Processor{&lexer.LexerProcessor{}, &parser.ParserProcessor{}}
}

// compileSource runs the front end and the compiler, stopping before
// execution.
func compileSource(source, path string, cfg *config.Config, logger zerolog.Logger) (*compiler.Bytecode, error) {
	stages := append(frontEnd(), &backend.CompileProcessor{MaxGlobals: cfg.VM.GlobalsSize, Logger: logger})
	ctx := pipeline.New(stages...).Run(&pipeline.PipelineContext{SourceCode: source, FilePath: path})
	if ctx.Failed() {
		return nil, ctx.Err()
	}
	return ctx.Bytecode, nil
}

func (e *env) handleRun(args []string) error {
	var common commonFlags
	fs := e.newFlagSet("run", &common)
	cachePath := fs.String("cache", "", "compiled-image cache database (enables caching)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	path, err := e.singleFile(fs, config.SourceFileExt)
	if err != nil {
		return err
	}
	cfg, logger, err := e.setup(common)
	if err != nil {
		return err
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading source file: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	initial := &pipeline.PipelineContext{SourceCode: string(source), FilePath: path}

	var store *cache.Cache
	dbPath := *cachePath
	if dbPath == "" && cfg.Cache.Enabled {
		dbPath = cfg.Cache.Path
	}
	if dbPath != "" {
		store, err = cache.Open(ctx, dbPath, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		cached, ok, err := store.Get(ctx, initial.SourceCode)
		if err != nil {
			return err
		}
		if ok {
			initial.Bytecode = cached.Bytecode
		}
	}
	fromCache := initial.Bytecode != nil

	vmBackend := backend.NewVM(cfg.VM, logger)
	vmBackend.Context = ctx

	result := backend.NewPipeline(frontEnd(), cfg.VM.GlobalsSize, vmBackend, logger).Run(initial)

	// A program that compiled is worth caching even if it then failed.
	if store != nil && !fromCache && result.Bytecode != nil {
		if err := store.Put(ctx, initial.SourceCode, bundle.New(result.Bytecode, path)); err != nil {
			logger.Warn().Err(err).Msg("could not cache compiled program")
		}
	}

	if result.Failed() {
		return result.Err()
	}
	e.printResult(result.Result)
	return nil
}

func (e *env) handleDisasm(args []string) error {
	var common commonFlags
	fs := e.newFlagSet("disasm", &common)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	path, err := e.singleFile(fs, config.SourceFileExt)
	if err != nil {
		return err
	}
	cfg, logger, err := e.setup(common)
	if err != nil {
		return err
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading source file: %w", err)
	}
	bytecode, err := compileSource(string(source), path, cfg, logger)
	if err != nil {
		return err
	}
	return Disassemble(e.stdout, bytecode)
}

// Disassemble writes the listing of the main program followed by the
// listing of every function constant.
func Disassemble(w io.Writer, bytecode *compiler.Bytecode) error {
	listing, err := code.Disassemble(bytecode.Instructions)
	fmt.Fprintln(w, "== main ==")
	if listing != "" {
		fmt.Fprintln(w, listing)
	}
	if err != nil {
		return err
	}

	for i, constant := range bytecode.Constants {
		fn, ok := constant.(*object.CompiledFunction)
		if !ok {
			continue
		}
		listing, err := code.Disassemble(fn.Instructions)
		fmt.Fprintf(w, "== constant %d: %s ==\n", i, fn.Inspect())
		if listing != "" {
			fmt.Fprintln(w, listing)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *env) handleBuild(args []string) error {
	var common commonFlags
	fs := e.newFlagSet("build", &common)
	output := fs.String("o", "", "output path (default: source path with "+config.BundleFileExt+")")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	path, err := e.singleFile(fs, config.SourceFileExt)
	if err != nil {
		return err
	}
	cfg, logger, err := e.setup(common)
	if err != nil {
		return err
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading source file: %w", err)
	}
	bytecode, err := compileSource(string(source), path, cfg, logger)
	if err != nil {
		return err
	}

	b := bundle.New(bytecode, path)
	data, err := b.Serialize()
	if err != nil {
		return err
	}

	outputPath := *output
	if outputPath == "" {
		outputPath = strings.TrimSuffix(path, filepath.Ext(path)) + config.BundleFileExt
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("writing bundle: %w", err)
	}

	logger.Info().Str("bundle", b.ID.String()).Str("output", outputPath).Msg("built")
	fmt.Fprintf(e.stdout, "Compiled %s -> %s (%d bytes)\n", path, outputPath, len(data))
	return nil
}

func (e *env) handleExec(args []string) error {
	var common commonFlags
	fs := e.newFlagSet("exec", &common)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	path, err := e.singleFile(fs, config.BundleFileExt)
	if err != nil {
		return err
	}
	cfg, logger, err := e.setup(common)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading bundle: %w", err)
	}
	b, err := bundle.Deserialize(data)
	if err != nil {
		return err
	}
	logger.Debug().Str("bundle", b.ID.String()).Str("source", b.SourceFile).Msg("loaded bundle")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	vmBackend := backend.NewVM(cfg.VM, logger)
	vmBackend.Context = ctx

	result := pipeline.New(backend.NewExecutionProcessor(vmBackend)).
		Run(&pipeline.PipelineContext{FilePath: path, Bytecode: b.Bytecode})
	if result.Failed() {
		return result.Err()
	}
	e.printResult(result.Result)
	return nil
}

func (e *env) handleFmt(args []string) error {
	fs := flag.NewFlagSet("fmt", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	write := fs.Bool("w", false, "write the result back to the source file")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	path, err := e.singleFile(fs, config.SourceFileExt)
	if err != nil {
		return err
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading source file: %w", err)
	}
	program, err := parser.Parse(string(source))
	if err != nil {
		return err
	}
	formatted := prettyprinter.Format(program)

	if !*write {
		fmt.Fprint(e.stdout, formatted)
		return nil
	}
	if formatted == string(source) {
		return nil
	}
	if err := os.WriteFile(path, []byte(formatted), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func (e *env) handleRepl(args []string) error {
	var common commonFlags
	fs := e.newFlagSet("repl", &common)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(e.stderr, "repl takes no arguments")
		return errUsage
	}
	cfg, logger, err := e.setup(common)
	if err != nil {
		return err
	}
	return repl.Start(context.Background(), e.stdin, e.stdout, cfg, logger)
}

func (e *env) printResult(result object.Object) {
	if result == nil {
		return
	}
	fmt.Fprintln(e.stdout, result.Inspect())
}
