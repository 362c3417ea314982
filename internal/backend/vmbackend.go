package backend

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/funvibe/july/internal/config"
	"github.com/funvibe/july/internal/diagnostics"
	"github.com/funvibe/july/internal/object"
	"github.com/funvibe/july/internal/pipeline"
	"github.com/funvibe/july/internal/vm"
)

// VMBackend executes programs using the bytecode VM
type VMBackend struct {
	Context context.Context
	Config  config.VMConfig
	Logger  zerolog.Logger

	// Globals, when set, is shared by every run so bindings persist.
	Globals []object.Object
}

func NewVM(cfg config.VMConfig, logger zerolog.Logger) *VMBackend {
	return &VMBackend{Context: context.Background(), Config: cfg, Logger: logger}
}

func (b *VMBackend) Name() string { return "vm" }

func (b *VMBackend) Run(ctx *pipeline.PipelineContext) (object.Object, error) {
	if ctx.Bytecode == nil {
		return nil, diagnostics.InvalidOperand.New("no bytecode to run")
	}

	globals := b.Globals
	if globals == nil {
		globals = vm.NewGlobals(b.Config)
	}

	machine := vm.NewWithGlobals(ctx.Bytecode, b.Config, globals, vm.WithLogger(b.Logger))

	runCtx := b.Context
	if runCtx == nil {
		runCtx = context.Background()
	}
	if err := machine.RunContext(runCtx); err != nil {
		return nil, err
	}

	result := machine.LastPoppedStackElem()
	if result == nil {
		result = object.NULL
	}
	return result, nil
}
