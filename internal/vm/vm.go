// Package vm executes compiled bytecode on a fixed-capacity stack machine.
package vm

import (
	"context"

	"github.com/joomcode/errorx"
	"github.com/rs/zerolog"

	"github.com/funvibe/july/internal/code"
	"github.com/funvibe/july/internal/compiler"
	"github.com/funvibe/july/internal/config"
	"github.com/funvibe/july/internal/diagnostics"
	"github.com/funvibe/july/internal/object"
)

// VM runs one Bytecode. sp always points at the next free stack slot, so
// the top of the stack is stack[sp-1].
type VM struct {
	constants []object.Object

	stack []object.Object
	sp    int

	globals []object.Object

	frames      []*Frame
	framesIndex int

	halted bool
	logger zerolog.Logger
}

type Option func(*VM)

// WithLogger enables per-instruction tracing at zerolog's trace level.
func WithLogger(logger zerolog.Logger) Option {
	return func(vm *VM) { vm.logger = logger }
}

func New(bytecode *compiler.Bytecode, cfg config.VMConfig, opts ...Option) *VM {
	cfg = cfg.WithDefaults()
	return NewWithGlobals(bytecode, cfg, NewGlobals(cfg), opts...)
}

// NewGlobals allocates a globals store sized for cfg. Passing the same
// store to successive machines carries global bindings between them.
func NewGlobals(cfg config.VMConfig) []object.Object {
	return make([]object.Object, cfg.WithDefaults().GlobalsSize)
}

func NewWithGlobals(bytecode *compiler.Bytecode, cfg config.VMConfig, globals []object.Object, opts ...Option) *VM {
	cfg = cfg.WithDefaults()

	mainFn := &object.CompiledFunction{Instructions: bytecode.Instructions}
	frames := make([]*Frame, cfg.MaxFrames)
	frames[0] = NewFrame(mainFn, 0)

	vm := &VM{
		constants:   bytecode.Constants,
		stack:       make([]object.Object, cfg.StackSize),
		sp:          0,
		globals:     globals,
		frames:      frames,
		framesIndex: 1,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

func (vm *VM) currentFrame() *Frame {
	return vm.frames[vm.framesIndex-1]
}

func (vm *VM) pushFrame(f *Frame) error {
	if vm.framesIndex >= len(vm.frames) {
		return diagnostics.FrameOverflow.New("call depth exceeds %d frames", len(vm.frames))
	}
	vm.frames[vm.framesIndex] = f
	vm.framesIndex++
	return nil
}

func (vm *VM) popFrame() *Frame {
	vm.framesIndex--
	return vm.frames[vm.framesIndex]
}

// StackTop returns the value on top of the stack, or nil when it is empty.
func (vm *VM) StackTop() object.Object {
	if vm.sp == 0 {
		return nil
	}
	return vm.stack[vm.sp-1]
}

// LastPoppedStackElem returns the value most recently removed from the
// stack, which after a run is the value of the last expression statement.
func (vm *VM) LastPoppedStackElem() object.Object {
	if vm.sp >= len(vm.stack) {
		return nil
	}
	return vm.stack[vm.sp]
}

// Globals exposes the globals store for reuse by a following machine.
func (vm *VM) Globals() []object.Object {
	return vm.globals
}

// cancelCheckInterval is how many instructions run between checks of
// the context passed to RunContext.
const cancelCheckInterval = 1024

// Run executes until the main instruction stream is exhausted or a
// top-level return is reached. Any failure aborts the run; the error
// carries the offset and mnemonic of the failing instruction.
func (vm *VM) Run() error {
	return vm.RunContext(context.Background())
}

// RunContext is Run with cancellation.
func (vm *VM) RunContext(ctx context.Context) error {
	var ip int
	var ins code.Instructions
	var op code.Opcode
	var steps int

	for !vm.halted && vm.currentFrame().ip < len(vm.currentFrame().Instructions())-1 {
		steps++
		if steps%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return diagnostics.Interrupted.Wrap(err, "execution stopped after %d instructions", steps-1)
			}
		}

		vm.currentFrame().ip++

		ip = vm.currentFrame().ip
		ins = vm.currentFrame().Instructions()
		op = code.Opcode(ins[ip])

		vm.logger.Trace().
			Int("ip", ip).
			Str("op", op.String()).
			Int("sp", vm.sp).
			Int("frame", vm.framesIndex-1).
			Msg("step")

		if err := vm.execute(op, ins, ip); err != nil {
			return annotate(err, ip, op)
		}
	}
	return nil
}

func annotate(err error, ip int, op code.Opcode) error {
	ex := errorx.Cast(err)
	if ex == nil {
		ex = diagnostics.RuntimeTypeError.WrapWithNoMessage(err)
	}
	return ex.WithProperty(diagnostics.PropertyIP, ip).WithProperty(diagnostics.PropertyOpcode, op.String())
}

func (vm *VM) execute(op code.Opcode, ins code.Instructions, ip int) error {
	def, err := code.Lookup(byte(op))
	if err != nil {
		return err
	}
	if ip+def.Width() > len(ins) {
		return diagnostics.TruncatedInstruction.New("%s needs %d bytes, %d remain", def.Name, def.Width(), len(ins)-ip)
	}
	if def.StackPop > vm.sp {
		return diagnostics.StackUnderflow.New("%s needs %d operands, stack holds %d", def.Name, def.StackPop, vm.sp)
	}

	switch op {
	case code.OpConstant:
		constIndex := int(code.ReadUint32(ins[ip+1:]))
		vm.currentFrame().ip += 4

		if constIndex >= len(vm.constants) {
			return diagnostics.InvalidOperand.New("constant index %d out of range (%d constants)", constIndex, len(vm.constants))
		}
		return vm.push(vm.constants[constIndex])

	case code.OpAdd, code.OpSub, code.OpMul, code.OpDiv:
		return vm.executeBinaryOperation(op)

	case code.OpTrue:
		return vm.push(object.TRUE)

	case code.OpFalse:
		return vm.push(object.FALSE)

	case code.OpNull:
		return vm.push(object.NULL)

	case code.OpEqual, code.OpNotEqual, code.OpGreaterThan:
		return vm.executeComparison(op)

	case code.OpBang:
		return vm.executeBangOperator()

	case code.OpMinus:
		return vm.executeMinusOperator()

	case code.OpPop:
		vm.pop()

	case code.OpJump:
		pos := int(code.ReadUint32(ins[ip+1:]))
		vm.currentFrame().ip = pos - 1

	case code.OpJumpNotTruthy:
		pos := int(code.ReadUint32(ins[ip+1:]))
		vm.currentFrame().ip += 4

		truthy, err := isTruthy(vm.pop())
		if err != nil {
			return err
		}
		if !truthy {
			vm.currentFrame().ip = pos - 1
		}

	case code.OpSetGlobal:
		globalIndex := int(code.ReadUint32(ins[ip+1:]))
		vm.currentFrame().ip += 4

		if globalIndex >= len(vm.globals) {
			return diagnostics.GlobalsOverflow.New("global slot %d exceeds capacity %d", globalIndex, len(vm.globals))
		}
		vm.globals[globalIndex] = vm.pop()

	case code.OpGetGlobal:
		globalIndex := int(code.ReadUint32(ins[ip+1:]))
		vm.currentFrame().ip += 4

		if globalIndex >= len(vm.globals) {
			return diagnostics.GlobalsOverflow.New("global slot %d exceeds capacity %d", globalIndex, len(vm.globals))
		}
		value := vm.globals[globalIndex]
		if value == nil {
			value = object.NULL
		}
		return vm.push(value)

	case code.OpArray:
		numElements := int(code.ReadUint32(ins[ip+1:]))
		vm.currentFrame().ip += 4

		if numElements > vm.sp {
			return diagnostics.StackUnderflow.New("array of %d elements, stack holds %d", numElements, vm.sp)
		}
		array := vm.buildArray(vm.sp-numElements, vm.sp)
		vm.sp = vm.sp - numElements
		return vm.push(array)

	case code.OpHash:
		numElements := int(code.ReadUint32(ins[ip+1:]))
		vm.currentFrame().ip += 4

		if numElements%2 != 0 {
			return diagnostics.InvalidOperand.New("hash needs an even element count, got %d", numElements)
		}
		if numElements > vm.sp {
			return diagnostics.StackUnderflow.New("hash of %d elements, stack holds %d", numElements, vm.sp)
		}
		hash, err := vm.buildHash(vm.sp-numElements, vm.sp)
		if err != nil {
			return err
		}
		vm.sp = vm.sp - numElements
		return vm.push(hash)

	case code.OpIndex:
		index := vm.pop()
		left := vm.pop()
		return vm.executeIndexExpression(left, index)

	case code.OpCall:
		return vm.callFunction()

	case code.OpReturnValue:
		returnValue := vm.pop()

		if vm.framesIndex == 1 {
			vm.halted = true
			return nil
		}
		if err := vm.returnFromCall(); err != nil {
			return err
		}
		return vm.push(returnValue)

	case code.OpReturn:
		if vm.framesIndex == 1 {
			vm.halted = true
			return nil
		}
		if err := vm.returnFromCall(); err != nil {
			return err
		}
		return vm.push(object.NULL)

	default:
		return diagnostics.UnknownOpcode.New("opcode %s has no implementation", op)
	}

	return nil
}

func (vm *VM) push(o object.Object) error {
	if vm.sp >= len(vm.stack) {
		return diagnostics.StackOverflow.New("stack exceeds %d slots", len(vm.stack))
	}

	vm.stack[vm.sp] = o
	vm.sp++

	return nil
}

// pop is unchecked; execute verifies operand counts before dispatch.
func (vm *VM) pop() object.Object {
	o := vm.stack[vm.sp-1]
	vm.sp--
	return o
}
