// Package diagnostics holds the error taxonomy shared by every stage of the
// toolchain. Callers classify failures with errorx.IsOfType against the
// types declared here rather than by matching message text.
package diagnostics

import (
	"github.com/joomcode/errorx"
)

var (
	// RuntimeTrait marks every failure raised while executing bytecode.
	RuntimeTrait = errorx.RegisterTrait("runtime")
	// CapacityTrait marks exhaustion of one of the machine's fixed regions.
	CapacityTrait = errorx.RegisterTrait("capacity")
)

var (
	Namespace = errorx.NewNamespace("july")

	// Front end.
	SyntaxError       = Namespace.NewType("syntax")
	CompileError      = Namespace.NewType("compile")
	UndefinedVariable = CompileError.NewSubtype("undefined_variable")

	// Instruction stream.
	codeNamespace        = Namespace.NewSubNamespace("code")
	UnknownOpcode        = codeNamespace.NewType("unknown_opcode")
	TruncatedInstruction = codeNamespace.NewType("truncated_instruction")

	// Execution.
	runtimeNamespace = Namespace.NewSubNamespace("runtime")
	RuntimeTypeError = runtimeNamespace.NewType("type", RuntimeTrait)
	DivisionByZero   = runtimeNamespace.NewType("division_by_zero", RuntimeTrait)
	UnhashableKey    = runtimeNamespace.NewType("unhashable_key", RuntimeTrait)
	InvalidOperand   = runtimeNamespace.NewType("invalid_operand", RuntimeTrait)
	StackUnderflow   = runtimeNamespace.NewType("stack_underflow", RuntimeTrait)
	Interrupted      = runtimeNamespace.NewType("interrupted", RuntimeTrait)

	// Fixed capacities of the machine.
	capacityNamespace = Namespace.NewSubNamespace("capacity")
	StackOverflow     = capacityNamespace.NewType("stack_overflow", RuntimeTrait, CapacityTrait)
	FrameOverflow     = capacityNamespace.NewType("frame_overflow", RuntimeTrait, CapacityTrait)
	GlobalsOverflow   = capacityNamespace.NewType("globals_overflow", RuntimeTrait, CapacityTrait)

	// Tooling.
	ConfigError = Namespace.NewType("config")
	BundleError = Namespace.NewType("bundle")
	CacheError  = Namespace.NewType("cache")
)

var (
	// PropertyIP is the byte offset of the instruction that failed.
	PropertyIP = errorx.RegisterPrintableProperty("ip")
	// PropertyOpcode is the mnemonic of the instruction that failed.
	PropertyOpcode = errorx.RegisterPrintableProperty("opcode")
	// PropertyPosition is the line:column of the source node that failed.
	PropertyPosition = errorx.RegisterPrintableProperty("position")
)

// IsCapacityError reports whether err was raised because one of the
// machine's fixed-size regions ran out.
func IsCapacityError(err error) bool {
	return errorx.HasTrait(err, CapacityTrait)
}

// IsRuntimeError reports whether err was raised by the virtual machine.
func IsRuntimeError(err error) bool {
	return errorx.HasTrait(err, RuntimeTrait)
}

// IP extracts the failing instruction offset attached to err, if any.
func IP(err error) (int, bool) {
	v, ok := errorx.ExtractProperty(err, PropertyIP)
	if !ok {
		return 0, false
	}
	ip, ok := v.(int)
	return ip, ok
}
