package vm

import (
	"github.com/funvibe/july/internal/code"
	"github.com/funvibe/july/internal/object"
)

// Frame is one activation: the function being run, its instruction
// pointer and the stack height when it was entered. ip starts at -1
// because the run loop increments before fetch.
type Frame struct {
	fn          *object.CompiledFunction
	ip          int
	basePointer int
}

func NewFrame(fn *object.CompiledFunction, basePointer int) *Frame {
	return &Frame{fn: fn, ip: -1, basePointer: basePointer}
}

func (f *Frame) Instructions() code.Instructions {
	return f.fn.Instructions
}
