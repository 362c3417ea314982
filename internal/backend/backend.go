// Package backend turns a parsed program into bytecode and executes it
// as pipeline stages.
package backend

import (
	"github.com/funvibe/july/internal/object"
	"github.com/funvibe/july/internal/pipeline"
)

// Backend is the interface for execution backends
type Backend interface {
	// Run executes the bytecode in the pipeline context and returns the
	// value of the last expression statement.
	Run(ctx *pipeline.PipelineContext) (object.Object, error)

	// Name returns the backend name for display
	Name() string
}
