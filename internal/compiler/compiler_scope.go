package compiler

import (
	"github.com/funvibe/july/internal/code"
)

type EmittedInstruction struct {
	Opcode   code.Opcode
	Position int
}

// CompilationScope is the instruction buffer of one function body, or of
// the top-level program at index 0.
type CompilationScope struct {
	instructions        code.Instructions
	lastInstruction     EmittedInstruction
	previousInstruction EmittedInstruction
}

// pendingJump records a jump emitted with a placeholder target.
type pendingJump struct {
	pos int
	op  code.Opcode
}

const placeholder = -1

func (c *Compiler) currentInstructions() code.Instructions {
	return c.scopes[c.scopeIndex].instructions
}

func (c *Compiler) enterScope() {
	c.scopes = append(c.scopes, CompilationScope{})
	c.scopeIndex++
	c.logger.Trace().Int("depth", c.scopeIndex).Msg("enter scope")
}

func (c *Compiler) leaveScope() code.Instructions {
	instructions := c.currentInstructions()

	c.scopes = c.scopes[:len(c.scopes)-1]
	c.scopeIndex--
	c.logger.Trace().Int("depth", c.scopeIndex).Int("bytes", len(instructions)).Msg("leave scope")

	return instructions
}

func (c *Compiler) emit(op code.Opcode, operands ...int) int {
	ins := code.Make(op, operands...)
	pos := c.addInstruction(ins)

	c.setLastInstruction(op, pos)

	c.logger.Trace().
		Int("pos", pos).
		Str("op", op.String()).
		Ints("operands", operands).
		Int("depth", c.scopeIndex).
		Msg("emit")

	return pos
}

func (c *Compiler) addInstruction(ins []byte) int {
	posNewInstruction := len(c.currentInstructions())
	c.scopes[c.scopeIndex].instructions = append(c.currentInstructions(), ins...)
	return posNewInstruction
}

func (c *Compiler) setLastInstruction(op code.Opcode, pos int) {
	previous := c.scopes[c.scopeIndex].lastInstruction
	last := EmittedInstruction{Opcode: op, Position: pos}

	c.scopes[c.scopeIndex].previousInstruction = previous
	c.scopes[c.scopeIndex].lastInstruction = last
}

func (c *Compiler) lastInstructionIs(op code.Opcode) bool {
	if len(c.currentInstructions()) == 0 {
		return false
	}
	return c.scopes[c.scopeIndex].lastInstruction.Opcode == op
}

func (c *Compiler) removeLastPop() {
	last := c.scopes[c.scopeIndex].lastInstruction
	previous := c.scopes[c.scopeIndex].previousInstruction

	old := c.currentInstructions()
	c.scopes[c.scopeIndex].instructions = old[:last.Position]
	c.scopes[c.scopeIndex].lastInstruction = previous
}

func (c *Compiler) replaceInstruction(pos int, newInstruction []byte) {
	ins := c.currentInstructions()
	copy(ins[pos:], newInstruction)
}

func (c *Compiler) replaceLastPopWithReturn() {
	lastPos := c.scopes[c.scopeIndex].lastInstruction.Position
	c.replaceInstruction(lastPos, code.Make(code.OpReturnValue))

	c.scopes[c.scopeIndex].lastInstruction.Opcode = code.OpReturnValue
}

func (c *Compiler) emitJump(op code.Opcode) pendingJump {
	return pendingJump{pos: c.emit(op, placeholder), op: op}
}

// patchJump points j at the current end of the instruction stream.
func (c *Compiler) patchJump(j pendingJump) {
	target := len(c.currentInstructions())
	c.replaceInstruction(j.pos, code.Make(j.op, target))
	c.logger.Trace().Int("pos", j.pos).Int("target", target).Msg("patch jump")
}
