// Package code defines the instruction set of the July virtual machine and
// the byte-level encoding shared by the compiler, the VM and the tooling.
//
// An instruction is a one-byte opcode followed by zero or more big-endian
// operands whose widths are fixed per opcode.
package code

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/funvibe/july/internal/diagnostics"
)

type Instructions []byte

type Opcode byte

// The numeric values are part of the bundle format; append only.
const (
	OpConstant Opcode = iota
	OpAdd
	OpPop
	OpMul
	OpSub
	OpDiv
	OpTrue
	OpFalse
	OpEqual
	OpNotEqual
	OpGreaterThan
	OpMinus
	OpBang
	OpJumpNotTruthy
	OpJump
	OpNull
	OpSetGlobal
	OpGetGlobal
	OpArray
	OpHash
	OpIndex
	OpCall
	OpReturnValue
	OpReturn
)

// Definition describes one opcode: its mnemonic, the width in bytes of each
// operand and how many stack slots it consumes before it runs. StackPop is
// -1 for opcodes whose consumption depends on an operand.
type Definition struct {
	Name          string
	OperandWidths []int
	StackPop      int
}

var definitions = [...]*Definition{
	OpConstant:      {"OpConstant", []int{4}, 0},
	OpAdd:           {"OpAdd", []int{}, 2},
	OpPop:           {"OpPop", []int{}, 1},
	OpMul:           {"OpMul", []int{}, 2},
	OpSub:           {"OpSub", []int{}, 2},
	OpDiv:           {"OpDiv", []int{}, 2},
	OpTrue:          {"OpTrue", []int{}, 0},
	OpFalse:         {"OpFalse", []int{}, 0},
	OpEqual:         {"OpEqual", []int{}, 2},
	OpNotEqual:      {"OpNotEqual", []int{}, 2},
	OpGreaterThan:   {"OpGreaterThan", []int{}, 2},
	OpMinus:         {"OpMinus", []int{}, 1},
	OpBang:          {"OpBang", []int{}, 1},
	OpJumpNotTruthy: {"OpJumpNotTruthy", []int{4}, 1},
	OpJump:          {"OpJump", []int{4}, 0},
	OpNull:          {"OpNull", []int{}, 0},
	OpSetGlobal:     {"OpSetGlobal", []int{4}, 1},
	OpGetGlobal:     {"OpGetGlobal", []int{4}, 0},
	OpArray:         {"OpArray", []int{4}, -1},
	OpHash:          {"OpHash", []int{4}, -1},
	OpIndex:         {"OpIndex", []int{}, 2},
	OpCall:          {"OpCall", []int{}, 1},
	OpReturnValue:   {"OpReturnValue", []int{}, 1},
	OpReturn:        {"OpReturn", []int{}, 0},
}

// Lookup returns the definition of op.
func Lookup(op byte) (*Definition, error) {
	if int(op) >= len(definitions) || definitions[op] == nil {
		return nil, diagnostics.UnknownOpcode.New("opcode %d undefined", op)
	}
	return definitions[op], nil
}

func (op Opcode) String() string {
	if def, err := Lookup(byte(op)); err == nil {
		return def.Name
	}
	return fmt.Sprintf("Opcode(%d)", byte(op))
}

// Width is the total encoded length of an instruction in bytes.
func (d *Definition) Width() int {
	width := 1
	for _, w := range d.OperandWidths {
		width += w
	}
	return width
}

// Make encodes a single instruction. Unknown opcodes encode to an empty
// sequence; missing operands are zero and extra operands are ignored.
func Make(op Opcode, operands ...int) Instructions {
	def, err := Lookup(byte(op))
	if err != nil {
		return Instructions{}
	}

	ins := make(Instructions, def.Width())
	ins[0] = byte(op)

	offset := 1
	for i, o := range operands {
		if i >= len(def.OperandWidths) {
			break
		}
		// Every operand is a 4-byte big-endian integer.
		binary.BigEndian.PutUint32(ins[offset:], uint32(o))
		offset += def.OperandWidths[i]
	}
	return ins
}

// ReadOperands decodes the operands that follow an opcode byte. ins must
// start at the first operand. It returns the operands and the number of
// bytes consumed.
func ReadOperands(def *Definition, ins Instructions) ([]int, int) {
	operands := make([]int, len(def.OperandWidths))
	offset := 0

	for i, width := range def.OperandWidths {
		operands[i] = int(ReadUint32(ins[offset:]))
		offset += width
	}
	return operands, offset
}

func ReadUint32(ins Instructions) uint32 {
	return binary.BigEndian.Uint32(ins)
}

// String renders the listing produced by Disassemble. A malformed stream
// renders as the listing up to the first bad byte followed by the error.
func (ins Instructions) String() string {
	out, err := Disassemble(ins)
	if err != nil {
		if out == "" {
			return "ERROR: " + err.Error()
		}
		return out + "\nERROR: " + err.Error()
	}
	return out
}

// Disassemble renders one line per instruction as "%04d <Name> <operands>",
// lines separated by a newline with no trailing newline.
func Disassemble(ins Instructions) (string, error) {
	decoded, err := Decode(ins)

	lines := make([]string, 0, len(decoded))
	for _, in := range decoded {
		lines = append(lines, in.String())
	}
	return strings.Join(lines, "\n"), err
}

// Instruction is one decoded instruction of a stream.
type Instruction struct {
	Offset   int
	Op       Opcode
	Operands []int
}

func (in Instruction) String() string {
	var out strings.Builder
	fmt.Fprintf(&out, "%04d %s", in.Offset, in.Op)
	for _, o := range in.Operands {
		fmt.Fprintf(&out, " %d", o)
	}
	return out.String()
}

// Decode splits a stream into instructions. On failure it returns the
// instructions decoded before the bad byte together with the error.
func Decode(ins Instructions) ([]Instruction, error) {
	var decoded []Instruction

	i := 0
	for i < len(ins) {
		def, err := Lookup(ins[i])
		if err != nil {
			return decoded, diagnostics.UnknownOpcode.Wrap(err, "at offset %d", i)
		}
		if i+def.Width() > len(ins) {
			return decoded, diagnostics.TruncatedInstruction.New(
				"%s at offset %d needs %d bytes, %d remain", def.Name, i, def.Width(), len(ins)-i)
		}

		operands, read := ReadOperands(def, ins[i+1:])
		decoded = append(decoded, Instruction{Offset: i, Op: Opcode(ins[i]), Operands: operands})
		i += 1 + read
	}
	return decoded, nil
}

// Encode concatenates the encodings of decoded instructions. Offsets are
// ignored, so Encode(Decode(ins)) reproduces any well-formed stream.
func Encode(decoded []Instruction) Instructions {
	var out Instructions
	for _, in := range decoded {
		out = append(out, Make(in.Op, in.Operands...)...)
	}
	return out
}
