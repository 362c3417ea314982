// Package bundle stores compiled programs as self-describing images that
// can be run later without the source.
//
// Layout:
//   - Magic number (4 bytes): "JULB"
//   - Version (1 byte): 0x01
//   - CBOR payload (canonical encoding)
package bundle

import (
	"bytes"
	"time"

	"github.com/google/uuid"

	"github.com/funvibe/july/internal/code"
	"github.com/funvibe/july/internal/compiler"
	"github.com/funvibe/july/internal/diagnostics"
	"github.com/funvibe/july/internal/object"
)

const Version byte = 0x01

var Magic = [4]byte{'J', 'U', 'L', 'B'}

// Bundle is a compiled program plus the metadata needed to trace it back
// to its source.
type Bundle struct {
	ID         uuid.UUID
	SourceFile string
	CreatedAt  time.Time
	Bytecode   *compiler.Bytecode
}

func New(bytecode *compiler.Bytecode, sourceFile string) *Bundle {
	return &Bundle{
		ID:         uuid.New(),
		SourceFile: sourceFile,
		CreatedAt:  time.Now().UTC(),
		Bytecode:   bytecode,
	}
}

func (b *Bundle) Serialize() ([]byte, error) {
	if b.Bytecode == nil {
		return nil, diagnostics.BundleError.New("bundle has no bytecode")
	}

	constants, err := encodeConstants(b.Bytecode.Constants)
	if err != nil {
		return nil, err
	}

	payload, err := encMode.Marshal(&wireBundle{
		ID:           b.ID[:],
		SourceFile:   b.SourceFile,
		CreatedAt:    b.CreatedAt.UnixNano(),
		Instructions: b.Bytecode.Instructions,
		Constants:    constants,
	})
	if err != nil {
		return nil, diagnostics.BundleError.Wrap(err, "encoding bundle")
	}

	var buf bytes.Buffer
	buf.Grow(len(Magic) + 1 + len(payload))
	buf.Write(Magic[:])
	buf.WriteByte(Version)
	buf.Write(payload)
	return buf.Bytes(), nil
}

// Deserialize decodes and validates an image produced by Serialize.
func Deserialize(data []byte) (*Bundle, error) {
	if len(data) < len(Magic)+1 {
		return nil, diagnostics.BundleError.New("bundle data too short (%d bytes)", len(data))
	}
	if !bytes.Equal(data[:len(Magic)], Magic[:]) {
		return nil, diagnostics.BundleError.New("invalid magic number, expected %s", Magic[:])
	}

	version := data[len(Magic)]
	if version != Version {
		return nil, diagnostics.BundleError.New("unsupported bundle version: %d (this binary supports %d)", version, Version)
	}

	var wire wireBundle
	if err := decode(data[len(Magic)+1:], &wire); err != nil {
		return nil, diagnostics.BundleError.Wrap(err, "decoding bundle")
	}

	id, err := uuid.FromBytes(wire.ID)
	if err != nil {
		return nil, diagnostics.BundleError.Wrap(err, "bundle id")
	}

	constants, err := decodeConstants(wire.Constants)
	if err != nil {
		return nil, err
	}

	b := &Bundle{
		ID:         id,
		SourceFile: wire.SourceFile,
		CreatedAt:  time.Unix(0, wire.CreatedAt).UTC(),
		Bytecode: &compiler.Bytecode{
			Instructions: code.Instructions(wire.Instructions),
			Constants:    constants,
		},
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Validate checks that every instruction stream decodes and that every
// constant reference points into the pool.
func (b *Bundle) Validate() error {
	streams := []code.Instructions{b.Bytecode.Instructions}
	for _, c := range b.Bytecode.Constants {
		if fn, ok := c.(*object.CompiledFunction); ok {
			streams = append(streams, fn.Instructions)
		}
	}

	for _, ins := range streams {
		decoded, err := code.Decode(ins)
		if err != nil {
			return diagnostics.BundleError.Wrap(err, "invalid instructions")
		}
		for _, in := range decoded {
			if in.Op == code.OpConstant && in.Operands[0] >= len(b.Bytecode.Constants) {
				return diagnostics.BundleError.New("constant %d referenced at offset %d, pool has %d",
					in.Operands[0], in.Offset, len(b.Bytecode.Constants))
			}
		}
	}
	return nil
}
