package bundle

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/funvibe/july/internal/diagnostics"
	"github.com/funvibe/july/internal/object"
)

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bundle: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

func decode(data []byte, v interface{}) error {
	return cbor.Unmarshal(data, v)
}

type wireBundle struct {
	ID           []byte         `cbor:"1,keyasint"`
	SourceFile   string         `cbor:"2,keyasint"`
	CreatedAt    int64          `cbor:"3,keyasint"`
	Instructions []byte         `cbor:"4,keyasint"`
	Constants    []wireConstant `cbor:"5,keyasint"`
}

// Constant kinds on the wire.
const (
	kindInteger  = "int"
	kindString   = "str"
	kindBoolean  = "bool"
	kindNull     = "null"
	kindFunction = "fn"
	kindArray    = "array"
	kindHash     = "hash"
)

// wireConstant is a tagged constant. Hash entries are stored in Elems as
// alternating keys and values.
type wireConstant struct {
	Kind  string         `cbor:"1,keyasint"`
	Int   int64          `cbor:"2,keyasint,omitempty"`
	Str   string         `cbor:"3,keyasint,omitempty"`
	Bool  bool           `cbor:"4,keyasint,omitempty"`
	Code  []byte         `cbor:"5,keyasint,omitempty"`
	Elems []wireConstant `cbor:"6,keyasint,omitempty"`
}

func encodeConstants(constants []object.Object) ([]wireConstant, error) {
	out := make([]wireConstant, len(constants))
	for i, c := range constants {
		w, err := encodeConstant(c)
		if err != nil {
			return nil, diagnostics.BundleError.Wrap(err, "constant %d", i)
		}
		out[i] = w
	}
	return out, nil
}

func encodeConstant(obj object.Object) (wireConstant, error) {
	switch obj := obj.(type) {
	case *object.Integer:
		return wireConstant{Kind: kindInteger, Int: obj.Value}, nil
	case *object.String:
		return wireConstant{Kind: kindString, Str: obj.Value}, nil
	case *object.Boolean:
		return wireConstant{Kind: kindBoolean, Bool: obj.Value}, nil
	case *object.Null:
		return wireConstant{Kind: kindNull}, nil
	case *object.CompiledFunction:
		return wireConstant{Kind: kindFunction, Code: obj.Instructions}, nil
	case *object.Array:
		elems, err := encodeConstants(obj.Elements)
		if err != nil {
			return wireConstant{}, err
		}
		return wireConstant{Kind: kindArray, Elems: elems}, nil
	case *object.Hash:
		elems := make([]wireConstant, 0, 2*len(obj.Keys))
		for _, k := range obj.Keys {
			pair := obj.Pairs[k]
			key, err := encodeConstant(pair.Key)
			if err != nil {
				return wireConstant{}, err
			}
			value, err := encodeConstant(pair.Value)
			if err != nil {
				return wireConstant{}, err
			}
			elems = append(elems, key, value)
		}
		return wireConstant{Kind: kindHash, Elems: elems}, nil
	case nil:
		return wireConstant{}, diagnostics.BundleError.New("nil constant")
	default:
		return wireConstant{}, diagnostics.BundleError.New("cannot store %s constant", obj.Type())
	}
}

func decodeConstants(wire []wireConstant) ([]object.Object, error) {
	out := make([]object.Object, len(wire))
	for i, w := range wire {
		obj, err := decodeConstant(w)
		if err != nil {
			return nil, diagnostics.BundleError.Wrap(err, "constant %d", i)
		}
		out[i] = obj
	}
	return out, nil
}

func decodeConstant(w wireConstant) (object.Object, error) {
	switch w.Kind {
	case kindInteger:
		return &object.Integer{Value: w.Int}, nil
	case kindString:
		return &object.String{Value: w.Str}, nil
	case kindBoolean:
		return object.NativeBool(w.Bool), nil
	case kindNull:
		return object.NULL, nil
	case kindFunction:
		return &object.CompiledFunction{Instructions: w.Code}, nil
	case kindArray:
		elems, err := decodeConstants(w.Elems)
		if err != nil {
			return nil, err
		}
		return &object.Array{Elements: elems}, nil
	case kindHash:
		if len(w.Elems)%2 != 0 {
			return nil, diagnostics.BundleError.New("hash constant with odd element count %d", len(w.Elems))
		}
		hash := object.NewHash(len(w.Elems) / 2)
		for i := 0; i < len(w.Elems); i += 2 {
			key, err := decodeConstant(w.Elems[i])
			if err != nil {
				return nil, err
			}
			value, err := decodeConstant(w.Elems[i+1])
			if err != nil {
				return nil, err
			}
			if err := hash.Set(key, value); err != nil {
				return nil, err
			}
		}
		return hash, nil
	default:
		return nil, diagnostics.BundleError.New("unknown constant kind %q", w.Kind)
	}
}
