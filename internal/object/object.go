// Package object defines the runtime values manipulated by the July
// virtual machine.
package object

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/funvibe/july/internal/code"
	"github.com/funvibe/july/internal/diagnostics"
)

type ObjectType string

const (
	INTEGER_OBJ           ObjectType = "INTEGER"
	BOOLEAN_OBJ           ObjectType = "BOOLEAN"
	NULL_OBJ              ObjectType = "NULL"
	STRING_OBJ            ObjectType = "STRING"
	ARRAY_OBJ             ObjectType = "ARRAY"
	HASH_OBJ              ObjectType = "HASH"
	HASH_PAIR_OBJ         ObjectType = "HASH_PAIR"
	COMPILED_FUNCTION_OBJ ObjectType = "COMPILED_FUNCTION"
)

type Object interface {
	Type() ObjectType
	Inspect() string
}

// Hashable is implemented by the values that may be used as hash keys.
type Hashable interface {
	Object
	HashKey() HashKey
}

// HashKey identifies a key by type and value, so 1 and true never collide.
// String keys also carry their text, so two strings with the same hash
// stay distinct.
type HashKey struct {
	Type  ObjectType
	Value uint64
	text  string
}

var (
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
	NULL  = &Null{}
)

// NativeBool returns the shared Boolean for b.
func NativeBool(b bool) *Boolean {
	if b {
		return TRUE
	}
	return FALSE
}

type Integer struct {
	Value int64
}

func (i *Integer) Type() ObjectType { return INTEGER_OBJ }
func (i *Integer) Inspect() string  { return fmt.Sprintf("%d", i.Value) }
func (i *Integer) HashKey() HashKey {
	return HashKey{Type: i.Type(), Value: uint64(i.Value)}
}

type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string  { return fmt.Sprintf("%t", b.Value) }
func (b *Boolean) HashKey() HashKey {
	var value uint64
	if b.Value {
		value = 1
	}
	return HashKey{Type: b.Type(), Value: value}
}

type Null struct{}

func (n *Null) Type() ObjectType { return NULL_OBJ }
func (n *Null) Inspect() string  { return "null" }

type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect() string  { return s.Value }
func (s *String) HashKey() HashKey {
	h := fnv.New64a()
	h.Write([]byte(s.Value))
	return HashKey{Type: s.Type(), Value: h.Sum64(), text: s.Value}
}

type Array struct {
	Elements []Object
}

func (a *Array) Type() ObjectType { return ARRAY_OBJ }
func (a *Array) Inspect() string {
	elements := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		elements[i] = e.Inspect()
	}
	return "[" + strings.Join(elements, ", ") + "]"
}

type HashPair struct {
	Key   Object
	Value Object
}

func (p *HashPair) Type() ObjectType { return HASH_PAIR_OBJ }
func (p *HashPair) Inspect() string  { return p.Key.Inspect() + ": " + p.Value.Inspect() }

// Hash maps hashable keys to values. Keys records first-insertion order so
// Inspect is deterministic.
type Hash struct {
	Pairs map[HashKey]HashPair
	Keys  []HashKey
}

func NewHash(capacity int) *Hash {
	return &Hash{Pairs: make(map[HashKey]HashPair, capacity), Keys: make([]HashKey, 0, capacity)}
}

func (h *Hash) Type() ObjectType { return HASH_OBJ }
func (h *Hash) Inspect() string {
	pairs := make([]string, 0, len(h.Keys))
	for _, k := range h.Keys {
		pair := h.Pairs[k]
		pairs = append(pairs, pair.Inspect())
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

// Set stores value under key. A repeated key keeps its original position
// and takes the new value.
func (h *Hash) Set(key, value Object) error {
	hk, err := HashKeyOf(key)
	if err != nil {
		return err
	}
	if _, exists := h.Pairs[hk]; !exists {
		h.Keys = append(h.Keys, hk)
	}
	h.Pairs[hk] = HashPair{Key: key, Value: value}
	return nil
}

// Get looks key up. Unhashable keys are an error, absent keys are not.
func (h *Hash) Get(key Object) (Object, bool, error) {
	hk, err := HashKeyOf(key)
	if err != nil {
		return nil, false, err
	}
	pair, ok := h.Pairs[hk]
	if !ok {
		return nil, false, nil
	}
	return pair.Value, true, nil
}

func (h *Hash) Len() int { return len(h.Keys) }

type CompiledFunction struct {
	Instructions code.Instructions
}

func (cf *CompiledFunction) Type() ObjectType { return COMPILED_FUNCTION_OBJ }
func (cf *CompiledFunction) Inspect() string {
	return fmt.Sprintf("CompiledFunction[%d bytes]", len(cf.Instructions))
}

// IsHashable reports whether obj can be used as a hash key.
func IsHashable(obj Object) bool {
	_, ok := obj.(Hashable)
	return ok
}

// HashKeyOf returns the key of obj or an unhashable-key error.
func HashKeyOf(obj Object) (HashKey, error) {
	h, ok := obj.(Hashable)
	if !ok {
		return HashKey{}, diagnostics.UnhashableKey.New("unusable as hash key: %s", typeName(obj))
	}
	return h.HashKey(), nil
}

func typeName(obj Object) string {
	if obj == nil {
		return "nil"
	}
	return string(obj.Type())
}
