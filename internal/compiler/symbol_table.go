package compiler

type SymbolScope string

const (
	GlobalScope SymbolScope = "GLOBAL"
)

type Symbol struct {
	Name  string
	Scope SymbolScope
	Index int
}

// SymbolTable assigns each distinct global name a dense slot index in
// definition order. Redefining a name keeps its slot.
type SymbolTable struct {
	store          map[string]Symbol
	numDefinitions int
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{store: make(map[string]Symbol)}
}

func (s *SymbolTable) Define(name string) Symbol {
	if existing, ok := s.store[name]; ok {
		return existing
	}
	symbol := Symbol{Name: name, Scope: GlobalScope, Index: s.numDefinitions}
	s.store[name] = symbol
	s.numDefinitions++
	return symbol
}

func (s *SymbolTable) Resolve(name string) (Symbol, bool) {
	symbol, ok := s.store[name]
	return symbol, ok
}

// NumDefinitions is the number of slots handed out so far.
func (s *SymbolTable) NumDefinitions() int {
	return s.numDefinitions
}
