package bundle_test

import (
	"testing"

	"github.com/funvibe/july/internal/bundle"
	"github.com/funvibe/july/internal/compiler"
	"github.com/funvibe/july/internal/parser"
)

// FuzzDeserialize feeds arbitrary bytes to the bundle reader. It must
// return an error or a bundle that passes validation, never panic.
func FuzzDeserialize(f *testing.F) {
	for _, src := range []string{"1 + 2", `let h = {"a": [1, true]}; h["a"]`, "let f = fn() { 7 }; f()"} {
		program, err := parser.Parse(src)
		if err != nil {
			f.Fatal(err)
		}
		c := compiler.New()
		if err := c.Compile(program); err != nil {
			f.Fatal(err)
		}
		data, err := bundle.New(c.Bytecode(), "seed.jl").Serialize()
		if err != nil {
			f.Fatal(err)
		}
		f.Add(data)
	}
	f.Add([]byte("JULB"))
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		b, err := bundle.Deserialize(data)
		if err != nil {
			return
		}
		if err := b.Validate(); err != nil {
			t.Fatalf("Deserialize accepted an invalid bundle: %v", err)
		}
		if _, err := b.Serialize(); err != nil {
			t.Fatalf("a decoded bundle must serialize again: %v", err)
		}
	})
}
