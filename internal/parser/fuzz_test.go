package parser_test

import (
	"testing"

	"github.com/funvibe/july/internal/parser"
)

// FuzzParser checks that any input either parses or reports a syntax
// error, never both and never a panic.
func FuzzParser(f *testing.F) {
	f.Add("let x = 5;")
	f.Add(`{"a": [1, 2], true: fn() { return 1; }}`)
	f.Add("if (a < b) { a } else { b }")
	f.Add("let = ;")
	f.Add(`"unterminated`)
	f.Add("((((1")

	f.Fuzz(func(t *testing.T, input string) {
		program, err := parser.Parse(input)
		if err != nil {
			if program != nil {
				t.Fatalf("a failed parse must not return a program")
			}
			return
		}
		if program == nil {
			t.Fatalf("nil program without an error")
		}
	})
}
