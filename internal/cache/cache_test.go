package cache_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/funvibe/july/internal/bundle"
	"github.com/funvibe/july/internal/cache"
	"github.com/funvibe/july/internal/compiler"
	"github.com/funvibe/july/internal/parser"
)

func openCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.Open(context.Background(), filepath.Join(t.TempDir(), "nested", "cache.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func compileBundle(t *testing.T, source string) *bundle.Bundle {
	t.Helper()
	program, err := parser.Parse(source)
	if err != nil {
		t.Fatal(err)
	}
	comp := compiler.New()
	if err := comp.Compile(program); err != nil {
		t.Fatal(err)
	}
	return bundle.New(comp.Bytecode(), "main.jl")
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	c := openCache(t)
	source := "let a = 1; a + 41"

	if _, ok, err := c.Get(ctx, source); err != nil || ok {
		t.Fatalf("empty cache Get = %v, %v", ok, err)
	}

	stored := compileBundle(t, source)
	if err := c.Put(ctx, source, stored); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := c.Get(ctx, source)
	if err != nil || !ok {
		t.Fatalf("Get after Put = %v, %v", ok, err)
	}
	if got.ID != stored.ID || got.SourceFile != "main.jl" {
		t.Fatalf("wrong bundle returned: %+v", got)
	}

	if _, ok, _ := c.Get(ctx, source+" "); ok {
		t.Fatalf("different source must miss")
	}
}

func TestPutReplaces(t *testing.T) {
	ctx := context.Background()
	c := openCache(t)
	source := "1"

	first := compileBundle(t, source)
	second := compileBundle(t, source)

	if err := c.Put(ctx, source, first); err != nil {
		t.Fatal(err)
	}
	if err := c.Put(ctx, source, second); err != nil {
		t.Fatal(err)
	}

	got, ok, err := c.Get(ctx, source)
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if got.ID != second.ID {
		t.Fatalf("expected the newer bundle")
	}
	if n, err := c.Len(ctx); err != nil || n != 1 {
		t.Fatalf("Len = %d, %v; want 1", n, err)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	c, err := cache.Open(ctx, path, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Put(ctx, "2 * 2", compileBundle(t, "2 * 2")); err != nil {
		t.Fatal(err)
	}
	c.Close()

	reopened, err := cache.Open(ctx, path, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	if _, ok, err := reopened.Get(ctx, "2 * 2"); err != nil || !ok {
		t.Fatalf("entry lost after reopen: %v, %v", ok, err)
	}
}

func TestKey(t *testing.T) {
	if cache.Key("a") == cache.Key("b") {
		t.Fatalf("different sources must have different keys")
	}
	if len(cache.Key("")) != 64 {
		t.Fatalf("key must be hex sha-256")
	}
}
