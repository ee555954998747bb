package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mbuild/mbs/internal/lexer"
	"github.com/mbuild/mbs/internal/parser"
)

func TestByteOffset(t *testing.T) {
	src := "abc\ndef\nghi"
	for _, tt := range []struct {
		pos  lexer.Position
		want int
	}{
		{lexer.Position{Line: 1, Column: 1}, 0},
		{lexer.Position{Line: 1, Column: 4}, 3},
		{lexer.Position{Line: 2, Column: 1}, 4},
		{lexer.Position{Line: 3, Column: 3}, 10},
	} {
		if got := byteOffset(src, tt.pos); got != tt.want {
			t.Errorf("byteOffset(%+v) = %d, want %d", tt.pos, got, tt.want)
		}
	}
}

func TestMatchingParen(t *testing.T) {
	src := `executable('demo', 'main.c', install: true)`
	close, err := matchingParen(src, 0)
	if err != nil {
		t.Fatalf("matchingParen: %v", err)
	}
	if src[close] != ')' || close != len(src)-1 {
		t.Fatalf("close = %d (%q), want %d", close, string(src[close]), len(src)-1)
	}
}

func TestMatchingParenSkipsParensInStrings(t *testing.T) {
	src := `executable('demo', 'weird(name).c')`
	close, err := matchingParen(src, 0)
	if err != nil {
		t.Fatalf("matchingParen: %v", err)
	}
	if close != len(src)-1 {
		t.Fatalf("close = %d, want %d (the real closing paren, not the one inside the string)", close, len(src)-1)
	}
}

func TestMatchingParenUnbalanced(t *testing.T) {
	if _, err := matchingParen(`executable('demo'`, 0); err == nil {
		t.Fatal("expected an error for unbalanced parentheses")
	}
}

func TestFindTargetCall(t *testing.T) {
	src := "executable('one', 'one.c')\nexecutable('two', 'two.c')\n"
	file, err := parser.Parse("project.mbs", src)
	if err != nil {
		t.Fatalf("parser.Parse: %v", err)
	}
	call, err := findTargetCall(file.Statements, "two")
	if err != nil {
		t.Fatalf("findTargetCall: %v", err)
	}
	if call.CallPos.Line != 2 {
		t.Errorf("matched call on line %d, want line 2", call.CallPos.Line)
	}

	if _, err := findTargetCall(file.Statements, "missing"); err == nil {
		t.Fatal("expected an error for a target that does not exist")
	}
}

func TestCmdRewriteAddSrc(t *testing.T) {
	dir := t.TempDir()
	orig := "project('demo', 'c')\n\nexecutable('demo', 'main.c', install: true)\n"
	path := filepath.Join(dir, "project.mbs")
	if err := os.WriteFile(path, []byte(orig), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := cmdRewrite(context.Background(), []string{"target", "demo", "add_src", "extra.c", dir}); err != nil {
		t.Fatalf("cmdRewrite: %v", err)
	}

	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(out), "'main.c', install: true, 'extra.c')") {
		t.Fatalf("unexpected rewritten file:\n%s", out)
	}

	file, err := parser.Parse(path, string(out))
	if err != nil {
		t.Fatalf("the rewritten file no longer parses: %v", err)
	}
	if _, err := findTargetCall(file.Statements, "demo"); err != nil {
		t.Fatalf("rewritten file lost the target call: %v", err)
	}
}
