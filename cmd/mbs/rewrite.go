package main

import (
	"context"
	"flag"
	"os"

	"github.com/mbuild/mbs/internal/ast"
	"github.com/mbuild/mbs/internal/lexer"
	"github.com/mbuild/mbs/internal/parser"
	"golang.org/x/xerrors"
)

// cmdRewrite applies one structural edit to a project DSL file (§6). Unlike
// setup/configure, this is deliberately narrow: it supports exactly one
// operation, adding a source argument to a target's call, located by
// scanning from the call's own recorded position for its matching closing
// parenthesis — there is no teacher file for a general DSL source-printer,
// and the AST carries no end-position/span per node, so a depth-tracking
// scan over the original text is the smallest correct way to find "just
// before the call's closing paren" without reformatting the rest of the
// file.
//
//	mbs rewrite target <name> add_src <file> [<srcdir>]
func cmdRewrite(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("rewrite", flag.ExitOnError)
	fset.Usage = usage(fset, "mbs rewrite target <name> add_src <file> [<srcdir>]")
	fset.Parse(args)

	rest := fset.Args()
	if len(rest) < 4 || rest[0] != "target" || rest[2] != "add_src" {
		return xerrors.New("usage: mbs rewrite target <name> add_src <file> [<srcdir>]")
	}
	targetName, newSrc := rest[1], rest[3]
	srcDir := "."
	if len(rest) > 4 {
		srcDir = rest[4]
	}

	path := srcDir + "/project.mbs"
	data, err := os.ReadFile(path)
	if err != nil {
		return xerrors.Errorf("reading %s: %w", path, err)
	}
	src := string(data)

	file, err := parser.Parse(path, src)
	if err != nil {
		return err
	}

	call, err := findTargetCall(file.Statements, targetName)
	if err != nil {
		return err
	}

	startOffset := byteOffset(src, call.CallPos)
	closeOffset, err := matchingParen(src, startOffset)
	if err != nil {
		return xerrors.Errorf("%s: %w", path, err)
	}

	insertion := ", '" + newSrc + "'"
	out := src[:closeOffset] + insertion + src[closeOffset:]
	return os.WriteFile(path, []byte(out), 0o644)
}

// findTargetCall locates the top-level call whose first (name) argument is
// a string literal equal to targetName — the scan only looks at top-level
// expression statements, matching where executable()/library() calls are
// expected to live (§4.3's Statements grammar has no nested
// call-producing-a-target construct).
func findTargetCall(stmts []ast.Stmt, targetName string) (*ast.CallExpr, error) {
	for _, s := range stmts {
		es, ok := s.(*ast.ExprStmt)
		if !ok {
			continue
		}
		call, ok := es.X.(*ast.CallExpr)
		if !ok || len(call.Args) == 0 {
			continue
		}
		lit, ok := call.Args[0].Value.(*ast.Literal)
		if !ok {
			continue
		}
		if name, ok := lit.Value.(string); ok && name == targetName {
			return call, nil
		}
	}
	return nil, xerrors.Errorf("no target named %q found", targetName)
}

// byteOffset converts a 1-based line/column lexer.Position into a byte
// offset into src.
func byteOffset(src string, pos lexer.Position) int {
	line, col := 1, 1
	for i, r := range src {
		if line == pos.Line && col == pos.Column {
			return i
		}
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return len(src)
}

// matchingParen scans forward from a call's name (at startOffset, before
// its opening paren) and returns the offset of the matching closing paren,
// skipping parens that occur inside quoted string literals.
func matchingParen(src string, startOffset int) (int, error) {
	i := startOffset
	for i < len(src) && src[i] != '(' {
		i++
	}
	if i == len(src) {
		return 0, xerrors.New("call has no opening parenthesis")
	}
	depth := 0
	inString := byte(0)
	for ; i < len(src); i++ {
		c := src[i]
		if inString != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == inString {
				inString = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			inString = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, xerrors.New("unbalanced parentheses")
}
