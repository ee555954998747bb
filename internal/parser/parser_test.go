package parser

import (
	"testing"

	"github.com/mbuild/mbs/internal/ast"
)

func mustParse(t *testing.T, src string) *ast.File {
	t.Helper()
	f, err := Parse("t.mbs", src)
	if err != nil {
		t.Fatalf("Parse(%q): unexpected error: %v", src, err)
	}
	return f
}

func TestParseAssign(t *testing.T) {
	f := mustParse(t, "x = 1\n")
	if len(f.Statements) != 1 {
		t.Fatalf("got %d statements, want 1", len(f.Statements))
	}
	a, ok := f.Statements[0].(*ast.AssignStmt)
	if !ok {
		t.Fatalf("got %T, want *ast.AssignStmt", f.Statements[0])
	}
	if a.Target != "x" || a.Op != "=" {
		t.Fatalf("got target=%q op=%q", a.Target, a.Op)
	}
}

func TestParseAugmentedAssign(t *testing.T) {
	f := mustParse(t, "srcs += 'foo.c'\n")
	a := f.Statements[0].(*ast.AssignStmt)
	if a.Op != "+=" {
		t.Fatalf("got op %q, want +=", a.Op)
	}
}

func TestParseCall(t *testing.T) {
	f := mustParse(t, "executable('foo', 'main.c')\n")
	es := f.Statements[0].(*ast.ExprStmt)
	call := es.X.(*ast.CallExpr)
	if call.Name != "executable" || len(call.Args) != 2 {
		t.Fatalf("got name=%q nargs=%d", call.Name, len(call.Args))
	}
}

func TestParseNamedArgs(t *testing.T) {
	f := mustParse(t, "executable('foo', 'main.c', install: true)\n")
	call := f.Statements[0].(*ast.ExprStmt).X.(*ast.CallExpr)
	if call.Args[2].Name != "install" {
		t.Fatalf("got name %q", call.Args[2].Name)
	}
}

func TestParseMethodCallChain(t *testing.T) {
	// Method call binds tighter than indexing: x.get(0)[1]
	f := mustParse(t, "y = x.get(0)[1]\n")
	a := f.Statements[0].(*ast.AssignStmt)
	idx := a.Value.(*ast.IndexExpr)
	mc, ok := idx.X.(*ast.MethodCallExpr)
	if !ok {
		t.Fatalf("got %T, want *ast.MethodCallExpr", idx.X)
	}
	if mc.Name != "get" {
		t.Fatalf("got method %q", mc.Name)
	}
}

func TestParseTernary(t *testing.T) {
	f := mustParse(t, "y = a ? 1 : 2\n")
	a := f.Statements[0].(*ast.AssignStmt)
	tern, ok := a.Value.(*ast.TernaryExpr)
	if !ok {
		t.Fatalf("got %T, want *ast.TernaryExpr", a.Value)
	}
	if _, ok := tern.Cond.(*ast.Ident); !ok {
		t.Fatalf("cond: got %T", tern.Cond)
	}
}

func TestParsePrecedence(t *testing.T) {
	// 1 + 2 * 3 should parse as 1 + (2 * 3)
	f := mustParse(t, "y = 1 + 2 * 3\n")
	a := f.Statements[0].(*ast.AssignStmt)
	bin := a.Value.(*ast.BinaryExpr)
	if bin.Op != "+" {
		t.Fatalf("outer op: got %q, want +", bin.Op)
	}
	if _, ok := bin.Y.(*ast.BinaryExpr); !ok {
		t.Fatalf("rhs: got %T, want *ast.BinaryExpr", bin.Y)
	}
}

func TestParseIfElifElse(t *testing.T) {
	src := `if a == 1
  x = 1
elif a == 2
  x = 2
else
  x = 3
endif
`
	f := mustParse(t, src)
	ifs := f.Statements[0].(*ast.IfStmt)
	if len(ifs.Branches) != 2 {
		t.Fatalf("got %d branches, want 2", len(ifs.Branches))
	}
	if len(ifs.Else) != 1 {
		t.Fatalf("got %d else stmts, want 1", len(ifs.Else))
	}
}

func TestParseForeachTwoVars(t *testing.T) {
	src := `foreach k, v : mydict
  x = v
endforeach
`
	f := mustParse(t, src)
	fe := f.Statements[0].(*ast.ForeachStmt)
	if len(fe.Vars) != 2 || fe.Vars[0] != "k" || fe.Vars[1] != "v" {
		t.Fatalf("got vars %v", fe.Vars)
	}
}

func TestParseForeachOneVar(t *testing.T) {
	src := "foreach x : myarray\n  y = x\nendforeach\n"
	f := mustParse(t, src)
	fe := f.Statements[0].(*ast.ForeachStmt)
	if len(fe.Vars) != 1 || fe.Vars[0] != "x" {
		t.Fatalf("got vars %v", fe.Vars)
	}
}

func TestParseArrayAndDictLiterals(t *testing.T) {
	f := mustParse(t, "a = [1, 2, 3,]\nb = {'x': 1, 'y': 2}\n")
	arr := f.Statements[0].(*ast.AssignStmt).Value.(*ast.ArrayLit)
	if len(arr.Elems) != 3 {
		t.Fatalf("got %d elems", len(arr.Elems))
	}
	dict := f.Statements[1].(*ast.AssignStmt).Value.(*ast.DictLit)
	if len(dict.Keys) != 2 {
		t.Fatalf("got %d keys", len(dict.Keys))
	}
}

func TestParseTrailingCommaInCall(t *testing.T) {
	f := mustParse(t, "executable('foo', 'main.c',)\n")
	call := f.Statements[0].(*ast.ExprStmt).X.(*ast.CallExpr)
	if len(call.Args) != 2 {
		t.Fatalf("got %d args, want 2", len(call.Args))
	}
}

func TestParseBooleanAndNot(t *testing.T) {
	f := mustParse(t, "y = not a and b or c\n")
	a := f.Statements[0].(*ast.AssignStmt)
	// top-level is "or" since it binds loosest
	or, ok := a.Value.(*ast.BinaryExpr)
	if !ok || or.Op != "or" {
		t.Fatalf("got %#v", a.Value)
	}
}

func TestParseBreakContinue(t *testing.T) {
	src := "foreach x : arr\n  break\n  continue\nendforeach\n"
	f := mustParse(t, src)
	fe := f.Statements[0].(*ast.ForeachStmt)
	if _, ok := fe.Body[0].(*ast.BreakStmt); !ok {
		t.Fatalf("got %T, want BreakStmt", fe.Body[0])
	}
	if _, ok := fe.Body[1].(*ast.ContinueStmt); !ok {
		t.Fatalf("got %T, want ContinueStmt", fe.Body[1])
	}
}

func TestParseErrorUnexpectedToken(t *testing.T) {
	_, err := Parse("t.mbs", "= 1\n")
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseErrorMissingEndif(t *testing.T) {
	_, err := Parse("t.mbs", "if a\n  x = 1\n")
	if err == nil {
		t.Fatal("expected parse error for missing endif")
	}
}
