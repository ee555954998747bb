package options

import (
	"strconv"
	"strings"

	"github.com/mbuild/mbs/internal/ast"
	"github.com/mbuild/mbs/internal/lexer"
	"github.com/mbuild/mbs/internal/parser"
	"golang.org/x/xerrors"
)

// encodeStringArray matches the comma-joined encoding get_option()'s
// optionValue (internal/interp/builtins.go) already expects for
// KindStringArray options.
func encodeStringArray(parts []string) string { return strings.Join(parts, ",") }

// ParseDeclarationsFile parses a project's option-declarations file (§6
// "option declarations live in ... at the project root") — a sequence of
// literal `option(name, type: ..., value: ..., choices: [...])` calls. It
// reuses internal/lexer and internal/parser rather than a second ad hoc
// parser: the declarations file is valid project-DSL syntax, just
// restricted to one kind of top-level call, evaluated here directly against
// its literal arguments since none of the interpreter's scoping or
// evaluation machinery (variables, control flow, dependent expressions) is
// meaningful before any option exists yet.
func ParseDeclarationsFile(path string, src string) ([]Declaration, error) {
	file, err := parser.Parse(path, src)
	if err != nil {
		return nil, err
	}
	var decls []Declaration
	for _, stmt := range file.Statements {
		es, ok := stmt.(*ast.ExprStmt)
		if !ok {
			return nil, xerrors.Errorf("%s: only option(...) calls are permitted", stmt.Pos())
		}
		call, ok := es.X.(*ast.CallExpr)
		if !ok || call.Name != "option" {
			return nil, xerrors.Errorf("%s: expected an option(...) call", es.Pos())
		}
		decl, err := declFromCall(call)
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}
	return decls, nil
}

func declFromCall(call *ast.CallExpr) (Declaration, error) {
	var name string
	kwargs := map[string]ast.Expr{}
	for i, a := range call.Args {
		if a.Name == "" {
			if i != 0 {
				return Declaration{}, xerrors.Errorf("%s: option() takes exactly one positional argument (the name)", call.Pos())
			}
			lit, ok := literalString(a.Value)
			if !ok {
				return Declaration{}, xerrors.Errorf("%s: option() name must be a string literal", a.Value.Pos())
			}
			name = lit
			continue
		}
		kwargs[a.Name] = a.Value
	}
	if name == "" {
		return Declaration{}, xerrors.Errorf("%s: option() requires a name", call.Pos())
	}

	kindStr := "string"
	if e, ok := kwargs["type"]; ok {
		s, ok := literalString(e)
		if !ok {
			return Declaration{}, xerrors.Errorf("%s: option() type: must be a string literal", e.Pos())
		}
		kindStr = s
	}
	kind, err := parseKind(kindStr)
	if err != nil {
		return Declaration{}, xerrors.Errorf("%s: %w", call.Pos(), err)
	}

	decl := Declaration{Name: name, Kind: kind}

	if e, ok := kwargs["choices"]; ok {
		arr, ok := e.(*ast.ArrayLit)
		if !ok {
			return Declaration{}, xerrors.Errorf("%s: option() choices: must be an array literal", e.Pos())
		}
		for _, el := range arr.Elems {
			s, ok := literalString(el)
			if !ok {
				return Declaration{}, xerrors.Errorf("%s: choices elements must be string literals", el.Pos())
			}
			decl.Choices = append(decl.Choices, s)
		}
	}
	if e, ok := kwargs["min"]; ok {
		n, ok := literalInt(e)
		if !ok {
			return Declaration{}, xerrors.Errorf("%s: option() min: must be an integer literal", e.Pos())
		}
		decl.Min, decl.HasRange = n, true
	}
	if e, ok := kwargs["max"]; ok {
		n, ok := literalInt(e)
		if !ok {
			return Declaration{}, xerrors.Errorf("%s: option() max: must be an integer literal", e.Pos())
		}
		decl.Max, decl.HasRange = n, true
	}

	if e, ok := kwargs["value"]; ok {
		decl.Default, err = encodeDefault(kind, e)
		if err != nil {
			return Declaration{}, err
		}
	} else {
		decl.Default = zeroDefault(kind)
	}
	return decl, nil
}

func parseKind(s string) (Kind, error) {
	switch s {
	case "string":
		return KindString, nil
	case "integer":
		return KindIntRange, nil
	case "boolean":
		return KindBool, nil
	case "combo":
		return KindChoice, nil
	case "array":
		return KindStringArray, nil
	case "feature":
		return KindFeature, nil
	}
	return 0, xerrors.Errorf("unknown option type %q", s)
}

func zeroDefault(k Kind) string {
	switch k {
	case KindBool:
		return "false"
	case KindIntRange:
		return "0"
	case KindFeature:
		return "auto"
	}
	return ""
}

func encodeDefault(k Kind, e ast.Expr) (string, error) {
	switch k {
	case KindBool:
		b, ok := literalBool(e)
		if !ok {
			return "", xerrors.Errorf("%s: expected a bool literal for value:", e.Pos())
		}
		return strconv.FormatBool(b), nil
	case KindIntRange:
		n, ok := literalInt(e)
		if !ok {
			return "", xerrors.Errorf("%s: expected an int literal for value:", e.Pos())
		}
		return strconv.FormatInt(n, 10), nil
	case KindStringArray:
		arr, ok := e.(*ast.ArrayLit)
		if !ok {
			return "", xerrors.Errorf("%s: expected an array literal for value:", e.Pos())
		}
		var parts []string
		for _, el := range arr.Elems {
			s, ok := literalString(el)
			if !ok {
				return "", xerrors.Errorf("%s: array elements must be string literals", el.Pos())
			}
			parts = append(parts, s)
		}
		return encodeStringArray(parts), nil
	default:
		s, ok := literalString(e)
		if !ok {
			return "", xerrors.Errorf("%s: expected a string literal for value:", e.Pos())
		}
		return s, nil
	}
}

func literalString(e ast.Expr) (string, bool) {
	lit, ok := e.(*ast.Literal)
	if !ok || lit.Kind != lexer.Str {
		return "", false
	}
	s, ok := lit.Value.(string)
	return s, ok
}

func literalBool(e ast.Expr) (bool, bool) {
	lit, ok := e.(*ast.Literal)
	if !ok || lit.Kind != lexer.Bool {
		return false, false
	}
	b, ok := lit.Value.(bool)
	return b, ok
}

func literalInt(e ast.Expr) (int64, bool) {
	lit, ok := e.(*ast.Literal)
	if !ok || lit.Kind != lexer.Int {
		return 0, false
	}
	switch v := lit.Value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}
