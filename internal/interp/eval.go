package interp

import (
	"github.com/mbuild/mbs/internal/ast"
	"github.com/mbuild/mbs/internal/lexer"
	"github.com/mbuild/mbs/internal/value"
)

// eval evaluates an expression node, implementing disabler absorption
// (§4.3, §8): once a disabler enters a subexpression, the containing
// expression becomes a disabler rather than raising a type error, except
// where "and"/"or" short-circuit before the second operand is evaluated.
func (in *Interp) eval(e ast.Expr) (value.Value, error) {
	switch x := e.(type) {
	case *ast.Literal:
		return in.evalLiteral(x)
	case *ast.Ident:
		v, ok := in.scope.Get(x.Name)
		if !ok {
			return value.Value{}, nameErrorf(x.Pos(), "undefined variable %q", x.Name)
		}
		return v, nil
	case *ast.ArrayLit:
		return in.evalArrayLit(x)
	case *ast.DictLit:
		return in.evalDictLit(x)
	case *ast.UnaryExpr:
		return in.evalUnary(x)
	case *ast.BinaryExpr:
		return in.evalBinary(x)
	case *ast.TernaryExpr:
		return in.evalTernary(x)
	case *ast.IndexExpr:
		return in.evalIndex(x)
	case *ast.CallExpr:
		return in.evalCall(x)
	case *ast.MethodCallExpr:
		return in.evalMethodCall(x)
	}
	return value.Value{}, internalErrorf(e.Pos(), "unhandled expression type %T", e)
}

func (in *Interp) evalLiteral(lit *ast.Literal) (value.Value, error) {
	switch lit.Kind {
	case lexer.Int:
		return value.Int(lit.Value.(int64)), nil
	case lexer.Bool:
		return value.Bool(lit.Value.(bool)), nil
	case lexer.Str, lexer.StrRaw:
		return value.Str(lit.Value.(string)), nil
	case lexer.FStr:
		s, err := expandFString(lit.Pos(), lit.Value.(string), in.scope)
		if err != nil {
			return value.Value{}, err
		}
		return value.Str(s), nil
	}
	return value.Value{}, internalErrorf(lit.Pos(), "unhandled literal kind %s", lit.Kind)
}

func (in *Interp) evalArrayLit(a *ast.ArrayLit) (value.Value, error) {
	elems := make([]value.Value, len(a.Elems))
	for i, e := range a.Elems {
		v, err := in.eval(e)
		if err != nil {
			return value.Value{}, err
		}
		elems[i] = v
	}
	if value.AnyDisabler(elems...) {
		return value.Disabler(), nil
	}
	return value.Array(elems...), nil
}

func (in *Interp) evalDictLit(d *ast.DictLit) (value.Value, error) {
	out := value.NewDict()
	for i, ke := range d.Keys {
		kv, err := in.eval(ke)
		if err != nil {
			return value.Value{}, err
		}
		vv, err := in.eval(d.Values[i])
		if err != nil {
			return value.Value{}, err
		}
		if value.AnyDisabler(kv, vv) {
			return value.Disabler(), nil
		}
		if kv.Kind != value.KindStr {
			return value.Value{}, typeErrorf(ke.Pos(), "dict keys must be strings, got %s", kv.Kind)
		}
		out.Set(kv.Str, vv)
	}
	return value.DictValue(out), nil
}

func (in *Interp) evalUnary(u *ast.UnaryExpr) (value.Value, error) {
	x, err := in.eval(u.X)
	if err != nil {
		return value.Value{}, err
	}
	if x.IsDisabler() {
		return value.Disabler(), nil
	}
	switch u.Op {
	case "-":
		if x.Kind != value.KindInt {
			return value.Value{}, typeErrorf(u.Pos(), "unary -: expected int, got %s", x.Kind)
		}
		return value.Int(-x.Int), nil
	case "not":
		if x.Kind != value.KindBool {
			return value.Value{}, typeErrorf(u.Pos(), "not: expected bool, got %s", x.Kind)
		}
		return value.Bool(!x.Bool), nil
	}
	return value.Value{}, internalErrorf(u.Pos(), "unknown unary operator %q", u.Op)
}

func (in *Interp) evalTernary(t *ast.TernaryExpr) (value.Value, error) {
	cond, err := in.eval(t.Cond)
	if err != nil {
		return value.Value{}, err
	}
	if cond.IsDisabler() {
		return value.Disabler(), nil
	}
	ok, err := cond.Truthy()
	if err != nil {
		return value.Value{}, typeErrorf(t.Pos(), "ternary condition must be boolean: %v", err)
	}
	if ok {
		return in.eval(t.Then)
	}
	return in.eval(t.Else)
}

func (in *Interp) evalBinary(b *ast.BinaryExpr) (value.Value, error) {
	x, err := in.eval(b.X)
	if err != nil {
		return value.Value{}, err
	}

	// Short-circuit boolean operators evaluate Y only when needed, but a
	// disabler on X still short-circuits to disabler rather than to a bool.
	if b.Op == "and" {
		if x.IsDisabler() {
			return value.Disabler(), nil
		}
		xb, err := x.Truthy()
		if err != nil {
			return value.Value{}, typeErrorf(b.Pos(), "and: left operand must be boolean: %v", err)
		}
		if !xb {
			return value.Bool(false), nil
		}
		y, err := in.eval(b.Y)
		if err != nil {
			return value.Value{}, err
		}
		if y.IsDisabler() {
			return value.Disabler(), nil
		}
		yb, err := y.Truthy()
		if err != nil {
			return value.Value{}, typeErrorf(b.Pos(), "and: right operand must be boolean: %v", err)
		}
		return value.Bool(yb), nil
	}
	if b.Op == "or" {
		if x.IsDisabler() {
			return value.Disabler(), nil
		}
		xb, err := x.Truthy()
		if err != nil {
			return value.Value{}, typeErrorf(b.Pos(), "or: left operand must be boolean: %v", err)
		}
		if xb {
			return value.Bool(true), nil
		}
		y, err := in.eval(b.Y)
		if err != nil {
			return value.Value{}, err
		}
		if y.IsDisabler() {
			return value.Disabler(), nil
		}
		yb, err := y.Truthy()
		if err != nil {
			return value.Value{}, typeErrorf(b.Pos(), "or: right operand must be boolean: %v", err)
		}
		return value.Bool(yb), nil
	}

	y, err := in.eval(b.Y)
	if err != nil {
		return value.Value{}, err
	}
	if value.AnyDisabler(x, y) {
		return value.Disabler(), nil
	}

	switch b.Op {
	case "==":
		return value.Bool(value.Equal(x, y)), nil
	case "!=":
		return value.Bool(!value.Equal(x, y)), nil
	case "<", "<=", ">", ">=":
		return compareOrdered(b.Pos(), b.Op, x, y)
	case "in":
		return inContainer(b.Pos(), x, y)
	case "+":
		return addValues(b.Pos(), x, y)
	case "-", "*", "/", "%":
		return arith(b.Pos(), b.Op, x, y)
	}
	return value.Value{}, internalErrorf(b.Pos(), "unknown binary operator %q", b.Op)
}

func compareOrdered(pos lexer.Position, op string, x, y value.Value) (value.Value, error) {
	if x.Kind != y.Kind || (x.Kind != value.KindInt && x.Kind != value.KindStr) {
		return value.Value{}, typeErrorf(pos, "%s: expected two ints or two strings, got %s and %s", op, x.Kind, y.Kind)
	}
	var less, eq bool
	if x.Kind == value.KindInt {
		less, eq = x.Int < y.Int, x.Int == y.Int
	} else {
		less, eq = x.Str < y.Str, x.Str == y.Str
	}
	switch op {
	case "<":
		return value.Bool(less), nil
	case "<=":
		return value.Bool(less || eq), nil
	case ">":
		return value.Bool(!less && !eq), nil
	case ">=":
		return value.Bool(!less), nil
	}
	return value.Value{}, internalErrorf(pos, "unknown comparison operator %q", op)
}

func inContainer(pos lexer.Position, needle, haystack value.Value) (value.Value, error) {
	switch haystack.Kind {
	case value.KindArray:
		for _, e := range haystack.Array {
			if value.Equal(needle, e) {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	case value.KindDict:
		if needle.Kind != value.KindStr {
			return value.Value{}, typeErrorf(pos, "in: dict membership requires a string key, got %s", needle.Kind)
		}
		_, ok := haystack.Dict.Get(needle.Str)
		return value.Bool(ok), nil
	case value.KindStr:
		if needle.Kind != value.KindStr {
			return value.Value{}, typeErrorf(pos, "in: string membership requires a string operand, got %s", needle.Kind)
		}
		return value.Bool(containsSubstr(haystack.Str, needle.Str)), nil
	}
	return value.Value{}, typeErrorf(pos, "in: expected list, dict, or string, got %s", haystack.Kind)
}

func containsSubstr(s, sub string) bool {
	if len(sub) == 0 {
		return true
	}
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

func addValues(pos lexer.Position, x, y value.Value) (value.Value, error) {
	if x.Kind != y.Kind {
		return value.Value{}, typeErrorf(pos, "+: mismatched types %s and %s", x.Kind, y.Kind)
	}
	switch x.Kind {
	case value.KindInt:
		return value.Int(x.Int + y.Int), nil
	case value.KindStr:
		return value.Str(x.Str + y.Str), nil
	case value.KindArray:
		return value.Array(append(append([]value.Value{}, x.Array...), y.Array...)...), nil
	case value.KindDict:
		d := value.NewDict()
		d.Merge(x.Dict)
		d.Merge(y.Dict)
		return value.DictValue(d), nil
	}
	return value.Value{}, typeErrorf(pos, "+: unsupported operand type %s", x.Kind)
}

func arith(pos lexer.Position, op string, x, y value.Value) (value.Value, error) {
	if x.Kind != value.KindInt || y.Kind != value.KindInt {
		return value.Value{}, typeErrorf(pos, "%s: expected two ints, got %s and %s", op, x.Kind, y.Kind)
	}
	switch op {
	case "-":
		return value.Int(x.Int - y.Int), nil
	case "*":
		return value.Int(x.Int * y.Int), nil
	case "/":
		if y.Int == 0 {
			return value.Value{}, valueErrorf(pos, "division by zero")
		}
		return value.Int(x.Int / y.Int), nil
	case "%":
		if y.Int == 0 {
			return value.Value{}, valueErrorf(pos, "division by zero")
		}
		return value.Int(x.Int % y.Int), nil
	}
	return value.Value{}, internalErrorf(pos, "unknown arithmetic operator %q", op)
}

func (in *Interp) evalIndex(ix *ast.IndexExpr) (value.Value, error) {
	x, err := in.eval(ix.X)
	if err != nil {
		return value.Value{}, err
	}
	idx, err := in.eval(ix.Index)
	if err != nil {
		return value.Value{}, err
	}
	if value.AnyDisabler(x, idx) {
		return value.Disabler(), nil
	}
	switch x.Kind {
	case value.KindArray:
		if idx.Kind != value.KindInt {
			return value.Value{}, typeErrorf(ix.Pos(), "index: expected int, got %s", idx.Kind)
		}
		i := idx.Int
		if i < 0 {
			i += int64(len(x.Array))
		}
		if i < 0 || i >= int64(len(x.Array)) {
			return value.Value{}, valueErrorf(ix.Pos(), "index %d out of range for list of length %d", idx.Int, len(x.Array))
		}
		return x.Array[i], nil
	case value.KindDict:
		if idx.Kind != value.KindStr {
			return value.Value{}, typeErrorf(ix.Pos(), "index: expected string key, got %s", idx.Kind)
		}
		v, ok := x.Dict.Get(idx.Str)
		if !ok {
			return value.Value{}, valueErrorf(ix.Pos(), "key %q not present in dict", idx.Str)
		}
		return v, nil
	case value.KindStr:
		if idx.Kind != value.KindInt {
			return value.Value{}, typeErrorf(ix.Pos(), "index: expected int, got %s", idx.Kind)
		}
		i := idx.Int
		if i < 0 {
			i += int64(len(x.Str))
		}
		if i < 0 || i >= int64(len(x.Str)) {
			return value.Value{}, valueErrorf(ix.Pos(), "index %d out of range for string of length %d", idx.Int, len(x.Str))
		}
		return value.Str(string(x.Str[i])), nil
	}
	return value.Value{}, typeErrorf(ix.Pos(), "index: expected list, dict, or string, got %s", x.Kind)
}

func (in *Interp) evalArgs(args []ast.Arg) ([]value.Value, map[string]value.Value, error) {
	var positional []value.Value
	kwargs := map[string]value.Value{}
	for _, a := range args {
		v, err := in.eval(a.Value)
		if err != nil {
			return nil, nil, err
		}
		if a.Name == "" {
			positional = append(positional, v)
		} else {
			kwargs[a.Name] = v
		}
	}
	return positional, kwargs, nil
}

func (in *Interp) evalCall(c *ast.CallExpr) (value.Value, error) {
	args, kwargs, err := in.evalArgs(c.Args)
	if err != nil {
		return value.Value{}, err
	}
	if value.AnyDisabler(append(append([]value.Value{}, args...), kwargsValues(kwargs)...)...) {
		return value.Disabler(), nil
	}
	fn, ok := builtins[c.Name]
	if !ok {
		return value.Value{}, nameErrorf(c.Pos(), "unknown function %q", c.Name)
	}
	return fn(in, c.Pos(), args, kwargs)
}

func (in *Interp) evalMethodCall(mc *ast.MethodCallExpr) (value.Value, error) {
	recv, err := in.eval(mc.Recv)
	if err != nil {
		return value.Value{}, err
	}
	args, kwargs, err := in.evalArgs(mc.Args)
	if err != nil {
		return value.Value{}, err
	}
	all := append(append([]value.Value{recv}, args...), kwargsValues(kwargs)...)
	if value.AnyDisabler(all...) {
		return value.Disabler(), nil
	}
	if recv.Kind == value.KindHolder {
		m, ok := recv.Holder.Method(mc.Name)
		if !ok {
			return value.Value{}, typeErrorf(mc.Pos(), "%s has no method %q", recv.Holder.TypeName(), mc.Name)
		}
		return m.Fn(args, kwargs)
	}
	return in.evalValueMethod(mc.Pos(), recv, mc.Name, args, kwargs)
}

func kwargsValues(kwargs map[string]value.Value) []value.Value {
	out := make([]value.Value, 0, len(kwargs))
	for _, v := range kwargs {
		out = append(out, v)
	}
	return out
}
