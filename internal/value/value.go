// Package value implements the tagged-union runtime value representation
// evaluated by internal/interp (§3, §9 Design Notes): a single Value type
// with an exhaustive Kind rather than an interface hierarchy, plus a small
// Holder interface for opaque method-bearing objects (compiler, dependency,
// target, ...).
package value

import (
	"fmt"
	"sort"
	"strings"
)

// Kind discriminates a Value's representation.
type Kind int

const (
	KindUnset Kind = iota
	KindDisabler
	KindBool
	KindInt
	KindStr
	KindArray
	KindDict
	KindHolder
)

func (k Kind) String() string {
	switch k {
	case KindUnset:
		return "unset"
	case KindDisabler:
		return "disabler"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindStr:
		return "str"
	case KindArray:
		return "array"
	case KindDict:
		return "dict"
	case KindHolder:
		return "holder"
	}
	return "?"
}

// Value is the universal runtime value. Exactly one of the typed fields is
// meaningful, selected by Kind. KindUnset and KindDisabler carry no payload:
// they are mbs's two sentinels (spec §3) — "unset" models an option left at
// its default/never-configured state, "disabler" is the value returned by
// disabler() and propagated through any expression it touches (§4.3
// disabler-absorption semantics).
type Value struct {
	Kind Kind

	Bool  bool
	Int   int64
	Str   string
	Array []Value
	Dict  *Dict
	Holder Holder
}

// Dict is an insertion-ordered string-keyed map, since mbs dict iteration
// order (.keys(), foreach) must be deterministic.
type Dict struct {
	keys   []string
	values map[string]Value
}

// NewDict constructs an empty ordered dict.
func NewDict() *Dict {
	return &Dict{values: map[string]Value{}}
}

// Set inserts or overwrites key, preserving first-insertion order.
func (d *Dict) Set(key string, v Value) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = v
}

// Get looks up key.
func (d *Dict) Get(key string) (Value, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Keys returns keys in insertion order.
func (d *Dict) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Len reports the number of entries.
func (d *Dict) Len() int { return len(d.keys) }

// SortedKeys returns keys in lexical order, used by deterministic emitters
// (introspection JSON, summary()) that must not depend on insertion order.
func (d *Dict) SortedKeys() []string {
	out := d.Keys()
	sort.Strings(out)
	return out
}

// Merge copies other's entries into d, overwriting on key collision,
// implementing configuration-data's .merge_from().
func (d *Dict) Merge(other *Dict) {
	for _, k := range other.keys {
		v, _ := other.values[k]
		d.Set(k, v)
	}
}

// Constructors.

func Unset() Value                { return Value{Kind: KindUnset} }
func Disabler() Value             { return Value{Kind: KindDisabler} }
func Bool(b bool) Value           { return Value{Kind: KindBool, Bool: b} }
func Int(n int64) Value           { return Value{Kind: KindInt, Int: n} }
func Str(s string) Value          { return Value{Kind: KindStr, Str: s} }
func Array(vs ...Value) Value     { return Value{Kind: KindArray, Array: vs} }
func DictValue(d *Dict) Value     { return Value{Kind: KindDict, Dict: d} }
func HolderValue(h Holder) Value  { return Value{Kind: KindHolder, Holder: h} }

// IsUnset, IsDisabler report sentinel identity.
func (v Value) IsUnset() bool    { return v.Kind == KindUnset }
func (v Value) IsDisabler() bool { return v.Kind == KindDisabler }

// Truthy implements mbs's boolean-coercion rule used by if/and/or/not/
// ternary conditions: only KindBool is accepted; anything else is a type
// error the interpreter must raise (§7 "Type error" — no implicit int/str
// truthiness, unlike many scripting languages).
func (v Value) Truthy() (bool, error) {
	if v.Kind != KindBool {
		return false, fmt.Errorf("expected bool, got %s", v.Kind)
	}
	return v.Bool, nil
}

// String renders v for diagnostics and for string-context concatenation
// (e.g. an f-string placeholder or message()/error() argument).
func (v Value) String() string {
	switch v.Kind {
	case KindUnset:
		return "<unset>"
	case KindDisabler:
		return "<disabler>"
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindStr:
		return v.Str
	case KindArray:
		parts := make([]string, len(v.Array))
		for i, e := range v.Array {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindDict:
		parts := make([]string, 0, v.Dict.Len())
		for _, k := range v.Dict.Keys() {
			e, _ := v.Dict.Get(k)
			parts = append(parts, fmt.Sprintf("%q: %s", k, e.String()))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindHolder:
		return fmt.Sprintf("<%s>", v.Holder.TypeName())
	}
	return "?"
}

// Equal implements mbs "==" for the types that support it (bool, int, str;
// array/dict compare element-wise). Unset equals unset and disabler equals
// disabler; holder comparisons are always false, even for the same holder,
// since such comparisons are rarely meaningful and callers instead use
// .found()/.enabled() etc.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindUnset, KindDisabler:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindInt:
		return a.Int == b.Int
	case KindStr:
		return a.Str == b.Str
	case KindArray:
		if len(a.Array) != len(b.Array) {
			return false
		}
		for i := range a.Array {
			if !Equal(a.Array[i], b.Array[i]) {
				return false
			}
		}
		return true
	case KindDict:
		if a.Dict.Len() != b.Dict.Len() {
			return false
		}
		for _, k := range a.Dict.Keys() {
			av, _ := a.Dict.Get(k)
			bv, ok := b.Dict.Get(k)
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

// AnyDisabler reports whether any of vs is the disabler sentinel. Binary
// operators, function calls, and array/dict construction all check this
// first and short-circuit to Disabler() themselves, implementing disabler
// absorption (§4.3): once a disabler enters an expression, the whole
// enclosing expression evaluates to disabler rather than raising a type
// error.
func AnyDisabler(vs ...Value) bool {
	for _, v := range vs {
		if v.IsDisabler() {
			return true
		}
	}
	return false
}

// Method is one callable bound to a Holder. It carries no argument schema:
// Fn checks its own arguments.
type Method struct {
	Name string
	Fn   func(args []Value, kwargs map[string]Value) (Value, error)
}

// Holder is implemented by every opaque object value (compiler,
// dependency, target, configuration-data, feature-option-value,
// subproject-handle, machine-info, generator): a TypeName for diagnostics
// and a Method lookup table, mirroring distri's preference for concrete
// structs with methods over deep interface hierarchies — Holder is the one
// seam the model needs since these objects are constructed by different
// packages (internal/machine, internal/graph, internal/resolver) but must
// be interchangeable Values to the interpreter.
type Holder interface {
	TypeName() string
	Method(name string) (Method, bool)
}
