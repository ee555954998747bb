package interp

import (
	"github.com/mbuild/mbs/internal/lexer"
	"github.com/mbuild/mbs/internal/value"
)

// AnyKind is the Kind sentinel meaning "accept any value kind", used by
// ArgSpec.Kind where a builtin genuinely takes a polymorphic argument (e.g.
// message()'s argument, which may be any printable value).
const AnyKind = value.Kind(-1)

// ArgSpec describes one positional or keyword argument's expected kind.
type ArgSpec struct {
	Name     string
	Kind     value.Kind
	Required bool // keyword args only; positional requiredness is MinPositional
}

// Signature is an explicit, enumerated argument schema (§4.3 Calling
// convention), grounded on the teacher's preference for typed, enumerated
// argument structs (buildctx's fields, pb.MesonBuilder's flag accessors) over
// a reflection-driven binder. No built-in function or holder method declares
// a Signature or calls Validate: each one checks its own arguments inside its
// body.
type Signature struct {
	Name string

	MinPositional int
	MaxPositional int // -1 = unbounded (variadic tail)
	Positional    []ArgSpec

	Keywords map[string]ArgSpec
}

// Validate enforces arity and keyword-name/kind constraints, returning a
// *Error (KindType) identifying the function, argument name/position,
// expected kind, and got kind, per §4.3's required diagnostic shape.
func (s Signature) Validate(pos lexer.Position, args []value.Value, kwargs map[string]value.Value) error {
	if len(args) < s.MinPositional {
		return typeErrorf(pos, "%s(): expected at least %d positional argument(s), got %d", s.Name, s.MinPositional, len(args))
	}
	if s.MaxPositional >= 0 && len(args) > s.MaxPositional {
		return typeErrorf(pos, "%s(): expected at most %d positional argument(s), got %d", s.Name, s.MaxPositional, len(args))
	}
	for i, spec := range s.Positional {
		if i >= len(args) || spec.Kind == AnyKind {
			continue
		}
		if args[i].Kind != spec.Kind {
			return typeErrorf(pos, "%s(): argument %d (%s): expected %s, got %s", s.Name, i+1, spec.Name, spec.Kind, args[i].Kind)
		}
	}
	for name, v := range kwargs {
		spec, ok := s.Keywords[name]
		if !ok {
			return typeErrorf(pos, "%s(): unknown keyword argument %q", s.Name, name)
		}
		if spec.Kind != AnyKind && v.Kind != spec.Kind {
			return typeErrorf(pos, "%s(): keyword argument %q: expected %s, got %s", s.Name, name, spec.Kind, v.Kind)
		}
	}
	for name, spec := range s.Keywords {
		if spec.Required {
			if _, ok := kwargs[name]; !ok {
				return typeErrorf(pos, "%s(): missing required keyword argument %q", s.Name, name)
			}
		}
	}
	return nil
}
