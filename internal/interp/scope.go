package interp

import "github.com/mbuild/mbs/internal/value"

// Scope is one lexical environment: a flat name->value map plus a parent
// link for outer lookups. Subprojects get a fresh scope with no parent
// (§4.3/§9 "subproject isolation" — explicit export through a return handle
// is the only communication mechanism), while foreach/if bodies share their
// enclosing scope rather than nesting one (mbs has no block scoping beyond
// subproject boundaries; "assignment binds/rebinds in the innermost scope"
// per §4.3 refers to the subproject scope, not a per-block one).
type Scope struct {
	vars   map[string]value.Value
	parent *Scope
}

// NewScope constructs a root scope with no parent, used for the top-level
// project and for each subproject entered (isolation boundary).
func NewScope() *Scope {
	return &Scope{vars: map[string]value.Value{}}
}

// child constructs a scope nested under s. The interpreter does not call
// it: subprojects start from NewScope(), and foreach/if bodies share their
// enclosing scope per the comment above.
func (s *Scope) child() *Scope {
	return &Scope{vars: map[string]value.Value{}, parent: s}
}

// Get looks up name, searching outward through parents.
func (s *Scope) Get(name string) (value.Value, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[name]; ok {
			return v, true
		}
	}
	return value.Value{}, false
}

// Set binds name in s directly (never in a parent), implementing "rebinding
// creates a new binding in the innermost scope" (§4.3 Immutability).
func (s *Scope) Set(name string, v value.Value) {
	s.vars[name] = v
}
