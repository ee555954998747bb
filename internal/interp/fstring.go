package interp

import (
	"strings"

	"github.com/mbuild/mbs/internal/lexer"
)

// expandFString substitutes every "@name@" placeholder in raw with the
// string rendering of the named variable in scope, per §4.1's "f-string
// prefix emits tokens that preserve @name@ placeholder locations for later
// substitution" and §4.3's interpreter-side evaluation of them.
func expandFString(pos lexer.Position, raw string, scope *Scope) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(raw) {
		if raw[i] != '@' {
			out.WriteByte(raw[i])
			i++
			continue
		}
		end := strings.IndexByte(raw[i+1:], '@')
		if end < 0 {
			out.WriteByte(raw[i])
			i++
			continue
		}
		name := raw[i+1 : i+1+end]
		v, ok := scope.Get(name)
		if !ok {
			return "", nameErrorf(pos, "undefined variable %q referenced in f-string placeholder", name)
		}
		out.WriteString(v.String())
		i += end + 2
	}
	return out.String(), nil
}
