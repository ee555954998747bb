package interp

import (
	"strings"

	mbs "github.com/mbuild/mbs"
	"github.com/mbuild/mbs/internal/lexer"
	"github.com/mbuild/mbs/internal/value"
)

// evalValueMethod dispatches the built-in methods on plain (non-holder)
// values — string, list, dict, and int — that mbs exposes without going
// through the Holder interface (§4.3.[EXPANDED] value methods).
func (in *Interp) evalValueMethod(pos lexer.Position, recv value.Value, name string, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	switch recv.Kind {
	case value.KindStr:
		return stringMethod(pos, recv.Str, name, args)
	case value.KindArray:
		return arrayMethod(pos, recv.Array, name, args)
	case value.KindDict:
		return dictMethod(pos, recv.Dict, name, args)
	case value.KindInt:
		return intMethod(pos, recv.Int, name, args)
	}
	return value.Value{}, typeErrorf(pos, "%s has no methods", recv.Kind)
}

func stringMethod(pos lexer.Position, s string, name string, args []value.Value) (value.Value, error) {
	switch name {
	case "strip":
		if len(args) == 1 && args[0].Kind == value.KindStr {
			return value.Str(strings.Trim(s, args[0].Str)), nil
		}
		return value.Str(strings.TrimSpace(s)), nil
	case "to_upper":
		return value.Str(strings.ToUpper(s)), nil
	case "to_lower":
		return value.Str(strings.ToLower(s)), nil
	case "split":
		sep := " "
		if len(args) == 1 && args[0].Kind == value.KindStr {
			sep = args[0].Str
		}
		var parts []string
		if sep == "" {
			return value.Value{}, typeErrorf(pos, "split(): separator must not be empty")
		}
		parts = strings.Split(s, sep)
		out := make([]value.Value, len(parts))
		for i, p := range parts {
			out[i] = value.Str(p)
		}
		return value.Array(out...), nil
	case "join":
		if len(args) != 1 || args[0].Kind != value.KindArray {
			return value.Value{}, typeErrorf(pos, "join(): expected one list argument")
		}
		parts := make([]string, len(args[0].Array))
		for i, e := range args[0].Array {
			if e.Kind != value.KindStr {
				return value.Value{}, typeErrorf(pos, "join(): list elements must be strings")
			}
			parts[i] = e.Str
		}
		return value.Str(strings.Join(parts, s)), nil
	case "contains":
		if len(args) != 1 || args[0].Kind != value.KindStr {
			return value.Value{}, typeErrorf(pos, "contains(): expected one string argument")
		}
		return value.Bool(containsSubstr(s, args[0].Str)), nil
	case "startswith":
		if len(args) != 1 || args[0].Kind != value.KindStr {
			return value.Value{}, typeErrorf(pos, "startswith(): expected one string argument")
		}
		return value.Bool(strings.HasPrefix(s, args[0].Str)), nil
	case "endswith":
		if len(args) != 1 || args[0].Kind != value.KindStr {
			return value.Value{}, typeErrorf(pos, "endswith(): expected one string argument")
		}
		return value.Bool(strings.HasSuffix(s, args[0].Str)), nil
	case "replace":
		if len(args) != 2 || args[0].Kind != value.KindStr || args[1].Kind != value.KindStr {
			return value.Value{}, typeErrorf(pos, "replace(): expected two string arguments")
		}
		return value.Str(strings.ReplaceAll(s, args[0].Str, args[1].Str)), nil
	case "to_int":
		n, err := parseIntOption(s)
		if err != nil {
			return value.Value{}, valueErrorf(pos, "to_int(): %q is not a valid integer", s)
		}
		return value.Int(n), nil
	case "format":
		return formatString(pos, s, args)
	case "version_compare":
		if len(args) != 1 || args[0].Kind != value.KindStr {
			return value.Value{}, typeErrorf(pos, "version_compare(): expected one constraint string argument")
		}
		c := mbs.ParseVersionConstraint(args[0].Str)
		return value.Bool(mbs.Satisfies(s, []mbs.VersionConstraint{c})), nil
	case "underscorify":
		return value.Str(underscorify(s)), nil
	}
	return value.Value{}, typeErrorf(pos, "str has no method %q", name)
}

// formatString substitutes @0@, @1@, ... placeholders with args, implementing
// '...'.format() (§4.3.[EXPANDED]).
func formatString(pos lexer.Position, s string, args []value.Value) (value.Value, error) {
	var out strings.Builder
	i := 0
	for i < len(s) {
		if s[i] != '@' {
			out.WriteByte(s[i])
			i++
			continue
		}
		end := strings.IndexByte(s[i+1:], '@')
		if end < 0 {
			out.WriteByte(s[i])
			i++
			continue
		}
		key := s[i+1 : i+1+end]
		n, err := parseIntOption(key)
		if err != nil || n < 0 || int(n) >= len(args) {
			out.WriteString("@" + key + "@")
		} else {
			out.WriteString(args[n].String())
		}
		i += end + 2
	}
	return value.Str(out.String()), nil
}

func underscorify(s string) string {
	var out strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out.WriteRune(r)
		} else {
			out.WriteByte('_')
		}
	}
	return out.String()
}

func arrayMethod(pos lexer.Position, arr []value.Value, name string, args []value.Value) (value.Value, error) {
	switch name {
	case "length":
		return value.Int(int64(len(arr))), nil
	case "contains":
		if len(args) != 1 {
			return value.Value{}, typeErrorf(pos, "contains(): expected one argument")
		}
		for _, e := range arr {
			if value.Equal(e, args[0]) {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	case "get":
		if len(args) < 1 || args[0].Kind != value.KindInt {
			return value.Value{}, typeErrorf(pos, "get(): expected an int index")
		}
		i := args[0].Int
		if i < 0 {
			i += int64(len(arr))
		}
		if i < 0 || i >= int64(len(arr)) {
			if len(args) >= 2 {
				return args[1], nil
			}
			return value.Value{}, valueErrorf(pos, "get(): index %d out of range for list of length %d", args[0].Int, len(arr))
		}
		return arr[i], nil
	}
	return value.Value{}, typeErrorf(pos, "list has no method %q", name)
}

func dictMethod(pos lexer.Position, d *value.Dict, name string, args []value.Value) (value.Value, error) {
	switch name {
	case "length":
		return value.Int(int64(d.Len())), nil
	case "has_key":
		if len(args) != 1 || args[0].Kind != value.KindStr {
			return value.Value{}, typeErrorf(pos, "has_key(): expected one string argument")
		}
		_, ok := d.Get(args[0].Str)
		return value.Bool(ok), nil
	case "get":
		if len(args) < 1 || args[0].Kind != value.KindStr {
			return value.Value{}, typeErrorf(pos, "get(): expected a string key")
		}
		v, ok := d.Get(args[0].Str)
		if !ok {
			if len(args) >= 2 {
				return args[1], nil
			}
			return value.Value{}, valueErrorf(pos, "get(): key %q not present in dict", args[0].Str)
		}
		return v, nil
	case "keys":
		keys := d.SortedKeys()
		out := make([]value.Value, len(keys))
		for i, k := range keys {
			out[i] = value.Str(k)
		}
		return value.Array(out...), nil
	}
	return value.Value{}, typeErrorf(pos, "dict has no method %q", name)
}

func intMethod(pos lexer.Position, n int64, name string, args []value.Value) (value.Value, error) {
	switch name {
	case "to_string":
		return value.Str(value.Int(n).String()), nil
	}
	return value.Value{}, typeErrorf(pos, "int has no method %q", name)
}
