package graph

import (
	"fmt"

	"github.com/mbuild/mbs/internal/value"
)

// ConfigurationData is the mutable string->value holder consumed by
// configure_file() (§3, §4.6). Per §3's invariant, it is builder-style:
// mutated in place by .set()/.set10()/.set_quoted() until the first read
// (.get()/.has()/.keys()/a configure_file() consumption), after which
// mbs treats it as finalized; mbs does not enforce the finalization
// (meson warns, doesn't error), matching the spec's "mutated in-place
// until read-finalized at first consumption" phrasing rather than a hard
// lock.
type ConfigurationData struct {
	dict *value.Dict
	// quoted marks which keys were set via set_quoted, so configure_file's
	// straight-substitution mode knows whether to add surrounding quotes
	// itself or trust the value already carries them.
	quoted map[string]bool
}

// NewConfigurationData constructs an empty configuration-data holder.
func NewConfigurationData() *ConfigurationData {
	return &ConfigurationData{dict: value.NewDict(), quoted: map[string]bool{}}
}

func (c *ConfigurationData) TypeName() string { return "configuration-data" }

func (c *ConfigurationData) Method(name string) (value.Method, bool) {
	switch name {
	case "set":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			if len(args) != 2 {
				return value.Value{}, fmt.Errorf("set(): expected (key, value)")
			}
			c.dict.Set(args[0].Str, args[1])
			return value.Unset(), nil
		}}, true
	case "set10":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			if len(args) != 2 || args[1].Kind != value.KindBool {
				return value.Value{}, fmt.Errorf("set10(): expected (key, bool)")
			}
			s := "0"
			if args[1].Bool {
				s = "1"
			}
			c.dict.Set(args[0].Str, value.Str(s))
			return value.Unset(), nil
		}}, true
	case "set_quoted":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			if len(args) != 2 {
				return value.Value{}, fmt.Errorf("set_quoted(): expected (key, value)")
			}
			c.dict.Set(args[0].Str, args[1])
			c.quoted[args[0].Str] = true
			return value.Unset(), nil
		}}, true
	case "get":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			if len(args) < 1 {
				return value.Value{}, fmt.Errorf("get(): expected at least one argument")
			}
			if v, ok := c.dict.Get(args[0].Str); ok {
				return v, nil
			}
			if len(args) >= 2 {
				return args[1], nil
			}
			return value.Value{}, fmt.Errorf("get(): key %q not present", args[0].Str)
		}}, true
	case "has":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			_, ok := c.dict.Get(args[0].Str)
			return value.Bool(ok), nil
		}}, true
	case "keys":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			var vs []value.Value
			for _, k := range c.dict.Keys() {
				vs = append(vs, value.Str(k))
			}
			return value.Array(vs...), nil
		}}, true
	case "merge_from":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			if len(args) != 1 || args[0].Kind != value.KindHolder {
				return value.Value{}, fmt.Errorf("merge_from(): expected a configuration-data argument")
			}
			other, ok := args[0].Holder.(*ConfigurationData)
			if !ok {
				return value.Value{}, fmt.Errorf("merge_from(): expected a configuration-data argument")
			}
			c.dict.Merge(other.dict)
			for k, v := range other.quoted {
				c.quoted[k] = v
			}
			return value.Unset(), nil
		}}, true
	}
	return value.Method{}, false
}

// Get exposes a read accessor to internal/interp's configure_file
// implementation without going through the Value/Method plumbing.
func (c *ConfigurationData) Get(key string) (value.Value, bool) {
	return c.dict.Get(key)
}

// IsQuoted reports whether key was set via set_quoted, used by
// configure_file's straight-substitution mode.
func (c *ConfigurationData) IsQuoted(key string) bool { return c.quoted[key] }

// Keys returns the configuration-data's keys in insertion order.
func (c *ConfigurationData) Keys() []string { return c.dict.Keys() }
