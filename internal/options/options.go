// Package options implements the typed, scoped, persisted option store
// (§4.4): built-in/project/subproject options with a per-machine
// `build.`-prefix routing rule, command-line/environment overlay, and the
// feature tri-state holder exposed to get_option() by internal/interp.
package options

import (
	"sort"
	"strconv"
	"strings"

	"github.com/mbuild/mbs/internal/value"
	"golang.org/x/xerrors"
)

// Kind is one of the six declared option types (§3 Option).
type Kind int

const (
	KindString Kind = iota
	KindIntRange
	KindBool
	KindChoice
	KindStringArray
	KindFeature
)

// Source records which channel last set an option's Current value, echoed
// by introspection per §9 Open Question 1.
type Source int

const (
	SourceDefault Source = iota
	SourceProjectDefault
	SourceCommandLine
	SourceEnvironment
	SourceReconfigurePreserved
)

func (s Source) String() string {
	switch s {
	case SourceDefault:
		return "default"
	case SourceProjectDefault:
		return "project-default"
	case SourceCommandLine:
		return "command-line"
	case SourceEnvironment:
		return "environment"
	case SourceReconfigurePreserved:
		return "reconfigure-preserved"
	}
	return "?"
}

// Feature is the tri-state value of a KindFeature option.
type Feature int

const (
	FeatureAuto Feature = iota
	FeatureEnabled
	FeatureDisabled
)

func (f Feature) String() string {
	switch f {
	case FeatureEnabled:
		return "enabled"
	case FeatureDisabled:
		return "disabled"
	}
	return "auto"
}

func ParseFeature(s string) (Feature, error) {
	switch s {
	case "enabled":
		return FeatureEnabled, nil
	case "disabled":
		return FeatureDisabled, nil
	case "auto":
		return FeatureAuto, nil
	}
	return FeatureAuto, xerrors.Errorf("invalid feature value %q, want enabled|disabled|auto", s)
}

// Declaration is how a project (or the built-in table) declares an option:
// its type and constraints.
type Declaration struct {
	Name    string
	Kind    Kind
	Default string   // stringified default; parsed per Kind
	Choices []string // for KindChoice
	Min, Max int64   // for KindIntRange
	HasRange bool
}

// Option is one live entry in the Store: its declaration plus current
// value and the source that set it.
type Option struct {
	Decl    Declaration
	Current string // stringified current value; canonical encoding per Kind
	Source  Source
}

// Store holds every declared option for one build directory, split by
// machine (native vs cross) per the `build.`-prefix routing rule (§4.4).
type Store struct {
	// native holds options that apply to the host machine (the default,
	// unprefixed scope); crossBuild holds the `build.`-prefixed scope
	// applying to the build machine. When not cross-compiling the two are
	// logically identical but kept separate so a later --cross-file does
	// not require re-declaring options.
	native     map[string]*Option
	crossBuild map[string]*Option

	// preloaded holds persisted (name -> current value, source) pairs
	// restored from a prior configuration run (§4.9), consulted by Declare
	// so a reconfiguration keeps the persisted value instead of resetting
	// to the declaration's default.
	preloaded map[string]Option
}

// New constructs an empty Store.
func New() *Store {
	return &Store{native: map[string]*Option{}, crossBuild: map[string]*Option{}, preloaded: map[string]Option{}}
}

// Preload restores one persisted option value ahead of its (re-)declaration,
// so reconfiguration "does not reset to defaults" (§4.9).
func (s *Store) Preload(name, current string, source Source) {
	s.preloaded[name] = Option{Current: current, Source: source}
}

// scopeFor splits a raw option name into (machine-scope map, unprefixed
// name) per §4.4's "an option prefixed build. resolves against the build
// machine; otherwise host machine" rule.
func (s *Store) scopeFor(name string) (map[string]*Option, string) {
	if strings.HasPrefix(name, "build.") {
		return s.crossBuild, strings.TrimPrefix(name, "build.")
	}
	return s.native, name
}

// Declare registers decl at its default value with SourceDefault, unless
// already declared (re-declaring an existing option is a no-op so
// subproject option files can redeclare common project options).
func (s *Store) Declare(decl Declaration) error {
	scope, name := s.scopeFor(decl.Name)
	if _, ok := scope[name]; ok {
		return nil
	}
	current, source := decl.Default, SourceDefault
	if pre, ok := s.preloaded[decl.Name]; ok {
		current, source = pre.Current, pre.Source
	}
	if err := validate(decl, current); err != nil {
		return xerrors.Errorf("declaring option %q: %w", decl.Name, err)
	}
	scope[name] = &Option{Decl: decl, Current: current, Source: source}
	return nil
}

// DeclareBuiltins registers the built-in options every project gets for
// free, before its project() call runs (§4.4 "built-in options" alongside
// project-declared ones). Declare is a no-op on names already present, so
// calling this after a reconfiguration's Preload calls still picks up the
// preserved values.
func (s *Store) DeclareBuiltins() error {
	builtins := []Declaration{
		{Name: "buildtype", Kind: KindChoice, Default: "debug",
			Choices: []string{"plain", "debug", "debugoptimized", "release", "minsize"}},
		{Name: "default_library", Kind: KindChoice, Default: "shared",
			Choices: []string{"shared", "static", "both"}},
		{Name: "warning_level", Kind: KindChoice, Default: "1",
			Choices: []string{"0", "1", "2", "3"}},
		{Name: "werror", Kind: KindBool, Default: "false"},
		{Name: "b_sanitize", Kind: KindString, Default: ""},
		{Name: "b_pie", Kind: KindBool, Default: "false"},
		{Name: "strip", Kind: KindBool, Default: "false"},
		{Name: "auto_features", Kind: KindFeature, Default: "auto"},
		{Name: "prefix", Kind: KindString, Default: "/usr/local"},
		{Name: "libdir", Kind: KindString, Default: "lib"},
		{Name: "bindir", Kind: KindString, Default: "bin"},
	}
	for _, decl := range builtins {
		if err := s.Declare(decl); err != nil {
			return err
		}
	}
	return nil
}

// SetProjectDefault applies a project(default_options: [...]) entry. It
// only takes effect if no higher-precedence source (command-line) has
// already set the option, per §9 Open Question 1.
func (s *Store) SetProjectDefault(name, val string) error {
	scope, key := s.scopeFor(name)
	opt, ok := scope[key]
	if !ok {
		return xerrors.Errorf("unknown option %q", name)
	}
	if opt.Source == SourceCommandLine {
		return nil // command line strictly dominates, §8 testable property
	}
	if err := validate(opt.Decl, val); err != nil {
		return xerrors.Errorf("setting option %q: %w", name, err)
	}
	opt.Current = val
	opt.Source = SourceProjectDefault
	return nil
}

// SetCommandLine applies a -Dname=value override. Command-line always wins
// outright over project defaults and persisted/environment values for
// single-valued options (§9 Open Question 1 resolution); for list-valued
// global options it also replaces; append-semantics for target-local args
// is handled by internal/interp at the call site, not here.
func (s *Store) SetCommandLine(name, val string) error {
	scope, key := s.scopeFor(name)
	opt, ok := scope[key]
	if !ok {
		return xerrors.Errorf("unknown option %q", name)
	}
	if err := validate(opt.Decl, val); err != nil {
		return xerrors.Errorf("setting option %q: %w", name, err)
	}
	opt.Current = val
	opt.Source = SourceCommandLine
	return nil
}

// SetEnvironment applies an environment-variable-derived seed value. Per
// §4.4/§6/§9 Open Question 2, this must only be called for options that
// have no persisted value yet (first configuration); Load's caller is
// responsible for only invoking this when Source is still SourceDefault.
func (s *Store) SetEnvironment(name, val string) error {
	scope, key := s.scopeFor(name)
	opt, ok := scope[key]
	if !ok {
		return xerrors.Errorf("unknown option %q", name)
	}
	if opt.Source != SourceDefault {
		return nil // already configured; env is first-configuration-only
	}
	if err := validate(opt.Decl, val); err != nil {
		return xerrors.Errorf("setting option %q from environment: %w", name, err)
	}
	opt.Current = val
	opt.Source = SourceEnvironment
	return nil
}

// Get returns the current option by its full (possibly build.-prefixed)
// name.
func (s *Store) Get(name string) (*Option, bool) {
	scope, key := s.scopeFor(name)
	opt, ok := scope[key]
	return opt, ok
}

// MarkReconfigurePreserved overwrites every option's Source with
// SourceReconfigurePreserved that was not re-set by a fresh command-line
// flag this run and is not still at its declared default, so introspection reflects that reconfiguration retained
// the prior value rather than recomputing a default (§4.9, §8 "Reconfigure
// preserves options").
func (s *Store) MarkReconfigurePreserved(freshCommandLine map[string]bool) {
	for _, scope := range []map[string]*Option{s.native, s.crossBuild} {
		for name, opt := range scope {
			if freshCommandLine[name] {
				continue
			}
			if opt.Source == SourceDefault {
				continue
			}
			opt.Source = SourceReconfigurePreserved
		}
	}
}

// All returns every option across both scopes, sorted by name for
// deterministic introspection output.
func (s *Store) All() []struct {
	Name string
	Opt  *Option
} {
	var out []struct {
		Name string
		Opt  *Option
	}
	for name, opt := range s.native {
		out = append(out, struct {
			Name string
			Opt  *Option
		}{name, opt})
	}
	for name, opt := range s.crossBuild {
		out = append(out, struct {
			Name string
			Opt  *Option
		}{"build." + name, opt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func validate(decl Declaration, val string) error {
	switch decl.Kind {
	case KindBool:
		if val != "true" && val != "false" {
			return xerrors.Errorf("invalid bool value %q", val)
		}
	case KindIntRange:
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return xerrors.Errorf("invalid integer value %q: %w", val, err)
		}
		if decl.HasRange && (n < decl.Min || n > decl.Max) {
			return xerrors.Errorf("value %d out of declared range [%d, %d]", n, decl.Min, decl.Max)
		}
	case KindChoice:
		found := false
		for _, c := range decl.Choices {
			if c == val {
				found = true
				break
			}
		}
		if !found {
			return xerrors.Errorf("value %q not in declared choice set %v", val, decl.Choices)
		}
	case KindFeature:
		if _, err := ParseFeature(val); err != nil {
			return err
		}
	case KindString, KindStringArray:
		// any string is valid; string-array values are encoded comma-joined
		// by the caller.
	}
	return nil
}

// FeatureHolder is the tri-state holder returned by get_option() for a
// KindFeature option (§4.4): enabled/disabled/auto plus the branching
// helpers used to gate optional functionality.
type FeatureHolder struct {
	State         Feature
	AutoFeatures  Feature // the resolved value of the global auto_features option, consulted by .allowed()
}

func (h *FeatureHolder) TypeName() string { return "feature" }

func (h *FeatureHolder) resolved() Feature {
	if h.State == FeatureAuto {
		return h.AutoFeatures
	}
	return h.State
}

func (h *FeatureHolder) Method(name string) (value.Method, bool) {
	switch name {
	case "enabled":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			return value.Bool(h.State == FeatureEnabled), nil
		}}, true
	case "disabled":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			return value.Bool(h.State == FeatureDisabled), nil
		}}, true
	case "auto":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			return value.Bool(h.State == FeatureAuto), nil
		}}, true
	case "allowed":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			return value.Bool(h.resolved() != FeatureDisabled), nil
		}}, true
	case "disable_auto_if":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			cond, err := boolArg(args, "disable_auto_if")
			if err != nil {
				return value.Value{}, err
			}
			if h.State == FeatureAuto && cond {
				return value.HolderValue(&FeatureHolder{State: FeatureDisabled, AutoFeatures: h.AutoFeatures}), nil
			}
			return value.HolderValue(h), nil
		}}, true
	case "require":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			cond, err := boolArg(args, "require")
			if err != nil {
				return value.Value{}, err
			}
			if h.resolved() == FeatureEnabled && !cond {
				msg := "feature requirement not satisfied"
				if m, ok := kwargs["error_message"]; ok {
					msg = m.Str
				}
				return value.Value{}, xerrors.New(msg)
			}
			return value.HolderValue(h), nil
		}}, true
	case "disable_if":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			cond, err := boolArg(args, "disable_if")
			if err != nil {
				return value.Value{}, err
			}
			if cond {
				return value.HolderValue(&FeatureHolder{State: FeatureDisabled, AutoFeatures: h.AutoFeatures}), nil
			}
			return value.HolderValue(h), nil
		}}, true
	case "enable_if":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			cond, err := boolArg(args, "enable_if")
			if err != nil {
				return value.Value{}, err
			}
			if cond {
				return value.HolderValue(&FeatureHolder{State: FeatureEnabled, AutoFeatures: h.AutoFeatures}), nil
			}
			return value.HolderValue(h), nil
		}}, true
	}
	return value.Method{}, false
}

func boolArg(args []value.Value, method string) (bool, error) {
	if len(args) != 1 || args[0].Kind != value.KindBool {
		return false, xerrors.Errorf("%s(): expected one bool argument", method)
	}
	return args[0].Bool, nil
}
