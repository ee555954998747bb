// Package graph implements the Build Object Graph (BOG, §3, §4.6): targets,
// custom commands, generators, configuration data, and dependency objects
// materialized by internal/interp, frozen after interpretation and walked
// by internal/backend.
package graph

import (
	"github.com/mbuild/mbs/internal/value"
)

// TargetKind enumerates the seven target kinds (§3 Target).
type TargetKind int

const (
	Executable TargetKind = iota
	StaticLibrary
	SharedLibrary
	SharedModule
	CustomTarget
	RunTarget
	Jar
)

func (k TargetKind) String() string {
	switch k {
	case Executable:
		return "executable"
	case StaticLibrary:
		return "static_library"
	case SharedLibrary:
		return "shared_library"
	case SharedModule:
		return "shared_module"
	case CustomTarget:
		return "custom"
	case RunTarget:
		return "run"
	case Jar:
		return "jar"
	}
	return "?"
}

// Identity is a target's stable key: (subproject, name) per §3.
type Identity struct {
	Subproject string
	Name       string
}

// Target is one buildable node in the BOG (§3 Target).
type Target struct {
	Identity
	Kind TargetKind

	// Sources are ordered file paths (+ generated-list references,
	// resolved to concrete paths by the generator before lowering) relative
	// to the defining subdir.
	Sources []string

	// CompileArgs is per-language: language id -> ordered arg list.
	CompileArgs map[string][]string
	LinkArgs    []string

	LinkWith   []*Target // link-with edges
	LinkWhole  []*Target // link-whole edges, expanded per-object at lowering

	IncludeDirs []string // source- and build-rooted search paths

	Dependencies []*Dependency // transitive closure already flattened by the interpreter

	Install       bool
	InstallDir    string
	OverrideNames []string

	Native bool // true = build machine, false = host machine (§8 scenario 4)

	DefinedInFile string // for introspection's "defined-in-file"
}

func (t *Target) TypeName() string { return "target" }

func (t *Target) Method(name string) (value.Method, bool) {
	switch name {
	case "full_path":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			return value.Str(t.Subproject + "/" + t.Name), nil
		}}, true
	case "name":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			return value.Str(t.Name), nil
		}}, true
	case "extract_objects":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			return value.HolderValue(&ObjectExtraction{Target: t, Files: argStrings(args)}), nil
		}}, true
	}
	return value.Method{}, false
}

func argStrings(args []value.Value) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		out = append(out, a.Str)
	}
	return out
}

// ObjectExtraction is the holder produced by target.extract_objects(...),
// consumable as a source in another target.
type ObjectExtraction struct {
	Target *Target
	Files  []string
}

func (o *ObjectExtraction) TypeName() string { return "extracted-objects" }
func (o *ObjectExtraction) Method(name string) (value.Method, bool) { return value.Method{}, false }

// Dependency is an immutable record produced by dependency(), declare_
// dependency(), compiler.find_library(), a subproject variable, or a
// .partial_dependency() filter (§4.6).
type Dependency struct {
	Name        string
	Found       bool
	Version     string
	CompileArgs []string
	LinkArgs    []string
	LinkWith    []*Target
	IncludeDirs []string
	Sources     []string
}

func (d *Dependency) TypeName() string { return "dependency" }

func (d *Dependency) Method(name string) (value.Method, bool) {
	switch name {
	case "found":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			return value.Bool(d.Found), nil
		}}, true
	case "version":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			return value.Str(d.Version), nil
		}}, true
	case "name":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			return value.Str(d.Name), nil
		}}, true
	case "as_link_whole":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			clone := *d
			return value.HolderValue(&clone), nil
		}}, true
	case "partial_dependency":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			return value.HolderValue(d.partial(kwargs)), nil
		}}, true
	}
	return value.Method{}, false
}

// partial implements .partial_dependency(compile_args: true, link_args:
// false, ...), returning a filtered copy that only propagates the
// requested facets (§4.6).
func (d *Dependency) partial(kwargs map[string]value.Value) *Dependency {
	want := func(key string) bool {
		v, ok := kwargs[key]
		return ok && v.Kind == value.KindBool && v.Bool
	}
	p := &Dependency{Name: d.Name, Found: d.Found, Version: d.Version}
	if want("compile_args") {
		p.CompileArgs = d.CompileArgs
		p.IncludeDirs = d.IncludeDirs
	}
	if want("link_args") {
		p.LinkArgs = d.LinkArgs
		p.LinkWith = d.LinkWith
	}
	if want("sources") {
		p.Sources = d.Sources
	}
	return p
}

// NotFound constructs the not-found dependency holder branch-able via
// .found() (§4.6, §8 scenario 3).
func NotFound(name string) *Dependency {
	return &Dependency{Name: name, Found: false}
}
