// Package resolver implements the dependency() strategy chain (§4.8): a
// dependency(name, ...) call walks an ordered chain of strategies until one
// succeeds or all fail, each grounded on the distri glob/resolve idiom
// generalized from "package name + architecture + revision" to "dependency
// name + version constraint".
package resolver

import (
	"context"
	"os"
	"runtime"
	"sort"

	mbs "github.com/mbuild/mbs"
	"github.com/mbuild/mbs/internal/graph"
	"golang.org/x/xerrors"
)

// Method constrains a dependency() call to one strategy, via the `method:`
// keyword argument (§4.8).
type Method int

const (
	MethodAuto Method = iota
	MethodOverride
	MethodPkgConfig
	MethodExtraFramework
	MethodCMake
	MethodSystem
)

// Request is the parsed configuration of one dependency(name, ...) call
// (§4.8): required (bool or feature string), version constraints, static,
// native, method, modules, include_type.
type Request struct {
	Name        string
	Required    bool
	Version     []string // constraint strings, e.g. ">=1.2"
	Static      bool
	Native      bool
	Method      Method
	Modules     []string
	IncludeType string // "preserve" | "system" | "non-system"
	Fallback    []string // [subproject, variable]
}

// Strategy is one candidate lookup mechanism in the chain (§4.8).
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, req Request) (*graph.Dependency, error)
}

// ErrStrategyNotApplicable signals a strategy intentionally declining (not
// failing) — e.g. the framework strategy on a non-Apple host — so the
// chain proceeds to the next strategy rather than aborting.
var ErrStrategyNotApplicable = xerrors.New("strategy not applicable")

// Chain runs the default strategy order (§4.8): override, package-info,
// framework (Apple-only), CMake-export, system probes, fallback subproject.
type Chain struct {
	Strategies []Strategy
	// Subproject is invoked for the fallback strategy; it evaluates the
	// named subproject and looks up the named variable, isolated from the
	// rest of the chain so Chain itself has no dependency on internal/interp.
	Subproject func(ctx context.Context, subprojectName, variable string) (*graph.Dependency, error)
}

// NewDefaultChain builds the strategy chain in the order specified by §4.8.
func NewDefaultChain(overrides *OverrideTable, pkgConfig *PkgConfigStrategy, cmake *CMakeStrategy, system *SystemProbeStrategy) *Chain {
	strategies := []Strategy{overrides, pkgConfig}
	if runtime.GOOS == "darwin" {
		strategies = append(strategies, &FrameworkStrategy{})
	}
	strategies = append(strategies, cmake, system)
	return &Chain{Strategies: strategies}
}

// Resolve walks the chain. required=true and every strategy exhausted (or
// declining) yields a KindDependencyNotFound-class error to the caller;
// required=false yields a not-found holder (§4.8).
func (c *Chain) Resolve(ctx context.Context, req Request) (*graph.Dependency, error) {
	strategies := c.Strategies
	if req.Method != MethodAuto {
		strategies = filterMethod(strategies, req.Method)
	}
	for _, s := range strategies {
		dep, err := s.Resolve(ctx, req)
		if err == ErrStrategyNotApplicable {
			continue
		}
		if err != nil {
			return nil, xerrors.Errorf("%s: %w", s.Name(), err)
		}
		if dep != nil {
			return dep, nil
		}
	}
	if len(req.Fallback) == 2 && c.Subproject != nil {
		dep, err := c.Subproject(ctx, req.Fallback[0], req.Fallback[1])
		if err == nil && dep != nil {
			return dep, nil
		}
	}
	if req.Required {
		return nil, xerrors.Errorf("could not find %s", req.Name)
	}
	return graph.NotFound(req.Name), nil
}

func filterMethod(strategies []Strategy, m Method) []Strategy {
	var want string
	switch m {
	case MethodOverride:
		want = "override"
	case MethodPkgConfig:
		want = "pkg-config"
	case MethodExtraFramework:
		want = "extraframework"
	case MethodCMake:
		want = "cmake"
	case MethodSystem:
		want = "system"
	default:
		return strategies
	}
	var out []Strategy
	for _, s := range strategies {
		if s.Name() == want {
			out = append(out, s)
		}
	}
	return out
}

// OverrideTable implements the override strategy (§4.8 step 1):
// meson.override_dependency(name, dep) registrations checked first.
type OverrideTable struct {
	overrides map[string]*graph.Dependency
}

func NewOverrideTable() *OverrideTable { return &OverrideTable{overrides: map[string]*graph.Dependency{}} }

func (o *OverrideTable) Name() string { return "override" }

func (o *OverrideTable) Set(name string, dep *graph.Dependency) { o.overrides[name] = dep }

func (o *OverrideTable) Resolve(ctx context.Context, req Request) (*graph.Dependency, error) {
	if dep, ok := o.overrides[req.Name]; ok {
		return dep, nil
	}
	return nil, nil
}

// FrameworkStrategy implements the Apple-family framework search (§4.8
// step 3). It declines (ErrStrategyNotApplicable) on non-Darwin hosts.
type FrameworkStrategy struct {
	SearchDirs []string
}

func (f *FrameworkStrategy) Name() string { return "extraframework" }

func (f *FrameworkStrategy) Resolve(ctx context.Context, req Request) (*graph.Dependency, error) {
	if runtime.GOOS != "darwin" {
		return nil, ErrStrategyNotApplicable
	}
	dirs := f.SearchDirs
	if len(dirs) == 0 {
		dirs = []string{"/System/Library/Frameworks", "/Library/Frameworks"}
	}
	for _, d := range dirs {
		candidate := d + "/" + req.Name + ".framework"
		if pathExists(candidate) {
			return &graph.Dependency{
				Name:     req.Name,
				Found:    true,
				LinkArgs: []string{"-framework", req.Name},
			}, nil
		}
	}
	return nil, nil
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// versionSort returns candidates ordered oldest-to-newest by mbs's shared
// version comparator, mirroring distri's Glob1 "default to the most recent
// package revision" tie-break, generalized to arbitrary dependency version
// strings (§4.8).
func versionSort(candidates []string) []string {
	out := append([]string(nil), candidates...)
	sort.Slice(out, func(i, j int) bool {
		return mbs.Satisfies(out[i], []mbs.VersionConstraint{{Op: "<", Version: out[j]}})
	})
	return out
}

// matchesVersion reports whether candidate satisfies every constraint
// string in req.Version (parsed via mbs.ParseVersionConstraint).
func matchesVersion(candidate string, constraints []string) bool {
	var cs []mbs.VersionConstraint
	for _, c := range constraints {
		cs = append(cs, mbs.ParseVersionConstraint(c))
	}
	return mbs.Satisfies(candidate, cs)
}
