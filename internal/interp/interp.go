// Package interp implements the single-threaded tree-walking interpreter
// (§4.3): it evaluates a parsed project file against the option store,
// machine/compiler model, and dependency resolver, materializing a Build
// Object Graph incrementally in source order.
package interp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"

	"github.com/mbuild/mbs/internal/ast"
	"github.com/mbuild/mbs/internal/graph"
	"github.com/mbuild/mbs/internal/lexer"
	"github.com/mbuild/mbs/internal/machine"
	"github.com/mbuild/mbs/internal/options"
	"github.com/mbuild/mbs/internal/parser"
	"github.com/mbuild/mbs/internal/resolver"
	"github.com/mbuild/mbs/internal/trace"
	"github.com/mbuild/mbs/internal/value"
	"golang.org/x/xerrors"
)

// FileSystem is the narrow file-access seam the interpreter suspends on
// (§5 "reading files" is one of exactly three suspension-point kinds); tests
// inject an in-memory fake instead of touching a real source tree.
type FileSystem interface {
	ReadFile(p string) ([]byte, error)
	WriteFile(p string, data []byte) error
	Exists(p string) bool
}

// OSFileSystem is the default FileSystem, backed by the real filesystem.
type OSFileSystem struct{}

func (OSFileSystem) ReadFile(p string) ([]byte, error)       { return os.ReadFile(p) }
func (OSFileSystem) WriteFile(p string, data []byte) error   { return os.WriteFile(p, data, 0o644) }
func (OSFileSystem) Exists(p string) bool                    { _, err := os.Stat(p); return err == nil }

// summaryEntry is one summary() registration (§4.3.[EXPANDED] builtins),
// printed as a report at the end of a successful configuration run.
type summaryEntry struct {
	Section string
	Key     string
	Value   value.Value
}

// subprojectResult is what entering a subproject once produces, cached so a
// repeated subproject(...) call returns the same handle rather than
// re-evaluating (§4.6 "a subproject is evaluated at most once per
// configuration").
type subprojectResult struct {
	name  string
	scope *Scope
	err   error
}

// Interp is one configuration run's interpreter state: it owns the BOG
// under construction, the option store, both machine descriptors, the
// dependency resolver chain, and the current (sub)project's lexical scope.
type Interp struct {
	Log *log.Logger
	FS  FileSystem

	Options  *options.Store
	Build    *machine.Machine // build machine (native compilation host)
	Host     *machine.Machine // host machine (target of the build)
	Probes   *machine.ProbeCache
	Resolve  *resolver.Chain
	Overrides *resolver.OverrideTable

	BOG *graph.BOG

	SourceRoot string // absolute path to the top-level project directory

	scope          *Scope
	subprojectName string
	sourceDir      string // current subdir, relative to SourceRoot, set by subdir()
	languages      map[string]bool

	projectArgs     map[string][]string
	globalArgs      map[string][]string
	projectLinkArgs map[string][]string

	warnings  []string
	summaries []summaryEntry
	subprojects map[string]*subprojectResult

	loopDepth int
}

// New constructs an interpreter for the top-level project rooted at
// sourceRoot.
func New(sourceRoot string, opts *options.Store, build, host *machine.Machine, bog *graph.BOG) *Interp {
	overrides := resolver.NewOverrideTable()
	in := &Interp{
		Log:             log.Default(),
		FS:              OSFileSystem{},
		Options:         opts,
		Build:           build,
		Host:            host,
		Probes:          machine.NewProbeCache(),
		Overrides:       overrides,
		BOG:             bog,
		SourceRoot:      sourceRoot,
		scope:           NewScope(),
		languages:       map[string]bool{},
		projectArgs:     map[string][]string{},
		globalArgs:      map[string][]string{},
		projectLinkArgs: map[string][]string{},
		subprojects:     map[string]*subprojectResult{},
	}
	in.Resolve = resolver.NewDefaultChain(overrides, &resolver.PkgConfigStrategy{}, &resolver.CMakeStrategy{}, &resolver.SystemProbeStrategy{})
	in.Resolve.Subproject = in.resolveFallbackSubproject
	return in
}

// RunFile parses and evaluates one project file, the entry point for both
// the top-level project.mbs and each subdir()-entered file.
func (in *Interp) RunFile(relPath string) error {
	full := path.Join(in.SourceRoot, relPath)
	src, err := in.FS.ReadFile(full)
	if err != nil {
		return resourceErrorf(lexer.Position{File: full}, err, "reading %s", full)
	}
	ev := trace.Event("interp:"+relPath, 2)
	defer ev.Done()
	file, err := parser.Parse(full, string(src))
	if err != nil {
		return err
	}
	return in.execBlock(file.Statements)
}

var errBreak = errors.New("break")
var errContinue = errors.New("continue")

func (in *Interp) execBlock(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := in.execStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interp) execStmt(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.ExprStmt:
		_, err := in.eval(st.X)
		return err
	case *ast.AssignStmt:
		return in.execAssign(st)
	case *ast.IfStmt:
		return in.execIf(st)
	case *ast.ForeachStmt:
		return in.execForeach(st)
	case *ast.BreakStmt:
		if in.loopDepth == 0 {
			return valueErrorf(st.Pos(), "break used outside a loop")
		}
		return errBreak
	case *ast.ContinueStmt:
		if in.loopDepth == 0 {
			return valueErrorf(st.Pos(), "continue used outside a loop")
		}
		return errContinue
	}
	return internalErrorf(s.Pos(), "unhandled statement type %T", s)
}

func (in *Interp) execAssign(st *ast.AssignStmt) error {
	rhs, err := in.eval(st.Value)
	if err != nil {
		return err
	}
	if st.Op == "=" {
		in.scope.Set(st.Target, rhs)
		return nil
	}
	// "+=": integers add, strings/lists concatenate, dicts merge (right
	// wins), anything else is a type error (§4.3 Statements).
	lhs, ok := in.scope.Get(st.Target)
	if !ok {
		return nameErrorf(st.Pos(), "undefined variable %q in augmented assignment", st.Target)
	}
	merged, err := augmentedAssign(st.Pos(), lhs, rhs)
	if err != nil {
		return err
	}
	in.scope.Set(st.Target, merged)
	return nil
}

func augmentedAssign(pos lexer.Position, lhs, rhs value.Value) (value.Value, error) {
	if value.AnyDisabler(lhs, rhs) {
		return value.Disabler(), nil
	}
	if lhs.Kind != rhs.Kind {
		return value.Value{}, typeErrorf(pos, "+=: mismatched types %s and %s", lhs.Kind, rhs.Kind)
	}
	switch lhs.Kind {
	case value.KindInt:
		return value.Int(lhs.Int + rhs.Int), nil
	case value.KindStr:
		return value.Str(lhs.Str + rhs.Str), nil
	case value.KindArray:
		return value.Array(append(append([]value.Value{}, lhs.Array...), rhs.Array...)...), nil
	case value.KindDict:
		d := value.NewDict()
		d.Merge(lhs.Dict)
		d.Merge(rhs.Dict) // right wins, per §4.3
		return value.DictValue(d), nil
	}
	return value.Value{}, typeErrorf(pos, "+=: unsupported operand type %s", lhs.Kind)
}

func (in *Interp) execIf(st *ast.IfStmt) error {
	for _, br := range st.Branches {
		v, err := in.eval(br.Cond)
		if err != nil {
			return err
		}
		if v.IsDisabler() {
			continue // a disabler condition drops this branch silently (§8 scenario 3's absorption rule)
		}
		ok, err := v.Truthy()
		if err != nil {
			return typeErrorf(br.Cond.Pos(), "if/elif condition must be boolean: %v", err)
		}
		if ok {
			return in.execBlock(br.Body)
		}
	}
	return in.execBlock(st.Else)
}

func (in *Interp) execForeach(st *ast.ForeachStmt) error {
	iterable, err := in.eval(st.Iterable)
	if err != nil {
		return err
	}
	if iterable.IsDisabler() {
		return nil
	}
	in.loopDepth++
	defer func() { in.loopDepth-- }()

	switch iterable.Kind {
	case value.KindArray:
		if len(st.Vars) != 1 {
			return typeErrorf(st.Pos(), "foreach over a list binds exactly one variable, got %d", len(st.Vars))
		}
		for _, elem := range iterable.Array {
			in.scope.Set(st.Vars[0], elem)
			if err := in.execBlock(st.Body); err != nil {
				if err == errBreak {
					return nil
				}
				if err == errContinue {
					continue
				}
				return err
			}
		}
	case value.KindDict:
		if len(st.Vars) != 2 {
			return typeErrorf(st.Pos(), "foreach over a dict binds exactly two variables, got %d", len(st.Vars))
		}
		for _, k := range iterable.Dict.Keys() {
			v, _ := iterable.Dict.Get(k)
			in.scope.Set(st.Vars[0], value.Str(k))
			in.scope.Set(st.Vars[1], v)
			if err := in.execBlock(st.Body); err != nil {
				if err == errBreak {
					return nil
				}
				if err == errContinue {
					continue
				}
				return err
			}
		}
	default:
		return typeErrorf(st.Pos(), "foreach: expected list or dict, got %s", iterable.Kind)
	}
	return nil
}

// resolvePath joins a DSL-level source-relative path against the current
// subdir, §9's "file-path handling" guidance generalized to mbs's
// string-path representation (full root/build-tree modeling belongs to
// internal/backend; the interpreter only needs source-relative existence
// checks).
func (in *Interp) resolvePath(p string) string {
	return path.Join(in.sourceDir, p)
}

func (in *Interp) checkSourceExists(pos lexer.Position, relPath string) error {
	full := path.Join(in.SourceRoot, in.resolvePath(relPath))
	if !in.FS.Exists(full) {
		return resourceErrorf(pos, fmt.Errorf("not found"), "source file %q does not exist", relPath)
	}
	return nil
}

// resolveFallbackSubproject implements the resolver.Chain's Subproject
// callback (§4.8 step 6): enter the named subproject and surface the named
// variable as a *graph.Dependency.
func (in *Interp) resolveFallbackSubproject(ctx context.Context, subprojectName, variable string) (*graph.Dependency, error) {
	res, err := in.enterSubproject(subprojectName, nil)
	if err != nil {
		return nil, err
	}
	v, ok := res.scope.Get(variable)
	if !ok {
		return nil, xerrors.Errorf("subproject %q did not define variable %q", subprojectName, variable)
	}
	if v.Kind != value.KindHolder {
		return nil, xerrors.Errorf("subproject %q variable %q is not a dependency", subprojectName, variable)
	}
	dep, ok := v.Holder.(*graph.Dependency)
	if !ok {
		return nil, xerrors.Errorf("subproject %q variable %q is not a dependency", subprojectName, variable)
	}
	return dep, nil
}

// enterSubproject evaluates subprojects/<name>/project.mbs once, caching
// the result (§4.6).
func (in *Interp) enterSubproject(name string, defaultOptions map[string]string) (*subprojectResult, error) {
	if cached, ok := in.subprojects[name]; ok {
		return cached, cached.err
	}
	child := &Interp{
		Log: in.Log, FS: in.FS,
		Options: in.Options, Build: in.Build, Host: in.Host,
		Probes: in.Probes, Resolve: in.Resolve, Overrides: in.Overrides,
		BOG:             in.BOG,
		SourceRoot:      path.Join(in.SourceRoot, "subprojects", name),
		scope:           NewScope(),
		subprojectName:  name,
		languages:       map[string]bool{},
		projectArgs:     map[string][]string{},
		globalArgs:      in.globalArgs,
		projectLinkArgs: map[string][]string{},
		subprojects:     in.subprojects,
	}
	err := child.RunFile("project.mbs")
	res := &subprojectResult{name: name, scope: child.scope, err: err}
	in.subprojects[name] = res
	in.BOG.Subprojects = append(in.BOG.Subprojects, graph.SubprojectRecord{Name: name, ParentName: in.subprojectName})
	return res, err
}

// Warnings returns every warning() accumulated this run, printed at end of
// run per §7 "Non-fatal diagnostics... accumulate and are printed at end".
func (in *Interp) Warnings() []string { return in.warnings }

// Summaries returns every summary() registration accumulated this run, in
// section/key registration order, for the end-of-run summary report.
func (in *Interp) Summaries() []summaryEntry { return in.summaries }

// ProjectArgs returns the project-scoped, per-language compiler argument
// accumulator populated by add_project_arguments(), consumed by
// internal/backend when assembling a target's compile command line.
func (in *Interp) ProjectArgs() map[string][]string { return in.projectArgs }

// GlobalArgs returns the global, per-language compiler argument accumulator
// populated by add_global_arguments().
func (in *Interp) GlobalArgs() map[string][]string { return in.globalArgs }

// ProjectLinkArgs returns the project-scoped, per-language link argument
// accumulator populated by add_project_link_arguments().
func (in *Interp) ProjectLinkArgs() map[string][]string { return in.projectLinkArgs }
