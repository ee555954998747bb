// Package machine implements the cross-/native-machine model and compiler
// discovery (§4.5): build machine, host machine, per-language toolchain
// probing with a fixed candidate table, and the toolchain descriptor file
// parser used for --cross-file/--native-file (§6).
package machine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/mbuild/mbs/internal/graph"
	"github.com/mbuild/mbs/internal/value"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// Kind distinguishes which of the two machine roles (§3) a Machine plays.
type Kind int

const (
	Build Kind = iota
	Host
)

func (k Kind) String() string {
	if k == Build {
		return "build"
	}
	return "host"
}

// Machine is one of the two machine descriptors the pipeline threads
// through (§3 Environment / Machine): OS family, CPU family, endianness,
// kernel tag, and the per-language compiler table discovered on demand.
type Machine struct {
	Kind       Kind
	System     string // OS family, e.g. "linux"
	CPUFamily  string
	CPU        string // specific CPU model/variant; defaults to CPUFamily
	Endian     string // "little" or "big"
	KernelTag  string

	mu        sync.Mutex
	compilers map[string]*Compiler // language -> discovered compiler
}

// New constructs a Machine with the given static descriptor fields.
func New(kind Kind, system, cpuFamily, endian string) *Machine {
	return &Machine{
		Kind:      kind,
		System:    system,
		CPUFamily: cpuFamily,
		CPU:       cpuFamily,
		Endian:    endian,
		compilers: map[string]*Compiler{},
	}
}

// Compiler is the capability interface surfaced to the interpreter as a
// `compiler` holder (§4.5): identity plus the probe operations the DSL's
// compiler.* methods call.
type Compiler struct {
	Lang         string
	ID           string // compiler family id, e.g. "gcc", "clang"
	Version      string
	Path         string
	DefaultFlags []string
	Linker       string

	probe ProbeRunner
}

func (c *Compiler) TypeName() string { return "compiler" }

func (c *Compiler) Method(name string) (value.Method, bool) {
	switch name {
	case "version":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			return value.Str(c.Version), nil
		}}, true
	case "get_define":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			if len(args) != 1 {
				return value.Value{}, xerrors.New("get_define(): expected one argument")
			}
			def, err := c.probe.GetDefine(context.Background(), args[0].Str)
			if err != nil {
				return value.Value{}, err
			}
			return value.Str(def), nil
		}}, true
	case "has_header":
		return value.Method{Name: name, Fn: c.boolProbe(func(ctx context.Context, a string) (bool, error) {
			return c.probe.HasHeader(ctx, a)
		})}, true
	case "has_function":
		return value.Method{Name: name, Fn: c.boolProbe(func(ctx context.Context, a string) (bool, error) {
			return c.probe.HasFunction(ctx, a, "")
		})}, true
	case "compiles":
		return value.Method{Name: name, Fn: c.boolProbe(func(ctx context.Context, a string) (bool, error) {
			return c.probe.Compiles(ctx, a)
		})}, true
	case "links":
		return value.Method{Name: name, Fn: c.boolProbe(func(ctx context.Context, a string) (bool, error) {
			return c.probe.Links(ctx, a)
		})}, true
	case "sizeof":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			n, err := c.probe.Sizeof(context.Background(), args[0].Str)
			if err != nil {
				return value.Value{}, err
			}
			return value.Int(int64(n)), nil
		}}, true
	case "alignment":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			n, err := c.probe.Alignment(context.Background(), args[0].Str)
			if err != nil {
				return value.Value{}, err
			}
			return value.Int(int64(n)), nil
		}}, true
	case "run":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			res, err := c.probe.Run(context.Background(), args[0].Str)
			if err != nil {
				return value.Value{}, err
			}
			d := value.NewDict()
			d.Set("returncode", value.Int(int64(res.ExitCode)))
			d.Set("stdout", value.Str(res.Stdout))
			return value.DictValue(d), nil
		}}, true
	case "find_library":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			if len(args) < 1 || args[0].Kind != value.KindStr {
				return value.Value{}, xerrors.New("find_library(): expected a name string as the first argument")
			}
			var dirs []string
			if v, ok := kwargs["dirs"]; ok && v.Kind == value.KindArray {
				for _, e := range v.Array {
					dirs = append(dirs, e.Str)
				}
			}
			static := false
			if v, ok := kwargs["static"]; ok && v.Kind == value.KindBool {
				static = v.Bool
			}
			required := true
			if v, ok := kwargs["required"]; ok && v.Kind == value.KindBool {
				required = v.Bool
			}
			dep, found := findLibrary(args[0].Str, dirs, static)
			if !found {
				if required {
					return value.Value{}, xerrors.Errorf("find_library(): could not find library %q", args[0].Str)
				}
				return value.HolderValue(graph.NotFound(args[0].Str)), nil
			}
			return value.HolderValue(dep), nil
		}}, true
	}
	return value.Method{}, false
}

func (c *Compiler) boolProbe(fn func(ctx context.Context, a string) (bool, error)) func([]value.Value, map[string]value.Value) (value.Value, error) {
	return func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		if len(args) != 1 || args[0].Kind != value.KindStr {
			return value.Value{}, xerrors.New("expected one string argument")
		}
		ok, err := fn(context.Background(), args[0].Str)
		if err != nil {
			return value.Value{}, err
		}
		return value.Bool(ok), nil
	}
}

// defaultLibraryDirs is the fixed search path for compiler.find_library()
// (§4.6), tried in order; extraDirs from the `dirs:` keyword argument are
// searched first since they are the caller's explicit override.
func defaultLibraryDirs() []string {
	dirs := []string{"/usr/local/lib", "/usr/lib"}
	if runtime.GOARCH == "amd64" && runtime.GOOS == "linux" {
		dirs = append([]string{"/usr/lib/x86_64-linux-gnu"}, dirs...)
	}
	return dirs
}

func librarySuffix() string {
	// mbs core never executes the link step itself (§1 Non-goals); this
	// suffix only needs to match well enough for the probe's existence
	// check, so a single cross-platform default is acceptable here.
	if runtime.GOOS == "darwin" {
		return ".dylib"
	}
	return ".so"
}

// findLibrary searches extraDirs then defaultLibraryDirs() for libname.so
// (or libname.a when static is requested), returning the dependency a
// successful compiler.find_library() call produces: -L<dir> -l<name> link
// arguments, matching how internal/resolver's SystemProbeStrategy links a
// found system library.
func findLibrary(name string, extraDirs []string, static bool) (*graph.Dependency, bool) {
	libName := "lib" + name
	if static {
		libName += ".a"
	} else {
		libName += librarySuffix()
	}
	for _, d := range append(append([]string{}, extraDirs...), defaultLibraryDirs()...) {
		if _, err := os.Stat(filepath.Join(d, libName)); err == nil {
			return &graph.Dependency{
				Name:     name,
				Found:    true,
				LinkArgs: []string{"-L" + d, "-l" + name},
			}, true
		}
	}
	return nil, false
}

// RunResult is the outcome of a compile-and-run probe.
type RunResult struct {
	ExitCode int
	Stdout   string
}

// ProbeRunner is the per-compiler-instance set of probe operations (§4.5).
// Implementations spawn a subprocess per probe, each a suspension point
// (§5), and results are cached by the caller keyed on (compiler id,
// snippet hash, flag set).
type ProbeRunner interface {
	HasHeader(ctx context.Context, name string) (bool, error)
	HasFunction(ctx context.Context, name, prefix string) (bool, error)
	Compiles(ctx context.Context, snippet string) (bool, error)
	Links(ctx context.Context, snippet string) (bool, error)
	Sizeof(ctx context.Context, typ string) (int, error)
	Alignment(ctx context.Context, typ string) (int, error)
	GetDefine(ctx context.Context, name string) (string, error)
	Run(ctx context.Context, snippet string) (RunResult, error)
}

// ProbeStrategy is one candidate compiler for a language: executable name
// table, env var override name, and the probe command builders.
type ProbeStrategy struct {
	Lang        string
	Candidates  []string // candidate executable basenames, in probe order
	EnvVar      string   // e.g. "CC"
	VersionArgs []string
	ParseVersion func(output string) (id, version string, err error)
}

// DefaultProbeTable is the fixed per-language candidate table (§4.5): "a
// fixed table: candidate executable names, env var overrides, probes".
var DefaultProbeTable = map[string]ProbeStrategy{
	"c": {
		Lang:        "c",
		Candidates:  []string{"cc", "gcc", "clang"},
		EnvVar:      "CC",
		VersionArgs: []string{"--version"},
	},
	"cpp": {
		Lang:        "cpp",
		Candidates:  []string{"c++", "g++", "clang++"},
		EnvVar:      "CXX",
		VersionArgs: []string{"--version"},
	},
	"fortran": {
		Lang:        "fortran",
		Candidates:  []string{"gfortran"},
		EnvVar:      "FC",
		VersionArgs: []string{"--version"},
	},
	"rust": {
		Lang:        "rust",
		Candidates:  []string{"rustc"},
		EnvVar:      "RUSTC",
		VersionArgs: []string{"--version"},
	},
}

// cacheKey derives the (compiler-id, snippet-hash, flag-set) cache key
// (§4.5).
func cacheKey(compilerID, snippet string, flags []string) string {
	h := sha256.New()
	h.Write([]byte(compilerID))
	h.Write([]byte{0})
	h.Write([]byte(snippet))
	for _, f := range flags {
		h.Write([]byte{0})
		h.Write([]byte(f))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ProbeCache caches probe results across the duration of a run and across
// reconfigurations when inputs are unchanged (§4.5).
type ProbeCache struct {
	mu      sync.Mutex
	entries map[string]bool
}

func NewProbeCache() *ProbeCache { return &ProbeCache{entries: map[string]bool{}} }

func (c *ProbeCache) Lookup(compilerID, snippet string, flags []string) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[cacheKey(compilerID, snippet, flags)]
	return v, ok
}

func (c *ProbeCache) Store(compilerID, snippet string, flags []string, result bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(compilerID, snippet, flags)] = result
}

// Entries snapshots the cache for persistence (§4.9 "probe-cache entries").
func (c *ProbeCache) Entries() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]bool, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// LoadEntries restores a previously persisted cache, replacing the current
// contents.
func (c *ProbeCache) LoadEntries(entries map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]bool, len(entries))
	for k, v := range entries {
		c.entries[k] = v
	}
}

// DiscoverAll probes every candidate for lang concurrently via
// errgroup.WithContext, grounded directly on internal/batch/batch.go's
// bounded worker fan-out: each candidate is checked with `--version` in
// its own goroutine, and the first one (in table order) that succeeds wins.
// This concurrency lives entirely inside the one suspension point the
// interpreter awaits for compiler discovery (§4.5, §5).
func DiscoverAll(ctx context.Context, strategy ProbeStrategy, lookPath func(string) (string, error)) (*Compiler, error) {
	type found struct {
		idx  int
		path string
		out  string
	}
	results := make([]*found, len(strategy.Candidates))
	eg, ctx := errgroup.WithContext(ctx)
	for i, name := range strategy.Candidates {
		i, name := i, name
		eg.Go(func() error {
			path, err := lookPath(name)
			if err != nil {
				return nil // not found is not fatal; just skip this candidate
			}
			out, err := runVersionProbe(ctx, path, strategy.VersionArgs)
			if err != nil {
				return nil
			}
			results[i] = &found{idx: i, path: path, out: out}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, xerrors.Errorf("probing %s compilers: %w", strategy.Lang, err)
	}
	for _, r := range results {
		if r == nil {
			continue
		}
		id, version := guessIDVersion(r.out)
		return &Compiler{Lang: strategy.Lang, ID: id, Version: version, Path: r.path}, nil
	}
	return nil, xerrors.Errorf("no %s compiler found among candidates %v", strategy.Lang, strategy.Candidates)
}

func runVersionProbe(ctx context.Context, path string, args []string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	cmd := exec.CommandContext(cctx, path, args...)
	var buf bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &buf, limit: 16 << 20}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Run(); err != nil {
		return "", xerrors.Errorf("%s %v: %w", path, args, err)
	}
	return buf.String(), nil
}

// limitedWriter caps captured probe output at 16 MiB per probe (§5),
// truncating silently past the cap (callers only use probe output for
// identification, never as build output).
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	remaining := l.limit - l.w.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		l.w.Write(p[:remaining])
		return len(p), nil
	}
	l.w.Write(p)
	return len(p), nil
}

func guessIDVersion(versionOutput string) (id, version string) {
	switch {
	case bytes.Contains([]byte(versionOutput), []byte("clang")):
		id = "clang"
	case bytes.Contains([]byte(versionOutput), []byte("gcc")), bytes.Contains([]byte(versionOutput), []byte("GCC")):
		id = "gcc"
	default:
		id = "unknown"
	}
	// First line typically carries the version; kept simple and exact-enough
	// for cache-key and diagnostic purposes.
	var firstLine string
	for i, c := range versionOutput {
		if c == '\n' {
			firstLine = versionOutput[:i]
			break
		}
	}
	if firstLine == "" {
		firstLine = versionOutput
	}
	version = firstLine
	return id, version
}

// MachineInfoHolder exposes a Machine's static descriptor fields as the
// `machine-info` holder (§4.3.[EXPANDED]).
type MachineInfoHolder struct {
	M *Machine
}

func (h *MachineInfoHolder) TypeName() string { return "machine-info" }

func (h *MachineInfoHolder) Method(name string) (value.Method, bool) {
	str := func(s string) func([]value.Value, map[string]value.Value) (value.Value, error) {
		return func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			return value.Str(s), nil
		}
	}
	switch name {
	case "system":
		return value.Method{Name: name, Fn: str(h.M.System)}, true
	case "cpu_family":
		return value.Method{Name: name, Fn: str(h.M.CPUFamily)}, true
	case "cpu":
		return value.Method{Name: name, Fn: str(h.M.CPU)}, true
	case "endian":
		return value.Method{Name: name, Fn: str(h.M.Endian)}, true
	}
	return value.Method{}, false
}

// GetCompiler returns the cached compiler for lang, if discovery already
// happened this run.
func (m *Machine) GetCompiler(lang string) (*Compiler, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.compilers[lang]
	return c, ok
}

// SetCompiler caches a discovered compiler for lang, called once per
// (machine, lang) pair per the "first mention triggers discovery, cached
// for the rest of the run" lifecycle rule (§3 Lifecycle).
func (m *Machine) SetCompiler(lang string, c *Compiler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compilers[lang] = c
}
