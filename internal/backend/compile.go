package backend

import (
	"path"
	"strings"

	"github.com/mbuild/mbs/internal/graph"
	"github.com/mbuild/mbs/internal/options"
)

// languageForSource maps a source file's extension to the per-language
// argument bucket populated by add_project_arguments()/add_global_arguments
// (§4.3 "<lang>_args" kwargs, §4.7 "project/global/target-specific language
// args").
func languageForSource(src string) (string, bool) {
	switch {
	case strings.HasSuffix(src, ".c"):
		return "c", true
	case strings.HasSuffix(src, ".cc"), strings.HasSuffix(src, ".cpp"), strings.HasSuffix(src, ".cxx"):
		return "cpp", true
	case strings.HasSuffix(src, ".m"):
		return "objc", true
	case strings.HasSuffix(src, ".rs"):
		return "rust", true
	case strings.HasSuffix(src, ".java"):
		return "java", true
	}
	return "", false
}

func objectPath(t *graph.Target, src string) string {
	return path.Join(t.Name+".p", strings.ReplaceAll(src, "/", "_")+".o")
}

// compileArgsFor assembles one source's compile flag list: include flags,
// then project/global/target-specific language args in that order (later
// wins for overridable single-value flags; cumulative flags like -I or -D
// simply append, so order only matters for flags that conflict, e.g. -O0
// followed by -O2), then the optimization/PIC/sanitizer flags derived from
// the option set (§4.7).
func compileArgsFor(t *graph.Target, lang string, projectArgs, globalArgs map[string][]string, opts *options.Store) []string {
	var args []string
	for _, dir := range t.IncludeDirs {
		args = append(args, "-I"+dir)
	}
	for _, dep := range t.Dependencies {
		for _, dir := range dep.IncludeDirs {
			args = append(args, "-I"+dir)
		}
		args = append(args, dep.CompileArgs...)
	}
	args = append(args, projectArgs[lang]...)
	args = append(args, globalArgs[lang]...)
	args = append(args, t.CompileArgs[lang]...)

	if t.Kind == graph.SharedLibrary || t.Kind == graph.SharedModule {
		args = append(args, "-fPIC")
	}
	args = append(args, optimizationFlags(opts)...)
	args = append(args, sanitizerFlags(opts)...)
	return args
}

// optimizationFlags derives the debug/optimization flag from the buildtype
// option (§4.7 "debug/optimization flag from option set"), when the project
// declared one; an undeclared buildtype option silently contributes nothing,
// the same "absent option, no flag" behavior get_option() callers rely on.
func optimizationFlags(opts *options.Store) []string {
	opt, ok := opts.Get("buildtype")
	if !ok {
		return nil
	}
	switch opt.Current {
	case "release":
		return []string{"-O3", "-DNDEBUG"}
	case "debugoptimized":
		return []string{"-O2", "-g"}
	case "minsize":
		return []string{"-Os"}
	case "plain":
		return nil
	default: // "debug"
		return []string{"-g"}
	}
}

// sanitizerFlags reads the b_sanitize option (a comma-separated list, e.g.
// "address,undefined") into -fsanitize= flags.
func sanitizerFlags(opts *options.Store) []string {
	opt, ok := opts.Get("b_sanitize")
	if !ok || opt.Current == "" || opt.Current == "none" {
		return nil
	}
	return []string{"-fsanitize=" + opt.Current}
}

// compileStatements produces one Statement per compilable source in t,
// assigning each an object file in the target's private build subdir
// (§4.7, declaration order preserved per §4.7's determinism guarantee).
func compileStatements(t *graph.Target, projectArgs, globalArgs map[string][]string, opts *options.Store) ([]Statement, []string) {
	var stmts []Statement
	var objects []string
	for _, src := range t.Sources {
		lang, ok := languageForSource(src)
		if !ok {
			continue // header or resource file, not separately compiled
		}
		obj := objectPath(t, src)
		objects = append(objects, obj)
		args := compileArgsFor(t, lang, projectArgs, globalArgs, opts)
		cmd := append([]string{compilerFor(lang)}, args...)
		cmd = append(cmd, "-c", src, "-o", obj)
		stmt := Statement{
			Rule:        "compile",
			Outputs:     []string{obj},
			Inputs:      []string{src},
			Command:     cmd,
			Depfile:     obj + ".d",
			Description: "compile " + src,
		}
		stmts = append(stmts, withRspFileFallback(stmt, obj+".rsp"))
	}
	return stmts, objects
}

// rspFileThreshold is the command-line length above which a statement's
// command is rewritten to read its trailing arguments from a response file
// instead (§4.7 "systems with command-length limits"), the same fallback
// ninja's own generators fall back to via rspfile/rspfile_content rule
// variables. 8192 matches the tighter end of the common platform ARG_MAX
// values this is meant to stay clear of.
const rspFileThreshold = 8192

// withRspFileFallback rewrites st to "<program> @<rspFile>" with every
// other command word moved into RspFileContent once the command line would
// exceed rspFileThreshold; short commands are returned unchanged.
func withRspFileFallback(st Statement, rspFile string) Statement {
	if len(st.Command) < 2 {
		return st
	}
	total := 0
	for _, w := range st.Command {
		total += len(w) + 1
	}
	if total <= rspFileThreshold {
		return st
	}
	st.RspFile = rspFile
	st.RspFileContent = append([]string{}, st.Command[1:]...)
	st.Command = []string{st.Command[0], "@" + rspFile}
	return st
}

func compilerFor(lang string) string {
	switch lang {
	case "cpp":
		return "${CXX}"
	case "rust":
		return "${RUSTC}"
	case "java":
		return "${JAVAC}"
	default:
		return "${CC}"
	}
}
