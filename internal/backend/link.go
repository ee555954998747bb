package backend

import (
	"path"

	"github.com/mbuild/mbs/internal/graph"
)

// linkClosure walks t's link-with edges in DFS preorder, deduplicating on
// first occurrence (§4.7 "recursive link-with closure deduped while
// preserving first occurrence").
func linkClosure(t *graph.Target) []*graph.Target {
	seen := map[*graph.Target]bool{}
	var order []*graph.Target
	var visit func(*graph.Target)
	visit = func(tt *graph.Target) {
		if seen[tt] {
			return
		}
		seen[tt] = true
		order = append(order, tt)
		for _, dep := range tt.LinkWith {
			visit(dep)
		}
	}
	for _, dep := range t.LinkWith {
		visit(dep)
	}
	return order
}

func outputPathFor(t *graph.Target) string {
	switch t.Kind {
	case graph.SharedLibrary, graph.SharedModule:
		return "lib" + t.Name + ".so"
	case graph.StaticLibrary:
		return "lib" + t.Name + ".a"
	case graph.Jar:
		return t.Name + ".jar"
	default:
		return t.Name
	}
}

// linkStatement assembles the single link command for t, given the object
// files produced by its own compile statements and the already-computed
// object lists of every other target (needed to expand link_whole closures
// into per-object inclusion rather than a library reference, §4.7).
func linkStatement(t *graph.Target, ownObjects []string, targetObjects map[*graph.Target][]string) Statement {
	out := outputPathFor(t)
	var inputs []string
	inputs = append(inputs, ownObjects...)

	var cmd []string
	cmd = append(cmd, linkerFor(t), "-o", out)
	cmd = append(cmd, ownObjects...)

	for _, whole := range t.LinkWhole {
		objs := targetObjects[whole]
		inputs = append(inputs, objs...)
		cmd = append(cmd, objs...)
	}

	closure := linkClosure(t)
	for _, dep := range closure {
		libPath := path.Join("..", dep.Name, outputPathFor(dep))
		inputs = append(inputs, libPath)
		cmd = append(cmd, "-L"+path.Dir(libPath), "-l"+dep.Name)
	}
	for _, dep := range t.Dependencies {
		cmd = append(cmd, dep.LinkArgs...)
	}
	cmd = append(cmd, t.LinkArgs...)

	if len(closure) > 0 {
		// rpath fragment for in-build-tree testing, so a test executable can
		// find its just-built shared libraries without an install step
		// (§4.7 "rpath fragments for in-build-tree testing").
		cmd = append(cmd, "-Wl,-rpath,$ORIGIN/../lib")
	}

	rule := "link"
	if t.Kind == graph.StaticLibrary {
		rule = "archive"
		cmd = append([]string{"${AR}", "rcs", out}, ownObjects...)
		for _, whole := range t.LinkWhole {
			cmd = append(cmd, targetObjects[whole]...)
		}
	}

	stmt := Statement{
		Rule:        rule,
		Outputs:     []string{out},
		Inputs:      inputs,
		Command:     cmd,
		Description: rule + " " + t.Name,
	}
	return withRspFileFallback(stmt, out+".rsp")
}

func linkerFor(t *graph.Target) string {
	for lang := range t.CompileArgs {
		if lang == "cpp" {
			return "${CXX}"
		}
	}
	return "${CC}"
}

// installRPathRewrite records the post-install rpath-rewrite hook for a
// target with a nonempty link closure, per §4.7 "install-time rpath
// rewriting hooks recorded as post-install actions" — the rewrite itself is
// the downstream installer runtime's job (§1 Non-goal); mbs only records
// that one is needed and against which installed path.
func installRPathRewrite(t *graph.Target, installDest string) (Statement, bool) {
	if len(linkClosure(t)) == 0 {
		return Statement{}, false
	}
	return Statement{
		Rule:        "phony",
		Outputs:     []string{installDest + ".rpath-rewrite"},
		Inputs:      []string{installDest},
		Description: "post-install rpath rewrite for " + t.Name,
	}, true
}
