package backend

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mbuild/mbs/internal/graph"
	"github.com/mbuild/mbs/internal/options"
)

func newOpts() *options.Store {
	s := options.New()
	s.Declare(options.Declaration{Name: "buildtype", Kind: options.KindChoice, Default: "debug", Choices: []string{"debug", "release", "plain"}})
	return s
}

func TestLowerExecutableLinkingLibrary(t *testing.T) {
	bog := graph.NewBOG("demo", "1.0")
	lib := &graph.Target{
		Identity: graph.Identity{Name: "mylib"},
		Kind:     graph.StaticLibrary,
		Sources:  []string{"lib.c"},
	}
	exe := &graph.Target{
		Identity: graph.Identity{Name: "myexe"},
		Kind:     graph.Executable,
		Sources:  []string{"main.c"},
		LinkWith: []*graph.Target{lib},
	}
	if err := bog.AddTarget(lib); err != nil {
		t.Fatalf("AddTarget(lib): %v", err)
	}
	if err := bog.AddTarget(exe); err != nil {
		t.Fatalf("AddTarget(exe): %v", err)
	}
	if err := bog.AddLinkEdge(exe, lib); err != nil {
		t.Fatalf("AddLinkEdge: %v", err)
	}

	plan, err := Lower(bog, newOpts(), nil, nil)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}

	var sawCompileLib, sawCompileExe, sawArchive, sawLink bool
	for _, st := range plan.Statements {
		switch st.Rule {
		case "compile":
			if len(st.Inputs) == 1 && st.Inputs[0] == "lib.c" {
				sawCompileLib = true
			}
			if len(st.Inputs) == 1 && st.Inputs[0] == "main.c" {
				sawCompileExe = true
			}
		case "archive":
			sawArchive = true
			if len(st.Outputs) != 1 || st.Outputs[0] != "libmylib.a" {
				t.Fatalf("archive output = %v", st.Outputs)
			}
		case "link":
			sawLink = true
			joined := strings.Join(st.Command, " ")
			if !strings.Contains(joined, "-lmylib") {
				t.Fatalf("link command missing -lmylib: %v", st.Command)
			}
		}
	}
	if !sawCompileLib || !sawCompileExe || !sawArchive || !sawLink {
		t.Fatalf("missing expected statement kinds: %+v", plan.Statements)
	}
}

func TestCompileArgsOrderingAndPIC(t *testing.T) {
	t0 := &graph.Target{
		Identity:    graph.Identity{Name: "mod"},
		Kind:        graph.SharedLibrary,
		Sources:     []string{"a.c"},
		CompileArgs: map[string][]string{"c": {"-Wtarget"}},
	}
	project := map[string][]string{"c": {"-Wproject"}}
	global := map[string][]string{"c": {"-Wglobal"}}
	args := compileArgsFor(t0, "c", project, global, newOpts())
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-Wproject") || !strings.Contains(joined, "-Wglobal") || !strings.Contains(joined, "-Wtarget") {
		t.Fatalf("args missing expected flags: %v", args)
	}
	pi := strings.Index(joined, "-Wproject")
	gi := strings.Index(joined, "-Wglobal")
	ti := strings.Index(joined, "-Wtarget")
	if !(pi < gi && gi < ti) {
		t.Fatalf("expected project < global < target ordering, got %v", args)
	}
	if !strings.Contains(joined, "-fPIC") {
		t.Fatalf("expected -fPIC for a shared library, got %v", args)
	}
}

func TestLinkClosureDedupesFirstOccurrence(t *testing.T) {
	base := &graph.Target{Identity: graph.Identity{Name: "base"}, Kind: graph.StaticLibrary}
	mid1 := &graph.Target{Identity: graph.Identity{Name: "mid1"}, Kind: graph.StaticLibrary, LinkWith: []*graph.Target{base}}
	mid2 := &graph.Target{Identity: graph.Identity{Name: "mid2"}, Kind: graph.StaticLibrary, LinkWith: []*graph.Target{base}}
	top := &graph.Target{Identity: graph.Identity{Name: "top"}, Kind: graph.Executable, LinkWith: []*graph.Target{mid1, mid2}}

	closure := linkClosure(top)
	var names []string
	for _, t := range closure {
		names = append(names, t.Name)
	}
	if len(names) != 3 {
		t.Fatalf("expected base deduped to a single occurrence, got %v", names)
	}
	if names[0] != "mid1" || names[1] != "base" || names[2] != "mid2" {
		t.Fatalf("expected DFS-preorder first-seen ordering, got %v", names)
	}
}

func TestCustomCommandStatement(t *testing.T) {
	c := &graph.CustomCommand{
		Identity: graph.Identity{Name: "gen"},
		Inputs:   []string{"in.txt"},
		Outputs:  []string{"out.txt"},
		Command:  []string{"cp", "@INPUT@", "@OUTPUT@"},
	}
	st, err := customCommandStatement(c)
	if err != nil {
		t.Fatalf("customCommandStatement: %v", err)
	}
	if got := strings.Join(st.Command, " "); got != "cp in.txt out.txt" {
		t.Fatalf("command = %q", got)
	}
}

func TestGeneratedListStatementsOnePerInput(t *testing.T) {
	gen := &graph.Generator{Program: "protoc", Output: "@BASENAME@.pb.go", Arguments: []string{"@INPUT@", "-o", "@OUTPUT@"}}
	list := &graph.GeneratedList{Generator: gen, Inputs: []string{"a.proto", "b.proto"}}
	stmts := generatedListStatements(list)
	if len(stmts) != 2 {
		t.Fatalf("expected one statement per input, got %d", len(stmts))
	}
	if stmts[0].Outputs[0] != "a.pb.go" || stmts[1].Outputs[0] != "b.pb.go" {
		t.Fatalf("unexpected outputs: %v %v", stmts[0].Outputs, stmts[1].Outputs)
	}
}

func TestWriteBuildFileDeterministic(t *testing.T) {
	plan := &Plan{
		ProjectName: "demo",
		Statements: []Statement{
			{Rule: "compile", Outputs: []string{"a.o"}, Inputs: []string{"a.c"}, Command: []string{"${CC}", "-c", "a.c", "-o", "a.o"}},
		},
	}
	var buf1, buf2 bytes.Buffer
	if err := WriteBuildFile(&buf1, plan); err != nil {
		t.Fatalf("WriteBuildFile: %v", err)
	}
	if err := WriteBuildFile(&buf2, plan); err != nil {
		t.Fatalf("WriteBuildFile: %v", err)
	}
	if buf1.String() != buf2.String() {
		t.Fatalf("expected byte-identical output across runs")
	}
	if !strings.Contains(buf1.String(), "build a.o: compile a.c") {
		t.Fatalf("missing expected build statement: %s", buf1.String())
	}
}

func TestWriteInstallManifest(t *testing.T) {
	plan := &Plan{Installs: []graph.InstallEntry{
		{Source: "myexe", Destination: "bin", Mode: 0o755, Strip: true},
	}}
	var buf bytes.Buffer
	if err := WriteInstallManifest(&buf, plan); err != nil {
		t.Fatalf("WriteInstallManifest: %v", err)
	}
	if !strings.Contains(buf.String(), "myexe\tbin\t0755\ts") {
		t.Fatalf("unexpected manifest line: %s", buf.String())
	}
}

func TestLowerEmitsInstallRPathRewriteForLinkedExecutable(t *testing.T) {
	bog := graph.NewBOG("demo", "1.0")
	lib := &graph.Target{
		Identity: graph.Identity{Name: "mylib"},
		Kind:     graph.SharedLibrary,
		Sources:  []string{"lib.c"},
	}
	exe := &graph.Target{
		Identity:   graph.Identity{Name: "myexe"},
		Kind:       graph.Executable,
		Sources:    []string{"main.c"},
		LinkWith:   []*graph.Target{lib},
		Install:    true,
		InstallDir: "bin",
	}
	if err := bog.AddTarget(lib); err != nil {
		t.Fatalf("AddTarget(lib): %v", err)
	}
	if err := bog.AddTarget(exe); err != nil {
		t.Fatalf("AddTarget(exe): %v", err)
	}
	if err := bog.AddLinkEdge(exe, lib); err != nil {
		t.Fatalf("AddLinkEdge: %v", err)
	}

	plan, err := Lower(bog, newOpts(), nil, nil)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}

	var sawRewrite bool
	for _, st := range plan.Statements {
		if st.Rule == "phony" && strings.HasSuffix(st.Outputs[0], ".rpath-rewrite") {
			sawRewrite = true
			if st.Inputs[0] != "bin/myexe" {
				t.Fatalf("rpath-rewrite input = %v, want bin/myexe", st.Inputs)
			}
		}
	}
	if !sawRewrite {
		t.Fatalf("expected an install-rpath-rewrite statement for installed myexe, got %+v", plan.Statements)
	}
}

func TestLowerOmitsInstallRPathRewriteWithoutLinkClosure(t *testing.T) {
	bog := graph.NewBOG("demo", "1.0")
	exe := &graph.Target{
		Identity:   graph.Identity{Name: "myexe"},
		Kind:       graph.Executable,
		Sources:    []string{"main.c"},
		Install:    true,
		InstallDir: "bin",
	}
	if err := bog.AddTarget(exe); err != nil {
		t.Fatalf("AddTarget(exe): %v", err)
	}

	plan, err := Lower(bog, newOpts(), nil, nil)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	for _, st := range plan.Statements {
		if st.Rule == "phony" {
			t.Fatalf("unexpected rpath-rewrite statement for target with no link closure: %+v", st)
		}
	}
}

func TestWithRspFileFallbackRewritesLongCommand(t *testing.T) {
	cmd := []string{"${CC}", "-o", "out"}
	for i := 0; i < 2000; i++ {
		cmd = append(cmd, "-Dfoo=bar")
	}
	stmt := Statement{Rule: "link", Outputs: []string{"out"}, Command: cmd}
	got := withRspFileFallback(stmt, "out.rsp")
	if got.RspFile != "out.rsp" {
		t.Fatalf("RspFile = %q, want out.rsp", got.RspFile)
	}
	if len(got.Command) != 2 || got.Command[0] != "${CC}" || got.Command[1] != "@out.rsp" {
		t.Fatalf("Command = %v, want [${CC} @out.rsp]", got.Command)
	}
	if len(got.RspFileContent) != len(cmd)-1 {
		t.Fatalf("RspFileContent has %d words, want %d", len(got.RspFileContent), len(cmd)-1)
	}
}

func TestWithRspFileFallbackLeavesShortCommandAlone(t *testing.T) {
	stmt := Statement{Rule: "compile", Outputs: []string{"a.o"}, Command: []string{"${CC}", "-c", "a.c", "-o", "a.o"}}
	got := withRspFileFallback(stmt, "a.o.rsp")
	if got.RspFile != "" {
		t.Fatalf("expected no rspfile fallback for short command, got %q", got.RspFile)
	}
	if len(got.Command) != len(stmt.Command) {
		t.Fatalf("Command was modified: %v", got.Command)
	}
}

func TestWriteBuildFileEmitsRspFileLines(t *testing.T) {
	plan := &Plan{
		Statements: []Statement{
			{Rule: "link", Outputs: []string{"out"}, Command: []string{"${CC}", "@out.rsp"},
				RspFile: "out.rsp", RspFileContent: []string{"-o", "out", "a.o", "b.o"}},
		},
	}
	var buf bytes.Buffer
	if err := WriteBuildFile(&buf, plan); err != nil {
		t.Fatalf("WriteBuildFile: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "rspfile = out.rsp") {
		t.Fatalf("missing rspfile line: %s", out)
	}
	if !strings.Contains(out, "rspfile_content = -o out a.o b.o") {
		t.Fatalf("missing rspfile_content line: %s", out)
	}
}

func TestBuildSnapshotIncludesOptionsAndTargets(t *testing.T) {
	bog := graph.NewBOG("demo", "1.0")
	exe := &graph.Target{Identity: graph.Identity{Name: "myexe"}, Kind: graph.Executable, Sources: []string{"main.c"}}
	if err := bog.AddTarget(exe); err != nil {
		t.Fatalf("AddTarget: %v", err)
	}
	opts := newOpts()
	plan, err := Lower(bog, opts, nil, nil)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	snap := BuildSnapshot(plan, opts, bog)
	if len(snap.Targets) != 1 || snap.Targets[0].Name != "myexe" {
		t.Fatalf("targets = %+v", snap.Targets)
	}
	found := false
	for _, o := range snap.Options {
		if o.Name == "buildtype" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected buildtype option in snapshot, got %+v", snap.Options)
	}
}
