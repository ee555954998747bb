package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mbuild/mbs/internal/backend"
	"github.com/mbuild/mbs/internal/state"
)

// setupConfiguredBuildDir writes a minimal persisted CoreData directly,
// bypassing the interpreter/lowering pipeline, so the verbs that only read
// back persisted state (compile, install, test, introspect, dist) can be
// exercised in isolation.
func setupConfiguredBuildDir(t *testing.T, srcDir, buildDir string) *state.CoreData {
	t.Helper()
	projectFile := filepath.Join(srcDir, "project.mbs")
	if err := os.WriteFile(projectFile, []byte("executable('demo', 'main.c')\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	hashes, err := state.HashFiles([]string{projectFile})
	if err != nil {
		t.Fatalf("HashFiles: %v", err)
	}

	sd, err := state.Open(buildDir)
	if err != nil {
		t.Fatalf("state.Open: %v", err)
	}
	cd := &state.CoreData{
		Options: []state.OptionValue{
			{Name: "prefix", Current: "/usr/local", Source: 0},
		},
		InputHashes: hashes,
		Snapshot: &backend.Snapshot{
			ProjectName:    "demo",
			ProjectVersion: "0.1.0",
			Targets: []backend.TargetIntrospection{
				{Name: "demo", Type: "executable", Sources: []string{"main.c"}},
			},
			Tests: []backend.TestSnapshot{
				{Name: "demo-test", Target: "demo", Args: nil},
			},
		},
	}
	if err := sd.Save(cd); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sd.Path, "srcdir"), []byte(srcDir), 0o644); err != nil {
		t.Fatalf("writing srcdir marker: %v", err)
	}
	return cd
}

func TestCmdCompileListsTargets(t *testing.T) {
	srcDir := t.TempDir()
	buildDir := t.TempDir()
	setupConfiguredBuildDir(t, srcDir, buildDir)

	if err := cmdCompile(context.Background(), []string{buildDir}); err != nil {
		t.Fatalf("cmdCompile: %v", err)
	}
}

func TestCmdCompileUnknownTarget(t *testing.T) {
	srcDir := t.TempDir()
	buildDir := t.TempDir()
	setupConfiguredBuildDir(t, srcDir, buildDir)

	if err := cmdCompile(context.Background(), []string{buildDir, "nonexistent"}); err == nil {
		t.Fatal("expected an error for an unknown target name")
	}
}

func TestCmdCompileDetectsStaleInputs(t *testing.T) {
	srcDir := t.TempDir()
	buildDir := t.TempDir()
	setupConfiguredBuildDir(t, srcDir, buildDir)

	// touching the tracked project file after configuration should be detected.
	if err := os.WriteFile(filepath.Join(srcDir, "project.mbs"), []byte("executable('demo', 'main.c', 'extra.c')\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := cmdCompile(context.Background(), []string{buildDir}); err == nil {
		t.Fatal("expected cmdCompile to report stale inputs and require reconfiguration")
	}
}

func TestCmdIntrospectRequiresConfiguredDir(t *testing.T) {
	buildDir := t.TempDir()
	if err := cmdIntrospect(context.Background(), []string{buildDir}); err == nil {
		t.Fatal("expected an error for an unconfigured build directory")
	}
}

func TestCmdInstallCopiesArtifacts(t *testing.T) {
	srcDir := t.TempDir()
	buildDir := t.TempDir()
	setupConfiguredBuildDir(t, srcDir, buildDir)

	// the manifest points at a build-tree-relative artifact.
	if err := os.WriteFile(filepath.Join(buildDir, "demo"), []byte("#!/bin/sh\necho hi\n"), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	manifest := "demo\tbin\t0755\t\n"
	if err := os.WriteFile(filepath.Join(buildDir, "install.manifest"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	destdir := t.TempDir()
	t.Setenv("DESTDIR", destdir)

	if err := cmdInstall(context.Background(), []string{buildDir}); err != nil {
		t.Fatalf("cmdInstall: %v", err)
	}

	installed := filepath.Join(destdir, "/usr/local", "bin", "demo")
	if _, err := os.Stat(installed); err != nil {
		t.Fatalf("expected %s to exist: %v", installed, err)
	}
}

func TestCmdTestRunsRegisteredTests(t *testing.T) {
	srcDir := t.TempDir()
	buildDir := t.TempDir()
	setupConfiguredBuildDir(t, srcDir, buildDir)

	script := "#!/bin/sh\nexit 0\n"
	if err := os.WriteFile(filepath.Join(buildDir, "demo"), []byte(script), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := cmdTest(context.Background(), []string{buildDir}); err != nil {
		t.Fatalf("cmdTest: %v", err)
	}
}

func TestCmdTestReportsFailure(t *testing.T) {
	srcDir := t.TempDir()
	buildDir := t.TempDir()
	setupConfiguredBuildDir(t, srcDir, buildDir)

	script := "#!/bin/sh\nexit 1\n"
	if err := os.WriteFile(filepath.Join(buildDir, "demo"), []byte(script), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := cmdTest(context.Background(), []string{buildDir}); err == nil {
		t.Fatal("expected cmdTest to report the failing test")
	}
}

func TestCmdDistProducesArchive(t *testing.T) {
	srcDir := t.TempDir()
	buildDir := t.TempDir()
	setupConfiguredBuildDir(t, srcDir, buildDir)

	if err := os.WriteFile(filepath.Join(buildDir, "install.manifest"), []byte("demo\tbin\t0755\t\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	outputPath := filepath.Join(buildDir, "out.cpio.gz")
	if err := cmdDist(context.Background(), []string{"-o", outputPath, buildDir}); err != nil {
		t.Fatalf("cmdDist: %v", err)
	}
	if _, err := os.Stat(outputPath); err != nil {
		t.Fatalf("expected archive at %s: %v", outputPath, err)
	}
}

func TestCopyFilePreservesContentAndMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	if err := os.WriteFile(src, []byte("hello world"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := copyFile(src, dst, 0o755); err != nil {
		t.Fatalf("copyFile: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "hello world" {
		t.Fatalf("content = %q, want %q", got, "hello world")
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Fatalf("mode = %v, want 0755", info.Mode().Perm())
	}
}
