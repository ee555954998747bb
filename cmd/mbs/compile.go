package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mbuild/mbs/internal/backend"
	"github.com/mbuild/mbs/internal/state"
	"golang.org/x/xerrors"
)

// cmdCompile validates that a configured build directory's emitted build
// file is current and reports what it contains. Invoking the downstream
// executor that actually runs compile/link commands is out of scope (§1
// Non-goals): this verb stops at "the build description is current and
// here is what it would do", matching what an --ninja-args=... forwarding
// layer would hand off to.
func cmdCompile(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("compile", flag.ExitOnError)
	ninjaArgs := fset.String("ninja-args", "", "arguments that would be forwarded to the backend executor")
	fset.Usage = usage(fset, "mbs compile <builddir> [<target>...]")
	fset.Parse(args)

	rest := fset.Args()
	if len(rest) < 1 {
		return xerrors.New("usage: mbs compile <builddir> [<target>...]")
	}
	buildDir := rest[0]
	wantTargets := rest[1:]

	sd, err := state.Open(buildDir)
	if err != nil {
		return err
	}
	cd, err := sd.Load()
	if err != nil {
		return err
	}
	if cd == nil {
		return xerrors.New("build directory has not been configured yet; run setup first")
	}
	if cd.Snapshot == nil {
		return xerrors.New("persisted state has no introspection snapshot; reconfigure")
	}

	srcDirFile := filepath.Join(sd.Path, "srcdir")
	srcDir, err := os.ReadFile(srcDirFile)
	if err != nil {
		return xerrors.Errorf("reading recorded source directory: %w", err)
	}
	projectFile := filepath.Join(strings.TrimSpace(string(srcDir)), "project.mbs")
	trackedInputs := []string{projectFile}
	for _, ih := range cd.InputHashes {
		if ih.Path != projectFile {
			trackedInputs = append(trackedInputs, ih.Path)
		}
	}
	hashes, err := state.HashFiles(trackedInputs)
	if err != nil {
		return err
	}
	if state.NeedsReconfigure(cd, hashes, cd.CommandLine) {
		return xerrors.New("build inputs changed since the last configure; run `mbs setup --reconfigure` first")
	}

	byName := map[string]backend.TargetIntrospection{}
	for _, t := range cd.Snapshot.Targets {
		byName[t.Name] = t
	}
	targets := cd.Snapshot.Targets
	if len(wantTargets) > 0 {
		targets = nil
		for _, name := range wantTargets {
			t, ok := byName[name]
			if !ok {
				return xerrors.Errorf("unknown target %q", name)
			}
			targets = append(targets, t)
		}
	}
	for _, t := range targets {
		fmt.Printf("%s (%s): %d source file(s)\n", t.Name, t.Type, len(t.Sources))
	}
	if *ninjaArgs != "" {
		fmt.Fprintf(os.Stderr, "note: forwarding %q to a downstream build executor is outside mbs's scope\n", *ninjaArgs)
	}
	return nil
}
