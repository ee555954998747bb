package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/mbuild/mbs/internal/state"
	"golang.org/x/xerrors"
)

// cmdTest runs registered tests (§6), reading their registrations back from
// the persisted introspection snapshot's Tests entries rather than
// re-evaluating the project, mirroring how `introspect`/`compile` only ever
// read the already-lowered Plan.
func cmdTest(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("test", flag.ExitOnError)
	fset.Usage = usage(fset, "mbs test <builddir> [<name>...]")
	fset.Parse(args)

	rest := fset.Args()
	if len(rest) < 1 {
		return xerrors.New("usage: mbs test <builddir> [<name>...]")
	}
	buildDir := rest[0]
	wantNames := rest[1:]

	sd, err := state.Open(buildDir)
	if err != nil {
		return err
	}
	cd, err := sd.Load()
	if err != nil {
		return err
	}
	if cd == nil || cd.Snapshot == nil {
		return xerrors.New("build directory has not been configured yet; run setup first")
	}

	want := map[string]bool{}
	for _, n := range wantNames {
		want[n] = true
	}

	var failures []string
	for _, te := range cd.Snapshot.Tests {
		if len(want) > 0 && !want[te.Name] {
			continue
		}
		label := te.Name
		if te.IsBenchmark {
			label += " (benchmark)"
		}
		if te.Target == "" {
			fmt.Printf("SKIP %s: no executable target recorded\n", label)
			continue
		}
		path := filepath.Join(buildDir, te.Target)
		cmd := exec.CommandContext(ctx, path, te.Args...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			fmt.Printf("FAIL %s: %v\n", label, err)
			failures = append(failures, te.Name)
			continue
		}
		fmt.Printf("PASS %s\n", label)
	}
	if len(failures) > 0 {
		return xerrors.Errorf("%d test(s) failed: %v", len(failures), failures)
	}
	return nil
}
