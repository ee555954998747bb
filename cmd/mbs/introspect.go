package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/mbuild/mbs/internal/state"
	"golang.org/x/xerrors"
)

// cmdIntrospect re-emits the persisted JSON introspection snapshot (§6, §4.9)
// to stdout, exactly as `mbs-info/introspect.json` already holds it.
func cmdIntrospect(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("introspect", flag.ExitOnError)
	fset.Usage = usage(fset, "mbs introspect <builddir>")
	fset.Parse(args)

	rest := fset.Args()
	if len(rest) < 1 {
		return xerrors.New("usage: mbs introspect <builddir>")
	}
	buildDir := rest[0]

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

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cd.Snapshot); err != nil {
		return xerrors.Errorf("encoding introspection snapshot: %w", err)
	}
	return nil
}
