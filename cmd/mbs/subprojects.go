package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/xerrors"
)

// cmdSubprojects lists the project's local subprojects directory and each
// entry's .wrap file, if any (§6). Fetching a wrap's listed source over the
// network is an external collaborator's job (§1 Non-goals list "the
// wrap/subproject fetcher" explicitly); this only reports what is already
// present on disk.
func cmdSubprojects(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("subprojects", flag.ExitOnError)
	fset.Usage = usage(fset, "mbs subprojects [<srcdir>]")
	fset.Parse(args)

	srcDir := "."
	if rest := fset.Args(); len(rest) > 0 {
		srcDir = rest[0]
	}

	subDir := filepath.Join(srcDir, "subprojects")
	entries, err := os.ReadDir(subDir)
	if os.IsNotExist(err) {
		fmt.Println("no subprojects/ directory")
		return nil
	}
	if err != nil {
		return xerrors.Errorf("listing %s: %w", subDir, err)
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			fmt.Printf("%s\t(local checkout)\n", name)
			continue
		}
		if strings.HasSuffix(name, ".wrap") {
			w, err := parseWrapFile(filepath.Join(subDir, name))
			if err != nil {
				fmt.Printf("%s\tinvalid: %v\n", name, err)
				continue
			}
			fmt.Printf("%s\t%s\n", strings.TrimSuffix(name, ".wrap"), w.summary())
		}
	}
	return nil
}
