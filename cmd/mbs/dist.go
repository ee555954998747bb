package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/mbuild/mbs/internal/dist"
	"github.com/mbuild/mbs/internal/state"
	"golang.org/x/xerrors"
)

// cmdDist produces the release archive (§4.10, §6), reusing the tracked
// input files recorded in persisted state as the set of project DSL files
// to stage.
func cmdDist(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("dist", flag.ExitOnError)
	output := fset.String("o", "", "output archive path (default <builddir>/<project>.dist.cpio.gz)")
	fset.Usage = usage(fset, "mbs dist <builddir>")
	fset.Parse(args)

	rest := fset.Args()
	if len(rest) < 1 {
		return xerrors.New("usage: mbs dist <builddir>")
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
	if cd == nil {
		return xerrors.New("build directory has not been configured yet; run setup first")
	}
	srcDirBytes, err := os.ReadFile(filepath.Join(sd.Path, "srcdir"))
	if err != nil {
		return xerrors.Errorf("reading recorded source directory: %w", err)
	}
	srcDir := strings.TrimSpace(string(srcDirBytes))

	var dslFiles []string
	for _, ih := range cd.InputHashes {
		rel, err := filepath.Rel(srcDir, ih.Path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue // a cross/native descriptor outside the source tree
		}
		dslFiles = append(dslFiles, rel)
	}

	outputPath := *output
	if outputPath == "" {
		name := "project"
		if cd.Snapshot != nil {
			name = cd.Snapshot.ProjectName
		}
		outputPath = filepath.Join(buildDir, name+".dist.cpio.gz")
	}
	return dist.BuildRelease(srcDir, buildDir, outputPath, dslFiles)
}
