package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mbuild/mbs/internal/state"
	"golang.org/x/xerrors"
)

// cmdInstall runs the persisted install manifest (§6 "run installer with
// DESTDIR env var respected"), copying each entry's source into
// DESTDIR+prefix+destination, honoring the strip flag by shelling out to
// strip(1) exactly as the interpreter's own compiler probes shell out to
// the discovered toolchain rather than reimplementing object-file surgery.
// A manifest entry's source is build-tree relative for target artifacts
// and source-tree relative for installed headers/man pages (§4.6); since
// mbs never invokes the downstream executor that produces compiled
// artifacts (§1 Non-goals), a target entry whose file is absent surfaces
// as the ordinary resource error any missing install source would.
func cmdInstall(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("install", flag.ExitOnError)
	fset.Usage = usage(fset, "mbs install <builddir>")
	fset.Parse(args)

	rest := fset.Args()
	if len(rest) < 1 {
		return xerrors.New("usage: mbs install <builddir>")
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
	prefix := "/usr/local"
	for _, ov := range cd.Options {
		if ov.Name == "prefix" {
			prefix = ov.Current
		}
	}
	srcDirBytes, err := os.ReadFile(filepath.Join(sd.Path, "srcdir"))
	if err != nil {
		return xerrors.Errorf("reading recorded source directory: %w", err)
	}
	srcDir := strings.TrimSpace(string(srcDirBytes))

	manifestPath := filepath.Join(buildDir, "install.manifest")
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return xerrors.Errorf("opening install manifest (has setup run?): %w", err)
	}

	destdir := os.Getenv("DESTDIR")

	for i, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 4 {
			return xerrors.Errorf("install manifest line %d: malformed entry %q", i+1, line)
		}
		src, dstDir, modeStr, flags := fields[0], fields[1], fields[2], fields[3]
		mode, err := strconv.ParseUint(modeStr, 8, 32)
		if err != nil {
			return xerrors.Errorf("install manifest line %d: bad mode %q: %w", i+1, modeStr, err)
		}

		resolvedSrc := filepath.Join(buildDir, src)
		if !fileExists(resolvedSrc) {
			resolvedSrc = filepath.Join(srcDir, src)
		}

		target := filepath.Join(destdir, prefix, dstDir, filepath.Base(src))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return xerrors.Errorf("creating %s: %w", filepath.Dir(target), err)
		}
		if err := copyFile(resolvedSrc, target, os.FileMode(mode)); err != nil {
			return xerrors.Errorf("installing %s -> %s: %w", src, target, err)
		}
		if strings.Contains(flags, "s") {
			if err := exec.CommandContext(ctx, "strip", target).Run(); err != nil {
				return xerrors.Errorf("stripping %s: %w", target, err)
			}
		}
		fmt.Printf("installing %s to %s\n", src, target)
	}
	return nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
