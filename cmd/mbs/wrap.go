package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mbuild/mbs/internal/machine"
	"golang.org/x/xerrors"
)

// wrapFile is the parsed contents of one .wrap file: a [wrap-file] or
// [wrap-git] section describing where a subproject's source would come
// from. mbs never performs the fetch itself (§1 Non-goals) — wrap/.wrap
// parsing reuses internal/machine's descriptor parser since a .wrap file
// is the same INI-like section/key=value shape already handled there for
// toolchain descriptors, just with a different section vocabulary.
type wrapFile struct {
	kind string // "wrap-file" or "wrap-git"
	d    *machine.Descriptor
}

func parseWrapFile(path string) (*wrapFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	d, err := machine.ParseDescriptor(f)
	if err != nil {
		return nil, err
	}
	for _, kind := range []string{"wrap-file", "wrap-git", "wrap-hg", "wrap-svn", "wrap-redirect"} {
		if _, ok := d.Sections[kind]; ok {
			return &wrapFile{kind: kind, d: d}, nil
		}
	}
	return nil, xerrors.New("no recognized [wrap-*] section")
}

func (w *wrapFile) get(key string) string {
	if v, ok := w.d.Sections[w.kind][key]; ok {
		return v.Str
	}
	return ""
}

func (w *wrapFile) summary() string {
	switch w.kind {
	case "wrap-git":
		return fmt.Sprintf("%s url=%s revision=%s", w.kind, w.get("url"), w.get("revision"))
	case "wrap-redirect":
		return fmt.Sprintf("%s -> %s", w.kind, w.get("filename"))
	default:
		return fmt.Sprintf("%s source=%s", w.kind, w.get("source_filename"))
	}
}

// cmdWrap inspects a local .wrap file (§6); it reports the declared fetch
// parameters without performing any network access.
func cmdWrap(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("wrap", flag.ExitOnError)
	fset.Usage = usage(fset, "mbs wrap <path-to.wrap>")
	fset.Parse(args)

	rest := fset.Args()
	if len(rest) < 1 {
		return xerrors.New("usage: mbs wrap <path-to.wrap>")
	}
	w, err := parseWrapFile(rest[0])
	if err != nil {
		return err
	}
	name := strings.TrimSuffix(rest[0], ".wrap")
	fmt.Printf("%s: %s\n", name, w.summary())
	return nil
}
