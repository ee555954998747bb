package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/xerrors"
)

// cmdInit scaffolds a new project (§6): a minimal project.mbs plus one
// "hello world" source file, the smallest input that exercises the
// minimal end-to-end scenario (§8 scenario 1).
func cmdInit(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("init", flag.ExitOnError)
	name := fset.String("name", "", "project name (default: the directory's base name)")
	lang := fset.String("language", "c", "source language for the scaffolded executable")
	fset.Usage = usage(fset, "mbs init <dir>")
	fset.Parse(args)

	rest := fset.Args()
	dir := "."
	if len(rest) > 0 {
		dir = rest[0]
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return xerrors.Errorf("creating %s: %w", dir, err)
	}

	projectName := *name
	if projectName == "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		projectName = filepath.Base(abs)
	}

	var srcName, srcBody string
	switch *lang {
	case "c":
		srcName, srcBody = "main.c", "#include <stdio.h>\n\nint main(void) {\n\tprintf(\"Hello, World!\\n\");\n\treturn 0;\n}\n"
	case "cpp":
		srcName, srcBody = "main.cpp", "#include <iostream>\n\nint main() {\n\tstd::cout << \"Hello, World!\\n\";\n\treturn 0;\n}\n"
	default:
		return xerrors.Errorf("init: unsupported language %q", *lang)
	}

	if err := os.WriteFile(filepath.Join(dir, srcName), []byte(srcBody), 0o644); err != nil {
		return err
	}

	projectFile := fmt.Sprintf("project('%s', '%s', version: '0.1.0')\n\nexecutable('%s', '%s', install: true)\n",
		projectName, *lang, projectName, srcName)
	if err := os.WriteFile(filepath.Join(dir, "project.mbs"), []byte(projectFile), 0o644); err != nil {
		return err
	}

	fmt.Printf("Created %s in %s\n", projectName, dir)
	return nil
}
