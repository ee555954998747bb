package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/mbuild/mbs/internal/backend"
	"github.com/mbuild/mbs/internal/graph"
	"github.com/mbuild/mbs/internal/interp"
	"github.com/mbuild/mbs/internal/machine"
	"github.com/mbuild/mbs/internal/options"
	"github.com/mbuild/mbs/internal/state"
	"golang.org/x/xerrors"
)

// defineValue is a repeatable -D<option>=<value> flag, collected in the
// order given so later duplicates still win (flag.Value lets distri's
// build.go-style flag blocks accept multi-valued switches).
type defineValue struct {
	entries *[]string
}

func (d defineValue) String() string {
	if d.entries == nil {
		return ""
	}
	return strings.Join(*d.entries, ",")
}

func (d defineValue) Set(s string) error {
	*d.entries = append(*d.entries, s)
	return nil
}

func splitDefine(s string) (name, value string, err error) {
	eq := strings.Index(s, "=")
	if eq < 0 {
		return "", "", xerrors.Errorf("-D%s: expected name=value", s)
	}
	return s[:eq], s[eq+1:], nil
}

// extractDefines pulls out every -Dname=value token (§6), joined with no
// space between the "-D" prefix and the option name the way meson's own CLI
// accepts it — the standard library flag package splits a "-flag=value"
// token on its first "=" to find the flag NAME, so it cannot recognize a
// flag literally named "D" here; this pre-pass strips those tokens before
// the rest reach flag.FlagSet.Parse.
func extractDefines(args []string) (rest, defines []string) {
	for _, a := range args {
		if strings.HasPrefix(a, "-D") && len(a) > len("-D") {
			defines = append(defines, strings.TrimPrefix(a, "-D"))
			continue
		}
		rest = append(rest, a)
	}
	return rest, defines
}

// setupFlags holds the flags shared by `setup` and `configure` (§6).
type setupFlags struct {
	prefix      string
	libdir      string
	bindir      string
	buildtype   string
	defines     []string
	crossFiles  []string
	nativeFiles []string
	wrapMode    string
	reconfigure bool
	wipe        bool
}

func (f *setupFlags) register(fset *flag.FlagSet) {
	fset.StringVar(&f.prefix, "prefix", "", "install prefix override")
	fset.StringVar(&f.libdir, "libdir", "", "library install directory override, relative to prefix")
	fset.StringVar(&f.bindir, "bindir", "", "executable install directory override, relative to prefix")
	fset.StringVar(&f.buildtype, "buildtype", "", "plain, debug, debugoptimized, release, minsize, or custom")
	fset.Var(defineValue{entries: &f.crossFiles}, "cross-file", "toolchain descriptor for the host machine (repeatable, later wins)")
	fset.Var(defineValue{entries: &f.nativeFiles}, "native-file", "toolchain descriptor for the build machine (repeatable, later wins)")
	fset.StringVar(&f.wrapMode, "wrap-mode", "default", "default, nofallback, nodownload, forcefallback, or nopromote")
	fset.BoolVar(&f.reconfigure, "reconfigure", false, "re-run configuration even if inputs look unchanged")
	fset.BoolVar(&f.wipe, "wipe", false, "discard the build directory's persisted state before configuring")
}

func cmdSetup(ctx context.Context, args []string) error {
	args, defines := extractDefines(args)
	fset := flag.NewFlagSet("setup", flag.ExitOnError)
	var sf setupFlags
	sf.register(fset)
	fset.Usage = usage(fset, "mbs setup <builddir> [<srcdir>]")
	fset.Parse(args)
	sf.defines = defines

	rest := fset.Args()
	if len(rest) < 1 {
		return xerrors.New("usage: mbs setup <builddir> [<srcdir>]")
	}
	buildDir := rest[0]
	srcDir := "."
	if len(rest) > 1 {
		srcDir = rest[1]
	}
	return configureRun(ctx, srcDir, buildDir, &sf, false)
}

func cmdConfigure(ctx context.Context, args []string) error {
	args, defines := extractDefines(args)
	fset := flag.NewFlagSet("configure", flag.ExitOnError)
	var sf setupFlags
	sf.register(fset)
	show := fset.Bool("show", false, "list the build directory's current options instead of changing them")
	fset.Usage = usage(fset, "mbs configure <builddir> [-Dname=value ...]")
	fset.Parse(args)
	sf.defines = defines

	rest := fset.Args()
	if len(rest) < 1 {
		return xerrors.New("usage: mbs configure <builddir> [-Dname=value ...]")
	}
	buildDir := rest[0]

	if *show {
		d, err := state.Open(buildDir)
		if err != nil {
			return err
		}
		cd, err := d.Load()
		if err != nil {
			return err
		}
		if cd == nil {
			return xerrors.New("build directory has not been configured yet; run setup first")
		}
		for _, ov := range cd.Options {
			fmt.Printf("%-30s %-20s (%s)\n", ov.Name, ov.Current, options.Source(ov.Source))
		}
		return nil
	}

	srcDirFile := filepath.Join(buildDir, "mbs-private", "srcdir")
	b, err := os.ReadFile(srcDirFile)
	if err != nil {
		return xerrors.Errorf("configure: build directory has not been configured yet; run setup first: %w", err)
	}
	return configureRun(ctx, strings.TrimSpace(string(b)), buildDir, &sf, true)
}

// configureRun is the shared flow behind `setup` and `configure` (§4.9,
// §6): declare options, merge cross/native descriptors, run the
// interpreter, lower the frozen graph, and persist the results. The
// persisted state and the introspection snapshot are written atomically;
// the srcdir record, build file and install manifest are written in place,
// not through a temporary file and rename.
func configureRun(ctx context.Context, srcDir, buildDir string, sf *setupFlags, reconfigure bool) error {
	reconfigure = reconfigure || sf.reconfigure

	sd, err := state.Open(buildDir)
	if err != nil {
		return err
	}
	unlock, err := sd.Lock()
	if err != nil {
		return err
	}
	defer unlock()

	if sf.wipe {
		if err := os.RemoveAll(sd.Path); err != nil {
			return xerrors.Errorf("wiping build directory state: %w", err)
		}
		if _, err := state.Open(buildDir); err != nil {
			return err
		}
	}

	cd, err := sd.Load()
	if err != nil {
		return err
	}

	opts := options.New()
	if cd != nil {
		for _, ov := range cd.Options {
			opts.Preload(ov.Name, ov.Current, options.Source(ov.Source))
		}
	}
	if err := opts.DeclareBuiltins(); err != nil {
		return err
	}

	var descriptor *machine.Descriptor
	for _, path := range append(append([]string{}, sf.nativeFiles...), sf.crossFiles...) {
		f, err := os.Open(path)
		if err != nil {
			return xerrors.Errorf("opening descriptor %s: %w", path, err)
		}
		d, perr := machine.ParseDescriptor(f)
		f.Close()
		if perr != nil {
			return xerrors.Errorf("parsing descriptor %s: %w", path, perr)
		}
		if descriptor == nil {
			descriptor = d
		} else {
			descriptor.Merge(d)
		}
	}
	crossCompiling := len(sf.crossFiles) > 0

	if declPath := filepath.Join(srcDir, "options.mbs"); fileExists(declPath) {
		src, err := os.ReadFile(declPath)
		if err != nil {
			return xerrors.Errorf("reading %s: %w", declPath, err)
		}
		decls, err := options.ParseDeclarationsFile(declPath, string(src))
		if err != nil {
			return err
		}
		for _, decl := range decls {
			if err := opts.Declare(decl); err != nil {
				return err
			}
		}
	}

	if descriptor != nil {
		for _, section := range []string{"built-in options", "project options"} {
			for key, v := range descriptor.Sections[section] {
				if err := opts.SetProjectDefault(key, descriptorValueString(v)); err != nil {
					return xerrors.Errorf("applying %s from descriptor: %w", key, err)
				}
			}
		}
	}

	if sf.prefix != "" {
		if err := opts.SetCommandLine("prefix", sf.prefix); err != nil {
			return err
		}
	}
	if sf.libdir != "" {
		if err := opts.SetCommandLine("libdir", sf.libdir); err != nil {
			return err
		}
	}
	if sf.bindir != "" {
		if err := opts.SetCommandLine("bindir", sf.bindir); err != nil {
			return err
		}
	}
	if sf.buildtype != "" {
		if err := opts.SetCommandLine("buildtype", sf.buildtype); err != nil {
			return err
		}
	}
	fresh := map[string]bool{}
	for _, raw := range sf.defines {
		name, val, err := splitDefine(raw)
		if err != nil {
			return err
		}
		if err := opts.SetCommandLine(name, val); err != nil {
			return err
		}
		fresh[name] = true
	}
	if reconfigure {
		opts.MarkReconfigurePreserved(fresh)
	}

	buildMachine := autodetectMachine(machine.Build)
	hostMachine := autodetectMachine(machine.Host)
	if descriptor != nil {
		if hm, err := machine.MachineFromDescriptor(descriptor, machine.Host, "host_machine"); err == nil {
			hostMachine = hm
		}
		if bm, err := machine.MachineFromDescriptor(descriptor, machine.Build, "build_machine"); err == nil {
			buildMachine = bm
		}
		if err := machine.ApplyBinaries(ctx, hostMachine, descriptor); err != nil {
			return err
		}
		if crossCompiling {
			if err := machine.ApplyBinaries(ctx, buildMachine, descriptor); err != nil {
				return err
			}
		}
	}

	bog := graph.NewBOG("", "")
	in := interp.New(srcDir, opts, buildMachine, hostMachine, bog)
	if cd != nil {
		in.Probes.LoadEntries(cd.ProbeCache)
	}
	if err := in.RunFile("project.mbs"); err != nil {
		return err
	}

	plan, err := backend.Lower(bog, opts, in.ProjectArgs(), in.GlobalArgs())
	if err != nil {
		return err
	}
	snap := backend.BuildSnapshot(plan, opts, bog)

	for _, w := range in.Warnings() {
		fmt.Fprintf(os.Stderr, "WARNING: %s\n", w)
	}
	printSummaries(in)

	trackedInputs := []string{filepath.Join(srcDir, "project.mbs")}
	for _, path := range append(append([]string{}, sf.nativeFiles...), sf.crossFiles...) {
		trackedInputs = append(trackedInputs, path)
	}
	if declPath := filepath.Join(srcDir, "options.mbs"); fileExists(declPath) {
		trackedInputs = append(trackedInputs, declPath)
	}
	hashes, err := state.HashFiles(trackedInputs)
	if err != nil {
		return err
	}

	var optValues []state.OptionValue
	for _, entry := range opts.All() {
		optValues = append(optValues, state.OptionValue{
			Name:    entry.Name,
			Current: entry.Opt.Current,
			Source:  int(entry.Opt.Source),
		})
	}

	newCD := &state.CoreData{
		CommandLine: sf.defines,
		Options:     optValues,
		ProbeCache:  in.Probes.Entries(),
		InputHashes: hashes,
		Snapshot:    snap,
	}
	if err := sd.Save(newCD); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(sd.Path, "srcdir"), []byte(srcDir), 0o644); err != nil {
		return xerrors.Errorf("recording source directory: %w", err)
	}
	if err := state.WriteSnapshot(filepath.Join(buildDir, "mbs-info", "introspect.json"), snap); err != nil {
		return err
	}

	buildFilePath := filepath.Join(buildDir, "build.ninja-like")
	bf, err := os.Create(buildFilePath)
	if err != nil {
		return xerrors.Errorf("creating build file: %w", err)
	}
	if err := backend.WriteBuildFile(bf, plan); err != nil {
		bf.Close()
		return err
	}
	bf.Close()

	manifestPath := filepath.Join(buildDir, "install.manifest")
	mf, err := os.Create(manifestPath)
	if err != nil {
		return xerrors.Errorf("creating install manifest: %w", err)
	}
	if err := backend.WriteInstallManifest(mf, plan); err != nil {
		mf.Close()
		return err
	}
	mf.Close()

	fmt.Printf("Configured %s (%s), %d targets, %d statements\n", plan.ProjectName, plan.ProjectVersion, len(plan.Targets), len(plan.Statements))
	return nil
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func descriptorValueString(v machine.DescriptorValue) string {
	switch v.Kind {
	case machine.DVBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case machine.DVInt:
		return fmt.Sprintf("%d", v.Int)
	case machine.DVList:
		return strings.Join(v.List, ",")
	default:
		return v.Str
	}
}

// autodetectMachine builds a Machine describing the process's own
// runtime.GOOS/GOARCH, the default in the absence of a cross/native file
// (§4.5); explicit descriptor values from --cross-file/--native-file always
// take precedence once parsed.
func autodetectMachine(kind machine.Kind) *machine.Machine {
	cpu := runtime.GOARCH
	family := cpu
	switch cpu {
	case "amd64":
		family = "x86_64"
	case "arm64":
		family = "aarch64"
	case "386":
		family = "x86"
	}
	endian := "little"
	return machine.New(kind, runtime.GOOS, family, endian)
}

func printSummaries(in *interp.Interp) {
	summaries := in.Summaries()
	if len(summaries) == 0 {
		return
	}
	sections := map[string]bool{}
	var order []string
	for _, s := range summaries {
		if !sections[s.Section] {
			sections[s.Section] = true
			order = append(order, s.Section)
		}
	}
	sort.Strings(order)
	fmt.Println("\nSummary:")
	for _, section := range order {
		if section != "" {
			fmt.Printf("  %s\n", section)
		}
		for _, s := range summaries {
			if s.Section != section {
				continue
			}
			fmt.Printf("    %-20s %v\n", s.Key, s.Value)
		}
	}
}
