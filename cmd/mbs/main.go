// Command mbs is the CLI entry point for the meta-build system: setup,
// configure, compile, install, test, introspect, dist, init, rewrite,
// subprojects, and wrap, dispatched through a verb table (§6).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"

	"github.com/mbuild/mbs"
	internaltrace "github.com/mbuild/mbs/internal/trace"
)

var (
	debug      = flag.Bool("debug", false, "enable debug mode: format error messages with additional detail")
	cpuprofile = flag.String("cpuprofile", "", "path to store a CPU profile at")
	memprofile = flag.String("memprofile", "", "path to store a memory profile at")
	ctracefile = flag.String("ctracefile", "", "path to store a chrome trace event file at (load in chrome://tracing)")
)

func funcmain() error {
	flag.Parse()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			return err
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	if *ctracefile != "" {
		f, err := os.Create(*ctracefile)
		if err != nil {
			return err
		}
		internaltrace.Sink(f)
	}

	type cmd struct {
		fn func(ctx context.Context, args []string) error
	}
	verbs := map[string]cmd{
		"setup":       {cmdSetup},
		"configure":   {cmdConfigure},
		"compile":     {cmdCompile},
		"install":     {cmdInstall},
		"test":        {cmdTest},
		"introspect":  {cmdIntrospect},
		"dist":        {cmdDist},
		"init":        {cmdInit},
		"rewrite":     {cmdRewrite},
		"subprojects": {cmdSubprojects},
		"wrap":        {cmdWrap},
	}

	args := flag.Args()
	verb := "setup"
	if len(args) > 0 {
		verb, args = args[0], args[1:]
	}

	if verb == "help" {
		fmt.Fprintf(os.Stderr, "mbs [-flags] <command> [-flags] <args>\n")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintf(os.Stderr, "To get help on any command, use mbs <command> -help.\n")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "\tsetup       - initial configuration of a build directory\n")
		fmt.Fprintf(os.Stderr, "\tconfigure   - list or change a configured build directory's options\n")
		fmt.Fprintf(os.Stderr, "\tcompile     - validate and report the emitted build description\n")
		fmt.Fprintf(os.Stderr, "\tinstall     - run the install manifest\n")
		fmt.Fprintf(os.Stderr, "\ttest        - run registered tests\n")
		fmt.Fprintf(os.Stderr, "\tintrospect  - emit the JSON introspection snapshot\n")
		fmt.Fprintf(os.Stderr, "\tdist        - produce a release archive\n")
		fmt.Fprintf(os.Stderr, "\tinit        - scaffold a new project\n")
		fmt.Fprintf(os.Stderr, "\trewrite     - apply a structural edit to a project DSL file\n")
		fmt.Fprintf(os.Stderr, "\tsubprojects - list local subprojects and their wrap files\n")
		fmt.Fprintf(os.Stderr, "\twrap        - inspect a local .wrap file\n")
		os.Exit(2)
	}

	ctx, canc := mbs.InterruptibleContext()
	defer canc()
	v, ok := verbs[verb]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", verb)
		fmt.Fprintf(os.Stderr, "syntax: mbs <command> [options]\n")
		os.Exit(2)
	}
	if err := v.fn(ctx, args); err != nil {
		if *debug {
			return fmt.Errorf("%s: %+v", verb, err)
		}
		return fmt.Errorf("%s: %v", verb, err)
	}
	return mbs.RunAtExit()
}

func main() {
	if err := funcmain(); err != nil {
		if *memprofile != "" {
			if f, ferr := os.Create(*memprofile); ferr == nil {
				pprof.WriteHeapProfile(f)
				f.Close()
			}
		}
		log.SetFlags(0)
		log.Fatal(err)
	}
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.WriteHeapProfile(f)
		f.Close()
	}
}
