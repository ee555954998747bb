package resolver

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/mbuild/mbs/internal/graph"
	"golang.org/x/xerrors"
)

// CMakeStrategy implements the CMake-export strategy (§4.8 step 4):
// invoke a CMake-find subprocess that prints discovered include/link/
// define info, parsed as simple "KEY=VALUE" lines (one per output facet).
type CMakeStrategy struct {
	Binary string
	Run    func(ctx context.Context, args ...string) (string, error)
}

func (c *CMakeStrategy) Name() string { return "cmake" }

func (c *CMakeStrategy) Resolve(ctx context.Context, req Request) (*graph.Dependency, error) {
	run := c.Run
	if run == nil {
		run = runCMakeFind(c.binary())
	}
	cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	out, err := run(cctx, "-DNAME="+req.Name, "-P", "find-package-print.cmake")
	if err != nil {
		return nil, nil // CMake export lookup failed; let the chain continue
	}
	facets := parseCMakeOutput(out)
	if facets["FOUND"] != "1" {
		return nil, nil
	}
	if v, ok := facets["VERSION"]; ok && len(req.Version) > 0 && !matchesVersion(v, req.Version) {
		return nil, nil
	}
	return &graph.Dependency{
		Name:        req.Name,
		Found:       true,
		Version:     facets["VERSION"],
		CompileArgs: splitList(facets["INCLUDE_DIRS"], "-I"),
		LinkArgs:    splitList(facets["LIBRARIES"], ""),
	}, nil
}

func (c *CMakeStrategy) binary() string {
	if c.Binary != "" {
		return c.Binary
	}
	return "cmake"
}

// parseCMakeOutput parses "KEY=VALUE" lines, one per line, the minimal
// contract a find-package-print.cmake script emits.
func parseCMakeOutput(out string) map[string]string {
	facets := map[string]string{}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		facets[line[:eq]] = line[eq+1:]
	}
	return facets
}

// splitList splits a semicolon-separated CMake list (the native CMake list
// separator) into words, optionally prefixing each with prefix (e.g. "-I"
// for include dirs).
func splitList(s, prefix string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part == "" {
			continue
		}
		out = append(out, prefix+part)
	}
	return out
}

func runCMakeFind(binary string) func(ctx context.Context, args ...string) (string, error) {
	return func(ctx context.Context, args ...string) (string, error) {
		cmd := exec.CommandContext(ctx, binary, args...)
		var stdout bytes.Buffer
		cmd.Stdout = &stdout
		if err := cmd.Run(); err != nil {
			return "", xerrors.Errorf("%s %v: %w", binary, args, err)
		}
		return stdout.String(), nil
	}
}
