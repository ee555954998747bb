package resolver

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/mbuild/mbs/internal/graph"
	"golang.org/x/xerrors"
)

// PkgConfigStrategy implements the package-info strategy (§4.8 step 2):
// query a system package-info tool (pkg-config) for name and version
// constraint. A resolver subprocess invocation is one of the three
// suspension-point kinds (§5).
type PkgConfigStrategy struct {
	// Binary is normally "pkg-config"; overridable for tests.
	Binary string
	Run    func(ctx context.Context, args ...string) (string, error)
}

func (p *PkgConfigStrategy) Name() string { return "pkg-config" }

func (p *PkgConfigStrategy) Resolve(ctx context.Context, req Request) (*graph.Dependency, error) {
	run := p.Run
	if run == nil {
		run = runPkgConfig(p.binary())
	}
	cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := run(cctx, "--exists", req.Name); err != nil {
		return nil, nil // not found via this strategy; chain proceeds
	}
	version, err := run(cctx, "--modversion", req.Name)
	if err != nil {
		return nil, xerrors.Errorf("pkg-config --modversion %s: %w", req.Name, err)
	}
	version = strings.TrimSpace(version)
	if len(req.Version) > 0 && !matchesVersion(version, req.Version) {
		return nil, nil
	}
	cflags, err := run(cctx, "--cflags", req.Name)
	if err != nil {
		return nil, xerrors.Errorf("pkg-config --cflags %s: %w", req.Name, err)
	}
	libs, err := run(cctx, "--libs", req.Name)
	if err != nil {
		return nil, xerrors.Errorf("pkg-config --libs %s: %w", req.Name, err)
	}
	return &graph.Dependency{
		Name:        req.Name,
		Found:       true,
		Version:     version,
		CompileArgs: fields(cflags),
		LinkArgs:    fields(libs),
	}, nil
}

func (p *PkgConfigStrategy) binary() string {
	if p.Binary != "" {
		return p.Binary
	}
	return "pkg-config"
}

func fields(s string) []string {
	return strings.Fields(strings.TrimSpace(s))
}

func runPkgConfig(binary string) func(ctx context.Context, args ...string) (string, error) {
	return func(ctx context.Context, args ...string) (string, error) {
		cmd := exec.CommandContext(ctx, binary, args...)
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return "", xerrors.Errorf("%s %v: %w (%s)", binary, args, err, firstLine(stderr.String()))
		}
		return stdout.String(), nil
	}
}

func firstLine(s string) string {
	sc := bufio.NewScanner(strings.NewReader(s))
	if sc.Scan() {
		return sc.Text()
	}
	return ""
}
