package resolver

import (
	"context"
	"path/filepath"
	"runtime"

	"github.com/mbuild/mbs/internal/graph"
)

// SystemProbeStrategy implements the language-specific hand-rolled
// header+library pair search (§4.8 step 5), the last strategy tried before
// the fallback subproject.
type SystemProbeStrategy struct {
	HeaderDirs  []string
	LibraryDirs []string
}

func (s *SystemProbeStrategy) Name() string { return "system" }

func (s *SystemProbeStrategy) Resolve(ctx context.Context, req Request) (*graph.Dependency, error) {
	headerDirs := s.HeaderDirs
	if len(headerDirs) == 0 {
		headerDirs = []string{"/usr/include", "/usr/local/include"}
	}
	libDirs := s.LibraryDirs
	if len(libDirs) == 0 {
		libDirs = []string{"/usr/lib", "/usr/local/lib"}
	}

	header := req.Name + ".h"
	var foundHeaderDir string
	for _, d := range headerDirs {
		if pathExists(filepath.Join(d, header)) {
			foundHeaderDir = d
			break
		}
	}
	if foundHeaderDir == "" {
		return nil, nil
	}

	libName := "lib" + req.Name
	if req.Static {
		libName += ".a"
	} else {
		libName += libSuffix()
	}
	var foundLibDir string
	for _, d := range libDirs {
		if pathExists(filepath.Join(d, libName)) {
			foundLibDir = d
			break
		}
	}
	if foundLibDir == "" {
		return nil, nil
	}

	return &graph.Dependency{
		Name:        req.Name,
		Found:       true,
		CompileArgs: []string{"-I" + foundHeaderDir},
		IncludeDirs: []string{foundHeaderDir},
		LinkArgs:    []string{"-L" + foundLibDir, "-l" + req.Name},
	}, nil
}

func libSuffix() string {
	// mbs core never executes the link step itself (§1 Non-goals); this
	// suffix only needs to match well enough for the probe's existence
	// check, so a single cross-platform default is acceptable here.
	if runtime.GOOS == "darwin" {
		return ".dylib"
	}
	return ".so"
}
