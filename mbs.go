// Package mbs contains the types shared across the interpreter, build-graph
// and backend-lowering packages: the workspace root, interrupt handling, and
// the small bits of bookkeeping (at-exit hooks, recognized machine
// identifiers) that do not belong to any one pipeline stage.
package mbs

// Workspace describes the two directories a configuration run operates on.
type Workspace struct {
	// SourceDir is the project root, containing the top-level project.mbs
	// file.
	SourceDir string

	// BuildDir is where mbs persists option/probe state and where the
	// backend writes build-rule files (e.g. /home/user/myproject/build).
	BuildDir string
}
