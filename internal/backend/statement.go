// Package backend lowers a frozen Build Object Graph into a backend-agnostic
// build statement DAG (§4.7): per-target compile/link commands, custom
// target commands, an install manifest, and an introspection snapshot. It
// never invokes a downstream build executor — that remains an external
// collaborator (§1) — it only emits the statements describing one.
package backend

import "github.com/mbuild/mbs/internal/graph"

// Statement is one backend-agnostic build step: produce Outputs from Inputs
// by running Command. This generalizes distr1-distri's per-builder lowering
// (internal/build/buildc.go, buildcmake.go, buildmeson.go each assemble a
// typed builder config into an ordered [][]string of shell words) the same
// way buildproto.go's stepsToProto converts that ordered slice into a single
// generic step representation consumed by everything downstream.
type Statement struct {
	Rule string // "compile", "archive", "link", "custom", "phony"

	Outputs       []string
	Inputs        []string
	ImplicitDeps  []string // e.g. headers, discovered via depfile at build time
	OrderOnlyDeps []string // e.g. generated headers that must exist first

	Command []string

	// RspFile/RspFileContent hold the response-file fallback for a command
	// line too long for the platform's limit (§4.7 "systems with
	// command-length limits"): when RspFile is set, Command has already been
	// rewritten to read its arguments from it instead of passing them
	// directly, mirroring ninja's own rspfile/rspfile_content rule variables.
	RspFile        string
	RspFileContent []string

	Depfile     string
	Description string
}

// TargetIntrospection is one target's entry in the introspection snapshot
// (§4.7 "Emit an introspection snapshot").
type TargetIntrospection struct {
	Name             string
	Subproject       string
	Type             string
	DefinedInFile    string
	Sources          []string
	GeneratedSources []string
	CompileArgs      map[string][]string
	InstallPaths     []string
}

// Plan is everything Lower produces from one frozen BOG: the statement DAG,
// the install manifest (carried through unchanged from the BOG), and the
// introspection snapshot.
type Plan struct {
	ProjectName    string
	ProjectVersion string

	Statements []Statement
	Installs   []graph.InstallEntry
	Targets    []TargetIntrospection
}
