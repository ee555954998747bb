package backend

import (
	"github.com/mbuild/mbs/internal/graph"
	"github.com/mbuild/mbs/internal/options"
)

// OptionSnapshot is one option's introspection row (§3 Option, §4.9).
type OptionSnapshot struct {
	Name    string
	Kind    string
	Value   string
	Source  string
}

// Snapshot is the full introspection document (§4.7 "Emit an introspection
// snapshot": per-target info, per-option value, project hierarchy),
// persisted atomically by internal/state between configuration runs.
type Snapshot struct {
	ProjectName    string
	ProjectVersion string
	Targets        []TargetIntrospection
	Installs       []graph.InstallEntry
	Options        []OptionSnapshot
	Subprojects    []graph.SubprojectRecord
	Tests          []TestSnapshot
}

// TestSnapshot is one registered test or benchmark, flattened for
// introspection (graph.TestEntry carries a *graph.Target pointer, which
// does not survive a JSON round trip).
type TestSnapshot struct {
	Name        string
	Target      string
	Args        []string
	IsBenchmark bool
}

func kindName(k options.Kind) string {
	switch k {
	case options.KindString:
		return "string"
	case options.KindIntRange:
		return "integer"
	case options.KindBool:
		return "boolean"
	case options.KindChoice:
		return "combo"
	case options.KindStringArray:
		return "array"
	case options.KindFeature:
		return "feature"
	}
	return "?"
}

// BuildSnapshot assembles the introspection document from a lowered Plan,
// the option store, and the BOG's subproject hierarchy.
func BuildSnapshot(plan *Plan, opts *options.Store, bog *graph.BOG) *Snapshot {
	snap := &Snapshot{
		ProjectName:    plan.ProjectName,
		ProjectVersion: plan.ProjectVersion,
		Targets:        plan.Targets,
		Installs:       plan.Installs,
		Subprojects:    bog.Subprojects,
	}
	for _, te := range bog.Tests {
		targetName := ""
		if te.Target != nil {
			targetName = te.Target.Name
		}
		snap.Tests = append(snap.Tests, TestSnapshot{
			Name:        te.Name,
			Target:      targetName,
			Args:        te.Args,
			IsBenchmark: te.IsBenchmark,
		})
	}
	for _, entry := range opts.All() {
		snap.Options = append(snap.Options, OptionSnapshot{
			Name:   entry.Name,
			Kind:   kindName(entry.Opt.Decl.Kind),
			Value:  entry.Opt.Current,
			Source: entry.Opt.Source.String(),
		})
	}
	return snap
}
