package backend

import (
	"github.com/mbuild/mbs/internal/graph"
	"github.com/mbuild/mbs/internal/options"
	"github.com/mbuild/mbs/internal/trace"
)

// Lower walks the frozen BOG and produces its backend-agnostic Plan (§4.7).
// projectArgs/globalArgs are the per-language argument accumulators
// (interp.Interp.ProjectArgs/GlobalArgs) populated by
// add_project_arguments()/add_global_arguments(); Lower never mutates the
// BOG, matching the "BOG is frozen before lowering" control-flow guarantee
// (§2).
func Lower(bog *graph.BOG, opts *options.Store, projectArgs, globalArgs map[string][]string) (*Plan, error) {
	ev := trace.Event("backend:lower", 3)
	defer ev.Done()

	plan := &Plan{ProjectName: bog.ProjectName, ProjectVersion: bog.ProjectVersion}

	// First pass: compile statements, recorded per target so link/archive
	// lowering can resolve a link_whole target's objects without re-deriving
	// them (targets are visited in declaration order, §4.7 determinism).
	targetObjects := make(map[*graph.Target][]string, len(bog.Targets))
	for _, t := range bog.Targets {
		if t.Kind == graph.CustomTarget || t.Kind == graph.RunTarget {
			continue // has no compile step of its own
		}
		stmts, objects := compileStatements(t, projectArgs, globalArgs, opts)
		plan.Statements = append(plan.Statements, stmts...)
		targetObjects[t] = objects
	}

	// Second pass: link/archive statements, now that every target's object
	// list is known.
	for _, t := range bog.Targets {
		switch t.Kind {
		case graph.CustomTarget, graph.RunTarget:
			continue
		}
		stmt := linkStatement(t, targetObjects[t], targetObjects)
		plan.Statements = append(plan.Statements, stmt)

		if t.Install {
			installDest := t.InstallDir + "/" + outputPathFor(t)
			if rewrite, ok := installRPathRewrite(t, installDest); ok {
				plan.Statements = append(plan.Statements, rewrite)
			}
		}
	}

	for _, c := range bog.CustomCommands {
		stmt, err := customCommandStatement(c)
		if err != nil {
			return nil, err
		}
		plan.Statements = append(plan.Statements, stmt)
	}

	for _, l := range bog.GeneratedLists {
		plan.Statements = append(plan.Statements, generatedListStatements(l)...)
	}

	plan.Installs = bog.Installs
	plan.Targets = introspectTargets(bog)
	return plan, nil
}

func introspectTargets(bog *graph.BOG) []TargetIntrospection {
	out := make([]TargetIntrospection, 0, len(bog.Targets))
	for _, t := range bog.Targets {
		var installPaths []string
		if t.Install {
			installPaths = append(installPaths, t.InstallDir+"/"+outputPathFor(t))
		}
		out = append(out, TargetIntrospection{
			Name:          t.Name,
			Subproject:    t.Subproject,
			Type:          t.Kind.String(),
			DefinedInFile: t.DefinedInFile,
			Sources:       t.Sources,
			CompileArgs:   t.CompileArgs,
			InstallPaths:  installPaths,
		})
	}
	return out
}
