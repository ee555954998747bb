package backend

import (
	"strings"

	"github.com/mbuild/mbs/internal/graph"
)

// customCommandStatement lowers one custom_target()/run_target() into its
// build statement. A custom command's command template is substituted once
// against all of its inputs/outputs together (ninja natively supports
// multiple outputs per build edge), matching how a single invocation of the
// underlying tool is expected to produce every declared output at once.
func customCommandStatement(c *graph.CustomCommand) (Statement, error) {
	cmd, err := c.SubstitutePlaceholders()
	if err != nil {
		return Statement{}, err
	}
	rule := "custom"
	if c.Console {
		rule = "console"
	}
	desc := "custom " + c.Name
	if c.Capture {
		cmd = append([]string{"/bin/sh", "-c", strings.Join(cmd, " ") + " > " + firstOr(c.Outputs, "/dev/null")})
	}
	return Statement{
		Rule:        rule,
		Outputs:     c.Outputs,
		Inputs:      c.Inputs,
		Command:     cmd,
		Depfile:     c.Depfile,
		Description: desc,
	}, nil
}

func firstOr(ss []string, fallback string) string {
	if len(ss) == 0 {
		return fallback
	}
	return ss[0]
}

// generatedListStatements lowers one generator.process(...) result into one
// build statement per input (§4.7 "Generate one build statement per output
// of each custom target"), since a generator invokes its program separately
// for every input file, unlike a custom_target's single shared invocation.
func generatedListStatements(l *graph.GeneratedList) []Statement {
	outs := l.Outputs()
	stmts := make([]Statement, len(l.Inputs))
	for i, in := range l.Inputs {
		args := append([]string{}, l.Generator.Arguments...)
		for j, a := range args {
			a = strings.ReplaceAll(a, "@INPUT@", in)
			a = strings.ReplaceAll(a, "@OUTPUT@", outs[i])
			args[j] = a
		}
		cmd := append([]string{l.Generator.Program}, args...)
		stmts[i] = Statement{
			Rule:        "custom",
			Outputs:     []string{outs[i]},
			Inputs:      []string{in},
			Command:     cmd,
			Depfile:     l.Generator.Depfile,
			Description: "generate " + outs[i],
		}
	}
	return stmts
}
