package graph

import (
	"strconv"
	"strings"

	"github.com/mbuild/mbs/internal/value"
)

// CustomCommand is a user-specified build step (§3 Custom Command).
type CustomCommand struct {
	Identity
	Inputs   []string
	Outputs  []string // relative to the target's private build subdir
	Command  []string // template words, substituted per §3 placeholder list
	Depfile  string
	Capture  bool // stdout -> first output
	Feed     bool // first input -> stdin
	Console  bool
	BuildByDefault bool
	Env      map[string]string

	PrivateDir string // e.g. "<name>.p", used for @PRIVATE_DIR@ and escape validation
	CurrentSourceDir string
}

func (c *CustomCommand) TypeName() string { return "custom-target" }

func (c *CustomCommand) Method(name string) (value.Method, bool) {
	switch name {
	case "full_path":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			if len(c.Outputs) == 0 {
				return value.Str(""), nil
			}
			return value.Str(c.Outputs[0]), nil
		}}, true
	}
	return value.Method{}, false
}

// SubstitutePlaceholders expands the command template's §3 placeholders
// against one concrete invocation (used when a custom target has multiple
// numbered inputs/outputs, one word at a time).
func (c *CustomCommand) SubstitutePlaceholders() ([]string, error) {
	out := make([]string, len(c.Command))
	for i, word := range c.Command {
		expanded, err := c.substituteWord(word)
		if err != nil {
			return nil, err
		}
		out[i] = expanded
	}
	return out, nil
}

func (c *CustomCommand) substituteWord(word string) (string, error) {
	r := strings.NewReplacer(
		"@OUTDIR@", c.PrivateDir,
		"@DEPFILE@", c.Depfile,
		"@CURRENT_SOURCE_DIR@", c.CurrentSourceDir,
		"@PRIVATE_DIR@", c.PrivateDir,
	)
	word = r.Replace(word)
	if len(c.Inputs) > 0 {
		word = strings.ReplaceAll(word, "@INPUT@", strings.Join(c.Inputs, " "))
		word = strings.ReplaceAll(word, "@INPUT0@", c.Inputs[0])
		word = strings.ReplaceAll(word, "@BASENAME@", trimExt(base(c.Inputs[0])))
		word = strings.ReplaceAll(word, "@PLAINNAME@", base(c.Inputs[0]))
	}
	if len(c.Outputs) > 0 {
		word = strings.ReplaceAll(word, "@OUTPUT@", strings.Join(c.Outputs, " "))
	}
	for i, in := range c.Inputs {
		word = strings.ReplaceAll(word, "@INPUT"+strconv.Itoa(i)+"@", in)
	}
	for i, out := range c.Outputs {
		word = strings.ReplaceAll(word, "@OUTPUT"+strconv.Itoa(i)+"@", out)
	}
	return word, nil
}

func base(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

func trimExt(p string) string {
	if i := strings.LastIndexByte(p, '.'); i > 0 {
		return p[:i]
	}
	return p
}

// ValidateOutputs enforces that every output path is strictly relative and
// does not escape the target's private output directory (§4.6).
func (c *CustomCommand) ValidateOutputs() error {
	for _, o := range c.Outputs {
		if strings.HasPrefix(o, "/") {
			return newPathEscapeError(o)
		}
		if strings.Contains(o, "..") {
			return newPathEscapeError(o)
		}
	}
	return nil
}

// Generator is a reusable transform producing a generated-list (§4.6).
type Generator struct {
	Program   string
	Output    string // output name template, may contain @BASENAME@ etc.
	Arguments []string
	Depfile   string
	Capture   bool
	Feed      bool
}

func (g *Generator) TypeName() string { return "generator" }

func (g *Generator) Method(name string) (value.Method, bool) {
	if name != "process" {
		return value.Method{}, false
	}
	return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		var inputs []string
		for _, a := range args {
			inputs = append(inputs, a.Str)
		}
		return value.HolderValue(&GeneratedList{Generator: g, Inputs: inputs}), nil
	}}, true
}

// GeneratedList is the holder returned by generator.process(...),
// consumable as a source list in subsequent targets (§4.6).
type GeneratedList struct {
	Generator *Generator
	Inputs    []string
}

func (l *GeneratedList) TypeName() string { return "generated-list" }
func (l *GeneratedList) Method(name string) (value.Method, bool) { return value.Method{}, false }

// Outputs computes this generated-list's concrete output file names,
// substituting @BASENAME@/@PLAINNAME@ in the generator's output template
// per input (§4.6 Generator).
func (l *GeneratedList) Outputs() []string {
	outs := make([]string, len(l.Inputs))
	for i, in := range l.Inputs {
		name := l.Generator.Output
		name = strings.ReplaceAll(name, "@BASENAME@", trimExt(base(in)))
		name = strings.ReplaceAll(name, "@PLAINNAME@", base(in))
		outs[i] = name
	}
	return outs
}
