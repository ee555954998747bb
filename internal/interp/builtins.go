package interp

import (
	"context"
	"os/exec"
	"path"
	"sort"
	"strings"

	"github.com/mbuild/mbs/internal/graph"
	"github.com/mbuild/mbs/internal/lexer"
	"github.com/mbuild/mbs/internal/machine"
	"github.com/mbuild/mbs/internal/options"
	"github.com/mbuild/mbs/internal/resolver"
	"github.com/mbuild/mbs/internal/value"
)

// builtinFunc is the shape every top-level built-in function implements
// (§4.3.[EXPANDED] builtin inventory), dispatched by evalCall after disabler
// absorption has already been checked on the already-evaluated arguments.
type builtinFunc func(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error)

// builtins is the complete top-level function table named by
// §4.3.[EXPANDED].
var builtins = map[string]builtinFunc{
	"project":                   biProject,
	"executable":                biExecutable,
	"static_library":            biStaticLibrary,
	"shared_library":            biSharedLibrary,
	"shared_module":             biSharedModule,
	"library":                   biLibrary,
	"jar":                       biJar,
	"custom_target":             biCustomTarget,
	"run_target":                biRunTarget,
	"generator":                 biGenerator,
	"dependency":                biDependency,
	"declare_dependency":        biDeclareDependency,
	"configuration_data":        biConfigurationData,
	"configure_file":            biConfigureFile,
	"include_directories":       biIncludeDirectories,
	"subdir":                    biSubdir,
	"subproject":                biSubproject,
	"get_option":                biGetOption,
	"install_data":              biInstallData,
	"install_headers":           biInstallHeaders,
	"install_man":               biInstallMan,
	"add_languages":             biAddLanguages,
	"add_project_arguments":     biAddProjectArguments,
	"add_global_arguments":      biAddGlobalArguments,
	"add_project_link_arguments": biAddProjectLinkArguments,
	"test":                      biTest,
	"benchmark":                 biBenchmark,
	"find_program":              biFindProgram,
	"files":                     biFiles,
	"environment":               biEnvironment,
	"disabler":                  biDisabler,
	"is_disabler":               biIsDisabler,
	"assert":                    biAssert,
	"error":                     biError,
	"warning":                   biWarning,
	"message":                   biMessage,
	"summary":                   biSummary,
}

func biProject(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) < 1 || args[0].Kind != value.KindStr {
		return value.Value{}, typeErrorf(pos, "project(): expected a name string as the first argument")
	}
	in.BOG.ProjectName = args[0].Str
	if v, ok := kwargs["version"]; ok {
		in.BOG.ProjectVersion = v.Str
	}
	var langs []string
	for _, a := range args[1:] {
		if a.Kind == value.KindStr {
			langs = append(langs, a.Str)
		}
	}
	if v, ok := kwargs["default_options"]; ok && v.Kind == value.KindArray {
		for _, e := range v.Array {
			if e.Kind != value.KindStr {
				continue
			}
			name, val, ok := splitKeyEquals(e.Str)
			if ok {
				if err := in.Options.SetProjectDefault(name, val); err != nil {
					return value.Value{}, wrapResourceOrValue(pos, err)
				}
			}
		}
	}
	if err := in.discoverLanguages(pos, langs); err != nil {
		return value.Value{}, err
	}
	return value.Unset(), nil
}

func splitKeyEquals(s string) (key, val string, ok bool) {
	i := strings.IndexByte(s, '=')
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}

func wrapResourceOrValue(pos lexer.Position, err error) error {
	return valueErrorf(pos, "%v", err)
}

// discoverLanguages performs compiler discovery for each newly-requested
// language on both machines (§4.5): "first mention triggers discovery,
// cached for the rest of the run" (§3 Lifecycle).
func (in *Interp) discoverLanguages(pos lexer.Position, langs []string) error {
	for _, lang := range langs {
		if in.languages[lang] {
			continue
		}
		in.languages[lang] = true
		strategy, ok := machine.DefaultProbeTable[lang]
		if !ok {
			return valueErrorf(pos, "unsupported language %q", lang)
		}
		for _, m := range []*machine.Machine{in.Build, in.Host} {
			if m == nil {
				continue
			}
			if _, found := m.GetCompiler(lang); found {
				continue
			}
			c, err := machine.DiscoverAll(context.Background(), strategy, exec.LookPath)
			if err != nil {
				return resourceErrorf(pos, err, "discovering %s compiler", lang)
			}
			m.SetCompiler(lang, c)
		}
	}
	return nil
}

func biExecutable(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	return in.buildTarget(pos, graph.Executable, args, kwargs)
}
func biStaticLibrary(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	return in.buildTarget(pos, graph.StaticLibrary, args, kwargs)
}
func biSharedLibrary(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	return in.buildTarget(pos, graph.SharedLibrary, args, kwargs)
}
func biSharedModule(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	return in.buildTarget(pos, graph.SharedModule, args, kwargs)
}
func biJar(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	return in.buildTarget(pos, graph.Jar, args, kwargs)
}

// biLibrary builds a static or shared library depending on the
// default_library project option (§4.3.[EXPANDED] "library (kind selected
// by a project default)").
func biLibrary(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	kind := graph.StaticLibrary
	if opt, ok := in.Options.Get("default_library"); ok && opt.Current == "shared" {
		kind = graph.SharedLibrary
	}
	return in.buildTarget(pos, kind, args, kwargs)
}

// buildTarget implements executable/library creation (§4.6): validates
// declared languages, resolves and checks source files, assigns the
// (subproject, name) identity, and propagates dependency-derived compile
// and link args.
func (in *Interp) buildTarget(pos lexer.Position, kind graph.TargetKind, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) < 1 || args[0].Kind != value.KindStr {
		return value.Value{}, typeErrorf(pos, "%s(): expected a name string as the first argument", kind)
	}
	name := args[0].Str
	t := &graph.Target{
		Identity:      graph.Identity{Subproject: in.subprojectName, Name: name},
		Kind:          kind,
		CompileArgs:   map[string][]string{},
		Install:       boolKwarg(kwargs, "install", kind == graph.Executable),
		InstallDir:    strKwarg(kwargs, "install_dir", ""),
		Native:        boolKwarg(kwargs, "native", false),
		DefinedInFile: in.currentFile(),
	}

	for _, a := range args[1:] {
		switch a.Kind {
		case value.KindStr:
			if err := in.checkSourceExists(pos, a.Str); err != nil {
				return value.Value{}, err
			}
			t.Sources = append(t.Sources, in.resolvePath(a.Str))
		case value.KindArray:
			for _, e := range a.Array {
				if e.Kind != value.KindStr {
					continue
				}
				if err := in.checkSourceExists(pos, e.Str); err != nil {
					return value.Value{}, err
				}
				t.Sources = append(t.Sources, in.resolvePath(e.Str))
			}
		case value.KindHolder:
			if gl, ok := a.Holder.(*graph.GeneratedList); ok {
				t.Sources = append(t.Sources, gl.Outputs()...)
				in.BOG.AddGeneratedList(gl)
			}
		}
	}

	if err := in.applyCompileAndLinkKwargs(t, kwargs); err != nil {
		return value.Value{}, err
	}

	if err := in.BOG.AddTarget(t); err != nil {
		return value.Value{}, valueErrorf(pos, "%v", err)
	}
	for _, lw := range t.LinkWith {
		if err := in.BOG.AddLinkEdge(t, lw); err != nil {
			return value.Value{}, valueErrorf(pos, "%v", err)
		}
	}
	if t.Install {
		in.BOG.Installs = append(in.BOG.Installs, graph.InstallEntry{
			Source:      t.Name,
			Destination: t.InstallDir,
			Mode:        0o755,
		})
	}
	return value.HolderValue(t), nil
}

// applyCompileAndLinkKwargs merges dependencies, link_with, and per-language
// "<lang>_args"/"link_args"/"include_directories" keyword arguments into t.
func (in *Interp) applyCompileAndLinkKwargs(t *graph.Target, kwargs map[string]value.Value) error {
	for key, v := range kwargs {
		switch {
		case key == "dependencies":
			deps := asHolderSlice(v)
			for _, h := range deps {
				d, ok := h.(*graph.Dependency)
				if !ok {
					continue
				}
				t.Dependencies = append(t.Dependencies, d)
				if !d.Found {
					continue
				}
				t.LinkArgs = append(t.LinkArgs, d.LinkArgs...)
				t.IncludeDirs = dedupAppend(t.IncludeDirs, d.IncludeDirs...)
				t.LinkWith = append(t.LinkWith, d.LinkWith...)
			}
		case key == "link_with":
			for _, h := range asHolderSlice(v) {
				if lt, ok := h.(*graph.Target); ok {
					t.LinkWith = append(t.LinkWith, lt)
				}
			}
		case key == "include_directories":
			if v.Kind == value.KindArray {
				for _, e := range v.Array {
					if e.Kind == value.KindStr {
						t.IncludeDirs = dedupAppend(t.IncludeDirs, e.Str)
					}
				}
			} else if v.Kind == value.KindStr {
				t.IncludeDirs = dedupAppend(t.IncludeDirs, v.Str)
			}
		case key == "link_args":
			t.LinkArgs = append(t.LinkArgs, stringsOf(v)...)
		case strings.HasSuffix(key, "_args"):
			lang := strings.TrimSuffix(key, "_args")
			t.CompileArgs[lang] = append(t.CompileArgs[lang], stringsOf(v)...)
		}
	}
	return nil
}

func dedupAppend(dst []string, items ...string) []string {
	seen := map[string]bool{}
	for _, d := range dst {
		seen[d] = true
	}
	for _, it := range items {
		if !seen[it] {
			seen[it] = true
			dst = append(dst, it)
		}
	}
	return dst
}

func stringsOf(v value.Value) []string {
	if v.Kind == value.KindStr {
		return []string{v.Str}
	}
	var out []string
	if v.Kind == value.KindArray {
		for _, e := range v.Array {
			if e.Kind == value.KindStr {
				out = append(out, e.Str)
			}
		}
	}
	return out
}

func asHolderSlice(v value.Value) []value.Holder {
	if v.Kind == value.KindHolder {
		return []value.Holder{v.Holder}
	}
	var out []value.Holder
	if v.Kind == value.KindArray {
		for _, e := range v.Array {
			if e.Kind == value.KindHolder {
				out = append(out, e.Holder)
			}
		}
	}
	return out
}

func boolKwarg(kwargs map[string]value.Value, key string, def bool) bool {
	if v, ok := kwargs[key]; ok && v.Kind == value.KindBool {
		return v.Bool
	}
	return def
}

func strKwarg(kwargs map[string]value.Value, key, def string) string {
	if v, ok := kwargs[key]; ok && v.Kind == value.KindStr {
		return v.Str
	}
	return def
}

func (in *Interp) currentFile() string {
	if in.sourceDir == "" {
		return "project.mbs"
	}
	return in.sourceDir + "/meson.build"
}

func biCustomTarget(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	name := ""
	if len(args) >= 1 && args[0].Kind == value.KindStr {
		name = args[0].Str
	}
	c := &graph.CustomCommand{
		Identity:         graph.Identity{Subproject: in.subprojectName, Name: name},
		Inputs:           stringsOf(kwargs["input"]),
		Outputs:          stringsOf(kwargs["output"]),
		Command:          stringsOf(kwargs["command"]),
		Depfile:          strKwarg(kwargs, "depfile", ""),
		Capture:          boolKwarg(kwargs, "capture", false),
		Feed:             boolKwarg(kwargs, "feed", false),
		Console:          boolKwarg(kwargs, "console", false),
		BuildByDefault:   boolKwarg(kwargs, "build_by_default", false),
		PrivateDir:       name + ".p",
		CurrentSourceDir: in.sourceDir,
	}
	if err := in.BOG.AddCustomCommand(c); err != nil {
		return value.Value{}, valueErrorf(pos, "%v", err)
	}
	return value.HolderValue(c), nil
}

func biRunTarget(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	name := ""
	if len(args) >= 1 && args[0].Kind == value.KindStr {
		name = args[0].Str
	}
	t := &graph.Target{
		Identity: graph.Identity{Subproject: in.subprojectName, Name: name},
		Kind:     graph.RunTarget,
		CompileArgs: map[string][]string{},
	}
	if err := in.BOG.AddTarget(t); err != nil {
		return value.Value{}, valueErrorf(pos, "%v", err)
	}
	return value.HolderValue(t), nil
}

func biGenerator(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) < 1 || args[0].Kind != value.KindStr {
		return value.Value{}, typeErrorf(pos, "generator(): expected a program name/path as the first argument")
	}
	g := &graph.Generator{
		Program:   args[0].Str,
		Output:    strKwarg(kwargs, "output", ""),
		Arguments: stringsOf(kwargs["arguments"]),
		Depfile:   strKwarg(kwargs, "depfile", ""),
		Capture:   boolKwarg(kwargs, "capture", false),
		Feed:      boolKwarg(kwargs, "feed", false),
	}
	return value.HolderValue(g), nil
}

func biDependency(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) < 1 || args[0].Kind != value.KindStr {
		return value.Value{}, typeErrorf(pos, "dependency(): expected a name string as the first argument")
	}
	req := resolver.Request{
		Name:     args[0].Str,
		Required: requiredOf(kwargs),
		Version:  stringsOf(kwargs["version"]),
		Static:   boolKwarg(kwargs, "static", false),
		Native:   boolKwarg(kwargs, "native", false),
		Modules:  stringsOf(kwargs["modules"]),
	}
	if v, ok := kwargs["fallback"]; ok {
		req.Fallback = stringsOf(v)
	}
	dep, err := in.Resolve.Resolve(context.Background(), req)
	if err != nil {
		return value.Value{}, dependencyNotFoundErrorf(pos, "%v", err)
	}
	return value.HolderValue(dep), nil
}

// requiredOf resolves the required: bool|feature keyword to a plain bool,
// consulting the feature's resolved state when it's a feature-option-value
// holder (§4.8 Configuration options).
func requiredOf(kwargs map[string]value.Value) bool {
	v, ok := kwargs["required"]
	if !ok {
		return true
	}
	if v.Kind == value.KindBool {
		return v.Bool
	}
	if v.Kind == value.KindHolder {
		if fh, ok := v.Holder.(*options.FeatureHolder); ok {
			return fh.State == options.FeatureEnabled
		}
	}
	return true
}

func biDeclareDependency(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	d := &graph.Dependency{
		Found:       true,
		CompileArgs: stringsOf(kwargs["compile_args"]),
		LinkArgs:    stringsOf(kwargs["link_args"]),
		IncludeDirs: stringsOf(kwargs["include_directories"]),
		Sources:     stringsOf(kwargs["sources"]),
	}
	for _, h := range asHolderSlice(kwargs["link_with"]) {
		if t, ok := h.(*graph.Target); ok {
			d.LinkWith = append(d.LinkWith, t)
		}
	}
	return value.HolderValue(d), nil
}

func biConfigurationData(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	return value.HolderValue(graph.NewConfigurationData()), nil
}

// biConfigureFile implements configure_file (§4.6): straight @var@
// substitution or #mesondefine rewriting, depending on the configuration
// data's declared values.
func biConfigureFile(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	input := strKwarg(kwargs, "input", "")
	output := strKwarg(kwargs, "output", "")
	if input == "" || output == "" {
		return value.Value{}, typeErrorf(pos, "configure_file(): requires input: and output:")
	}
	cfgVal, ok := kwargs["configuration"]
	if !ok || cfgVal.Kind != value.KindHolder {
		return value.Value{}, typeErrorf(pos, "configure_file(): requires configuration:")
	}
	cfg, ok := cfgVal.Holder.(*graph.ConfigurationData)
	if !ok {
		return value.Value{}, typeErrorf(pos, "configure_file(): configuration: must be a configuration-data object")
	}
	if err := in.checkSourceExists(pos, input); err != nil {
		return value.Value{}, err
	}
	raw, err := in.FS.ReadFile(path.Join(in.SourceRoot, in.resolvePath(input)))
	if err != nil {
		return value.Value{}, resourceErrorf(pos, err, "reading configure_file input %q", input)
	}
	rendered := renderConfigureTemplate(string(raw), cfg)
	outPath := path.Join(in.SourceRoot, in.resolvePath(output))
	if err := in.FS.WriteFile(outPath, []byte(rendered)); err != nil {
		return value.Value{}, resourceErrorf(pos, err, "writing configure_file output %q", output)
	}
	return value.Str(in.resolvePath(output)), nil
}

func renderConfigureTemplate(src string, cfg *graph.ConfigurationData) string {
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#mesondefine") {
			lines[i] = renderMesondefine(trimmed, cfg)
			continue
		}
		lines[i] = substituteAtVars(line, cfg)
	}
	return strings.Join(lines, "\n")
}

func substituteAtVars(line string, cfg *graph.ConfigurationData) string {
	var out strings.Builder
	i := 0
	for i < len(line) {
		if line[i] != '@' {
			out.WriteByte(line[i])
			i++
			continue
		}
		end := strings.IndexByte(line[i+1:], '@')
		if end < 0 {
			out.WriteByte(line[i])
			i++
			continue
		}
		key := line[i+1 : i+1+end]
		if v, ok := cfg.Get(key); ok {
			if cfg.IsQuoted(key) {
				out.WriteString(`"` + v.String() + `"`)
			} else {
				out.WriteString(v.String())
			}
		} else {
			out.WriteString("@" + key + "@")
		}
		i += end + 2
	}
	return out.String()
}

func renderMesondefine(line string, cfg *graph.ConfigurationData) string {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return line
	}
	name := fields[1]
	v, ok := cfg.Get(name)
	if !ok {
		return "/* #undef " + name + " */"
	}
	if v.Kind == value.KindBool {
		if v.Bool {
			return "#define " + name
		}
		return "/* #undef " + name + " */"
	}
	return "#define " + name + " " + v.String()
}

func biIncludeDirectories(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	var out []value.Value
	for _, a := range args {
		if a.Kind == value.KindStr {
			out = append(out, value.Str(in.resolvePath(a.Str)))
		}
	}
	return value.Array(out...), nil
}

func biSubdir(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) != 1 || args[0].Kind != value.KindStr {
		return value.Value{}, typeErrorf(pos, "subdir(): expected one string argument")
	}
	prev := in.sourceDir
	in.sourceDir = path.Join(prev, args[0].Str)
	defer func() { in.sourceDir = prev }()
	if err := in.RunFile(in.resolvePath("meson.build")); err != nil {
		return value.Value{}, err
	}
	return value.Unset(), nil
}

// subprojectHandle is the holder returned by subproject(), exposing
// .get_variable() and .found() (§4.3.[EXPANDED]).
type subprojectHandle struct {
	res *subprojectResult
}

func (h *subprojectHandle) TypeName() string { return "subproject-handle" }

func (h *subprojectHandle) Method(name string) (value.Method, bool) {
	switch name {
	case "found":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			return value.Bool(h.res.err == nil), nil
		}}, true
	case "get_variable":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			if len(args) != 1 || args[0].Kind != value.KindStr {
				return value.Value{}, typeErrorf(lexer.Position{}, "get_variable(): expected one string argument")
			}
			v, ok := h.res.scope.Get(args[0].Str)
			if !ok {
				if len(args) >= 2 {
					return args[1], nil
				}
				return value.Value{}, typeErrorf(lexer.Position{}, "subproject %q has no variable %q", h.res.name, args[0].Str)
			}
			return v, nil
		}}, true
	}
	return value.Method{}, false
}

func biSubproject(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) < 1 || args[0].Kind != value.KindStr {
		return value.Value{}, typeErrorf(pos, "subproject(): expected a name string as the first argument")
	}
	res, err := in.enterSubproject(args[0].Str, nil)
	if err != nil {
		return value.Value{}, resourceErrorf(pos, err, "entering subproject %q", args[0].Str)
	}
	return value.HolderValue(&subprojectHandle{res: res}), nil
}

func biGetOption(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) != 1 || args[0].Kind != value.KindStr {
		return value.Value{}, typeErrorf(pos, "get_option(): expected one string argument")
	}
	opt, ok := in.Options.Get(args[0].Str)
	if !ok {
		return value.Value{}, nameErrorf(pos, "unknown option %q", args[0].Str)
	}
	v, err := optionValue(opt)
	if err != nil {
		return v, err
	}
	if fh, ok := v.Holder.(*options.FeatureHolder); ok {
		if af, ok := in.Options.Get("auto_features"); ok {
			fh.AutoFeatures, _ = options.ParseFeature(af.Current)
		}
	}
	return v, nil
}

func optionValue(opt *options.Option) (value.Value, error) {
	switch opt.Decl.Kind {
	case options.KindBool:
		return value.Bool(opt.Current == "true"), nil
	case options.KindIntRange:
		n, err := parseIntOption(opt.Current)
		if err != nil {
			return value.Value{}, err
		}
		return value.Int(n), nil
	case options.KindFeature:
		f, err := options.ParseFeature(opt.Current)
		if err != nil {
			return value.Value{}, err
		}
		return value.HolderValue(&options.FeatureHolder{State: f}), nil
	case options.KindStringArray:
		var out []value.Value
		if opt.Current != "" {
			for _, s := range strings.Split(opt.Current, ",") {
				out = append(out, value.Str(s))
			}
		}
		return value.Array(out...), nil
	default:
		return value.Str(opt.Current), nil
	}
}

func parseIntOption(s string) (int64, error) {
	var n int64
	var neg bool
	i := 0
	if len(s) > 0 && s[0] == '-' {
		neg = true
		i = 1
	}
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, valueErrorf(lexer.Position{}, "invalid integer option value %q", s)
		}
		n = n*10 + int64(s[i]-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}

func biInstallData(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	dir := strKwarg(kwargs, "install_dir", "share")
	for _, a := range args {
		if a.Kind != value.KindStr {
			continue
		}
		in.BOG.Installs = append(in.BOG.Installs, graph.InstallEntry{Source: in.resolvePath(a.Str), Destination: dir, Mode: 0o644})
	}
	return value.Unset(), nil
}

func biInstallHeaders(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	dir := strKwarg(kwargs, "subdir", "")
	for _, a := range args {
		if a.Kind != value.KindStr {
			continue
		}
		in.BOG.Installs = append(in.BOG.Installs, graph.InstallEntry{Source: in.resolvePath(a.Str), Destination: "include/" + dir, Mode: 0o644})
	}
	return value.Unset(), nil
}

func biInstallMan(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	for _, a := range args {
		if a.Kind != value.KindStr {
			continue
		}
		in.BOG.Installs = append(in.BOG.Installs, graph.InstallEntry{Source: in.resolvePath(a.Str), Destination: "share/man", Mode: 0o644})
	}
	return value.Unset(), nil
}

func biAddLanguages(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	var langs []string
	for _, a := range args {
		if a.Kind == value.KindStr {
			langs = append(langs, a.Str)
		}
	}
	if err := in.discoverLanguages(pos, langs); err != nil {
		if !boolKwarg(kwargs, "required", true) {
			return value.Bool(false), nil
		}
		return value.Value{}, err
	}
	return value.Bool(true), nil
}

func biAddProjectArguments(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	return in.addArgs(in.projectArgs, args, kwargs)
}

func biAddGlobalArguments(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	return in.addArgs(in.globalArgs, args, kwargs)
}

func biAddProjectLinkArguments(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	return in.addArgs(in.projectLinkArgs, args, kwargs)
}

func (in *Interp) addArgs(store map[string][]string, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	var flags []string
	for _, a := range args {
		if a.Kind == value.KindStr {
			flags = append(flags, a.Str)
		}
	}
	langsVal, ok := kwargs["language"]
	var langs []string
	if ok {
		langs = stringsOf(langsVal)
	}
	if len(langs) == 0 {
		langs = []string{"c"}
	}
	for _, lang := range langs {
		store[lang] = append(store[lang], flags...)
	}
	return value.Unset(), nil
}

func biTest(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	return in.registerTest(pos, args, kwargs, false)
}

func biBenchmark(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	return in.registerTest(pos, args, kwargs, true)
}

func (in *Interp) registerTest(pos lexer.Position, args []value.Value, kwargs map[string]value.Value, bench bool) (value.Value, error) {
	if len(args) < 2 || args[0].Kind != value.KindStr || args[1].Kind != value.KindHolder {
		return value.Value{}, typeErrorf(pos, "test(): expected (name, executable)")
	}
	t, ok := args[1].Holder.(*graph.Target)
	if !ok {
		return value.Value{}, typeErrorf(pos, "test(): second argument must be an executable target")
	}
	in.BOG.Tests = append(in.BOG.Tests, graph.TestEntry{
		Name:        args[0].Str,
		Target:      t,
		Args:        stringsOf(kwargs["args"]),
		IsBenchmark: bench,
	})
	return value.Unset(), nil
}

// programHandle is the holder returned by find_program() (§4.3.[EXPANDED]).
type programHandle struct {
	name  string
	path  string
	found bool
}

func (p *programHandle) TypeName() string { return "external-program" }

func (p *programHandle) Method(name string) (value.Method, bool) {
	switch name {
	case "found":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			return value.Bool(p.found), nil
		}}, true
	case "path":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			return value.Str(p.path), nil
		}}, true
	}
	return value.Method{}, false
}

func biFindProgram(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) < 1 || args[0].Kind != value.KindStr {
		return value.Value{}, typeErrorf(pos, "find_program(): expected a program name as the first argument")
	}
	name := args[0].Str
	path, err := exec.LookPath(name)
	if err != nil {
		if boolKwarg(kwargs, "required", true) {
			return value.Value{}, resourceErrorf(pos, err, "program %q not found", name)
		}
		return value.HolderValue(&programHandle{name: name, found: false}), nil
	}
	return value.HolderValue(&programHandle{name: name, path: path, found: true}), nil
}

func biFiles(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	var out []value.Value
	for _, a := range args {
		if a.Kind != value.KindStr {
			continue
		}
		if err := in.checkSourceExists(pos, a.Str); err != nil {
			return value.Value{}, err
		}
		out = append(out, value.Str(in.resolvePath(a.Str)))
	}
	return value.Array(out...), nil
}

// environmentHolder is the holder returned by environment() (§4.3.[EXPANDED]),
// an ordered string->string map with PATH-like accumulation semantics.
type environmentHolder struct {
	vars *value.Dict
}

func (e *environmentHolder) TypeName() string { return "environment" }

func (e *environmentHolder) Method(name string) (value.Method, bool) {
	switch name {
	case "set":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			if len(args) != 2 {
				return value.Value{}, typeErrorf(lexer.Position{}, "set(): expected (key, value)")
			}
			e.vars.Set(args[0].Str, args[1])
			return value.Unset(), nil
		}}, true
	case "append", "prepend":
		return value.Method{Name: name, Fn: func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			if len(args) != 2 {
				return value.Value{}, typeErrorf(lexer.Position{}, "%s(): expected (key, value)", name)
			}
			cur, _ := e.vars.Get(args[0].Str)
			sep := ":"
			var combined string
			if name == "append" {
				combined = cur.Str + sep + args[1].Str
			} else {
				combined = args[1].Str + sep + cur.Str
			}
			e.vars.Set(args[0].Str, value.Str(strings.Trim(combined, sep)))
			return value.Unset(), nil
		}}, true
	}
	return value.Method{}, false
}

func biEnvironment(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	return value.HolderValue(&environmentHolder{vars: value.NewDict()}), nil
}

func biDisabler(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	return value.Disabler(), nil
}

func biIsDisabler(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Value{}, typeErrorf(pos, "is_disabler(): expected one argument")
	}
	return value.Bool(args[0].IsDisabler()), nil
}

func biAssert(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) < 1 || args[0].Kind != value.KindBool {
		return value.Value{}, typeErrorf(pos, "assert(): expected a boolean first argument")
	}
	if args[0].Bool {
		return value.Unset(), nil
	}
	msg := "assertion failed"
	if len(args) >= 2 && args[1].Kind == value.KindStr {
		msg = args[1].Str
	}
	return value.Value{}, valueErrorf(pos, "%s", msg)
}

func biError(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	return value.Value{}, valueErrorf(pos, "%s", joinMessageArgs(args))
}

func biWarning(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	in.warnings = append(in.warnings, joinMessageArgs(args))
	return value.Unset(), nil
}

func biMessage(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	in.Log.Print(joinMessageArgs(args))
	return value.Unset(), nil
}

func joinMessageArgs(args []value.Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, " ")
}

func biSummary(in *Interp, pos lexer.Position, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	section := strKwarg(kwargs, "section", "")
	if len(args) == 2 && args[0].Kind == value.KindStr {
		in.summaries = append(in.summaries, summaryEntry{Section: section, Key: args[0].Str, Value: args[1]})
		return value.Unset(), nil
	}
	if len(args) == 1 && args[0].Kind == value.KindDict {
		keys := args[0].Dict.Keys()
		sort.Strings(keys)
		for _, k := range keys {
			v, _ := args[0].Dict.Get(k)
			in.summaries = append(in.summaries, summaryEntry{Section: section, Key: k, Value: v})
		}
		return value.Unset(), nil
	}
	return value.Value{}, typeErrorf(pos, "summary(): expected (key, value) or a dict")
}
