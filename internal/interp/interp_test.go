package interp

import (
	"testing"

	"github.com/mbuild/mbs/internal/graph"
	"github.com/mbuild/mbs/internal/machine"
	"github.com/mbuild/mbs/internal/options"
)

// fakeFS is an in-memory FileSystem used so tests never touch a real
// source tree, mirroring the resolver package's preference for fake
// collaborators over real subprocess/filesystem access in unit tests.
type fakeFS struct {
	files map[string]string
}

func newFakeFS(files map[string]string) *fakeFS { return &fakeFS{files: files} }

func (f *fakeFS) ReadFile(p string) ([]byte, error) {
	s, ok := f.files[p]
	if !ok {
		return nil, &notFoundErr{p}
	}
	return []byte(s), nil
}

func (f *fakeFS) WriteFile(p string, data []byte) error {
	f.files[p] = string(data)
	return nil
}

func (f *fakeFS) Exists(p string) bool {
	_, ok := f.files[p]
	return ok
}

type notFoundErr struct{ path string }

func (e *notFoundErr) Error() string { return "not found: " + e.path }

func newTestInterp(files map[string]string) *Interp {
	opts := options.New()
	opts.Declare(options.Declaration{Name: "default_library", Kind: options.KindChoice, Default: "static", Choices: []string{"static", "shared"}})
	build := machine.New(machine.Build, "linux", "x86_64", "little")
	host := machine.New(machine.Host, "linux", "x86_64", "little")
	bog := graph.NewBOG("", "")
	in := New("/src", opts, build, host, bog)
	in.FS = newFakeFS(files)
	return in
}

func mustRun(t *testing.T, in *Interp, src string) {
	t.Helper()
	in.FS.(*fakeFS).files["/src/project.mbs"] = src
	if err := in.RunFile("project.mbs"); err != nil {
		t.Fatalf("RunFile: %v", err)
	}
}

func TestProjectAndExecutable(t *testing.T) {
	in := newTestInterp(map[string]string{"/src/main.c": "int main(){}"})
	mustRun(t, in, `
project('demo')
executable('demo', 'main.c')
`)
	if in.BOG.ProjectName != "demo" {
		t.Fatalf("project name = %q", in.BOG.ProjectName)
	}
	if len(in.BOG.Targets) != 1 || in.BOG.Targets[0].Name != "demo" {
		t.Fatalf("targets = %+v", in.BOG.Targets)
	}
	if in.BOG.Targets[0].Kind != graph.Executable {
		t.Fatalf("kind = %v", in.BOG.Targets[0].Kind)
	}
}

func TestMissingSourceIsResourceError(t *testing.T) {
	in := newTestInterp(nil)
	in.FS.(*fakeFS).files["/src/project.mbs"] = `
project('demo')
executable('demo', 'missing.c')
`
	err := in.RunFile("project.mbs")
	if err == nil {
		t.Fatal("expected an error for a missing source file")
	}
	ierr, ok := err.(*Error)
	if !ok || ierr.Kind != KindResource {
		t.Fatalf("got %#v, want a KindResource *Error", err)
	}
}

func TestDisablerAbsorptionInIfCondition(t *testing.T) {
	in := newTestInterp(nil)
	mustRun(t, in, `
project('demo')
d = disabler()
if d
  error('should never run')
endif
message('reached the end')
`)
}

func TestDisablerAbsorptionInBinaryExpr(t *testing.T) {
	in := newTestInterp(nil)
	mustRun(t, in, `
project('demo')
d = disabler()
x = d + 'str'
assert(is_disabler(x), 'expected x to stay a disabler')
`)
}

func TestForeachOverList(t *testing.T) {
	in := newTestInterp(nil)
	mustRun(t, in, `
project('demo')
total = 0
foreach n : [1, 2, 3]
  total += n
endforeach
assert(total == 6, 'expected sum of 1..3')
`)
}

func TestForeachBreakAndContinue(t *testing.T) {
	in := newTestInterp(nil)
	mustRun(t, in, `
project('demo')
seen = []
foreach n : [1, 2, 3, 4, 5]
  if n == 2
    continue
  endif
  if n == 4
    break
  endif
  seen += [n]
endforeach
assert(seen == [1, 3], 'expected [1, 3]')
`)
}

func TestAugmentedAssignString(t *testing.T) {
	in := newTestInterp(nil)
	mustRun(t, in, `
project('demo')
s = 'a'
s += 'b'
assert(s == 'ab', 'expected concatenation')
`)
}

func TestGetOptionBool(t *testing.T) {
	opts := options.New()
	opts.Declare(options.Declaration{Name: "tests", Kind: options.KindBool, Default: "true"})
	build := machine.New(machine.Build, "linux", "x86_64", "little")
	host := machine.New(machine.Host, "linux", "x86_64", "little")
	bog := graph.NewBOG("", "")
	in := New("/src", opts, build, host, bog)
	in.FS = newFakeFS(nil)
	mustRun(t, in, `
project('demo')
assert(get_option('tests'), 'expected tests option to default true')
`)
}

func TestLibraryRespectsDefaultLibraryOption(t *testing.T) {
	in := newTestInterp(map[string]string{"/src/lib.c": "void f(){}"})
	in.Options.SetCommandLine("default_library", "shared")
	mustRun(t, in, `
project('demo')
l = library('mylib', 'lib.c')
`)
	if len(in.BOG.Targets) != 1 || in.BOG.Targets[0].Kind != graph.SharedLibrary {
		t.Fatalf("targets = %+v", in.BOG.Targets)
	}
}

func TestFStringSubstitution(t *testing.T) {
	in := newTestInterp(nil)
	mustRun(t, in, `
project('demo')
name = 'world'
greeting = f'hello @name@'
assert(greeting == 'hello world', 'got unexpected f-string expansion')
`)
}

func TestStringMethods(t *testing.T) {
	in := newTestInterp(nil)
	mustRun(t, in, `
project('demo')
s = '  Hello  '
assert(s.strip() == 'Hello', 'strip failed')
assert(s.strip().to_lower() == 'hello', 'to_lower failed')
parts = 'a,b,c'.split(',')
assert(parts.length() == 3, 'split failed')
assert(','.join(['a', 'b', 'c']) == 'a,b,c', 'join failed')
`)
}

func TestDictMethods(t *testing.T) {
	in := newTestInterp(nil)
	mustRun(t, in, `
project('demo')
d = {'a': 1, 'b': 2}
assert(d.length() == 2, 'length failed')
assert(d.has_key('a'), 'has_key failed')
assert(d.get('missing', 99) == 99, 'get default failed')
`)
}

func TestSummaryAccumulates(t *testing.T) {
	in := newTestInterp(nil)
	mustRun(t, in, `
project('demo')
summary('enabled', true, section: 'features')
`)
	if len(in.summaries) != 1 || in.summaries[0].Key != "enabled" || in.summaries[0].Section != "features" {
		t.Fatalf("summaries = %+v", in.summaries)
	}
}

func TestWarningAccumulates(t *testing.T) {
	in := newTestInterp(nil)
	mustRun(t, in, `
project('demo')
warning('this is deprecated')
`)
	if len(in.Warnings()) != 1 {
		t.Fatalf("warnings = %v", in.Warnings())
	}
}

func TestSubdirScoping(t *testing.T) {
	in := newTestInterp(map[string]string{
		"/src/sub/meson.build": `executable('subexe', 'sub.c')`,
		"/src/sub/sub.c":       "int main(){}",
	})
	mustRun(t, in, `
project('demo')
subdir('sub')
`)
	if len(in.BOG.Targets) != 1 {
		t.Fatalf("targets = %+v", in.BOG.Targets)
	}
	if in.BOG.Targets[0].Sources[0] != "sub/sub.c" {
		t.Fatalf("source path = %q", in.BOG.Targets[0].Sources[0])
	}
}
