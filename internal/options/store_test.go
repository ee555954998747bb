package options

import "testing"

func declBool(name, def string) Declaration {
	return Declaration{Name: name, Kind: KindBool, Default: def}
}

func TestDeclareAndGetDefault(t *testing.T) {
	s := New()
	if err := s.Declare(declBool("werror", "false")); err != nil {
		t.Fatal(err)
	}
	opt, ok := s.Get("werror")
	if !ok {
		t.Fatal("expected option to exist")
	}
	if opt.Current != "false" || opt.Source != SourceDefault {
		t.Fatalf("got %+v", opt)
	}
}

func TestCommandLineDominatesProjectDefault(t *testing.T) {
	s := New()
	if err := s.Declare(Declaration{Name: "buildtype", Kind: KindChoice, Choices: []string{"debug", "release"}, Default: "debug"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCommandLine("buildtype", "release"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetProjectDefault("buildtype", "debug"); err != nil {
		t.Fatal(err)
	}
	opt, _ := s.Get("buildtype")
	if opt.Current != "release" || opt.Source != SourceCommandLine {
		t.Fatalf("got %+v, want command-line release to dominate", opt)
	}
}

func TestEnvironmentOnlyFirstConfiguration(t *testing.T) {
	s := New()
	if err := s.Declare(Declaration{Name: "c_args", Kind: KindStringArray, Default: ""}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetEnvironment("c_args", "-O2"); err != nil {
		t.Fatal(err)
	}
	opt, _ := s.Get("c_args")
	if opt.Current != "-O2" || opt.Source != SourceEnvironment {
		t.Fatalf("got %+v", opt)
	}
	// A second environment seed after it's already configured must be a
	// no-op (§9 Open Question 2).
	if err := s.SetEnvironment("c_args", "-O3"); err != nil {
		t.Fatal(err)
	}
	opt, _ = s.Get("c_args")
	if opt.Current != "-O2" {
		t.Fatalf("env re-seeded a configured option: got %q", opt.Current)
	}
}

func TestIntRangeValidation(t *testing.T) {
	s := New()
	decl := Declaration{Name: "n", Kind: KindIntRange, Default: "5", HasRange: true, Min: 0, Max: 10}
	if err := s.Declare(decl); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCommandLine("n", "20"); err == nil {
		t.Fatal("expected out-of-range error")
	}
	if err := s.SetCommandLine("n", "7"); err != nil {
		t.Fatal(err)
	}
}

func TestChoiceValidation(t *testing.T) {
	s := New()
	decl := Declaration{Name: "backend", Kind: KindChoice, Choices: []string{"ninja", "vs"}, Default: "ninja"}
	if err := s.Declare(decl); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCommandLine("backend", "xcode"); err == nil {
		t.Fatal("expected invalid choice error")
	}
}

func TestUnknownOptionError(t *testing.T) {
	s := New()
	if err := s.SetCommandLine("nope", "1"); err == nil {
		t.Fatal("expected unknown option error")
	}
}

func TestBuildPrefixRoutesToCrossScope(t *testing.T) {
	s := New()
	if err := s.Declare(declBool("c_args", "false")); err != nil {
		t.Fatal(err)
	}
	if err := s.Declare(declBool("build.c_args", "false")); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCommandLine("build.c_args", "true"); err != nil {
		t.Fatal(err)
	}
	native, _ := s.Get("c_args")
	cross, _ := s.Get("build.c_args")
	if native.Current != "false" {
		t.Fatalf("native scope was affected: %+v", native)
	}
	if cross.Current != "true" {
		t.Fatalf("cross scope not set: %+v", cross)
	}
}

func TestFeatureParse(t *testing.T) {
	if f, err := ParseFeature("auto"); err != nil || f != FeatureAuto {
		t.Fatalf("got %v, %v", f, err)
	}
	if _, err := ParseFeature("maybe"); err == nil {
		t.Fatal("expected error for invalid feature value")
	}
}

func TestReconfigurePreserved(t *testing.T) {
	s := New()
	if err := s.Declare(Declaration{Name: "buildtype", Kind: KindChoice, Choices: []string{"debug", "release"}, Default: "debug"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCommandLine("buildtype", "debug"); err != nil {
		t.Fatal(err)
	}
	s.MarkReconfigurePreserved(map[string]bool{})
	opt, _ := s.Get("buildtype")
	if opt.Source != SourceReconfigurePreserved {
		t.Fatalf("got source %v, want reconfigure-preserved", opt.Source)
	}
	if opt.Current != "debug" {
		t.Fatalf("reconfigure must not reset to a different value, got %q", opt.Current)
	}
}

func TestAllSortedAndPrefixed(t *testing.T) {
	s := New()
	s.Declare(declBool("z", "true"))
	s.Declare(declBool("a", "true"))
	s.Declare(declBool("build.m", "true"))
	all := s.All()
	if len(all) != 3 {
		t.Fatalf("got %d options", len(all))
	}
	if all[0].Name != "a" || all[1].Name != "build.m" || all[2].Name != "z" {
		t.Fatalf("got order %v", []string{all[0].Name, all[1].Name, all[2].Name})
	}
}
