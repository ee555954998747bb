package main

import (
	"os"
	"reflect"
	"testing"

	"github.com/mbuild/mbs/internal/machine"
)

func TestExtractDefines(t *testing.T) {
	for _, tt := range []struct {
		name        string
		args        []string
		wantRest    []string
		wantDefines []string
	}{
		{
			name:        "single define",
			args:        []string{"-Dbuildtype=release", "builddir"},
			wantRest:    []string{"builddir"},
			wantDefines: []string{"buildtype=release"},
		},
		{
			name:        "multiple defines interleaved with ordinary flags",
			args:        []string{"-Dfoo=1", "-prefix=/usr", "-Dbar=2", "builddir"},
			wantRest:    []string{"-prefix=/usr", "builddir"},
			wantDefines: []string{"foo=1", "bar=2"},
		},
		{
			name:        "no defines",
			args:        []string{"-reconfigure", "builddir"},
			wantRest:    []string{"-reconfigure", "builddir"},
			wantDefines: nil,
		},
		{
			name:        "bare -D is not a define",
			args:        []string{"-D", "builddir"},
			wantRest:    []string{"-D", "builddir"},
			wantDefines: nil,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			rest, defines := extractDefines(tt.args)
			if !reflect.DeepEqual(rest, tt.wantRest) {
				t.Errorf("rest = %#v, want %#v", rest, tt.wantRest)
			}
			if !reflect.DeepEqual(defines, tt.wantDefines) {
				t.Errorf("defines = %#v, want %#v", defines, tt.wantDefines)
			}
		})
	}
}

func TestSplitDefine(t *testing.T) {
	name, value, err := splitDefine("buildtype=release")
	if err != nil {
		t.Fatalf("splitDefine: %v", err)
	}
	if name != "buildtype" || value != "release" {
		t.Fatalf("got name=%q value=%q", name, value)
	}

	// a value containing "=" keeps everything after the first separator.
	name, value, err = splitDefine("cpp_args=-DFOO=1")
	if err != nil {
		t.Fatalf("splitDefine: %v", err)
	}
	if name != "cpp_args" || value != "-DFOO=1" {
		t.Fatalf("got name=%q value=%q", name, value)
	}

	if _, _, err := splitDefine("noequalsign"); err == nil {
		t.Fatal("expected an error for a define with no '='")
	}
}

func TestDescriptorValueString(t *testing.T) {
	for _, tt := range []struct {
		v    machine.DescriptorValue
		want string
	}{
		{machine.DescriptorValue{Kind: machine.DVBool, Bool: true}, "true"},
		{machine.DescriptorValue{Kind: machine.DVBool, Bool: false}, "false"},
		{machine.DescriptorValue{Kind: machine.DVInt, Int: 42}, "42"},
		{machine.DescriptorValue{Kind: machine.DVList, List: []string{"-O2", "-DFOO"}}, "-O2,-DFOO"},
		{machine.DescriptorValue{Kind: machine.DVString, Str: "gcc"}, "gcc"},
	} {
		if got := descriptorValueString(tt.v); got != tt.want {
			t.Errorf("descriptorValueString(%+v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestAutodetectMachineNormalizesCPUFamily(t *testing.T) {
	m := autodetectMachine(machine.Host)
	if m.Kind != machine.Host {
		t.Errorf("Kind = %v, want Host", m.Kind)
	}
	switch m.CPUFamily {
	case "x86_64", "aarch64", "x86":
	default:
		// any other GOARCH is passed through unchanged; just confirm it's non-empty.
		if m.CPUFamily == "" {
			t.Error("CPUFamily is empty")
		}
	}
	if m.Endian != "little" {
		t.Errorf("Endian = %q, want %q", m.Endian, "little")
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	p := dir + "/present"
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if !fileExists(p) {
		t.Error("fileExists(present) = false, want true")
	}
	if fileExists(dir + "/absent") {
		t.Error("fileExists(absent) = true, want false")
	}
}
