package machine

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// DescriptorValue is one value parsed from a toolchain descriptor file: a
// string, integer, bool, or single-level string list (§6).
type DescriptorValue struct {
	Str  string
	List []string
	Int  int64
	Bool bool
	Kind DescriptorValueKind
}

type DescriptorValueKind int

const (
	DVString DescriptorValueKind = iota
	DVInt
	DVBool
	DVList
)

// Descriptor is the parsed contents of one --cross-file/--native-file:
// section name -> key -> value. The same file format serves both; the
// distinction is solely which CLI flag supplied it (§6).
type Descriptor struct {
	Sections map[string]map[string]DescriptorValue
}

// ParseDescriptor reads an INI-like toolchain descriptor file (§6):
// sections [binaries], [host_machine], [target_machine], [build_machine],
// [properties], [built-in options], [project options].
func ParseDescriptor(r io.Reader) (*Descriptor, error) {
	d := &Descriptor{Sections: map[string]map[string]DescriptorValue{}}
	scanner := bufio.NewScanner(r)
	section := ""
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSpace(line[1 : len(line)-1])
			if _, ok := d.Sections[section]; !ok {
				d.Sections[section] = map[string]DescriptorValue{}
			}
			continue
		}
		if section == "" {
			return nil, xerrors.Errorf("line %d: key outside any [section]", lineNo)
		}
		eq := strings.Index(line, "=")
		if eq < 0 {
			return nil, xerrors.Errorf("line %d: expected key = value", lineNo)
		}
		key := strings.TrimSpace(line[:eq])
		raw := strings.TrimSpace(line[eq+1:])
		val, err := parseDescriptorValue(raw)
		if err != nil {
			return nil, xerrors.Errorf("line %d: %w", lineNo, err)
		}
		d.Sections[section][key] = val
	}
	if err := scanner.Err(); err != nil {
		return nil, xerrors.Errorf("reading descriptor: %w", err)
	}
	return d, nil
}

func parseDescriptorValue(raw string) (DescriptorValue, error) {
	switch {
	case raw == "true" || raw == "false":
		return DescriptorValue{Kind: DVBool, Bool: raw == "true"}, nil
	case strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]"):
		inner := strings.TrimSpace(raw[1 : len(raw)-1])
		if inner == "" {
			return DescriptorValue{Kind: DVList}, nil
		}
		var list []string
		for _, part := range strings.Split(inner, ",") {
			list = append(list, unquote(strings.TrimSpace(part)))
		}
		return DescriptorValue{Kind: DVList, List: list}, nil
	case strings.HasPrefix(raw, "'") || strings.HasPrefix(raw, "\""):
		return DescriptorValue{Kind: DVString, Str: unquote(raw)}, nil
	default:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return DescriptorValue{Kind: DVInt, Int: n}, nil
		}
		return DescriptorValue{Kind: DVString, Str: raw}, nil
	}
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// Merge overlays other's sections onto d, with other's keys winning on
// collision — implements "later wins for overlapping keys" across repeated
// --cross-file/--native-file flags (§6).
func (d *Descriptor) Merge(other *Descriptor) {
	for section, kv := range other.Sections {
		dst, ok := d.Sections[section]
		if !ok {
			dst = map[string]DescriptorValue{}
			d.Sections[section] = dst
		}
		for k, v := range kv {
			dst[k] = v
		}
	}
}

// MachineFromDescriptor builds a Machine for kind from the descriptor's
// [host_machine]/[build_machine]/[target_machine] section (whichever name
// the caller asks for).
func MachineFromDescriptor(d *Descriptor, kind Kind, section string) (*Machine, error) {
	sec, ok := d.Sections[section]
	if !ok {
		return nil, xerrors.Errorf("descriptor has no [%s] section", section)
	}
	get := func(key string) string {
		if v, ok := sec[key]; ok {
			return v.Str
		}
		return ""
	}
	m := New(kind, get("system"), get("cpu_family"), get("endian"))
	m.CPU = get("cpu")
	if m.CPU == "" {
		m.CPU = m.CPUFamily
	}
	m.KernelTag = get("kernel")
	return m, nil
}

// ApplyBinaries discovers a Compiler for each `<lang> = /path/to/exe` entry
// in the descriptor's [binaries] section by probing that exact path,
// bypassing the PATH-search DiscoverAll otherwise does for its candidate
// name table — a cross/native file's whole purpose is pinning one exact
// toolchain binary rather than letting discovery guess among the fixed
// candidate names (§4.5, §6).
func ApplyBinaries(ctx context.Context, m *Machine, d *Descriptor) error {
	binaries, ok := d.Sections["binaries"]
	if !ok {
		return nil
	}
	for lang, v := range binaries {
		strategy, ok := DefaultProbeTable[lang]
		if !ok {
			continue // e.g. "strip", "pkgconfig": not a per-language compiler entry
		}
		path := v.Str
		pinned := strategy
		pinned.Candidates = []string{path}
		c, err := DiscoverAll(ctx, pinned, func(string) (string, error) { return path, nil })
		if err != nil {
			return xerrors.Errorf("probing declared %s compiler %s: %w", lang, path, err)
		}
		m.SetCompiler(lang, c)
	}
	return nil
}
