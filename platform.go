package mbs

import "strings"

// CPUFamilies and OSFamilies enumerate the identifiers accepted in a
// toolchain descriptor file's [host_machine]/[build_machine]/[target_machine]
// sections (§6) and returned by machine-info holder methods (§4.3.[EXPANDED]).
var CPUFamilies = map[string]bool{
	"x86_64":  true,
	"x86":     true,
	"aarch64": true,
	"arm":     true,
	"riscv64": true,
	"ppc64":   true,
}

var OSFamilies = map[string]bool{
	"linux":   true,
	"darwin":  true,
	"windows": true,
	"freebsd": true,
}

// HasCPUSuffix reports whether name ends in a recognized CPU family
// identifier (e.g. "mylib-aarch64") and returns it.
func HasCPUSuffix(name string) (cpu string, ok bool) {
	for c := range CPUFamilies {
		if strings.HasSuffix(name, "-"+c) {
			return c, true
		}
	}
	return "", false
}
