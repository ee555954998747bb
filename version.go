package mbs

import (
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// VersionConstraint is one element of a dependency() version: argument, e.g.
// ">=1.2" or "<2.0" or "1.4" (meaning ==1.4). It is evaluated against
// candidate version strings surfaced by a resolver strategy (§4.8).
type VersionConstraint struct {
	Op      string // one of "", "=", "!=", "<", "<=", ">", ">="
	Version string
}

// ParseVersionConstraint splits a constraint string such as ">=1.2.3" into
// its operator and version parts. A bare version string (no operator) is
// treated as "==".
func ParseVersionConstraint(s string) VersionConstraint {
	s = strings.TrimSpace(s)
	for _, op := range []string{">=", "<=", "!=", "==", ">", "<", "="} {
		if strings.HasPrefix(s, op) {
			v := strings.TrimSpace(strings.TrimPrefix(s, op))
			if op == "==" {
				op = "="
			}
			return VersionConstraint{Op: op, Version: v}
		}
	}
	return VersionConstraint{Op: "=", Version: s}
}

// Satisfies reports whether candidate satisfies every constraint in cs.
func Satisfies(candidate string, cs []VersionConstraint) bool {
	for _, c := range cs {
		if !c.satisfiedBy(candidate) {
			return false
		}
	}
	return true
}

func (c VersionConstraint) satisfiedBy(candidate string) bool {
	cmp := compareVersions(candidate, c.Version)
	switch c.Op {
	case "", "=":
		return cmp == 0
	case "!=":
		return cmp != 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	}
	return false
}

// compareVersions compares two version strings. When both look like valid
// semver (with or without a leading "v"), golang.org/x/mod/semver settles
// it; otherwise it falls back to a component-wise numeric/lexical compare,
// the same strategy distri's PackageRevisionLess used for its upstream
// version strings (which are rarely strict semver, e.g. "2.27", "8.2.0",
// "2021a").
func compareVersions(a, b string) int {
	va, vb := canonicalSemver(a), canonicalSemver(b)
	if va != "" && vb != "" {
		return semver.Compare(va, vb)
	}
	return compareComponents(a, b)
}

func canonicalSemver(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

func compareComponents(a, b string) int {
	as := strings.FieldsFunc(a, isSeparator)
	bs := strings.FieldsFunc(b, isSeparator)
	for i := 0; i < len(as) || i < len(bs); i++ {
		var ac, bc string
		if i < len(as) {
			ac = as[i]
		}
		if i < len(bs) {
			bc = bs[i]
		}
		ai, aerr := strconv.Atoi(ac)
		bi, berr := strconv.Atoi(bc)
		if aerr == nil && berr == nil {
			if ai != bi {
				if ai < bi {
					return -1
				}
				return 1
			}
			continue
		}
		if ac != bc {
			if ac < bc {
				return -1
			}
			return 1
		}
	}
	return 0
}

func isSeparator(r rune) bool {
	return r == '.' || r == '-' || r == '_'
}
