package botan

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/goplus/botanpkg/formula"
	"github.com/goplus/botanpkg/pkgs/gnu"
)

// Satisfies reports whether version meets constraint. Constraints and versions
// that are valid semantic versions are checked with semver; others, such as
// OpenSSL's "1.0.2m", fall back to a single comparison operator followed by a
// version ordered by gnu.Compare.
func Satisfies(constraint, version string) (bool, error) {
	if c, err := semver.NewConstraint(constraint); err == nil {
		if v, err := semver.NewVersion(version); err == nil {
			return c.Check(v), nil
		}
	}

	op, want := splitConstraint(constraint)
	if want == "" {
		return false, fmt.Errorf("invalid version constraint %q", constraint)
	}
	cmp := gnu.Compare(version, want)
	switch op {
	case ">=":
		return cmp >= 0, nil
	case ">":
		return cmp > 0, nil
	case "<=":
		return cmp <= 0, nil
	case "<":
		return cmp < 0, nil
	case "=", "==", "":
		return cmp == 0, nil
	case "!=":
		return cmp != 0, nil
	}
	return false, fmt.Errorf("invalid version constraint %q", constraint)
}

func splitConstraint(c string) (op, version string) {
	c = strings.TrimSpace(c)
	i := 0
	for i < len(c) && strings.ContainsRune("<>=!", rune(c[i])) {
		i++
	}
	return c[:i], strings.TrimSpace(c[i:])
}

// Resolved is a requirement matched to the dependency that satisfies it.
type Resolved struct {
	formula.Requirement
	Version string
	Dir     string
}

// Lookup finds the version and install dir of a dependency provided by the host.
type Lookup func(name string) (version, dir string, ok bool)

// Resolve matches every requirement against the dependencies provided by the
// host package manager. It fails on the first requirement that is missing or
// whose provided version does not satisfy its constraint.
func Resolve(reqs []formula.Requirement, lookup Lookup) ([]Resolved, error) {
	resolved := make([]Resolved, 0, len(reqs))
	for _, req := range reqs {
		version, dir, ok := lookup(req.Name)
		if !ok {
			return nil, fmt.Errorf("%s is required but not provided", req)
		}
		ok, err := Satisfies(req.Constraint, version)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", req, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s is required but %s@%s is provided", req, req.Name, version)
		}
		resolved = append(resolved, Resolved{Requirement: req, Version: version, Dir: dir})
	}
	return resolved, nil
}
