// Package peerhoist implements the merge rule used to collect embedded
// packages' peer dependencies into a module-level aggregate (spec §4.4.1).
package peerhoist

import (
	"github.com/Masterminds/semver/v3"

	"go.dynplug.dev/dp/internal/core/domain"
	"go.trai.ch/zerr"
)

// AddToDependenciesForModule merges a single (name, specifier) pair into
// target. If target has no entry for name, it is set outright. Otherwise
// the two specifiers are compared as semver ranges: if their ranges
// intersect, whichever of the two has the higher minimum version is kept
// as the narrower one; if they do not intersect, the merge fails unless
// name is in ignoreSet, in which case the existing entry wins silently.
func AddToDependenciesForModule(target map[string]string, name, specifier string, ignoreSet map[string]bool) error {
	existing, ok := target[name]
	if !ok {
		target[name] = specifier
		return nil
	}
	if existing == specifier {
		return nil
	}

	narrower, intersects, err := intersect(existing, specifier)
	if err != nil {
		// Non-semver specifiers (tags, git URLs) cannot be range-checked;
		// treat as a conflict unless explicitly ignored.
		if ignoreSet[name] {
			return nil
		}
		return zerr.With(zerr.With(zerr.With(domain.ErrPeerDependencyConflict, "package", name), "existing", existing), "incoming", specifier)
	}

	if !intersects {
		if ignoreSet[name] {
			return nil
		}
		return zerr.With(zerr.With(zerr.With(domain.ErrPeerDependencyConflict, "package", name), "existing", existing), "incoming", specifier)
	}

	target[name] = narrower
	return nil
}

// intersect reports whether two semver ranges share any version and, if
// so, returns the narrower of the two as a constraint string. "Narrower"
// is approximated by preferring whichever range has the higher minimum
// bound, which is the direction that matters for peer dependency hoists:
// callers are narrowing an already-satisfied requirement, not widening it.
func intersect(a, b string) (narrower string, intersects bool, err error) {
	ca, err := semver.NewConstraint(a)
	if err != nil {
		return "", false, err
	}
	cb, err := semver.NewConstraint(b)
	if err != nil {
		return "", false, err
	}

	va, err := minVersion(a)
	if err != nil {
		return "", false, err
	}
	vb, err := minVersion(b)
	if err != nil {
		return "", false, err
	}

	aSatisfiesB := cb.Check(va)
	bSatisfiesA := ca.Check(vb)

	if !aSatisfiesB && !bSatisfiesA {
		return "", false, nil
	}

	if vb.GreaterThan(va) {
		return b, true, nil
	}
	return a, true, nil
}

// minVersion extracts a representative version from a constraint string
// by parsing its leading version token, stripping range operators.
func minVersion(constraint string) (*semver.Version, error) {
	trimmed := constraint
	for _, prefix := range []string{">=", "<=", ">", "<", "^", "~", "="} {
		if len(trimmed) >= len(prefix) && trimmed[:len(prefix)] == prefix {
			trimmed = trimmed[len(prefix):]
			break
		}
	}
	return semver.NewVersion(trimmed)
}
