package domain

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// SpecifierKind discriminates the three shapes a dependency version
// specifier can take. Storing the kind instead of re-sniffing the raw
// string avoids repeated prefix surgery across the pipeline.
type SpecifierKind int

const (
	// SpecifierRange is an ordinary semver range (or exact version).
	SpecifierRange SpecifierKind = iota
	// SpecifierWorkspace is a "workspace:<spec>" specifier.
	SpecifierWorkspace
	// SpecifierFile is a "file:<relative-path>" specifier.
	SpecifierFile
)

// VersionSpecifier is the parsed form of a dependency's version string.
type VersionSpecifier struct {
	Kind      SpecifierKind
	Raw       string
	Workspace WorkspaceSpecifier
	FilePath  string
}

// ParseVersionSpecifier classifies a raw specifier string.
func ParseVersionSpecifier(raw string) VersionSpecifier {
	switch {
	case strings.HasPrefix(raw, "workspace:"):
		return VersionSpecifier{
			Kind:      SpecifierWorkspace,
			Raw:       raw,
			Workspace: WorkspaceSpecifier{Inner: strings.TrimPrefix(raw, "workspace:")},
		}
	case strings.HasPrefix(raw, "file:"):
		return VersionSpecifier{
			Kind:     SpecifierFile,
			Raw:      raw,
			FilePath: strings.TrimPrefix(raw, "file:"),
		}
	default:
		return VersionSpecifier{Kind: SpecifierRange, Raw: raw}
	}
}

// IsWorkspaceSpecifier reports whether raw uses the workspace protocol.
func IsWorkspaceSpecifier(raw string) bool {
	return strings.HasPrefix(raw, "workspace:")
}

// IsFileSpecifier reports whether raw uses the file protocol.
func IsFileSpecifier(raw string) bool {
	return strings.HasPrefix(raw, "file:")
}

// SatisfiesRange reports whether version satisfies the semver range raw.
// A raw value that is not a semver range (e.g. a tag) or a version that
// is not valid semver returns false and the parse error.
func SatisfiesRange(raw, version string) (bool, error) {
	c, err := semver.NewConstraint(raw)
	if err != nil {
		return false, err
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, err
	}
	return c.Check(v), nil
}

// WorkspaceSpecifier is the parsed "<spec>" portion of a
// "workspace:<spec>" dependency specifier.
type WorkspaceSpecifier struct {
	// Inner is the raw text following the "workspace:" prefix.
	Inner string
}

// IsStar reports whether the specifier is the bare "*" wildcard.
func (w WorkspaceSpecifier) IsStar() bool { return w.Inner == "*" }

// IsCaretOnly reports whether the specifier is the bare "^" wildcard.
func (w WorkspaceSpecifier) IsCaretOnly() bool { return w.Inner == "^" }

// IsTildeOnly reports whether the specifier is the bare "~" wildcard.
func (w WorkspaceSpecifier) IsTildeOnly() bool { return w.Inner == "~" }

// Satisfies implements checkWorkspacePackageVersion from spec §4.1: the
// specifier is satisfied if its inner text equals the package's monorepo
// directory, equals one of the bare wildcards, or is a semver range
// satisfied by pkgVersion.
func (w WorkspaceSpecifier) Satisfies(pkgDir, pkgVersion string) (bool, error) {
	if w.IsStar() || w.IsCaretOnly() || w.IsTildeOnly() {
		return true, nil
	}
	if w.Inner == pkgDir {
		return true, nil
	}
	return SatisfiesRange(w.Inner, pkgVersion)
}

// RewriteRange converts a resolved workspace dependency into the version
// specifier the Descriptor Customizer should emit: "^<v>"/"~<v>" when the
// workspace spec was the bare caret/tilde wildcard, otherwise the bare
// resolved version.
func (w WorkspaceSpecifier) RewriteRange(resolvedVersion string) string {
	switch {
	case w.IsCaretOnly():
		return "^" + resolvedVersion
	case w.IsTildeOnly():
		return "~" + resolvedVersion
	default:
		return resolvedVersion
	}
}
