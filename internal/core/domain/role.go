package domain

import "regexp"

// Role tags a descriptor's position in the host framework's component
// model. It is absent (the empty string) for plain libraries.
type Role string

const (
	RoleBackendPlugin       Role = "backend-plugin"
	RoleBackendPluginModule Role = "backend-plugin-module"
	RoleNodeLibrary         Role = "node-library"
	RoleFrontendPlugin      Role = "frontend-plugin"
)

var (
	backendPluginSuffix       = regexp.MustCompile(`-backend$`)
	backendPluginModuleSuffix = regexp.MustCompile(`-backend-module-.+$`)
	nodeLibrarySuffix         = regexp.MustCompile(`-node$`)
)

// SiblingSuffixPattern returns the role-derived suffix pattern used by the
// Embedding Resolver to synthesize sibling package names (spec §4.1 step
// 1). The second return value is false when the role carries no such
// heuristic (including the empty/library role).
func (r Role) SiblingSuffixPattern() (*regexp.Regexp, bool) {
	switch r {
	case RoleBackendPlugin:
		return backendPluginSuffix, true
	case RoleBackendPluginModule:
		return backendPluginModuleSuffix, true
	case RoleNodeLibrary:
		return nodeLibrarySuffix, true
	default:
		return nil, false
	}
}

// SiblingNames synthesizes the "-common" and "-node" sibling names for
// name, using the role's suffix pattern. It returns nil if the role has
// no heuristic.
func (r Role) SiblingNames(name string) []string {
	pattern, ok := r.SiblingSuffixPattern()
	if !ok {
		return nil
	}
	if !pattern.MatchString(name) {
		return nil
	}
	return []string{
		pattern.ReplaceAllString(name, "-common"),
		pattern.ReplaceAllString(name, "-node"),
	}
}
