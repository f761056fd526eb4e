package domain

import (
	"sort"

	"go.trai.ch/zerr"
)

// WorkspacePackage is one sibling package discovered while enumerating a
// monorepo (spec §3: "WorkspaceIndex: set of (name, version, dir)").
type WorkspacePackage struct {
	Name    string
	Version string
	Dir     string
}

// WorkspaceIndex enumerates the sibling packages of a monorepo, keyed by
// name. It is read-only for the rest of the pipeline once built.
type WorkspaceIndex struct {
	byName map[string][]WorkspacePackage
}

// NewWorkspaceIndex returns an empty index.
func NewWorkspaceIndex() *WorkspaceIndex {
	return &WorkspaceIndex{byName: make(map[string][]WorkspacePackage)}
}

// Add registers a discovered package.
func (idx *WorkspaceIndex) Add(pkg WorkspacePackage) {
	idx.byName[pkg.Name] = append(idx.byName[pkg.Name], pkg)
}

// Lookup returns every package registered under name (normally 0 or 1;
// more than one is a monorepo integrity error, see Validate).
func (idx *WorkspaceIndex) Lookup(name string) []WorkspacePackage {
	return idx.byName[name]
}

// Len returns the number of distinct package names in the index.
func (idx *WorkspaceIndex) Len() int {
	return len(idx.byName)
}

// Validate enforces the "no two entries share a name" invariant,
// returning ErrDuplicateMonorepoPackage for the first (by sorted name)
// offending name found.
func (idx *WorkspaceIndex) Validate() error {
	names := make([]string, 0, len(idx.byName))
	for name := range idx.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if len(idx.byName[name]) > 1 {
			return zerr.With(ErrDuplicateMonorepoPackage, "package", name)
		}
	}
	return nil
}
