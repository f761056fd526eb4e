// Package fs implements the filesystem-facing ports used by the export
// pipeline: resolving installed modules, walking a package's source tree
// for hashing, and verifying that expected output files landed on disk.
package fs

import (
	"io/fs"
	"iter"
	"path/filepath"
)

// vcsDirs are directory names never worth descending into when hashing or
// packing a plugin's source tree, independent of the caller-supplied
// ignore list.
var vcsDirs = map[string]bool{
	".git": true,
	".jj":  true,
}

// Walker enumerates the files under a package directory that the
// Production Packager and the content hasher need to inspect.
type Walker struct{}

// NewWalker returns a Walker ready for use.
func NewWalker() *Walker {
	return &Walker{}
}

// WalkFiles iterates every regular file reachable from root, depth-first,
// yielding its full path (root-prefixed, as filepath.WalkDir produces it).
// Version control directories are always pruned; entries in ignores are
// matched against each directory's base name via filepath.Match and pruned
// the same way. Returning false from the iteration's yield stops the walk.
func (w *Walker) WalkFiles(root string, ignores []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && w.prune(d.Name(), ignores) {
					return filepath.SkipDir
				}
				return nil
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// prune reports whether a directory with the given base name should be
// excluded from the walk.
func (w *Walker) prune(name string, ignores []string) bool {
	if vcsDirs[name] {
		return true
	}
	for _, ignore := range ignores {
		if matched, _ := filepath.Match(ignore, name); matched {
			return true
		}
	}
	return false
}
