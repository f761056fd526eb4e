// Package workspace discovers a monorepo's sibling packages from its
// root package.json "workspaces" field, building the domain.WorkspaceIndex
// the Embedding Resolver and Descriptor Customizer resolve workspace
// dependencies against.
package workspace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.dynplug.dev/dp/internal/core/domain"
	"go.trai.ch/zerr"
)

// rootWorkspaces is the subset of a root package.json this package reads.
// "workspaces" is either a bare array of globs or, in the Yarn Classic
// form, an object with a "packages" array.
type rootWorkspaces struct {
	Workspaces json.RawMessage `json:"workspaces"`
}

type workspacesObject struct {
	Packages []string `json:"packages"`
}

// Scan reads root/package.json's "workspaces" field and builds a
// WorkspaceIndex from every package.json found under its glob patterns.
// A root with no "workspaces" field yields an empty index, not an error:
// not every exported plugin lives in a monorepo.
func Scan(root string) (*domain.WorkspaceIndex, error) {
	idx := domain.NewWorkspaceIndex()

	data, err := os.ReadFile(filepath.Join(root, "package.json")) //nolint:gosec // path is project-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, zerr.Wrap(err, "failed to read monorepo root package.json")
	}

	patterns, err := parseWorkspacePatterns(data)
	if err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		return idx, nil
	}

	var include, exclude []string
	for _, p := range patterns {
		if strings.HasPrefix(p, "!") {
			exclude = append(exclude, strings.TrimPrefix(p, "!"))
		} else {
			include = append(include, p)
		}
	}

	dirs := make(map[string]struct{})
	for _, pattern := range include {
		matched, err := expandPattern(root, pattern)
		if err != nil {
			return nil, err
		}
		for _, d := range matched {
			dirs[d] = struct{}{}
		}
	}
	for _, pattern := range exclude {
		matched, err := expandPattern(root, pattern)
		if err != nil {
			return nil, err
		}
		for _, d := range matched {
			delete(dirs, d)
		}
	}

	sorted := make([]string, 0, len(dirs))
	for d := range dirs {
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)

	for _, dir := range sorted {
		pkgPath := filepath.Join(dir, "package.json")
		raw, err := os.ReadFile(pkgPath) //nolint:gosec // path is derived from a project-controlled glob
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, zerr.With(zerr.Wrap(err, "failed to read workspace package.json"), "dir", dir)
		}
		descriptor, err := domain.UnmarshalPackageDescriptor(raw)
		if err != nil {
			return nil, zerr.With(err, "dir", dir)
		}
		if descriptor.Name == "" {
			continue
		}
		idx.Add(domain.WorkspacePackage{Name: descriptor.Name, Version: descriptor.Version, Dir: dir})
	}

	return idx, idx.Validate()
}

func parseWorkspacePatterns(data []byte) ([]string, error) {
	var rw rootWorkspaces
	if err := json.Unmarshal(data, &rw); err != nil {
		return nil, zerr.Wrap(err, "failed to parse root package.json")
	}
	if len(rw.Workspaces) == 0 {
		return nil, nil
	}

	var patterns []string
	if err := json.Unmarshal(rw.Workspaces, &patterns); err == nil {
		return patterns, nil
	}

	var obj workspacesObject
	if err := json.Unmarshal(rw.Workspaces, &obj); err != nil {
		return nil, zerr.Wrap(err, "failed to parse \"workspaces\" field")
	}
	return obj.Packages, nil
}

// expandPattern resolves a single workspace glob (e.g. "packages/*",
// "plugins/**") to the directories it matches, relative to root.
func expandPattern(root, pattern string) ([]string, error) {
	segments := strings.Split(filepath.ToSlash(pattern), "/")
	return walkSegments(root, "", segments)
}

func walkSegments(root, prefix string, segments []string) ([]string, error) {
	if len(segments) == 0 {
		return []string{filepath.Join(root, prefix)}, nil
	}

	seg := segments[0]
	rest := segments[1:]

	if seg == "**" {
		var out []string
		matches, err := collectAllDirs(filepath.Join(root, prefix))
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			rel := strings.TrimPrefix(strings.TrimPrefix(m, root), string(filepath.Separator))
			sub, err := walkSegments(root, rel, rest)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil
	}

	entries, err := os.ReadDir(filepath.Join(root, prefix))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, zerr.Wrap(err, "failed to read monorepo directory")
	}

	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ok, err := filepath.Match(seg, e.Name())
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		sub, err := walkSegments(root, filepath.Join(prefix, e.Name()), rest)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

func collectAllDirs(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "node_modules" {
				return filepath.SkipDir
			}
			out = append(out, path)
		}
		return nil
	})
	return out, err
}
