// Package pack copies a package's publishable subset from a source
// directory to a target directory, the way `npm pack` would without
// producing a tarball.
package pack

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.dynplug.dev/dp/internal/core/domain"
	"go.trai.ch/zerr"
)

// Options describes a single Pack invocation.
type Options struct {
	// SourceDir is S in the contract. An empty SourceDir means "the
	// current plugin directory" (PluginDir), the main-package case.
	SourceDir string
	PluginDir string
	TargetDir string

	Descriptor *domain.PackageDescriptor
}

// Pack copies the publishable subset of Options.SourceDir (or PluginDir,
// for the main package) into TargetDir and writes the descriptor as-is
// to TargetDir/package.json. Production stripping of the descriptor
// itself is the Descriptor Customizer's job, run as a separate pass.
func Pack(opts Options) error {
	source := opts.SourceDir
	if source == "" {
		source = opts.PluginDir
	}

	if err := os.MkdirAll(opts.TargetDir, 0o755); err != nil {
		return zerr.Wrap(err, "failed to create target directory")
	}

	paths, err := publishableFiles(source, opts.Descriptor.Files)
	if err != nil {
		return err
	}

	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	for _, rel := range sorted {
		if err := copyFile(filepath.Join(source, rel), filepath.Join(opts.TargetDir, rel)); err != nil {
			return zerr.With(err, "file", rel)
		}
	}

	data, err := opts.Descriptor.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(opts.TargetDir, "package.json"), data, 0o644); err != nil {
		return zerr.Wrap(err, "failed to write package descriptor")
	}
	return nil
}

// publishableFiles resolves the files glob sequence plus the
// conventional root files into a set of paths relative to source.
// node_modules is never included, even when it would otherwise match.
func publishableFiles(source string, patterns []string) (map[string]struct{}, error) {
	result := make(map[string]struct{})

	for _, pattern := range patterns {
		pattern = strings.TrimPrefix(pattern, "./")
		if pattern == "node_modules" || strings.HasPrefix(pattern, "node_modules/") {
			continue
		}

		if !isGlobPattern(pattern) {
			full := filepath.Join(source, pattern)
			info, err := os.Stat(full)
			if err != nil {
				continue
			}
			if info.IsDir() {
				if err := addDirFiles(result, source, pattern); err != nil {
					return nil, err
				}
			} else {
				result[pattern] = struct{}{}
			}
			continue
		}

		if err := addGlobMatches(result, source, pattern); err != nil {
			return nil, err
		}
	}

	for _, rel := range conventionalRootFiles(source) {
		result[rel] = struct{}{}
	}

	return result, nil
}

var conventionalPrefixes = []string{"readme", "license", "licence", "changelog"}

// conventionalRootFiles returns the basenames at source's root that
// match README, LICENSE, or CHANGELOG, in any case and with any
// extension (README.md, LICENSE, CHANGELOG.txt, ...).
func conventionalRootFiles(source string) []string {
	entries, err := os.ReadDir(source)
	if err != nil {
		return nil
	}

	var found []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		lower := strings.ToLower(e.Name())
		for _, prefix := range conventionalPrefixes {
			if strings.HasPrefix(lower, prefix) {
				found = append(found, e.Name())
				break
			}
		}
	}
	return found
}

func addDirFiles(result map[string]struct{}, source, dir string) error {
	root := filepath.Join(source, dir)
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		result[rel] = struct{}{}
		return nil
	})
}

func addGlobMatches(result map[string]struct{}, source, pattern string) error {
	return filepath.WalkDir(source, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		if matchGlob(pattern, filepath.ToSlash(rel)) {
			result[rel] = struct{}{}
		}
		return nil
	})
}

func isGlobPattern(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// matchGlob matches a slash-separated glob pattern against a
// slash-separated relative path, supporting "**" as a match-any-depth
// segment the way filepath.Match alone cannot.
func matchGlob(pattern, path string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(path, "/"))
}

func matchSegments(pat, seg []string) bool {
	for len(pat) > 0 {
		if pat[0] == "**" {
			if len(pat) == 1 {
				return true
			}
			for i := 0; i <= len(seg); i++ {
				if matchSegments(pat[1:], seg[i:]) {
					return true
				}
			}
			return false
		}
		if len(seg) == 0 {
			return false
		}
		ok, err := filepath.Match(pat[0], seg[0])
		if err != nil || !ok {
			return false
		}
		pat, seg = pat[1:], seg[1:]
	}
	return len(seg) == 0
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return zerr.Wrap(err, "failed to create destination directory")
	}

	in, err := os.Open(src)
	if err != nil {
		return zerr.Wrap(err, "failed to open source file")
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return zerr.Wrap(err, "failed to stat source file")
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return zerr.Wrap(err, "failed to open destination file")
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return zerr.Wrap(err, "failed to copy file contents")
	}
	return nil
}
