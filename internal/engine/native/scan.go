// Package native scans an installed node_modules tree for packages that
// require native compilation (spec §4.4 step 13).
package native

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.dynplug.dev/dp/internal/core/domain"
	"go.trai.ch/zerr"
)

// compilerHints are the tokens a scripts.install/preinstall entry must
// contain to be considered a native build step.
var compilerHints = []string{"node-gyp", "cc", "gcc", "clang", "make", "cmake"}

// Scan walks root/node_modules and returns the names of every package
// that declares itself native, sorted for deterministic reporting.
func Scan(root string) ([]string, error) {
	nodeModules := filepath.Join(root, "node_modules")

	var found []string
	entries, err := os.ReadDir(nodeModules)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, zerr.Wrap(err, "failed to read node_modules")
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), "@") {
			scoped, err := os.ReadDir(filepath.Join(nodeModules, entry.Name()))
			if err != nil {
				continue
			}
			for _, s := range scoped {
				name := entry.Name() + "/" + s.Name()
				if isNative(filepath.Join(nodeModules, name)) {
					found = append(found, name)
				}
			}
			continue
		}
		if isNative(filepath.Join(nodeModules, entry.Name())) {
			found = append(found, entry.Name())
		}
	}

	sort.Strings(found)
	return found, nil
}

func isNative(pkgDir string) bool {
	if _, err := os.Stat(filepath.Join(pkgDir, "binding.gyp")); err == nil {
		return true
	}

	data, err := os.ReadFile(filepath.Join(pkgDir, "package.json"))
	if err != nil {
		return false
	}
	descriptor, err := domain.UnmarshalPackageDescriptor(data)
	if err != nil {
		return false
	}

	if _, ok := descriptor.Extra["gypfile"]; ok {
		return true
	}

	for _, script := range []string{"install", "preinstall"} {
		cmd, ok := descriptor.Scripts[script]
		if !ok {
			continue
		}
		for _, hint := range compilerHints {
			if strings.Contains(cmd, hint) {
				return true
			}
		}
	}

	return false
}

// Forbidden filters found against an allowlist, returning the packages
// that are forbidden (present but not allowed).
func Forbidden(found, allowed []string) []string {
	allow := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		allow[a] = true
	}

	var forbidden []string
	for _, f := range found {
		if !allow[f] {
			forbidden = append(forbidden, f)
		}
	}
	return forbidden
}
