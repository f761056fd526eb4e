// Package lockscan parses yarn.lock and package-lock.json files into the
// domain Lockfile model used by the shared-leakage check (spec §4.4 step 12).
package lockscan

import (
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.dynplug.dev/dp/internal/core/domain"
	"go.trai.ch/zerr"
)

// ParseFile reads and parses a lock file, dispatching on its filename.
func ParseFile(p string) (*domain.Lockfile, error) {
	data, err := os.ReadFile(p) //nolint:gosec // path is project-controlled
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read lock file")
	}

	switch filepath.Base(p) {
	case "package-lock.json":
		return ParseNpmLock(data)
	default:
		return ParseYarnLock(data)
	}
}

// ParseYarnLock parses a yarn.lock file in the v1 plain-text format. For a
// Berry lock file the entry keys are read, but its "version:" lines and
// "name: range" dependency lines are not recognised, so those entries have
// no version and no usable dependency list.
func ParseYarnLock(data []byte) (*domain.Lockfile, error) {
	lf := domain.NewLockfile()

	lines := strings.Split(string(data), "\n")
	var keys []string
	var version string
	deps := map[string]string{}
	inDeps := false

	flush := func() {
		if len(keys) == 0 {
			return
		}
		for _, k := range keys {
			depsCopy := make(map[string]string, len(deps))
			for k2, v2 := range deps {
				depsCopy[k2] = v2
			}
			lf.Add(domain.LockfileEntry{Key: k, Version: version, Dependencies: depsCopy})
		}
		keys, version, deps, inDeps = nil, "", map[string]string{}, false
	}

	for _, rawLine := range lines {
		line := strings.TrimRight(rawLine, "\r")
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		indented := strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")

		if !indented {
			flush()
			keys = parseYarnHeaderKeys(trimmed)
			continue
		}

		if keys == nil {
			continue
		}

		depth := len(line) - len(strings.TrimLeft(line, " "))

		switch {
		case strings.HasPrefix(trimmed, "version "):
			version = unquote(strings.TrimPrefix(trimmed, "version "))
		case trimmed == "dependencies:":
			inDeps = true
		case inDeps && depth > 2:
			name, spec := splitYarnDepLine(trimmed)
			if name != "" {
				deps[name] = spec
			}
		default:
			if depth <= 2 {
				inDeps = false
			}
		}
	}
	flush()

	return lf, nil
}

// parseYarnHeaderKeys splits a header line like
// `"@scope/a@^1.0.0", "@scope/a@^1.1.0":` into its raw name@spec keys.
func parseYarnHeaderKeys(line string) []string {
	line = strings.TrimSuffix(line, ":")
	parts := strings.Split(line, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		k := unquote(strings.TrimSpace(p))
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// splitYarnDepLine splits an indented dependency line (`name "range"` or
// `"@scope/name" "range"`) into its name and specifier.
func splitYarnDepLine(line string) (name, spec string) {
	if strings.HasPrefix(line, `"`) {
		end := strings.Index(line[1:], `"`)
		if end < 0 {
			return "", ""
		}
		name = line[1 : end+1]
		rest := strings.TrimSpace(line[end+2:])
		return name, unquote(rest)
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", ""
	}
	return fields[0], unquote(fields[1])
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	return strings.Trim(s, `"`)
}

// npmLockEntry is the subset of a package-lock.json "packages" entry this
// package reads.
type npmLockEntry struct {
	Version      string            `json:"version"`
	Dependencies map[string]string `json:"dependencies"`
}

type npmLockFile struct {
	Packages map[string]npmLockEntry `json:"packages"`
}

// ParseNpmLock parses an npm v2/v3 package-lock.json file. Entries are
// keyed by their node_modules path; the package name is the final path
// segment, which also correctly handles scoped packages nested under
// other node_modules directories.
func ParseNpmLock(data []byte) (*domain.Lockfile, error) {
	var parsed npmLockFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, zerr.Wrap(err, "failed to parse package-lock.json")
	}

	lf := domain.NewLockfile()
	for key, entry := range parsed.Packages {
		if key == "" {
			continue // the root project itself
		}
		name := packageNameFromNpmPath(key)
		lf.Add(domain.LockfileEntry{
			Key:          key,
			Name:         name,
			Version:      entry.Version,
			Dependencies: entry.Dependencies,
		})
	}
	return lf, nil
}

// packageNameFromNpmPath extracts a package name from an npm
// package-lock.json "packages" key, e.g. "node_modules/@scope/name" or
// "node_modules/a/node_modules/@scope/name".
func packageNameFromNpmPath(key string) string {
	idx := strings.LastIndex(key, "node_modules/")
	if idx < 0 {
		return path.Base(key)
	}
	rest := key[idx+len("node_modules/"):]
	if strings.HasPrefix(rest, "@") {
		segments := strings.SplitN(rest, "/", 3)
		if len(segments) >= 2 {
			return segments[0] + "/" + segments[1]
		}
	}
	segments := strings.SplitN(rest, "/", 2)
	return segments[0]
}
