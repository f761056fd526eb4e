// Package export implements the Backend and Frontend Exporter pipelines
// (spec §4.4, §4.5): the sequencing that turns a plugin's source tree and
// its embedding closure into a dynamic-plugin artifact under
// dist-dynamic/.
package export

import (
	"context"
	"os"
	"path/filepath"

	"go.dynplug.dev/dp/internal/core/domain"
	"go.dynplug.dev/dp/internal/core/ports"
	"go.trai.ch/zerr"
)

// Deps bundles the adapters every exporter needs. Both Backend and
// Frontend pipelines share this set; a given run typically leaves
// Loader/Scalprum/ModuleFederation unset when the corresponding steps are
// skipped.
type Deps struct {
	Resolver ports.ModuleResolver
	Runner   ports.TaskRunner
	Loader   ports.ModuleLoader
	Logger   ports.Logger
	Cache    *Cache
	Verifier ports.Verifier

	Scalprum         ports.AssetProducer
	ModuleFederation ports.AssetProducer
}

// verifyTargetOutputs is the done gate both exporters run just before
// reporting success: it confirms the artifact they claim to have produced
// actually landed on disk. A nil Verifier skips the check, same as a nil
// Cache skips caching - the gate is a diagnostic, not something either
// pipeline's correctness depends on.
func verifyTargetOutputs(verifier ports.Verifier, targetDir string, lockfileName string) error {
	if verifier == nil {
		return nil
	}
	outputs := []string{"package.json"}
	if lockfileName != "" {
		outputs = append(outputs, lockfileName)
	}
	ok, err := verifier.VerifyOutputs(targetDir, outputs)
	if err != nil {
		return err
	}
	if !ok {
		return zerr.With(domain.ErrExportOutputMissing, "dir", targetDir)
	}
	return nil
}

// prepareTargetDir clears (if clean) and recreates dir, then writes a
// .gitignore ignoring everything except, if trackManifest is set, the
// derived package.json and lock file (spec §4.4 step 4 / §4.5 step 3).
func prepareTargetDir(dir string, clean, trackManifest bool, lockfileName string) error {
	if clean {
		if err := os.RemoveAll(dir); err != nil {
			return zerr.Wrap(err, "failed to clean target directory")
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return zerr.Wrap(err, "failed to create target directory")
	}

	lines := []string{"*"}
	if trackManifest {
		lines = append(lines, "!package.json")
		if lockfileName != "" {
			lines = append(lines, "!"+lockfileName)
		}
	}
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(content), 0o644); err != nil { //nolint:gosec // target directory is project-controlled
		return zerr.Wrap(err, "failed to write .gitignore")
	}
	return nil
}

// materializeNativeStub writes the error-throwing stub package.json and
// index.js an export run substitutes for a suppressed native package
// (spec §4.4 step 5).
func materializeNativeStub(embeddedRoot, name string) error {
	slug := domain.Slugify(name)
	dir := filepath.Join(embeddedRoot, slug)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return zerr.Wrap(err, "failed to create native stub directory")
	}

	descriptor := domain.NewPackageDescriptor()
	descriptor.Name = name
	descriptor.Version = "0.0.0"
	descriptor.Main = "index.js"
	data, err := descriptor.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "package.json"), data, 0o644); err != nil { //nolint:gosec // stub directory is project-controlled
		return zerr.Wrap(err, "failed to write native stub package.json")
	}

	stub := "throw new Error(" + stubMessage(name) + ");\n"
	if err := os.WriteFile(filepath.Join(dir, "index.js"), []byte(stub), 0o644); err != nil { //nolint:gosec // stub directory is project-controlled
		return zerr.Wrap(err, "failed to write native stub index.js")
	}
	return nil
}

func stubMessage(name string) string {
	return "'" + name + " is a native module suppressed from this dynamic plugin; it is not available at runtime.'"
}

// nearestLockfile walks upward from startDir, returning the first
// yarn.lock or package-lock.json found, used to fall back to the
// monorepo root's lock file when a plugin has none of its own.
func nearestLockfile(startDir string) (string, error) {
	dir := startDir
	for {
		for _, name := range []string{"yarn.lock", "package-lock.json"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", zerr.With(domain.ErrLockfileNotFound, "from", startDir)
		}
		dir = parent
	}
}

// isYarnV1Lockfile sniffs a yarn.lock's header line to distinguish the
// classic (v1) plain-text format from Berry's.
func isYarnV1Lockfile(path string) bool {
	data, err := os.ReadFile(path) //nolint:gosec // path is resolved by nearestLockfile against a project-controlled tree
	if err != nil {
		return true
	}
	const marker = "# yarn lockfile v1"
	return len(data) >= len(marker) && string(data[:len(marker)]) == marker
}

func runTask(ctx context.Context, runner ports.TaskRunner, task ports.Task) error {
	result, err := runner.Run(ctx, task)
	if err != nil {
		if task.Optional {
			return nil
		}
		return zerr.With(zerr.Wrap(domain.ErrSubprocessFailed, task.Name), "error", err.Error())
	}
	if result.ExitCode != 0 && !task.Optional {
		return zerr.With(domain.ErrSubprocessFailed, "task", task.Name, "exitCode", result.ExitCode, "stderr", result.Stderr)
	}
	return nil
}
