package export

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.dynplug.dev/dp/internal/core/domain"
	"go.dynplug.dev/dp/internal/core/ports"
	"go.dynplug.dev/dp/internal/engine/customize"
	"go.dynplug.dev/dp/internal/engine/embed"
	"go.dynplug.dev/dp/internal/engine/lockscan"
	"go.dynplug.dev/dp/internal/engine/native"
	"go.dynplug.dev/dp/internal/engine/pack"
	"go.dynplug.dev/dp/internal/engine/peerhoist"
	"go.trai.ch/zerr"
)

// BackendOptions configures a single Backend Exporter run (spec §4.4).
type BackendOptions struct {
	PluginDir string
	TargetDir string
	Workspace *domain.WorkspaceIndex

	EmbedPackages          []string
	SharedPackages         domain.SharedPackagesRules
	AllowNativePackages    []string
	SuppressNativePackages []string
	IgnoreVersionCheck     []string

	Install       bool
	Build         bool
	Clean         bool
	TrackManifest bool

	// DynamicPluginsRoot, if set, receives a copy of the finished target
	// directory under its main package's (pre-"-dynamic") name, for a
	// dev-install workflow alongside a running host instance.
	DynamicPluginsRoot string
}

// Backend runs the full backend export pipeline against opts, using deps
// for every external collaborator. It returns the unused-seed warnings
// the Embedding Resolver reports, alongside any fatal error.
func Backend(ctx context.Context, opts BackendOptions, deps Deps) ([]string, error) {
	rootPath := filepath.Join(opts.PluginDir, "package.json")
	rootData, err := os.ReadFile(rootPath) //nolint:gosec // plugin directory is project-controlled
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read root package.json")
	}
	root, err := domain.UnmarshalPackageDescriptor(rootData)
	if err != nil {
		return nil, err
	}
	if root.Bundled {
		return nil, zerr.With(domain.ErrBundledPackageRejected, "package", root.Name)
	}

	workspaceIdx := opts.Workspace
	if workspaceIdx == nil {
		workspaceIdx = domain.NewWorkspaceIndex()
	}

	result, err := embed.Resolve(root, opts.PluginDir, opts.EmbedPackages, workspaceIdx, deps.Resolver)
	if err != nil {
		return nil, err
	}

	targetDir := opts.TargetDir
	if targetDir == "" {
		targetDir = filepath.Join(opts.PluginDir, "dist-dynamic")
	}
	embeddedRoot := filepath.Join(targetDir, "embedded")

	lockfileName := ""
	sourceLockfile, lockErr := nearestLockfile(opts.PluginDir)
	if lockErr == nil {
		lockfileName = filepath.Base(sourceLockfile)
	}

	if err := prepareTargetDir(targetDir, opts.Clean, opts.TrackManifest, lockfileName); err != nil {
		return nil, err
	}

	sortedSuppressed := append([]string(nil), opts.SuppressNativePackages...)
	sort.Strings(sortedSuppressed)
	for _, name := range sortedSuppressed {
		if err := materializeNativeStub(embeddedRoot, name); err != nil {
			return nil, err
		}
	}

	peerAggregate := map[string]string{}
	ignorePeerConflicts := map[string]bool{}
	for _, name := range sortedSuppressed {
		ignorePeerConflicts[name] = true
	}
	for _, name := range opts.IgnoreVersionCheck {
		ignorePeerConflicts[name] = true
	}

	isYarnV1 := lockfileName == "yarn.lock" && isYarnV1Lockfile(sourceLockfile)

	for _, e := range result.Embedded {
		if err := buildAndPackEmbedded(ctx, e, embeddedRoot, opts, deps, result.Embedded, workspaceIdx, isYarnV1, peerAggregate, ignorePeerConflicts); err != nil {
			return nil, err
		}
	}

	if opts.Build && root.IsUnbuiltSource() {
		if err := runTask(ctx, deps.Runner, ports.Task{
			Name: "build", Command: []string{"yarn", "build"}, WorkingDir: opts.PluginDir,
		}); err != nil {
			return nil, err
		}
	}

	if err := pack.Pack(pack.Options{PluginDir: opts.PluginDir, TargetDir: targetDir, Descriptor: root}); err != nil {
		return nil, err
	}

	additionalResolutions := customize.EmbeddedResolutions(result.Embedded)
	for k, v := range customize.StubResolutions(sortedSuppressed) {
		additionalResolutions[k] = v
	}

	mainDescriptorPath := filepath.Join(targetDir, "package.json")
	if err := customize.Customize(customize.Options{
		DescriptorPath:   mainDescriptorPath,
		Embedded:         result.Embedded,
		IsYarnV1:         isYarnV1,
		MonoRepoPackages: workspaceIdx,
		SharedPackages:   opts.SharedPackages,
		Overriding: func(d *domain.PackageDescriptor) {
			d.Name = d.Name + "-dynamic"
			d.BundleDependencies = true
			d.Scripts = map[string]string{}
		},
		AdditionalResolutions: additionalResolutions,
		After: func(d *domain.PackageDescriptor) error {
			for name, spec := range peerAggregate {
				if err := peerhoist.AddToDependenciesForModule(d.PeerDependencies, name, spec, ignorePeerConflicts); err != nil {
					return err
				}
			}
			return nil
		},
	}); err != nil {
		return nil, err
	}

	if err := ensureLockfile(targetDir, sourceLockfile, lockErr); err != nil {
		return nil, err
	}

	if opts.Install {
		if err := installTarget(ctx, targetDir, isYarnV1, lockErr == nil, deps.Runner); err != nil {
			return nil, err
		}
	}

	if err := checkSharedLeakage(targetDir, opts.SharedPackages, result.Embedded); err != nil {
		return nil, err
	}

	found, err := native.Scan(targetDir)
	if err != nil {
		return nil, err
	}
	if forbidden := native.Forbidden(found, opts.AllowNativePackages); len(forbidden) > 0 {
		return nil, zerr.With(domain.ErrNativePackageForbidden, "packages", forbidden)
	}

	if err := validateEntrypoint(targetDir, deps.Loader); err != nil {
		return nil, err
	}

	if opts.DynamicPluginsRoot != "" {
		if err := copyToDynamicPluginsRoot(targetDir, opts.DynamicPluginsRoot, root.Name); err != nil {
			return nil, err
		}
	}

	if err := verifyTargetOutputs(deps.Verifier, targetDir, lockfileName); err != nil {
		return nil, err
	}

	return result.Unused, nil
}

// copyToDynamicPluginsRoot copies the finished target directory into a
// running host's dynamic-plugins root for local development, keyed by
// the plugin's (pre-"-dynamic") slugified name.
func copyToDynamicPluginsRoot(targetDir, pluginsRoot, packageName string) error {
	dest := filepath.Join(pluginsRoot, domain.Slugify(packageName))
	if err := os.RemoveAll(dest); err != nil {
		return zerr.Wrap(err, "failed to clear dynamic-plugins-root destination")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return zerr.Wrap(err, "failed to create dynamic-plugins-root")
	}
	return copyTree(targetDir, dest)
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path) //nolint:gosec // path comes from walking the just-built target directory
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode()) //nolint:gosec // dynamic-plugins-root is project-controlled
	})
}

func buildAndPackEmbedded(
	ctx context.Context,
	e domain.ResolvedEmbedded,
	embeddedRoot string,
	opts BackendOptions,
	deps Deps,
	embedded []domain.ResolvedEmbedded,
	workspaceIdx *domain.WorkspaceIndex,
	isYarnV1 bool,
	peerAggregate map[string]string,
	ignorePeerConflicts map[string]bool,
) error {
	descriptorPath := filepath.Join(e.Dir, "package.json")
	raw, err := os.ReadFile(descriptorPath) //nolint:gosec // embedded package directory is resolved by the Embedding Resolver
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to read embedded package.json"), "package", e.PackageName)
	}
	descriptor, err := domain.UnmarshalPackageDescriptor(raw)
	if err != nil {
		return zerr.With(err, "package", e.PackageName)
	}

	if opts.Build {
		if _, hasBuild := descriptor.Scripts["build"]; hasBuild {
			if err := runTask(ctx, deps.Runner, ports.Task{
				Name: "build:" + e.PackageName, Command: []string{"yarn", "build"}, WorkingDir: e.Dir,
			}); err != nil {
				return err
			}
		}
	}

	skip, hash, err := deps.Cache.Skip(e, descriptor)
	if err != nil {
		return err
	}

	target := filepath.Join(embeddedRoot, e.Slug())
	if skip {
		if _, err := os.Stat(filepath.Join(target, "package.json")); err != nil {
			// The cache says this package's source is unchanged, but the
			// output it would skip producing isn't actually on disk
			// (e.g. --clean ran since the cache was last populated).
			// Treat this the same as a cache miss rather than going on
			// to run Customize against a package.json that may be stale
			// or missing.
			skip = false
		}
	}

	if !skip {
		if err := pack.Pack(pack.Options{SourceDir: e.Dir, TargetDir: target, Descriptor: descriptor}); err != nil {
			return err
		}
		if e.AlreadyPacked {
			if err := os.RemoveAll(filepath.Join(target, "node_modules")); err != nil {
				return zerr.Wrap(err, "failed to remove copied node_modules")
			}
		}

		if err := customize.Customize(customize.Options{
			DescriptorPath:   filepath.Join(target, "package.json"),
			Embedded:         embedded,
			IsYarnV1:         isYarnV1,
			MonoRepoPackages: workspaceIdx,
			SharedPackages:   opts.SharedPackages,
			Overriding: func(d *domain.PackageDescriptor) {
				d.Private = true
				if !strings.HasSuffix(d.Version, "+embedded") {
					d.Version += "+embedded"
				}
			},
			After: func(d *domain.PackageDescriptor) error {
				names := make([]string, 0, len(d.PeerDependencies))
				for name := range d.PeerDependencies {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					if err := peerhoist.AddToDependenciesForModule(peerAggregate, name, d.PeerDependencies[name], ignorePeerConflicts); err != nil {
						return err
					}
				}
				return nil
			},
		}); err != nil {
			return err
		}
	}

	return deps.Cache.Remember(e.PackageName, hash)
}

func ensureLockfile(targetDir, sourceLockfile string, lockErr error) error {
	if lockErr != nil {
		return lockErr
	}
	data, err := os.ReadFile(sourceLockfile) //nolint:gosec // sourceLockfile is resolved by nearestLockfile against a project-controlled tree
	if err != nil {
		return zerr.Wrap(err, "failed to read lock file")
	}
	dest := filepath.Join(targetDir, filepath.Base(sourceLockfile))
	if err := os.WriteFile(dest, data, 0o644); err != nil { //nolint:gosec // target directory is project-controlled
		return zerr.Wrap(err, "failed to copy lock file")
	}
	return nil
}

func installTarget(ctx context.Context, targetDir string, isYarnV1, hadLockfile bool, runner ports.TaskRunner) error {
	var command []string
	switch {
	case isYarnV1:
		command = []string{"yarn", "install", "--production", "--frozen-lockfile"}
	case hadLockfile:
		command = []string{"yarn", "install", "--immutable"}
	default:
		command = []string{"yarn", "install", "--no-immutable"}
	}

	logPath := filepath.Join(targetDir, "yarn-install.log")
	result, err := runner.Run(ctx, ports.Task{Name: "install", Command: command, WorkingDir: targetDir})
	logData := ""
	if result.Stdout != "" || result.Stderr != "" {
		logData = result.Stdout + result.Stderr
	}
	if writeErr := os.WriteFile(logPath, []byte(logData), 0o644); writeErr != nil { //nolint:gosec // target directory is project-controlled
		return zerr.Wrap(writeErr, "failed to write install log")
	}

	if err != nil || result.ExitCode != 0 {
		return zerr.With(zerr.With(domain.ErrSubprocessFailed, "task", "install"), "log", logPath)
	}

	if err := os.RemoveAll(filepath.Join(targetDir, ".yarn")); err != nil {
		return zerr.Wrap(err, "failed to remove .yarn directory")
	}
	return os.Remove(logPath)
}

func checkSharedLeakage(targetDir string, rules domain.SharedPackagesRules, embedded []domain.ResolvedEmbedded) error {
	lockfileName := ""
	for _, name := range []string{"yarn.lock", "package-lock.json"} {
		if _, err := os.Stat(filepath.Join(targetDir, name)); err == nil {
			lockfileName = name
			break
		}
	}
	if lockfileName == "" {
		return nil
	}

	lf, err := lockscan.ParseFile(filepath.Join(targetDir, lockfileName))
	if err != nil {
		return err
	}

	embeddedNames := make(map[string]bool, len(embedded))
	for _, e := range embedded {
		embeddedNames[e.PackageName] = true
	}

	mainData, err := os.ReadFile(filepath.Join(targetDir, "package.json")) //nolint:gosec // target directory is project-controlled
	if err != nil {
		return zerr.Wrap(err, "failed to read derived package.json")
	}
	mainDescriptor, err := domain.UnmarshalPackageDescriptor(mainData)
	if err != nil {
		return err
	}

	var leaked []string
	for _, key := range lf.Keys {
		entry, _ := lf.Lookup(key)
		if embeddedNames[entry.Name] || entry.Name == mainDescriptor.Name {
			continue
		}
		if rules.IsShared(entry.Name) {
			leaked = append(leaked, entry.Name)
		}
	}
	if len(leaked) == 0 {
		return nil
	}

	var suggestions []string
	directNames := make([]string, 0, len(mainDescriptor.Dependencies))
	for name := range mainDescriptor.Dependencies {
		directNames = append(directNames, name)
	}
	sort.Strings(directNames)
	for _, dep := range directNames {
		for _, entry := range lf.ByName(dep) {
			for depName := range entry.Dependencies {
				if rules.IsShared(depName) {
					suggestions = append(suggestions, dep)
					break
				}
			}
		}
	}

	sort.Strings(leaked)
	return zerr.With(zerr.With(domain.ErrSharedPackageLeakage, "packages", leaked), "embedCandidates", suggestions)
}

func validateEntrypoint(targetDir string, loader ports.ModuleLoader) error {
	main, alpha, err := loader.Load(targetDir)
	if err != nil {
		if regErr := loader.RegisterTSTransformer(); regErr != nil {
			return zerr.With(domain.ErrInvalidPluginEntrypoint, "reason", err.Error())
		}
		main, alpha, err = loader.Load(targetDir)
		if err != nil {
			return zerr.With(domain.ErrInvalidPluginEntrypoint, "reason", err.Error())
		}
	}

	if main.Valid() {
		return nil
	}
	if alpha != nil && alpha.Valid() {
		return nil
	}
	return domain.ErrInvalidPluginEntrypoint
}
