// Package app wires the export pipeline's adapters together and exposes
// the two operations the CLI drives: Export and Package.
package app

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.dynplug.dev/dp/internal/container"
	"go.dynplug.dev/dp/internal/core/domain"
	"go.dynplug.dev/dp/internal/core/ports"
	"go.dynplug.dev/dp/internal/engine/workspace"
	"go.dynplug.dev/dp/internal/export"
	"go.trai.ch/zerr"
)

// App holds the adapters every operation shares, assembled once by main
// and reused across a single invocation.
type App struct {
	configLoader ports.ConfigLoader
	deps         export.Deps
}

// New creates an App from its configuration loader and export dependencies.
func New(loader ports.ConfigLoader, deps export.Deps) *App {
	return &App{configLoader: loader, deps: deps}
}

// ExportOptions carries the CLI flags common to both backend and frontend
// exports, seeded from dp.yaml defaults by LoadDefaults.
type ExportOptions struct {
	PluginDir           string
	TargetDir           string
	MonorepoRoot        string
	DynamicPluginsRoot  string
	EmbedPackages       []string
	SharedPackages      []string
	AllowNativePackages []string
	SuppressNative      []string
	IgnoreVersionCheck  []string

	Install       bool
	Build         bool
	Clean         bool
	TrackManifest bool

	Backend bool

	GenerateScalprum         bool
	GenerateModuleFederation bool
	ScalprumConfigPath       string
}

// LoadDefaults reads dp.yaml under cwd and applies its values to opts:
// each package list the caller left empty takes dp.yaml's list, and
// install/build stay enabled only if neither the caller nor dp.yaml
// turned them off.
func (a *App) LoadDefaults(cwd string, opts *ExportOptions) error {
	config, err := a.configLoader.Load(cwd)
	if err != nil {
		return zerr.Wrap(err, "failed to load project configuration")
	}
	if len(opts.SharedPackages) == 0 {
		opts.SharedPackages = config.SharedPackages
	}
	if len(opts.AllowNativePackages) == 0 {
		opts.AllowNativePackages = config.AllowNativePackages
	}
	if len(opts.SuppressNative) == 0 {
		opts.SuppressNative = config.SuppressNativePackages
	}
	opts.Install = opts.Install && config.Install
	opts.Build = opts.Build && config.Build
	return nil
}

// Export runs the backend or frontend pipeline depending on opts.Backend,
// returning the Embedding Resolver's unused-seed warnings for backend
// runs (always nil for frontend runs).
func (a *App) Export(ctx context.Context, opts ExportOptions) ([]string, error) {
	sharedRules := buildSharedRules(opts.SharedPackages)

	var idx *domain.WorkspaceIndex
	if opts.MonorepoRoot != "" {
		scanned, err := workspace.Scan(opts.MonorepoRoot)
		if err != nil {
			return nil, zerr.Wrap(err, "failed to scan monorepo workspaces")
		}
		idx = scanned
	}

	if !opts.Backend {
		err := export.Frontend(ctx, export.FrontendOptions{
			PluginDir:                opts.PluginDir,
			TargetDir:                opts.TargetDir,
			GenerateScalprum:         opts.GenerateScalprum,
			GenerateModuleFederation: opts.GenerateModuleFederation,
			ScalprumConfigPath:       opts.ScalprumConfigPath,
			Install:                  opts.Install,
			Clean:                    opts.Clean,
		}, a.deps)
		return nil, err
	}

	return export.Backend(ctx, export.BackendOptions{
		PluginDir:              opts.PluginDir,
		TargetDir:              opts.TargetDir,
		Workspace:              idx,
		EmbedPackages:          opts.EmbedPackages,
		SharedPackages:         sharedRules,
		AllowNativePackages:    opts.AllowNativePackages,
		SuppressNativePackages: opts.SuppressNative,
		IgnoreVersionCheck:     opts.IgnoreVersionCheck,
		Install:                opts.Install,
		Build:                  opts.Build,
		Clean:                  opts.Clean,
		TrackManifest:          opts.TrackManifest,
		DynamicPluginsRoot:     opts.DynamicPluginsRoot,
	}, a.deps)
}

// PackageOptions configures the container boundary assembly step (spec
// §6, SPEC_FULL §5.4): wrapping a set of already-exported dist-dynamic
// directories into a container image.
type PackageOptions struct {
	ExportedDirs  []string
	Tag           string
	ContainerTool string
}

// Package runs the `package` command: reads each exported directory's
// derived package.json, assembles the index.json/annotation pair, and
// builds the image via the configured container tool.
func (a *App) Package(ctx context.Context, runner ports.TaskRunner, opts PackageOptions) error {
	entries := make([]container.Entry, 0, len(opts.ExportedDirs))
	for _, dir := range opts.ExportedDirs {
		data, err := os.ReadFile(filepath.Join(dir, "package.json")) //nolint:gosec // directory list is CLI-provided
		if err != nil {
			return zerr.With(zerr.Wrap(err, "failed to read exported package.json"), "dir", dir)
		}
		descriptor, err := domain.UnmarshalPackageDescriptor(data)
		if err != nil {
			return zerr.With(err, "dir", dir)
		}
		digest, err := container.DigestDescriptor(descriptor)
		if err != nil {
			return err
		}
		entries = append(entries, container.Entry{
			DirName:       filepath.Base(dir),
			Descriptor:    descriptor,
			ContentDigest: digest,
		})
	}

	contextDir, err := os.MkdirTemp("", "dp-package-*")
	if err != nil {
		return zerr.Wrap(err, "failed to create build context")
	}
	defer os.RemoveAll(contextDir) //nolint:errcheck

	pluginsRoot := filepath.Join(contextDir, "plugins")
	for _, dir := range opts.ExportedDirs {
		if err := copyTree(dir, filepath.Join(pluginsRoot, filepath.Base(dir))); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to stage exported directory"), "dir", dir)
		}
	}

	return container.Build(ctx, runner, container.BuildOptions{
		ContainerTool:      opts.ContainerTool,
		ContextDir:         contextDir,
		Tag:                opts.Tag,
		DynamicPluginsRoot: "plugins",
	}, entries)
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
		data, err := os.ReadFile(path) //nolint:gosec // path comes from walking an already-exported directory
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode()) //nolint:gosec // build context is project-controlled
	})
}

// buildSharedRules merges the default "@backstage/"-scoped rule with any
// additional --shared-package patterns: a "!"-prefixed entry becomes an
// exclude rule, everything else an include rule.
func buildSharedRules(patterns []string) domain.SharedPackagesRules {
	rules := domain.DefaultSharedPackagesRules()
	for _, p := range patterns {
		if strings.HasPrefix(p, "!") {
			rules.Exclude = append(rules.Exclude, parseSharedPackageMatcher(strings.TrimPrefix(p, "!")))
			continue
		}
		rules.Include = append(rules.Include, parseSharedPackageMatcher(p))
	}
	return rules
}

// parseSharedPackageMatcher parses a single --shared-package value: a
// "/pattern/" delimited value compiles as a regex, anything else matches
// literally.
func parseSharedPackageMatcher(raw string) domain.Matcher {
	if len(raw) >= 2 && strings.HasPrefix(raw, "/") && strings.HasSuffix(raw, "/") {
		if re, err := regexp.Compile(raw[1 : len(raw)-1]); err == nil {
			return domain.NewRegexMatcher(re)
		}
	}
	return domain.NewLiteralMatcher(raw)
}
