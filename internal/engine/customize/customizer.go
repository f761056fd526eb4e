// Package customize mutates a packed package.json into its production,
// dynamic-plugin-ready form (spec §4.3).
package customize

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.dynplug.dev/dp/internal/core/domain"
	"go.trai.ch/zerr"
)

// Options is the input record to Customize.
type Options struct {
	// DescriptorPath is the package.json to read, mutate, and rewrite.
	DescriptorPath string

	// Embedded lists the packages embedded alongside the package being
	// customized, used to rewrite workspace-protocol dependencies.
	Embedded []domain.ResolvedEmbedded

	// IsYarnV1 selects how an embedded dependency is rewritten: a direct
	// file-protocol version (true) or an override recorded in
	// resolutions (false).
	IsYarnV1 bool

	MonoRepoPackages *domain.WorkspaceIndex
	SharedPackages   domain.SharedPackagesRules

	// Overriding replaces fields on the descriptor outright before any
	// other mutation runs.
	Overriding func(*domain.PackageDescriptor)

	AdditionalOverrides   map[string]string
	AdditionalResolutions map[string]string

	// After runs once the descriptor has reached its otherwise-final
	// shape, the hook point peer-dependency hoisting uses.
	After func(*domain.PackageDescriptor) error
}

// compatPinFrom/compatPinTo form an always-applied overrides/resolutions entry that
// keeps the AWS SDK's deprecated browser UTF-8 shim off the dependency
// tree in favor of its Smithy replacement.
const (
	compatPinFrom = "@aws-sdk/util-utf8-browser"
	compatPinTo   = "@smithy/util-utf8"
)

// Customize loads opts.DescriptorPath, applies the full mutation
// sequence, and writes the result back with stable indentation.
func Customize(opts Options) error {
	raw, err := os.ReadFile(opts.DescriptorPath)
	if err != nil {
		return zerr.Wrap(err, "failed to read package descriptor")
	}
	descriptor, err := domain.UnmarshalPackageDescriptor(raw)
	if err != nil {
		return err
	}

	if opts.Overriding != nil {
		opts.Overriding(descriptor)
	}

	purgeDistDynamic(descriptor)

	if err := rewriteDependencies(descriptor, opts); err != nil {
		return err
	}

	descriptor.DevDependencies = map[string]string{}

	mergeOverridesAndResolutions(descriptor, opts)

	if opts.After != nil {
		if err := opts.After(descriptor); err != nil {
			return err
		}
	}

	data, err := descriptor.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(opts.DescriptorPath, data, 0o644)
}

func purgeDistDynamic(d *domain.PackageDescriptor) {
	if len(d.Files) == 0 {
		return
	}
	kept := make([]string, 0, len(d.Files))
	for _, f := range d.Files {
		if strings.HasPrefix(f, "dist-dynamic/") {
			continue
		}
		kept = append(kept, f)
	}
	d.Files = kept
}

func rewriteDependencies(d *domain.PackageDescriptor, opts Options) error {
	embeddedByName := make(map[string]domain.ResolvedEmbedded, len(opts.Embedded))
	for _, e := range opts.Embedded {
		embeddedByName[e.PackageName] = e
	}

	names := make([]string, 0, len(d.Dependencies))
	for name := range d.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := d.Dependencies[name]

		if domain.IsWorkspaceSpecifier(spec) {
			resolved, err := resolveWorkspaceDep(name, spec, embeddedByName, opts.MonoRepoPackages)
			if err != nil {
				return err
			}
			spec = resolved
			d.Dependencies[name] = spec
		}

		if opts.SharedPackages.IsShared(name) {
			if d.PeerDependencies == nil {
				d.PeerDependencies = map[string]string{}
			}
			d.PeerDependencies[name] = spec
			delete(d.Dependencies, name)
			continue
		}

		if opts.IsYarnV1 {
			if e, ok := embeddedByName[name]; ok {
				d.Dependencies[name] = "file:./embedded/" + e.Slug()
			}
		}
	}

	return nil
}

func resolveWorkspaceDep(
	name, spec string,
	embedded map[string]domain.ResolvedEmbedded,
	workspace *domain.WorkspaceIndex,
) (string, error) {
	parsed := domain.ParseVersionSpecifier(spec)

	if e, ok := embedded[name]; ok {
		return parsed.Workspace.RewriteRange(e.Version), nil
	}

	if workspace != nil {
		if matches := workspace.Lookup(name); len(matches) == 1 {
			return parsed.Workspace.RewriteRange(matches[0].Version), nil
		}
	}

	return "", zerr.With(zerr.With(domain.ErrUnresolvedWorkspaceDep, "package", name), "specifier", spec)
}

func mergeOverridesAndResolutions(d *domain.PackageDescriptor, opts Options) {
	if d.Overrides == nil {
		d.Overrides = map[string]string{}
	}
	if d.Resolutions == nil {
		d.Resolutions = map[string]string{}
	}

	for k, v := range opts.AdditionalOverrides {
		d.Overrides[k] = v
	}
	for k, v := range opts.AdditionalResolutions {
		d.Resolutions[k] = v
	}

	d.Overrides[compatPinFrom] = compatPinTo
	d.Resolutions[compatPinFrom] = compatPinTo
}

// EmbeddedResolutions builds the additionalResolutions map the Backend
// Exporter feeds into Customize for the main descriptor: a file-protocol
// pointer per embedded package, keyed by package name.
func EmbeddedResolutions(embedded []domain.ResolvedEmbedded) map[string]string {
	out := make(map[string]string, len(embedded))
	for _, e := range embedded {
		out[e.PackageName] = "file:./embedded/" + e.Slug()
	}
	return out
}

// StubResolutions builds the additionalResolutions entries for
// suppressed native-module stubs, one per stub directory name.
func StubResolutions(names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, name := range names {
		out[name] = "file:./embedded/" + domain.Slugify(name)
	}
	return out
}

// DescriptorDir returns the directory a descriptor path lives in.
func DescriptorDir(descriptorPath string) string {
	return filepath.Dir(descriptorPath)
}
