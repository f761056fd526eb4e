// Package embed computes the transitive closure of packages that a backend
// plugin export must bundle into its own dist-dynamic directory.
package embed

import (
	"os"
	"path/filepath"
	"sort"

	"go.dynplug.dev/dp/internal/core/domain"
	"go.dynplug.dev/dp/internal/core/ports"
	"go.trai.ch/zerr"
)

// Result is the output of Resolve: the resolved embedded packages in
// discovery order, and any seed names that were never reached while
// walking dependencies.
type Result struct {
	Embedded []domain.ResolvedEmbedded
	Unused   []string
}

// frame is one entry in the work queue: a package acting as the current
// root of a dependency walk, the way the root plugin itself is the root of
// the first walk and each resolved embedded package becomes the root of
// the next one.
type frame struct {
	descriptor *domain.PackageDescriptor
	dir        string
}

// Resolve computes the embedding closure starting from root, seeded with
// an explicit list of package names to embed regardless of role heuristic.
// resolve looks up a package by name relative to a base directory, the way
// Node module resolution would from that package's own node_modules tree.
func Resolve(
	root *domain.PackageDescriptor,
	rootDir string,
	seed []string,
	workspace *domain.WorkspaceIndex,
	resolve ports.ModuleResolver,
) (Result, error) {
	seedSet := make(map[string]bool, len(seed))
	originalSeed := make(map[string]bool, len(seed))
	for _, name := range seed {
		seedSet[name] = true
		originalSeed[name] = true
	}

	resolvedByDir := make(map[string]domain.ResolvedEmbedded)
	resolvedNames := make(map[string]bool)
	encountered := make(map[string]bool)
	var order []domain.ResolvedEmbedded

	queue := []frame{{descriptor: root, dir: rootDir}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, sibling := range cur.descriptor.Role.SiblingNames(cur.descriptor.Name) {
			if sibling == cur.descriptor.Name || resolvedNames[sibling] {
				continue
			}
			seedSet[sibling] = true
		}

		deps := make([]string, 0, len(cur.descriptor.Dependencies))
		for dep := range cur.descriptor.Dependencies {
			deps = append(deps, dep)
		}
		sort.Strings(deps)

		for _, dep := range deps {
			if !seedSet[dep] {
				continue
			}
			encountered[dep] = true
			specifier := cur.descriptor.Dependencies[dep]

			resolvedEntry, descriptor, err := resolveOne(dep, specifier, cur.dir, workspace, resolve)
			if err != nil {
				return Result{}, err
			}

			if descriptor.Bundled {
				return Result{}, zerr.With(domain.ErrEmbeddedPackageBundled, "package", dep)
			}

			if _, ok := resolvedByDir[resolvedEntry.Dir]; ok {
				continue
			}

			resolvedEntry.ParentPackageName = cur.descriptor.Name
			resolvedByDir[resolvedEntry.Dir] = resolvedEntry
			resolvedNames[resolvedEntry.PackageName] = true
			order = append(order, resolvedEntry)

			queue = append(queue, frame{descriptor: descriptor, dir: resolvedEntry.Dir})
		}
	}

	var unused []string
	for name := range originalSeed {
		if !encountered[name] {
			unused = append(unused, name)
		}
	}
	sort.Strings(unused)

	return Result{Embedded: order, Unused: unused}, nil
}

// resolveOne resolves a single dependency edge, preferring a monorepo
// workspace match over the module resolver's fallback.
func resolveOne(
	dep, specifier, baseDir string,
	workspace *domain.WorkspaceIndex,
	resolve ports.ModuleResolver,
) (domain.ResolvedEmbedded, *domain.PackageDescriptor, error) {
	matches := workspace.Lookup(dep)

	if len(matches) > 1 {
		return domain.ResolvedEmbedded{}, nil, zerr.With(domain.ErrDuplicateMonorepoPackage, "package", dep)
	}

	if len(matches) == 1 {
		pkg := matches[0]
		ok, err := checkWorkspacePackageVersion(specifier, pkg)
		if err != nil {
			return domain.ResolvedEmbedded{}, nil, zerr.With(err, "package", dep)
		}
		if !ok {
			return domain.ResolvedEmbedded{}, nil, zerr.With(zerr.With(zerr.With(domain.ErrWorkspaceVersionMismatch, "package", dep), "specifier", specifier), "version", pkg.Version)
		}

		loaded, err := readDescriptor(pkg.Dir)
		if err != nil {
			return domain.ResolvedEmbedded{}, nil, zerr.With(err, "package", dep)
		}

		return domain.ResolvedEmbedded{
			PackageName:   dep,
			Version:       pkg.Version,
			Dir:           pkg.Dir,
			AlreadyPacked: false,
		}, loaded, nil
	}

	if domain.IsWorkspaceSpecifier(specifier) {
		return domain.ResolvedEmbedded{}, nil, zerr.With(domain.ErrMissingWorkspacePackage, "package", dep)
	}

	dir, descriptor, err := resolve.Resolve(baseDir, dep)
	if err != nil {
		return domain.ResolvedEmbedded{}, nil, err
	}

	ok, err := domain.SatisfiesRange(specifier, descriptor.Version)
	if err != nil {
		return domain.ResolvedEmbedded{}, nil, zerr.With(err, "package", dep)
	}
	if !ok {
		return domain.ResolvedEmbedded{}, nil, zerr.With(zerr.With(zerr.With(domain.ErrWorkspaceVersionMismatch, "package", dep), "specifier", specifier), "version", descriptor.Version)
	}

	return domain.ResolvedEmbedded{
		PackageName:   dep,
		Version:       descriptor.Version,
		Dir:           dir,
		AlreadyPacked: !descriptor.IsUnbuiltSource(),
	}, descriptor, nil
}

// readDescriptor reads and parses package.json directly out of dir. Used
// for the monorepo-match branch of resolveOne, where dir is already the
// exact package directory - going through the generic ModuleResolver
// there would search dir/node_modules for a self-referencing entry that
// monorepo layouts (pnpm, Yarn PnP, or simply a plugin nobody has run
// install against yet) have no reason to provide.
func readDescriptor(dir string) (*domain.PackageDescriptor, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "package.json")) //nolint:gosec // dir comes from the monorepo workspace index
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read monorepo package.json")
	}
	return domain.UnmarshalPackageDescriptor(raw)
}

func checkWorkspacePackageVersion(specifier string, pkg domain.WorkspacePackage) (bool, error) {
	if domain.IsWorkspaceSpecifier(specifier) {
		parsed := domain.ParseVersionSpecifier(specifier)
		return parsed.Workspace.Satisfies(pkg.Dir, pkg.Version)
	}
	return domain.SatisfiesRange(specifier, pkg.Version)
}
