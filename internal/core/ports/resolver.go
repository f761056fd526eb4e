package ports

import "go.dynplug.dev/dp/internal/core/domain"

// ModuleResolver resolves a package name to its installed directory and
// descriptor, the way Node module resolution would from a given package's
// node_modules tree (spec §4.1's "resolve(name) -> (dir, descriptor)").
// baseDir roots the resolution at a specific package's directory, since
// Node's algorithm walks up from the requiring package, not a fixed root.
//
//go:generate go run go.uber.org/mock/mockgen -source=resolver.go -destination=mocks/mock_resolver.go -package=mocks
type ModuleResolver interface {
	Resolve(baseDir, name string) (dir string, descriptor *domain.PackageDescriptor, err error)
}
