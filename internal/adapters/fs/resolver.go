package fs

import (
	"os"
	"path/filepath"

	"go.dynplug.dev/dp/internal/core/domain"
	"go.dynplug.dev/dp/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ModuleResolver = (*Resolver)(nil)

// Resolver implements ports.ModuleResolver the way Node's require()
// would: walking up from baseDir through successive node_modules
// directories until one contains the requested package.
type Resolver struct{}

// NewResolver creates a new Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve finds name's installed directory and parses its descriptor,
// starting the search at baseDir and walking up to the filesystem root.
func (r *Resolver) Resolve(baseDir, name string) (string, *domain.PackageDescriptor, error) {
	dir := baseDir
	for {
		candidate := filepath.Join(dir, "node_modules", name)
		manifest := filepath.Join(candidate, "package.json")

		if data, err := os.ReadFile(manifest); err == nil {
			descriptor, parseErr := domain.UnmarshalPackageDescriptor(data)
			if parseErr != nil {
				return "", nil, zerr.With(zerr.With(parseErr, "package", name), "dir", candidate)
			}
			return candidate, descriptor, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil, zerr.With(zerr.With(zerr.New("module not found"), "package", name), "from", baseDir)
		}
		dir = parent
	}
}
