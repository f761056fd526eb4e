package ports

// Hasher computes a content hash over a package's source directory, its
// declared files list, and its version, used by the packaging cache (SPEC_FULL §5.1) to detect a no-op export.
//
//go:generate go run go.uber.org/mock/mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	ComputeSourceHash(sourceDir string, files []string, descriptorVersion string) (string, error)
}
