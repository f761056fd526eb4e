package ports

// PackCacheEntry records the content hash an embedded package was last
// successfully packed and customized with (SPEC_FULL §5.1).
type PackCacheEntry struct {
	PackageName string
	InputHash   string
}

// PackCacheStore persists PackCacheEntry records across export runs.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type PackCacheStore interface {
	// Get retrieves the cache entry for a package name.
	// Returns nil, nil if not found.
	Get(packageName string) (*PackCacheEntry, error)

	// Put stores the cache entry.
	Put(entry PackCacheEntry) error
}
