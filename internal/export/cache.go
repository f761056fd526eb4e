package export

import (
	"go.dynplug.dev/dp/internal/core/domain"
	"go.dynplug.dev/dp/internal/core/ports"
)

// Cache wraps the packaging cache (SPEC_FULL §5.1): it skips re-copying
// and re-customizing an embedded package whose source hash is unchanged
// since the last successful export. A cache miss, or no cache at all,
// always produces the same output as a cold run — the cache is strictly
// an optimization, never a source of divergent behavior.
type Cache struct {
	hasher ports.Hasher
	store  ports.PackCacheStore
}

// NewCache builds a Cache backed by the given hasher and store. Either
// may be nil, in which case Skip always reports a miss.
func NewCache(hasher ports.Hasher, store ports.PackCacheStore) *Cache {
	return &Cache{hasher: hasher, store: store}
}

// Skip reports whether packing entry can be skipped because its source
// hash matches the last recorded one, and returns the hash to record
// after a successful pack so the caller can call Remember.
func (c *Cache) Skip(entry domain.ResolvedEmbedded, descriptor *domain.PackageDescriptor) (skip bool, hash string, err error) {
	if c == nil || c.hasher == nil || c.store == nil {
		return false, "", nil
	}

	hash, err = c.hasher.ComputeSourceHash(entry.Dir, descriptor.Files, descriptor.Version)
	if err != nil {
		return false, "", err
	}

	cached, err := c.store.Get(entry.PackageName)
	if err != nil {
		return false, hash, err
	}
	if cached == nil {
		return false, hash, nil
	}
	return cached.InputHash == hash, hash, nil
}

// Remember records hash as the last successful pack for packageName.
func (c *Cache) Remember(packageName, hash string) error {
	if c == nil || c.store == nil || hash == "" {
		return nil
	}
	return c.store.Put(ports.PackCacheEntry{PackageName: packageName, InputHash: hash})
}
