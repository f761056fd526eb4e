package fs

import (
	"go.dynplug.dev/dp/internal/core/domain"
	"go.dynplug.dev/dp/internal/core/ports"
)

var _ ports.ModuleResolver = (*CompositeResolver)(nil)

// CompositeResolver tries a local node_modules resolver first, falling
// back to a registry-backed resolver when the local lookup fails.
type CompositeResolver struct {
	Primary  ports.ModuleResolver
	Fallback ports.ModuleResolver
}

// NewCompositeResolver builds a CompositeResolver. fallback may be nil,
// in which case Resolve behaves exactly like primary.
func NewCompositeResolver(primary, fallback ports.ModuleResolver) *CompositeResolver {
	return &CompositeResolver{Primary: primary, Fallback: fallback}
}

// Resolve implements ports.ModuleResolver.
func (c *CompositeResolver) Resolve(baseDir, name string) (string, *domain.PackageDescriptor, error) {
	dir, descriptor, err := c.Primary.Resolve(baseDir, name)
	if err == nil {
		return dir, descriptor, nil
	}
	if c.Fallback == nil {
		return "", nil, err
	}
	return c.Fallback.Resolve(baseDir, name)
}
