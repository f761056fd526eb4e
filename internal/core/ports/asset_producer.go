package ports

import "context"

// AssetProducerRequest carries everything a frontend asset producer needs
// to generate its output: the plugin directory it is producing from, the
// directory to write its assets into, and a producer-specific payload
// (for Scalprum, the resolved config with the package version merged in).
type AssetProducerRequest struct {
	PluginDir  string
	OutputDir  string
	Descriptor map[string]any
}

// AssetProducer is the abstract contract for the two frontend asset
// generators (Scalprum, module federation). The core treats them as
// pluggable producers invoked with a descriptor; their own bundling
// internals are out of scope for this repository (spec §1).
//
//go:generate go run go.uber.org/mock/mockgen -source=asset_producer.go -destination=mocks/mock_asset_producer.go -package=mocks
type AssetProducer interface {
	Name() string
	Produce(ctx context.Context, req AssetProducerRequest) error
}
