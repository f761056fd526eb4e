package ports

// LoadedModule is the shape-checked result of loading a plugin entrypoint.
type LoadedModule struct {
	// HasDefaultPluginExport is true when the module's default export is a
	// recognizable tagged plugin value.
	HasDefaultPluginExport bool
	// HasDynamicPluginInstaller is true when the module exports a named
	// value called dynamicPluginInstaller.
	HasDynamicPluginInstaller bool
}

// Valid reports whether the loaded module satisfies spec §4.4 step 14's
// entrypoint shape requirement.
func (m LoadedModule) Valid() bool {
	return m.HasDefaultPluginExport || m.HasDynamicPluginInstaller
}

// ModuleLoader is the abstract contract for entrypoint validation (spec
// §9 Design Notes): load a package's main module (and, if present, an
// "alpha" submodule) and report its export shape. This is the only
// operation that executes arbitrary plugin code, and is isolated behind
// this interface so tests can substitute a fake loader.
//
//go:generate go run go.uber.org/mock/mockgen -source=module_loader.go -destination=mocks/mock_module_loader.go -package=mocks
type ModuleLoader interface {
	// RegisterTSTransformer prepares the loader to load TypeScript source
	// directly, for packages that ship .ts mains unbuilt.
	RegisterTSTransformer() error
	// Load loads the package rooted at dir and returns its main module's
	// shape. If an "alpha" submodule exists it is loaded too and its shape
	// is returned as alpha; otherwise alpha is nil. Load does not judge
	// validity; callers check each shape with Valid.
	Load(dir string) (main LoadedModule, alpha *LoadedModule, err error)
}
