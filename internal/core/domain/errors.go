package domain

import "go.trai.ch/zerr"

// Sentinel errors for every failure kind named in the export pipeline.
// Callers attach offending-entity context with zerr.With before returning.
var (
	// ErrBundledPackageRejected is returned when the root or an embedded
	// descriptor declares bundled=true.
	ErrBundledPackageRejected = zerr.New("bundled package rejected")

	// ErrDuplicateMonorepoPackage is returned when the monorepo contains
	// more than one package under the same name.
	ErrDuplicateMonorepoPackage = zerr.New("duplicate monorepo package")

	// ErrMissingWorkspacePackage is returned when a workspace-protocol
	// specifier has no matching monorepo package.
	ErrMissingWorkspacePackage = zerr.New("missing workspace package")

	// ErrWorkspaceVersionMismatch is returned when a monorepo package's
	// version does not satisfy a workspace-protocol or semver specifier.
	ErrWorkspaceVersionMismatch = zerr.New("workspace version mismatch")

	// ErrUnresolvedWorkspaceDep is returned when the Descriptor Customizer
	// cannot resolve a workspace-protocol dependency via the embedded list
	// or the monorepo index.
	ErrUnresolvedWorkspaceDep = zerr.New("unresolved workspace dependency")

	// ErrEmbeddedPackageBundled is returned when a package resolved for
	// embedding itself declares bundled=true.
	ErrEmbeddedPackageBundled = zerr.New("embedded package bundled")

	// ErrSharedPackageLeakage is returned when the installed lock file
	// contains a shared package among the private dependency tree.
	ErrSharedPackageLeakage = zerr.New("shared package leakage")

	// ErrNativePackageForbidden is returned when the installed tree
	// contains a native (compiled) package that is not allowlisted.
	ErrNativePackageForbidden = zerr.New("native package forbidden")

	// ErrInvalidPluginEntrypoint is returned when the exported package's
	// main module does not load, or does not export a recognizable
	// plugin shape.
	ErrInvalidPluginEntrypoint = zerr.New("invalid plugin entrypoint")

	// ErrPeerDependencyConflict is returned when two peer-dependency
	// specifiers for the same package do not intersect.
	ErrPeerDependencyConflict = zerr.New("peer dependency conflict")

	// ErrNoFrontendAssetsRequested is returned when neither Scalprum nor
	// module-federation asset generation was requested.
	ErrNoFrontendAssetsRequested = zerr.New("no frontend assets requested")

	// ErrSubprocessFailed wraps a non-optional Task Runner failure.
	ErrSubprocessFailed = zerr.New("subprocess failed")

	// ErrLockfileNotFound is returned when no lock file exists in the
	// target directory or the monorepo root.
	ErrLockfileNotFound = zerr.New("lock file not found")

	// ErrExportOutputMissing is returned when the final verification gate
	// finds that an export run's claimed output files are not actually
	// present in the target directory.
	ErrExportOutputMissing = zerr.New("export output missing")

	// ErrTarballEntryEscapesDest is returned when a registry tarball
	// entry's name or link target would resolve outside the extraction
	// directory.
	ErrTarballEntryEscapesDest = zerr.New("tarball entry escapes destination")
)
