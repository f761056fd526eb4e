package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolver_FindsPackageInImmediateNodeModules(t *testing.T) {
	base := t.TempDir()
	pkgDir := filepath.Join(base, "node_modules", "@x", "foo-common")
	require.NoError(t, os.MkdirAll(pkgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, "package.json"), []byte(`{"name":"@x/foo-common","version":"1.0.0"}`), 0o644))

	r := NewResolver()
	dir, descriptor, err := r.Resolve(base, "@x/foo-common")
	require.NoError(t, err)
	require.Equal(t, pkgDir, dir)
	require.Equal(t, "1.0.0", descriptor.Version)
}

func TestResolver_WalksUpToParentNodeModules(t *testing.T) {
	root := t.TempDir()
	pkgDir := filepath.Join(root, "node_modules", "foo")
	require.NoError(t, os.MkdirAll(pkgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, "package.json"), []byte(`{"name":"foo","version":"2.0.0"}`), 0o644))

	nested := filepath.Join(root, "packages", "bar")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	r := NewResolver()
	dir, descriptor, err := r.Resolve(nested, "foo")
	require.NoError(t, err)
	require.Equal(t, pkgDir, dir)
	require.Equal(t, "2.0.0", descriptor.Version)
}

func TestResolver_NotFoundReturnsError(t *testing.T) {
	r := NewResolver()
	_, _, err := r.Resolve(t.TempDir(), "never-installed")
	require.Error(t, err)
}
