package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScan_NoWorkspacesFieldYieldsEmptyIndex(t *testing.T) {
	root := t.TempDir()
	writeJSON(t, filepath.Join(root, "package.json"), `{"name":"root","private":true}`)

	idx, err := Scan(root)
	require.NoError(t, err)
	require.Equal(t, 0, idx.Len())
}

func TestScan_MissingRootPackageJSONYieldsEmptyIndex(t *testing.T) {
	idx, err := Scan(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 0, idx.Len())
}

func TestScan_BareArrayGlobDiscoversPackages(t *testing.T) {
	root := t.TempDir()
	writeJSON(t, filepath.Join(root, "package.json"), `{"name":"root","workspaces":["packages/*"]}`)
	writeJSON(t, filepath.Join(root, "packages", "foo-common", "package.json"), `{"name":"@x/foo-common","version":"1.2.3"}`)
	writeJSON(t, filepath.Join(root, "packages", "foo-backend", "package.json"), `{"name":"@x/foo-backend","version":"1.0.0"}`)

	idx, err := Scan(root)
	require.NoError(t, err)
	require.Equal(t, 2, idx.Len())

	matches := idx.Lookup("@x/foo-common")
	require.Len(t, matches, 1)
	require.Equal(t, "1.2.3", matches[0].Version)
}

func TestScan_ObjectFormWithPackagesField(t *testing.T) {
	root := t.TempDir()
	writeJSON(t, filepath.Join(root, "package.json"), `{"name":"root","workspaces":{"packages":["packages/*"]}}`)
	writeJSON(t, filepath.Join(root, "packages", "foo", "package.json"), `{"name":"@x/foo","version":"1.0.0"}`)

	idx, err := Scan(root)
	require.NoError(t, err)
	require.Equal(t, 1, idx.Len())
}

func TestScan_DoubleStarMatchesAnyDepth(t *testing.T) {
	root := t.TempDir()
	writeJSON(t, filepath.Join(root, "package.json"), `{"name":"root","workspaces":["plugins/**"]}`)
	writeJSON(t, filepath.Join(root, "plugins", "group", "foo", "package.json"), `{"name":"@x/foo","version":"1.0.0"}`)

	idx, err := Scan(root)
	require.NoError(t, err)
	matches := idx.Lookup("@x/foo")
	require.Len(t, matches, 1)
}

func TestScan_ExcludePatternRemovesMatchedDirs(t *testing.T) {
	root := t.TempDir()
	writeJSON(t, filepath.Join(root, "package.json"), `{"name":"root","workspaces":["packages/*","!packages/excluded"]}`)
	writeJSON(t, filepath.Join(root, "packages", "kept", "package.json"), `{"name":"@x/kept","version":"1.0.0"}`)
	writeJSON(t, filepath.Join(root, "packages", "excluded", "package.json"), `{"name":"@x/excluded","version":"1.0.0"}`)

	idx, err := Scan(root)
	require.NoError(t, err)
	require.Equal(t, 1, idx.Len())
	require.Empty(t, idx.Lookup("@x/excluded"))
	require.Len(t, idx.Lookup("@x/kept"), 1)
}

func TestScan_DuplicateNameFailsValidation(t *testing.T) {
	root := t.TempDir()
	writeJSON(t, filepath.Join(root, "package.json"), `{"name":"root","workspaces":["packages/*"]}`)
	writeJSON(t, filepath.Join(root, "packages", "a", "package.json"), `{"name":"@x/dup","version":"1.0.0"}`)
	writeJSON(t, filepath.Join(root, "packages", "b", "package.json"), `{"name":"@x/dup","version":"2.0.0"}`)

	_, err := Scan(root)
	require.Error(t, err)
}
