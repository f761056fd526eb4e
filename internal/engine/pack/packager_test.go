package pack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dynplug.dev/dp/internal/core/domain"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestPack_CopiesDirEntryAndConventionalFiles(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()

	writeFile(t, source, "dist/index.js", "module.exports = {};\n")
	writeFile(t, source, "dist/index.js.map", "{}")
	writeFile(t, source, "README.md", "# x\n")
	writeFile(t, source, "src/index.ts", "export {}\n")

	descriptor := domain.NewPackageDescriptor()
	descriptor.Name = "@x/foo-backend"
	descriptor.Version = "1.0.0"
	descriptor.Files = []string{"dist"}

	err := Pack(Options{PluginDir: source, TargetDir: target, Descriptor: descriptor})
	require.NoError(t, err)

	require.FileExists(t, filepath.Join(target, "dist", "index.js"))
	require.FileExists(t, filepath.Join(target, "dist", "index.js.map"))
	require.FileExists(t, filepath.Join(target, "README.md"))
	require.FileExists(t, filepath.Join(target, "package.json"))
	require.NoFileExists(t, filepath.Join(target, "src", "index.ts"))
}

func TestPack_GlobPatternSupportsDoubleStarAndExcludesNodeModules(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()

	writeFile(t, source, "dist/a/b.js", "1")
	writeFile(t, source, "dist/node_modules/dep/index.js", "2")

	descriptor := domain.NewPackageDescriptor()
	descriptor.Name = "@x/foo"
	descriptor.Version = "1.0.0"
	descriptor.Files = []string{"dist/**/*.js"}

	err := Pack(Options{PluginDir: source, TargetDir: target, Descriptor: descriptor})
	require.NoError(t, err)

	require.FileExists(t, filepath.Join(target, "dist", "a", "b.js"))
	require.NoFileExists(t, filepath.Join(target, "dist", "node_modules", "dep", "index.js"))
}

func TestPack_WritesDescriptorAsIs(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()

	descriptor := domain.NewPackageDescriptor()
	descriptor.Name = "@x/foo"
	descriptor.Version = "2.0.0"

	require.NoError(t, Pack(Options{PluginDir: source, TargetDir: target, Descriptor: descriptor}))

	data, err := os.ReadFile(filepath.Join(target, "package.json"))
	require.NoError(t, err)
	written, err := domain.UnmarshalPackageDescriptor(data)
	require.NoError(t, err)
	require.Equal(t, "@x/foo", written.Name)
	require.Equal(t, "2.0.0", written.Version)
}

func TestMatchGlob_DoubleStarMatchesAnyDepth(t *testing.T) {
	require.True(t, matchGlob("dist/**/*.js", "dist/a/b/c.js"))
	require.True(t, matchGlob("dist/**/*.js", "dist/c.js"))
	require.False(t, matchGlob("dist/**/*.js", "src/c.js"))
}
