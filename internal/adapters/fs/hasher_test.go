package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasher_SameContentProducesSameHash(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.js"), []byte("module.exports = 1;\n"), 0o644))

	h := NewHasher(NewWalker())
	a, err := h.ComputeSourceHash(dir, []string{"index.js"}, "1.0.0")
	require.NoError(t, err)
	b, err := h.ComputeSourceHash(dir, []string{"index.js"}, "1.0.0")
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestHasher_ChangedFileContentChangesHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.js")
	require.NoError(t, os.WriteFile(path, []byte("module.exports = 1;\n"), 0o644))

	h := NewHasher(NewWalker())
	before, err := h.ComputeSourceHash(dir, nil, "1.0.0")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("module.exports = 2;\n"), 0o644))
	after, err := h.ComputeSourceHash(dir, nil, "1.0.0")
	require.NoError(t, err)

	require.NotEqual(t, before, after)
}

func TestHasher_ChangedVersionChangesHashEvenWithSameFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.js"), []byte("x"), 0o644))

	h := NewHasher(NewWalker())
	a, err := h.ComputeSourceHash(dir, nil, "1.0.0")
	require.NoError(t, err)
	b, err := h.ComputeSourceHash(dir, nil, "1.0.1")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestHasher_IgnoresNodeModulesContent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.js"), []byte("x"), 0o644))

	h := NewHasher(NewWalker())
	before, err := h.ComputeSourceHash(dir, nil, "1.0.0")
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "dep.js"), []byte("anything"), 0o644))

	after, err := h.ComputeSourceHash(dir, nil, "1.0.0")
	require.NoError(t, err)
	require.Equal(t, before, after)
}
