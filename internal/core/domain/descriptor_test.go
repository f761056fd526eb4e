package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnmarshalPackageDescriptor_ReadsKnownFields(t *testing.T) {
	d, err := UnmarshalPackageDescriptor([]byte(`{
		"name": "@x/plugin-foo-backend",
		"version": "1.0.0",
		"role": "backend-plugin",
		"main": "dist/index.js",
		"bundleDependencies": true,
		"dependencies": {"@x/foo-common": "^1.0.0"},
		"files": ["dist"]
	}`))
	require.NoError(t, err)
	require.Equal(t, "@x/plugin-foo-backend", d.Name)
	require.Equal(t, RoleBackendPlugin, d.Role)
	require.True(t, d.BundleDependencies)
	require.Equal(t, "^1.0.0", d.Dependencies["@x/foo-common"])
}

func TestUnmarshalPackageDescriptor_PreservesUnknownFields(t *testing.T) {
	d, err := UnmarshalPackageDescriptor([]byte(`{"name":"@x/foo","version":"1.0.0","author":"A Person","license":"Apache-2.0"}`))
	require.NoError(t, err)
	require.Contains(t, d.Extra, "author")
	require.Contains(t, d.Extra, "license")

	data, err := d.Marshal()
	require.NoError(t, err)
	require.Contains(t, string(data), `"author": "A Person"`)
	require.Contains(t, string(data), `"license": "Apache-2.0"`)
}

func TestMarshal_IsDeterministicAcrossRuns(t *testing.T) {
	d, err := UnmarshalPackageDescriptor([]byte(`{"name":"@x/foo","version":"1.0.0","zeta":"z","alpha":"a"}`))
	require.NoError(t, err)

	first, err := d.Marshal()
	require.NoError(t, err)
	second, err := d.Marshal()
	require.NoError(t, err)
	require.Equal(t, first, second)

	reparsed, err := UnmarshalPackageDescriptor(first)
	require.NoError(t, err)
	rewritten, err := reparsed.Marshal()
	require.NoError(t, err)
	require.Equal(t, first, rewritten)
}

func TestMarshal_ExtraFieldsSortedAfterKnownFields(t *testing.T) {
	d, err := UnmarshalPackageDescriptor([]byte(`{"name":"@x/foo","version":"1.0.0","zeta":1,"alpha":2}`))
	require.NoError(t, err)
	data, err := d.Marshal()
	require.NoError(t, err)

	alphaIdx := indexOf(string(data), `"alpha"`)
	zetaIdx := indexOf(string(data), `"zeta"`)
	require.Greater(t, alphaIdx, 0)
	require.Greater(t, zetaIdx, 0)
	require.Less(t, alphaIdx, zetaIdx)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestIsUnbuiltSource_DetectsTypeScriptMain(t *testing.T) {
	d := NewPackageDescriptor()
	d.Main = "src/index.ts"
	require.True(t, d.IsUnbuiltSource())

	d.Main = "dist/index.js"
	require.False(t, d.IsUnbuiltSource())
}

func TestHasDistDynamicFilesEntry(t *testing.T) {
	d := NewPackageDescriptor()
	d.Files = []string{"dist", "dist-dynamic/**"}
	require.True(t, d.HasDistDynamicFilesEntry())

	d.Files = []string{"dist"}
	require.False(t, d.HasDistDynamicFilesEntry())
}

func TestClone_IsIndependentOfOriginal(t *testing.T) {
	d := NewPackageDescriptor()
	d.Name = "@x/foo"
	d.Dependencies["react"] = "^18.0.0"

	clone := d.Clone()
	clone.Dependencies["react"] = "^17.0.0"
	clone.Name = "@x/bar"

	require.Equal(t, "^18.0.0", d.Dependencies["react"])
	require.Equal(t, "@x/foo", d.Name)
}
