package embed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dynplug.dev/dp/internal/core/domain"
)

// writePackageJSON materializes a minimal package.json for a descriptor
// under dir, the way a real monorepo package directory would have one on
// disk regardless of whether node_modules has been populated yet.
func writePackageJSON(t *testing.T, dir string, d *domain.PackageDescriptor) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	data, err := d.Marshal()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), data, 0o644))
}

// fakeResolver resolves names against a fixed map, the way a flattened
// node_modules tree would for packages this test does not seed into a
// WorkspaceIndex.
type fakeResolver struct {
	byName map[string]fakeEntry
}

type fakeEntry struct {
	dir        string
	descriptor *domain.PackageDescriptor
}

func (f *fakeResolver) Resolve(_ string, name string) (string, *domain.PackageDescriptor, error) {
	entry, ok := f.byName[name]
	if !ok {
		return "", nil, domain.ErrMissingWorkspacePackage
	}
	return entry.dir, entry.descriptor, nil
}

func descriptorWith(name, version string, deps map[string]string) *domain.PackageDescriptor {
	d := domain.NewPackageDescriptor()
	d.Name = name
	d.Version = version
	d.Main = "index.js"
	if deps != nil {
		d.Dependencies = deps
	}
	return d
}

func TestResolve_SeededPackageIsEmbedded(t *testing.T) {
	root := descriptorWith("@x/foo-backend", "1.0.0", map[string]string{
		"@x/foo-common": "^2.0.0",
	})

	resolver := &fakeResolver{byName: map[string]fakeEntry{
		"@x/foo-common": {dir: "/node_modules/@x/foo-common", descriptor: descriptorWith("@x/foo-common", "2.1.0", nil)},
	}}

	result, err := Resolve(root, "/plugin", []string{"@x/foo-common"}, domain.NewWorkspaceIndex(), resolver)
	require.NoError(t, err)
	require.Len(t, result.Embedded, 1)
	require.Equal(t, "@x/foo-common", result.Embedded[0].PackageName)
	require.Equal(t, "2.1.0", result.Embedded[0].Version)
	require.Equal(t, "@x/foo-backend", result.Embedded[0].ParentPackageName)
	require.Empty(t, result.Unused)
}

func TestResolve_UnreachedSeedIsReportedUnused(t *testing.T) {
	root := descriptorWith("@x/foo-backend", "1.0.0", nil)
	resolver := &fakeResolver{byName: map[string]fakeEntry{}}

	result, err := Resolve(root, "/plugin", []string{"@x/never-depended-on"}, domain.NewWorkspaceIndex(), resolver)
	require.NoError(t, err)
	require.Empty(t, result.Embedded)
	require.Equal(t, []string{"@x/never-depended-on"}, result.Unused)
}

func TestResolve_RoleSiblingHeuristicSeedsCommonAndNodeSiblings(t *testing.T) {
	root := descriptorWith("@x/foo-backend", "1.0.0", map[string]string{
		"@x/foo-common": "^1.0.0",
		"@x/foo-node":   "^1.0.0",
	})
	root.Role = domain.RoleBackendPlugin

	resolver := &fakeResolver{byName: map[string]fakeEntry{
		"@x/foo-common": {dir: "/nm/@x/foo-common", descriptor: descriptorWith("@x/foo-common", "1.0.0", nil)},
		"@x/foo-node":   {dir: "/nm/@x/foo-node", descriptor: descriptorWith("@x/foo-node", "1.0.0", nil)},
	}}

	result, err := Resolve(root, "/plugin", nil, domain.NewWorkspaceIndex(), resolver)
	require.NoError(t, err)
	names := []string{result.Embedded[0].PackageName, result.Embedded[1].PackageName}
	require.ElementsMatch(t, []string{"@x/foo-common", "@x/foo-node"}, names)
}

func TestResolve_WorkspaceProtocolResolvesAgainstMonorepo(t *testing.T) {
	root := descriptorWith("@x/foo-backend", "1.0.0", map[string]string{
		"@x/foo-common": "workspace:^",
	})

	commonDir := filepath.Join(t.TempDir(), "foo-common")
	writePackageJSON(t, commonDir, descriptorWith("@x/foo-common", "1.2.3", nil))

	idx := domain.NewWorkspaceIndex()
	idx.Add(domain.WorkspacePackage{Name: "@x/foo-common", Version: "1.2.3", Dir: commonDir})

	// No entry for @x/foo-common here: the monorepo-match branch must read
	// commonDir/package.json directly rather than going through the
	// module resolver, which in a real monorepo has nothing to find there
	// until node_modules has been populated.
	resolver := &fakeResolver{byName: map[string]fakeEntry{}}

	result, err := Resolve(root, "/plugin", []string{"@x/foo-common"}, idx, resolver)
	require.NoError(t, err)
	require.Len(t, result.Embedded, 1)
	require.Equal(t, "1.2.3", result.Embedded[0].Version)
	require.Equal(t, commonDir, result.Embedded[0].Dir)
}

func TestResolve_BundledEmbeddedCandidateRejected(t *testing.T) {
	root := descriptorWith("@x/foo-backend", "1.0.0", map[string]string{
		"@x/foo-common": "^1.0.0",
	})
	bundled := descriptorWith("@x/foo-common", "1.0.0", nil)
	bundled.Bundled = true

	resolver := &fakeResolver{byName: map[string]fakeEntry{
		"@x/foo-common": {dir: "/nm/@x/foo-common", descriptor: bundled},
	}}

	_, err := Resolve(root, "/plugin", []string{"@x/foo-common"}, domain.NewWorkspaceIndex(), resolver)
	require.ErrorIs(t, err, domain.ErrEmbeddedPackageBundled)
}

func TestResolve_DuplicateMonorepoEntryErrors(t *testing.T) {
	root := descriptorWith("@x/foo-backend", "1.0.0", map[string]string{
		"@x/foo-common": "workspace:^",
	})

	idx := domain.NewWorkspaceIndex()
	idx.Add(domain.WorkspacePackage{Name: "@x/foo-common", Version: "1.0.0", Dir: "/repo/a"})
	idx.Add(domain.WorkspacePackage{Name: "@x/foo-common", Version: "1.0.0", Dir: "/repo/b"})

	_, err := Resolve(root, "/plugin", []string{"@x/foo-common"}, idx, &fakeResolver{byName: map[string]fakeEntry{}})
	require.ErrorIs(t, err, domain.ErrDuplicateMonorepoPackage)
}
