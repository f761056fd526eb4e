package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWorkspaceIndex_AddAndLookup(t *testing.T) {
	idx := NewWorkspaceIndex()
	idx.Add(WorkspacePackage{Name: "@x/foo", Version: "1.0.0", Dir: "/repo/packages/foo"})

	matches := idx.Lookup("@x/foo")
	require.Len(t, matches, 1)
	require.Equal(t, "1.0.0", matches[0].Version)

	require.Empty(t, idx.Lookup("@x/missing"))
	require.Equal(t, 1, idx.Len())
}

func TestWorkspaceIndex_ValidateFlagsDuplicateNames(t *testing.T) {
	idx := NewWorkspaceIndex()
	idx.Add(WorkspacePackage{Name: "@x/foo", Version: "1.0.0", Dir: "/repo/a"})
	idx.Add(WorkspacePackage{Name: "@x/foo", Version: "1.0.1", Dir: "/repo/b"})

	require.ErrorIs(t, idx.Validate(), ErrDuplicateMonorepoPackage)
}

func TestWorkspaceIndex_ValidatePassesWithUniqueNames(t *testing.T) {
	idx := NewWorkspaceIndex()
	idx.Add(WorkspacePackage{Name: "@x/foo", Version: "1.0.0", Dir: "/repo/a"})
	idx.Add(WorkspacePackage{Name: "@x/bar", Version: "1.0.0", Dir: "/repo/b"})

	require.NoError(t, idx.Validate())
}
