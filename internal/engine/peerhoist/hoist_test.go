package peerhoist

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dynplug.dev/dp/internal/core/domain"
)

func TestAddToDependenciesForModule_FirstEntrySetOutright(t *testing.T) {
	target := map[string]string{}
	require.NoError(t, AddToDependenciesForModule(target, "react", "^17.0.0", nil))
	require.Equal(t, "^17.0.0", target["react"])
}

func TestAddToDependenciesForModule_IntersectingRangesKeepNarrower(t *testing.T) {
	target := map[string]string{"react": "^17.0.0"}
	require.NoError(t, AddToDependenciesForModule(target, "react", "^17.1.0", nil))
	require.Equal(t, "^17.1.0", target["react"])
}

func TestAddToDependenciesForModule_DisjointRangesConflict(t *testing.T) {
	target := map[string]string{"react": "^16.0.0"}
	err := AddToDependenciesForModule(target, "react", "^18.0.0", nil)
	require.ErrorIs(t, err, domain.ErrPeerDependencyConflict)
}

func TestAddToDependenciesForModule_IgnoreSetSuppressesConflict(t *testing.T) {
	target := map[string]string{"react": "^16.0.0"}
	err := AddToDependenciesForModule(target, "react", "^18.0.0", map[string]bool{"react": true})
	require.NoError(t, err)
	require.Equal(t, "^16.0.0", target["react"])
}

func TestAddToDependenciesForModule_IdenticalSpecifierNoop(t *testing.T) {
	target := map[string]string{"react": "^17.0.0"}
	require.NoError(t, AddToDependenciesForModule(target, "react", "^17.0.0", nil))
	require.Equal(t, "^17.0.0", target["react"])
}

func TestAddToDependenciesForModule_NonSemverSpecifierConflictsUnlessIgnored(t *testing.T) {
	target := map[string]string{"react": "github:facebook/react"}
	err := AddToDependenciesForModule(target, "react", "^17.0.0", nil)
	require.ErrorIs(t, err, domain.ErrPeerDependencyConflict)

	require.NoError(t, AddToDependenciesForModule(target, "react", "^17.0.0", map[string]bool{"react": true}))
}
