package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitLockfileKey_PlainAndScopedNames(t *testing.T) {
	name, spec := SplitLockfileKey("react@^18.0.0")
	require.Equal(t, "react", name)
	require.Equal(t, "^18.0.0", spec)

	name, spec = SplitLockfileKey("@backstage/core-plugin-api@^1.0.0")
	require.Equal(t, "@backstage/core-plugin-api", name)
	require.Equal(t, "^1.0.0", spec)
}

func TestSplitLockfileKey_NoSpecifierReturnsWholeKeyAsName(t *testing.T) {
	name, spec := SplitLockfileKey("react")
	require.Equal(t, "react", name)
	require.Empty(t, spec)
}

func TestLockfile_AddComputesNameFromKeyWhenUnset(t *testing.T) {
	lf := NewLockfile()
	lf.Add(LockfileEntry{Key: "@backstage/core-plugin-api@^1.0.0", Version: "1.5.0"})

	entry, ok := lf.Lookup("@backstage/core-plugin-api@^1.0.0")
	require.True(t, ok)
	require.Equal(t, "@backstage/core-plugin-api", entry.Name)
	require.Equal(t, "^1.0.0", entry.Specifier)

	byName := lf.ByName("@backstage/core-plugin-api")
	require.Len(t, byName, 1)
	require.Equal(t, "1.5.0", byName[0].Version)
}

func TestLockfile_KeysPreservesInsertionOrder(t *testing.T) {
	lf := NewLockfile()
	lf.Add(LockfileEntry{Key: "b@1.0.0"})
	lf.Add(LockfileEntry{Key: "a@1.0.0"})

	require.Equal(t, []string{"b@1.0.0", "a@1.0.0"}, lf.Keys)
}

func TestLockfile_LookupMissingKeyReportsNotFound(t *testing.T) {
	lf := NewLockfile()
	_, ok := lf.Lookup("nope@1.0.0")
	require.False(t, ok)
}
