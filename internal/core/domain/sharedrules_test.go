package domain

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSharedPackagesRules_IncludeThenExclude(t *testing.T) {
	rules := SharedPackagesRules{
		Include: []Matcher{NewRegexMatcher(regexp.MustCompile(`^@x/`))},
		Exclude: []Matcher{NewLiteralMatcher("@x/plugin-foo-common")},
	}

	require.True(t, rules.IsShared("@x/plugin-bar-common"))
	require.False(t, rules.IsShared("@x/plugin-foo-common"))
	require.False(t, rules.IsShared("@y/plugin-foo-common"))
}

func TestDefaultSharedPackagesRules_MatchesBackstageScope(t *testing.T) {
	rules := DefaultSharedPackagesRules()
	require.True(t, rules.IsShared("@backstage/core-plugin-api"))
	require.False(t, rules.IsShared("react"))
}
