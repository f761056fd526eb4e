package domain

import "regexp"

// MatcherKind discriminates the two matcher shapes the shared-package DSL
// supports. The "/regex/" delimiters are a CLI-flag-only convention; the
// parsed form here is always tagged, never string-sniffed again.
type MatcherKind int

const (
	MatcherLiteral MatcherKind = iota
	MatcherRegex
)

// Matcher tests a package name against either a literal string or a
// compiled regular expression.
type Matcher struct {
	Kind    MatcherKind
	Literal string
	Regex   *regexp.Regexp
}

// NewLiteralMatcher builds an equality matcher.
func NewLiteralMatcher(s string) Matcher {
	return Matcher{Kind: MatcherLiteral, Literal: s}
}

// NewRegexMatcher builds a regex matcher from an already-compiled pattern.
func NewRegexMatcher(re *regexp.Regexp) Matcher {
	return Matcher{Kind: MatcherRegex, Regex: re}
}

// Match reports whether name matches the matcher.
func (m Matcher) Match(name string) bool {
	switch m.Kind {
	case MatcherRegex:
		return m.Regex.MatchString(name)
	default:
		return m.Literal == name
	}
}

// SharedPackagesRules is an ordered include/exclude rule set over package
// names. A name is shared when it matches at least one include rule and
// no exclude rule.
type SharedPackagesRules struct {
	Include []Matcher
	Exclude []Matcher
}

// DefaultSharedPackagesRules returns the default rule set: every
// "@backstage/"-scoped package is shared.
func DefaultSharedPackagesRules() SharedPackagesRules {
	return SharedPackagesRules{
		Include: []Matcher{NewRegexMatcher(regexp.MustCompile(`@backstage/`))},
	}
}

// IsShared reports whether name is a shared package per the rule set.
func (r SharedPackagesRules) IsShared(name string) bool {
	included := false
	for _, m := range r.Include {
		if m.Match(name) {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, m := range r.Exclude {
		if m.Match(name) {
			return false
		}
	}
	return true
}
