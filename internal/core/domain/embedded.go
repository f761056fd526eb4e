package domain

import "strings"

// ResolvedEmbedded is one package the Embedding Resolver has decided to
// embed into the dynamic plugin artifact (spec §3).
type ResolvedEmbedded struct {
	PackageName       string
	Version           string
	Dir               string
	ParentPackageName string
	AlreadyPacked     bool
}

// Slug is the directory name the package is embedded under:
// its name with a leading "@" stripped and every "/" turned into "-".
func (r ResolvedEmbedded) Slug() string {
	return Slugify(r.PackageName)
}

// Slugify applies the embedded-directory naming rule to any package name.
func Slugify(name string) string {
	s := strings.TrimPrefix(name, "@")
	return strings.ReplaceAll(s, "/", "-")
}
