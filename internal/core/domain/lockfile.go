package domain

import "strings"

// LockfileEntry is one resolved dependency record from a yarn/npm lock
// file, keyed by "<name>@<specifier>" (spec §3).
type LockfileEntry struct {
	Key          string
	Name         string
	Specifier    string
	Version      string
	Dependencies map[string]string
}

// Lockfile is the parsed set of entries, indexed by key and by name for
// the two access patterns the shared-leakage check uses: exact-key lookup
// while enumerating entries, and by-name lookup of a package's entries.
type Lockfile struct {
	byKey  map[string]LockfileEntry
	byName map[string][]LockfileEntry
	// Keys preserves the original enumeration order for deterministic
	// iteration (e.g. leakage-check reporting).
	Keys []string
}

// NewLockfile returns an empty Lockfile.
func NewLockfile() *Lockfile {
	return &Lockfile{
		byKey:  make(map[string]LockfileEntry),
		byName: make(map[string][]LockfileEntry),
	}
}

// Add registers an entry, computing Name/Specifier from Key if unset.
func (l *Lockfile) Add(e LockfileEntry) {
	if e.Name == "" {
		e.Name, e.Specifier = SplitLockfileKey(e.Key)
	}
	l.byKey[e.Key] = e
	l.byName[e.Name] = append(l.byName[e.Name], e)
	l.Keys = append(l.Keys, e.Key)
}

// Lookup returns the entry for an exact key.
func (l *Lockfile) Lookup(key string) (LockfileEntry, bool) {
	e, ok := l.byKey[key]
	return e, ok
}

// ByName returns every entry whose package name matches, regardless of
// resolved specifier.
func (l *Lockfile) ByName(name string) []LockfileEntry {
	return l.byName[name]
}

// SplitLockfileKey splits a "<name>@<specifier>" key into its parts,
// handling scoped package names ("@scope/name@specifier") whose own
// leading "@" is not the specifier delimiter.
func SplitLockfileKey(key string) (name, specifier string) {
	if strings.HasPrefix(key, "@") {
		rest := key[1:]
		idx := strings.Index(rest, "@")
		if idx == -1 {
			return key, ""
		}
		return key[:idx+1], rest[idx+1:]
	}
	idx := strings.Index(key, "@")
	if idx == -1 {
		return key, ""
	}
	return key[:idx], key[idx+1:]
}
