// Package cas implements the on-disk packaging cache that backs
// export.Cache: one record per embedded package, keyed by the npm package
// name, recording the content hash it was packed with last time.
package cas

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.dynplug.dev/dp/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.PackCacheStore = (*Store)(nil)

// record is the on-disk shape of a single cache entry. Entries are kept
// as a slice rather than a map so a diff of the cache file is readable
// and the write order doesn't depend on Go's map iteration.
type record struct {
	Package   string `json:"package"`
	InputHash string `json:"inputHash"`
}

// Store is a PackCacheStore backed by a single JSON file. All access goes
// through one mutex; Put writes the whole file back out via a temp file
// plus rename so a crash mid-write can never leave a truncated cache.
type Store struct {
	path string

	mu      sync.Mutex
	entries map[string]record
}

// NewStore opens (or initializes) the packaging cache at path.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path:    filepath.Clean(path),
		entries: make(map[string]record),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	//nolint:gosec // path is cleaned in NewStore, not attacker-controlled
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return zerr.Wrap(err, "reading packaging cache")
	}
	if len(data) == 0 {
		return nil
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return zerr.Wrap(err, "decoding packaging cache")
	}
	for _, r := range records {
		s.entries[r.Package] = r
	}
	return nil
}

// Get retrieves the cache entry for packageName, or nil if none is recorded.
func (s *Store) Get(packageName string) (*ports.PackCacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.entries[packageName]
	if !ok {
		return nil, nil
	}
	return &ports.PackCacheEntry{PackageName: r.Package, InputHash: r.InputHash}, nil
}

// Put records entry and flushes the cache to disk.
func (s *Store) Put(entry ports.PackCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entry.PackageName] = record{Package: entry.PackageName, InputHash: entry.InputHash}
	return s.flush()
}

// flush serializes the current entry set, sorted by package name, and
// writes it atomically: a temp file in the same directory, then a rename,
// so a reader never observes a half-written cache file.
func (s *Store) flush() error {
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	records := make([]record, 0, len(names))
	for _, name := range names {
		records = append(records, s.entries[name])
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "encoding packaging cache")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return zerr.Wrap(err, "creating packaging cache directory")
	}

	tmp, err := os.CreateTemp(dir, ".packcache-*.tmp")
	if err != nil {
		return zerr.Wrap(err, "staging packaging cache write")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return zerr.Wrap(err, "writing packaging cache")
	}
	if err := tmp.Close(); err != nil {
		return zerr.Wrap(err, "writing packaging cache")
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return zerr.Wrap(err, "committing packaging cache")
	}
	return nil
}
