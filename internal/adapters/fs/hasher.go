package fs

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/cespare/xxhash/v2"

	"go.dynplug.dev/dp/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Hasher = (*Hasher)(nil)

// Hasher computes the packaging cache's content hash over every file
// under a package's source directory (node_modules and VCS directories
// excluded), its declared files list, and its version.
type Hasher struct {
	walker *Walker
}

// NewHasher creates a new Hasher.
func NewHasher(walker *Walker) *Hasher {
	return &Hasher{walker: walker}
}

// ComputeSourceHash hashes the descriptor's declared version alongside
// the content of every file under sourceDir, so any change to either the
// manifest or the publishable tree invalidates the cache entry.
func (h *Hasher) ComputeSourceHash(sourceDir string, files []string, descriptorVersion string) (string, error) {
	hasher := xxhash.New()

	_, _ = hasher.WriteString(descriptorVersion)
	_, _ = hasher.Write([]byte{0})

	sorted := make([]string, len(files))
	copy(sorted, files)
	sort.Strings(sorted)

	for _, f := range sorted {
		_, _ = hasher.WriteString(f)
		_, _ = hasher.Write([]byte{0})
	}

	for filePath := range h.walker.WalkFiles(sourceDir, []string{"node_modules"}) {
		if err := h.hashFile(filePath, hasher); err != nil {
			return "", err
		}
	}

	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}

func (h *Hasher) hashFile(path string, w io.Writer) error {
	f, err := os.Open(path) //nolint:gosec // path comes from a directory walk we control
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck

	if _, err := w.Write([]byte(path)); err != nil {
		return zerr.Wrap(err, "failed to write file path to hasher")
	}
	if _, err := io.Copy(w, f); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}
	return nil
}
