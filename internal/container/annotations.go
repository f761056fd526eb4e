// Package container assembles the boundary artifacts a dynamic-plugins
// container image exposes to its runtime host: an index.json manifest and
// the matching base64-encoded image annotation (spec §6). Building the
// image itself is left to an external container tool invoked through the
// same Task Runner the export pipeline uses.
package container

import (
	"encoding/base64"
	"encoding/json"
	"sort"

	"go.dynplug.dev/dp/internal/core/domain"
	digest "github.com/opencontainers/go-digest"
	"go.trai.ch/zerr"
)

// AnnotationKey is the OCI image annotation holding the base64-encoded
// index.json content.
const AnnotationKey = "io.backstage.dynamic-packages"

// Entry describes one exported dist-dynamic directory destined for the
// container's dynamic-plugins root.
type Entry struct {
	// DirName is the directory name the package is exported under, e.g.
	// "backstage-plugin-catalog-dynamic".
	DirName string

	// Descriptor is the exported package's customized package.json.
	Descriptor *domain.PackageDescriptor

	// ContentDigest is the digest of the exported package.json, included
	// in the index entry so a runtime host can detect a stale mount
	// without re-hashing the whole directory.
	ContentDigest digest.Digest
}

// packageInfo is the shape of one index.json / annotation element's
// value, keyed by the entry's directory name.
type packageInfo struct {
	Name      string          `json:"name"`
	Version   string          `json:"version"`
	Backstage json.RawMessage `json:"backstage,omitempty"`
	Digest    string          `json:"digest"`
}

// DigestDescriptor computes the content digest of a package.json, used
// to populate Entry.ContentDigest before calling BuildIndex.
func DigestDescriptor(d *domain.PackageDescriptor) (digest.Digest, error) {
	data, err := d.Marshal()
	if err != nil {
		return "", zerr.Wrap(err, "failed to marshal package descriptor for digest")
	}
	return digest.FromBytes(data), nil
}

// BuildIndex produces the index.json content and its base64-encoded
// annotation value for a set of exported directories. Per spec §6 the
// decoded annotation value equals the index.json content exactly: a JSON
// array whose elements are single-key maps, each key the exported
// directory name.
func BuildIndex(entries []Entry) (indexJSON []byte, annotationValue string, err error) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].DirName < sorted[j].DirName })

	array := make([]map[string]packageInfo, 0, len(sorted))
	for _, e := range sorted {
		backstage := json.RawMessage(nil)
		if e.Descriptor.Extra != nil {
			backstage = e.Descriptor.Extra["backstage"]
		}
		array = append(array, map[string]packageInfo{
			e.DirName: {
				Name:      e.Descriptor.Name,
				Version:   e.Descriptor.Version,
				Backstage: backstage,
				Digest:    e.ContentDigest.String(),
			},
		})
	}

	indexJSON, err = json.MarshalIndent(array, "", "  ")
	if err != nil {
		return nil, "", zerr.Wrap(err, "failed to marshal container index")
	}

	annotationValue = base64.StdEncoding.EncodeToString(indexJSON)
	return indexJSON, annotationValue, nil
}
