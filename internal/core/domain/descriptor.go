// Package domain contains the core domain models for the export pipeline:
// the package descriptor, its dependency specifiers, the monorepo
// workspace index, shared-package rules, and the lock file.
package domain

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// knownDescriptorFields lists the package.json keys PackageDescriptor
// understands directly. Everything else round-trips through Extra.
var knownDescriptorFields = map[string]bool{
	"name": true, "version": true, "role": true, "main": true,
	"private": true, "bundled": true, "bundleDependencies": true,
	"dependencies": true, "devDependencies": true, "peerDependencies": true,
	"files": true, "scripts": true, "overrides": true, "resolutions": true,
	"scalprum": true,
}

// PackageDescriptor is the in-memory form of a package.json manifest,
// sufficient to read and mutate the fields the export pipeline cares
// about (spec §3). Fields it does not model (author, license, exports,
// bin, keywords, ...) are preserved verbatim in Extra and re-emitted on
// marshal so customization never silently drops manifest data.
type PackageDescriptor struct {
	Name    string
	Version string
	Role    Role
	Main    string

	Private            bool
	Bundled            bool
	BundleDependencies bool

	Dependencies     map[string]string
	DevDependencies  map[string]string
	PeerDependencies map[string]string

	Files   []string
	Scripts map[string]string

	Overrides   map[string]string
	Resolutions map[string]string

	// ScalprumConfig is the raw "scalprum" field, if present; its shape is
	// owned by the Scalprum asset producer, not this package.
	ScalprumConfig json.RawMessage

	// Extra holds every manifest key this type does not model, keyed by
	// field name, preserved verbatim across Load/Save.
	Extra map[string]json.RawMessage
}

// NewPackageDescriptor returns an empty descriptor with initialized maps.
func NewPackageDescriptor() *PackageDescriptor {
	return &PackageDescriptor{
		Dependencies:     map[string]string{},
		DevDependencies:  map[string]string{},
		PeerDependencies: map[string]string{},
		Scripts:          map[string]string{},
		Overrides:        map[string]string{},
		Resolutions:      map[string]string{},
		Extra:            map[string]json.RawMessage{},
	}
}

// Clone returns a deep copy of the descriptor.
func (d *PackageDescriptor) Clone() *PackageDescriptor {
	c := &PackageDescriptor{
		Name: d.Name, Version: d.Version, Role: d.Role, Main: d.Main,
		Private: d.Private, Bundled: d.Bundled, BundleDependencies: d.BundleDependencies,
		Dependencies:     cloneStringMap(d.Dependencies),
		DevDependencies:  cloneStringMap(d.DevDependencies),
		PeerDependencies: cloneStringMap(d.PeerDependencies),
		Files:            append([]string(nil), d.Files...),
		Scripts:          cloneStringMap(d.Scripts),
		Overrides:        cloneStringMap(d.Overrides),
		Resolutions:      cloneStringMap(d.Resolutions),
		Extra:            make(map[string]json.RawMessage, len(d.Extra)),
	}
	if d.ScalprumConfig != nil {
		c.ScalprumConfig = append(json.RawMessage(nil), d.ScalprumConfig...)
	}
	for k, v := range d.Extra {
		c.Extra[k] = append(json.RawMessage(nil), v...)
	}
	return c
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// IsUnbuiltSource reports whether Main points at TypeScript source rather
// than a built artifact (spec §3: "main ending in .ts indicates an
// unbuilt source package").
func (d *PackageDescriptor) IsUnbuiltSource() bool {
	return strings.HasSuffix(d.Main, ".ts")
}

// HasDistDynamicFilesEntry reports whether Files already lists a
// dist-dynamic/ path (relevant to the Customizer's purge step).
func (d *PackageDescriptor) HasDistDynamicFilesEntry() bool {
	for _, f := range d.Files {
		if strings.HasPrefix(f, "dist-dynamic/") {
			return true
		}
	}
	return false
}

// descriptorJSON is the wire shape used for marshal/unmarshal of the
// fields this type models; Extra is merged in separately.
type descriptorJSON struct {
	Name               string            `json:"name,omitempty"`
	Version            string            `json:"version,omitempty"`
	Role               Role              `json:"role,omitempty"`
	Main               string            `json:"main,omitempty"`
	Private            bool              `json:"private,omitempty"`
	Bundled            bool              `json:"bundled,omitempty"`
	BundleDependencies bool              `json:"bundleDependencies,omitempty"`
	Dependencies       map[string]string `json:"dependencies,omitempty"`
	DevDependencies    map[string]string `json:"devDependencies,omitempty"`
	PeerDependencies   map[string]string `json:"peerDependencies,omitempty"`
	Files              []string          `json:"files,omitempty"`
	Scripts            map[string]string `json:"scripts,omitempty"`
	Overrides          map[string]string `json:"overrides,omitempty"`
	Resolutions        map[string]string `json:"resolutions,omitempty"`
	Scalprum           json.RawMessage   `json:"scalprum,omitempty"`
}

// UnmarshalPackageDescriptor parses a package.json document.
func UnmarshalPackageDescriptor(data []byte) (*PackageDescriptor, error) {
	var dj descriptorJSON
	if err := json.Unmarshal(data, &dj); err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	d := NewPackageDescriptor()
	d.Name = dj.Name
	d.Version = dj.Version
	d.Role = dj.Role
	d.Main = dj.Main
	d.Private = dj.Private
	d.Bundled = dj.Bundled
	d.BundleDependencies = dj.BundleDependencies
	if dj.Dependencies != nil {
		d.Dependencies = dj.Dependencies
	}
	if dj.DevDependencies != nil {
		d.DevDependencies = dj.DevDependencies
	}
	if dj.PeerDependencies != nil {
		d.PeerDependencies = dj.PeerDependencies
	}
	d.Files = dj.Files
	if dj.Scripts != nil {
		d.Scripts = dj.Scripts
	}
	if dj.Overrides != nil {
		d.Overrides = dj.Overrides
	}
	if dj.Resolutions != nil {
		d.Resolutions = dj.Resolutions
	}
	d.ScalprumConfig = dj.Scalprum

	for k, v := range raw {
		if knownDescriptorFields[k] {
			continue
		}
		d.Extra[k] = v
	}

	return d, nil
}

// Marshal serializes the descriptor back to package.json form with
// 2-space indentation and stable key ordering: known fields first (in
// struct declaration order, as encoding/json always does), then the
// extra/unknown fields sorted by key. Re-marshaling the same logical
// descriptor always produces byte-identical output.
func (d *PackageDescriptor) Marshal() ([]byte, error) {
	dj := descriptorJSON{
		Name: d.Name, Version: d.Version, Role: d.Role, Main: d.Main,
		Private: d.Private, Bundled: d.Bundled, BundleDependencies: d.BundleDependencies,
		Dependencies: nilIfEmpty(d.Dependencies), DevDependencies: nilIfEmpty(d.DevDependencies),
		PeerDependencies: nilIfEmpty(d.PeerDependencies), Files: d.Files,
		Scripts: nilIfEmpty(d.Scripts), Overrides: nilIfEmpty(d.Overrides),
		Resolutions: nilIfEmpty(d.Resolutions), Scalprum: d.ScalprumConfig,
	}

	known, err := json.Marshal(dj)
	if err != nil {
		return nil, err
	}

	if len(d.Extra) == 0 {
		return indentJSON(known)
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	if merged == nil {
		merged = map[string]json.RawMessage{}
	}
	for k, v := range d.Extra {
		merged[k] = v
	}

	// Re-marshal through an ordered-key encoder so output is deterministic
	// and known fields retain their declared order while extras are
	// appended in sorted order.
	return marshalOrdered(dj, merged)
}

func nilIfEmpty(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	return m
}

func indentJSON(compact []byte) ([]byte, error) {
	var buf []byte
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return nil, err
	}
	buf = out.Bytes()
	return buf, nil
}

// marshalOrdered writes known fields (declared order) followed by extra
// fields (sorted by key) as a single JSON object.
func marshalOrdered(dj descriptorJSON, merged map[string]json.RawMessage) ([]byte, error) {
	type kv struct {
		key string
		val json.RawMessage
	}

	orderedKeys := []string{
		"name", "version", "role", "main", "private", "bundled",
		"bundleDependencies", "dependencies", "devDependencies",
		"peerDependencies", "files", "scripts", "overrides", "resolutions",
		"scalprum",
	}

	var entries []kv
	seen := map[string]bool{}
	for _, k := range orderedKeys {
		if v, ok := merged[k]; ok {
			entries = append(entries, kv{k, v})
			seen[k] = true
		}
	}

	var extraKeys []string
	for k := range merged {
		if !seen[k] {
			extraKeys = append(extraKeys, k)
		}
	}
	sort.Strings(extraKeys)
	for _, k := range extraKeys {
		entries = append(entries, kv{k, merged[k]})
	}

	var buf strings.Builder
	buf.WriteString("{\n")
	for i, e := range entries {
		indented, err := indentJSONValue(e.val)
		if err != nil {
			return nil, err
		}
		buf.WriteString("  ")
		keyBytes, _ := json.Marshal(e.key)
		buf.Write(keyBytes)
		buf.WriteString(": ")
		buf.WriteString(indented)
		if i < len(entries)-1 {
			buf.WriteString(",")
		}
		buf.WriteString("\n")
	}
	buf.WriteString("}")
	return []byte(buf.String()), nil
}

func indentJSONValue(raw json.RawMessage) (string, error) {
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "  ", "  "); err != nil {
		return "", err
	}
	return out.String(), nil
}
