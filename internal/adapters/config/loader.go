// Package config provides the dp.yaml project configuration loader.
package config

import (
	"os"
	"path/filepath"

	"go.dynplug.dev/dp/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// defaultFilename is the project config file dp looks for in a plugin's
// working directory.
const defaultFilename = "dp.yaml"

var _ ports.ConfigLoader = (*FileConfigLoader)(nil)

// FileConfigLoader implements ports.ConfigLoader by reading dp.yaml.
type FileConfigLoader struct {
	Filename string
}

// NewLoader creates a FileConfigLoader reading the default filename.
func NewLoader() *FileConfigLoader {
	return &FileConfigLoader{Filename: defaultFilename}
}

// Load reads dp.yaml from cwd. A missing file is not an error.
func (l *FileConfigLoader) Load(cwd string) (ports.ProjectConfig, error) {
	name := l.Filename
	if name == "" {
		name = defaultFilename
	}

	data, err := os.ReadFile(filepath.Join(cwd, name)) //nolint:gosec // path is project-controlled
	if os.IsNotExist(err) {
		return ports.ProjectConfig{Install: true, Build: true}, nil
	}
	if err != nil {
		return ports.ProjectConfig{}, zerr.Wrap(err, "failed to read dp.yaml")
	}

	var parsed dpfile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return ports.ProjectConfig{}, zerr.Wrap(err, "failed to parse dp.yaml")
	}

	cfg := ports.ProjectConfig{
		SharedPackages:         parsed.Shared,
		AllowNativePackages:    parsed.Native.Allow,
		SuppressNativePackages: parsed.Native.Suppress,
		Install:                true,
		Build:                  true,
	}
	if parsed.Install != nil {
		cfg.Install = *parsed.Install
	}
	if parsed.Build != nil {
		cfg.Build = *parsed.Build
	}
	return cfg, nil
}
