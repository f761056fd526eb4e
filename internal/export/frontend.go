package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"go.dynplug.dev/dp/internal/core/domain"
	"go.dynplug.dev/dp/internal/core/ports"
	"go.dynplug.dev/dp/internal/engine/customize"
	"go.dynplug.dev/dp/internal/engine/pack"
	"go.trai.ch/zerr"
)

// FrontendOptions configures a single Frontend Exporter run (spec §4.5).
type FrontendOptions struct {
	PluginDir string
	TargetDir string

	GenerateScalprum         bool
	GenerateModuleFederation bool
	ScalprumConfigPath       string

	Install bool
	Clean   bool
}

// Frontend runs the full frontend export pipeline against opts.
func Frontend(ctx context.Context, opts FrontendOptions, deps Deps) error {
	if !opts.GenerateScalprum && !opts.GenerateModuleFederation {
		return domain.ErrNoFrontendAssetsRequested
	}

	rootPath := filepath.Join(opts.PluginDir, "package.json")
	rootData, err := os.ReadFile(rootPath) //nolint:gosec // plugin directory is project-controlled
	if err != nil {
		return zerr.Wrap(err, "failed to read root package.json")
	}
	root, err := domain.UnmarshalPackageDescriptor(rootData)
	if err != nil {
		return err
	}
	if root.Bundled {
		return zerr.With(domain.ErrBundledPackageRejected, "package", root.Name)
	}

	targetDir := opts.TargetDir
	if targetDir == "" {
		targetDir = filepath.Join(opts.PluginDir, "dist-dynamic")
	}

	if opts.GenerateModuleFederation && opts.Clean {
		if err := os.RemoveAll(filepath.Join(opts.PluginDir, "dist")); err != nil {
			return zerr.Wrap(err, "failed to clean dist directory")
		}
	}
	if opts.GenerateModuleFederation {
		if err := deps.ModuleFederation.Produce(ctx, ports.AssetProducerRequest{
			PluginDir: opts.PluginDir,
			OutputDir: filepath.Join(opts.PluginDir, "dist"),
		}); err != nil {
			return err
		}
	}

	lockfileName := ""
	sourceLockfile, lockErr := nearestLockfile(opts.PluginDir)
	if lockErr == nil {
		lockfileName = filepath.Base(sourceLockfile)
	}

	if err := prepareTargetDir(targetDir, opts.Clean, false, lockfileName); err != nil {
		return err
	}

	if err := pack.Pack(pack.Options{PluginDir: opts.PluginDir, TargetDir: targetDir, Descriptor: root}); err != nil {
		return err
	}

	mainDescriptorPath := filepath.Join(targetDir, "package.json")
	if err := customize.Customize(customize.Options{
		DescriptorPath: mainDescriptorPath,
		Overriding: func(d *domain.PackageDescriptor) {
			d.Name = d.Name + "-dynamic"
			d.Scripts = map[string]string{}
			if opts.GenerateScalprum && !hasFile(d.Files, "dist-scalprum") {
				d.Files = append(d.Files, "dist-scalprum/**")
			}
		},
	}); err != nil {
		return err
	}

	if opts.GenerateScalprum {
		scalprumConfig, err := resolveScalprumConfig(opts, root)
		if err != nil {
			return err
		}
		scalprumConfig["version"] = root.Version
		outputDir := filepath.Join(targetDir, "dist-scalprum")
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return zerr.Wrap(err, "failed to create dist-scalprum directory")
		}
		if err := deps.Scalprum.Produce(ctx, ports.AssetProducerRequest{
			PluginDir:  opts.PluginDir,
			OutputDir:  outputDir,
			Descriptor: scalprumConfig,
		}); err != nil {
			return err
		}
	}

	if err := ensureLockfile(targetDir, sourceLockfile, lockErr); err != nil {
		return err
	}

	if opts.Install {
		isYarnV1 := lockfileName == "yarn.lock" && isYarnV1Lockfile(sourceLockfile)
		if err := installTarget(ctx, targetDir, isYarnV1, lockErr == nil, deps.Runner); err != nil {
			return err
		}
	}

	if err := verifyTargetOutputs(deps.Verifier, targetDir, lockfileName); err != nil {
		return err
	}

	return nil
}

func hasFile(files []string, prefix string) bool {
	for _, f := range files {
		if strings.HasPrefix(f, prefix) {
			return true
		}
	}
	return false
}

// resolveScalprumConfig implements the config precedence from spec §4.5:
// an explicit --scalprum-config file, else the descriptor's inline
// "scalprum" field, else a computed default.
func resolveScalprumConfig(opts FrontendOptions, root *domain.PackageDescriptor) (map[string]any, error) {
	if opts.ScalprumConfigPath != "" {
		data, err := os.ReadFile(opts.ScalprumConfigPath) //nolint:gosec // path is a CLI-provided file
		if err != nil {
			return nil, zerr.Wrap(err, "failed to read scalprum config")
		}
		var config map[string]any
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, zerr.Wrap(err, "failed to parse scalprum config")
		}
		return config, nil
	}

	if len(root.ScalprumConfig) > 0 {
		var config map[string]any
		if err := json.Unmarshal(root.ScalprumConfig, &config); err != nil {
			return nil, zerr.Wrap(err, "failed to parse inline scalprum config")
		}
		return config, nil
	}

	return map[string]any{
		"name": strings.Replace(strings.TrimPrefix(root.Name, "@"), "/", ".", 1),
		"exposedModules": map[string]any{
			"PluginRoot": "./src/index.ts",
		},
	}, nil
}
