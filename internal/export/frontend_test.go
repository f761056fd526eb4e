package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"go.dynplug.dev/dp/internal/core/domain"
	"go.dynplug.dev/dp/internal/core/ports"
)

type recordingProducer struct {
	name     string
	requests []ports.AssetProducerRequest
	err      error
}

func (p *recordingProducer) Name() string { return p.name }

func (p *recordingProducer) Produce(_ context.Context, req ports.AssetProducerRequest) error {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return p.err
	}
	if req.OutputDir != "" {
		if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func writePluginPackageJSON(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(body), 0o644))
}

func TestFrontend_RejectsWhenNoAssetKindRequested(t *testing.T) {
	dir := t.TempDir()
	writePluginPackageJSON(t, dir, `{"name":"@x/plugin-foo","version":"1.0.0"}`)

	err := Frontend(context.Background(), FrontendOptions{PluginDir: dir}, Deps{})
	require.ErrorIs(t, err, domain.ErrNoFrontendAssetsRequested)
}

func TestFrontend_RejectsBundledPackage(t *testing.T) {
	dir := t.TempDir()
	writePluginPackageJSON(t, dir, `{"name":"@x/plugin-foo","version":"1.0.0","bundled":true}`)

	err := Frontend(context.Background(), FrontendOptions{PluginDir: dir, GenerateScalprum: true}, Deps{})
	require.ErrorIs(t, err, domain.ErrBundledPackageRejected)
}

func TestFrontend_GeneratesScalprumAssetsWithComputedDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	writePluginPackageJSON(t, dir, `{"name":"@x/plugin-foo","version":"1.0.0","main":"dist/index.js"}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "yarn.lock"), []byte("# yarn lockfile v1\n"), 0o644))

	scalprum := &recordingProducer{name: "scalprum"}
	target := filepath.Join(dir, "dist-dynamic")

	err := Frontend(context.Background(), FrontendOptions{
		PluginDir:        dir,
		TargetDir:        target,
		GenerateScalprum: true,
	}, Deps{Scalprum: scalprum})
	require.NoError(t, err)

	require.Len(t, scalprum.requests, 1)
	require.Equal(t, "x.plugin-foo", scalprum.requests[0].Descriptor["name"])
	require.Equal(t, "1.0.0", scalprum.requests[0].Descriptor["version"])

	require.DirExists(t, filepath.Join(target, "dist-scalprum"))
	require.FileExists(t, filepath.Join(target, "yarn.lock"))

	data, err := os.ReadFile(filepath.Join(target, "package.json"))
	require.NoError(t, err)
	descriptor, err := domain.UnmarshalPackageDescriptor(data)
	require.NoError(t, err)
	require.Equal(t, "@x/plugin-foo-dynamic", descriptor.Name)
	require.Contains(t, descriptor.Files, "dist-scalprum/**")
}

func TestFrontend_UsesExplicitScalprumConfigFileOverInlineConfig(t *testing.T) {
	dir := t.TempDir()
	writePluginPackageJSON(t, dir, `{"name":"@x/plugin-foo","version":"1.0.0","scalprum":{"name":"inline-name"}}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "yarn.lock"), []byte("# yarn lockfile v1\n"), 0o644))

	configPath := filepath.Join(dir, "scalprum-config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"name":"explicit-name"}`), 0o644))

	scalprum := &recordingProducer{name: "scalprum"}
	err := Frontend(context.Background(), FrontendOptions{
		PluginDir:          dir,
		GenerateScalprum:   true,
		ScalprumConfigPath: configPath,
	}, Deps{Scalprum: scalprum})
	require.NoError(t, err)

	require.Equal(t, "explicit-name", scalprum.requests[0].Descriptor["name"])
	require.Equal(t, "1.0.0", scalprum.requests[0].Descriptor["version"], "version is merged in regardless of which config source wins")
}

func TestFrontend_GeneratesModuleFederationAssetsIntoDistDir(t *testing.T) {
	dir := t.TempDir()
	writePluginPackageJSON(t, dir, `{"name":"@x/plugin-foo","version":"1.0.0"}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "yarn.lock"), []byte("# yarn lockfile v1\n"), 0o644))

	modfed := &recordingProducer{name: "module-federation"}
	err := Frontend(context.Background(), FrontendOptions{
		PluginDir:                dir,
		GenerateModuleFederation: true,
	}, Deps{ModuleFederation: modfed})
	require.NoError(t, err)

	require.Len(t, modfed.requests, 1)
	require.Equal(t, filepath.Join(dir, "dist"), modfed.requests[0].OutputDir)
}

func TestFrontend_CleanRemovesExistingDistBeforeModuleFederation(t *testing.T) {
	dir := t.TempDir()
	writePluginPackageJSON(t, dir, `{"name":"@x/plugin-foo","version":"1.0.0"}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "yarn.lock"), []byte("# yarn lockfile v1\n"), 0o644))

	stale := filepath.Join(dir, "dist", "stale.js")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))

	modfed := &recordingProducer{name: "module-federation"}
	err := Frontend(context.Background(), FrontendOptions{
		PluginDir:                dir,
		GenerateModuleFederation: true,
		Clean:                    true,
	}, Deps{ModuleFederation: modfed})
	require.NoError(t, err)
	require.NoFileExists(t, stale)
}

func TestFrontend_InstallRunsRunnerAgainstTargetDir(t *testing.T) {
	dir := t.TempDir()
	writePluginPackageJSON(t, dir, `{"name":"@x/plugin-foo","version":"1.0.0"}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "yarn.lock"), []byte("# yarn lockfile v1\n"), 0o644))

	runner := &recordingRunner{}
	scalprum := &recordingProducer{name: "scalprum"}
	target := filepath.Join(dir, "dist-dynamic")

	err := Frontend(context.Background(), FrontendOptions{
		PluginDir:        dir,
		TargetDir:        target,
		GenerateScalprum: true,
		Install:          true,
	}, Deps{Scalprum: scalprum, Runner: runner})
	require.NoError(t, err)

	require.Len(t, runner.tasks, 1)
	require.Equal(t, target, runner.tasks[0].WorkingDir)
}

type recordingRunner struct {
	tasks []ports.Task
	err   error
}

func (r *recordingRunner) Run(_ context.Context, task ports.Task) (ports.TaskResult, error) {
	r.tasks = append(r.tasks, task)
	if r.err != nil {
		return ports.TaskResult{}, r.err
	}
	return ports.TaskResult{Task: task, ExitCode: 0}, nil
}
