package container

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.dynplug.dev/dp/internal/core/ports"
	"go.trai.ch/zerr"
)

// BuildOptions configures the image build step the `package` command
// runs after assembling the index. Templating the Containerfile/Dockerfile
// is deliberately thin: the image build itself is an external
// collaborator (spec §1 Non-goals), the same way the frontend asset
// producers are.
type BuildOptions struct {
	// ContainerTool is the binary to invoke ("podman", "docker",
	// "buildah", ...), normally read from the CONTAINER_TOOL environment
	// variable by the caller.
	ContainerTool string

	// ContextDir is the build context directory; Build writes index.json
	// and a Containerfile here before invoking ContainerTool.
	ContextDir string

	// Tag is the image tag to build.
	Tag string

	// DynamicPluginsRoot is the directory, relative to ContextDir,
	// holding the exported dist-dynamic directories to copy into the
	// image under "/".
	DynamicPluginsRoot string
}

const containerfileTemplate = "FROM scratch\nCOPY index.json /index.json\nCOPY %s/ /\n"

// Build writes the build context (index.json plus a Containerfile
// copying the dynamic-plugins root to "/") and runs the container tool to
// produce an image tagged with opts.Tag, carrying the given entries'
// annotation.
func Build(ctx context.Context, runner ports.TaskRunner, opts BuildOptions, entries []Entry) error {
	indexJSON, annotationValue, err := BuildIndex(entries)
	if err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(opts.ContextDir, "index.json"), indexJSON, 0o644); err != nil { //nolint:gosec // build context is project-controlled
		return zerr.Wrap(err, "failed to write index.json")
	}

	containerfile := fmt.Sprintf(containerfileTemplate, opts.DynamicPluginsRoot)
	containerfilePath := filepath.Join(opts.ContextDir, "Containerfile")
	if err := os.WriteFile(containerfilePath, []byte(containerfile), 0o644); err != nil { //nolint:gosec // build context is project-controlled
		return zerr.Wrap(err, "failed to write Containerfile")
	}

	task := ports.Task{
		Name: "container-build",
		Command: []string{
			opts.ContainerTool, "build",
			"--annotation", AnnotationKey + "=" + annotationValue,
			"-f", containerfilePath,
			"-t", opts.Tag,
			opts.ContextDir,
		},
		WorkingDir: opts.ContextDir,
	}

	result, err := runner.Run(ctx, task)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "container build failed"), "tool", opts.ContainerTool)
	}
	if result.ExitCode != 0 {
		return zerr.With(zerr.New("container build exited non-zero"), "stderr", result.Stderr)
	}
	return nil
}
