// Package modulefederation invokes the external module-federation asset
// build, the other frontend bundling backend this repository treats as
// an opaque collaborator (spec §1 Non-goals).
package modulefederation

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"

	"go.dynplug.dev/dp/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.AssetProducer = (*Producer)(nil)

// Producer shells out to a configured build command.
type Producer struct {
	Command []string
}

// NewProducer creates a Producer invoking command (defaulting to
// "yarn build" when unset).
func NewProducer(command []string) *Producer {
	if len(command) == 0 {
		command = []string{"yarn", "build"}
	}
	return &Producer{Command: command}
}

// Name identifies this producer in logs and error messages.
func (p *Producer) Name() string { return "module-federation" }

// Produce invokes the configured build command in the plugin directory.
func (p *Producer) Produce(ctx context.Context, req ports.AssetProducerRequest) error {
	payload, err := json.Marshal(req.Descriptor)
	if err != nil {
		return zerr.Wrap(err, "failed to marshal module-federation request")
	}

	cmd := exec.CommandContext(ctx, p.Command[0], p.Command[1:]...) //nolint:gosec // command is project-configured
	cmd.Dir = req.PluginDir
	cmd.Stdin = bytes.NewReader(payload)

	if output, err := cmd.CombinedOutput(); err != nil {
		return zerr.With(zerr.Wrap(err, "module-federation asset build failed"), "output", string(output))
	}
	return nil
}
