// Package scalprum invokes the external Scalprum asset build, the
// frontend bundling backend this repository treats as an opaque
// collaborator (spec §1 Non-goals).
package scalprum

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"

	"go.dynplug.dev/dp/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.AssetProducer = (*Producer)(nil)

// Producer shells out to a configured build command, passing the
// producer request as JSON on stdin. The command itself (a Scalprum CLI,
// a yarn script, ...) owns every bundling decision.
type Producer struct {
	Command []string
}

// NewProducer creates a Producer invoking command (defaulting to
// "yarn build:scalprum" when unset).
func NewProducer(command []string) *Producer {
	if len(command) == 0 {
		command = []string{"yarn", "build:scalprum"}
	}
	return &Producer{Command: command}
}

// Name identifies this producer in logs and error messages.
func (p *Producer) Name() string { return "scalprum" }

// Produce invokes the configured build command with the request
// encoded as JSON on stdin.
func (p *Producer) Produce(ctx context.Context, req ports.AssetProducerRequest) error {
	payload, err := json.Marshal(req.Descriptor)
	if err != nil {
		return zerr.Wrap(err, "failed to marshal scalprum request")
	}

	cmd := exec.CommandContext(ctx, p.Command[0], p.Command[1:]...) //nolint:gosec // command is project-configured
	cmd.Dir = req.PluginDir
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Env = append(cmd.Env, "SCALPRUM_OUTPUT_DIR="+req.OutputDir)

	if output, err := cmd.CombinedOutput(); err != nil {
		return zerr.With(zerr.Wrap(err, "scalprum asset build failed"), "output", string(output))
	}
	return nil
}
