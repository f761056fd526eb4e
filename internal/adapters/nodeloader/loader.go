// Package nodeloader validates a dynamic plugin's entrypoint by actually
// loading it, delegating to an external Node.js process since a CommonJS
// or ESM module cannot be loaded from a Go process directly.
package nodeloader

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.dynplug.dev/dp/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ModuleLoader = (*Loader)(nil)

// Loader shells out to node to require() a plugin's entrypoint and
// report its export shape as JSON.
type Loader struct {
	node         string
	tsRegistered bool
}

// NewLoader creates a Loader invoking the given node binary ("node" by
// default).
func NewLoader(node string) *Loader {
	if node == "" {
		node = "node"
	}
	return &Loader{node: node}
}

// RegisterTSTransformer marks the loader as needing ts-node (or an
// equivalent require hook) injected ahead of the entrypoint require, for
// packages that ship an unbuilt .ts main.
func (l *Loader) RegisterTSTransformer() error {
	l.tsRegistered = true
	return nil
}

type inspectResult struct {
	HasDefaultPluginExport    bool   `json:"hasDefaultPluginExport"`
	HasDynamicPluginInstaller bool   `json:"hasDynamicPluginInstaller"`
	Error                     string `json:"error"`
}

// Load requires dir's main module (from its package.json "main" field)
// and, if present, its "alpha" submodule, reporting each one's shape.
func (l *Loader) Load(dir string) (ports.LoadedModule, *ports.LoadedModule, error) {
	main, err := l.inspect(dir, "")
	if err != nil {
		return ports.LoadedModule{}, nil, err
	}

	alphaDir := filepath.Join(dir, "alpha")
	if _, statErr := os.Stat(alphaDir); statErr != nil {
		return main, nil, nil
	}

	alpha, err := l.inspect(dir, "alpha")
	if err != nil {
		return main, nil, err
	}
	return main, &alpha, nil
}

func (l *Loader) inspect(dir, submodule string) (ports.LoadedModule, error) {
	script := inspectScript(l.tsRegistered)

	target := "."
	if submodule != "" {
		target = "./" + submodule
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, l.node, "-e", script, "--", target) //nolint:gosec // target is a plugin-relative path, not user input
	cmd.Dir = dir

	output, err := cmd.Output()
	if err != nil {
		stderr := ""
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr = strings.TrimSpace(string(exitErr.Stderr))
		}
		return ports.LoadedModule{}, zerr.With(zerr.With(zerr.Wrap(err, "failed to load plugin module"), "dir", dir), "stderr", stderr)
	}

	var result inspectResult
	if err := json.Unmarshal(output, &result); err != nil {
		return ports.LoadedModule{}, zerr.With(zerr.Wrap(err, "failed to parse module inspection output"), "dir", dir)
	}
	if result.Error != "" {
		return ports.LoadedModule{}, zerr.With(zerr.New(result.Error), "dir", dir)
	}

	return ports.LoadedModule{
		HasDefaultPluginExport:    result.HasDefaultPluginExport,
		HasDynamicPluginInstaller: result.HasDynamicPluginInstaller,
	}, nil
}

// inspectScript builds the inline node script that requires the target
// module and reports its export shape. When tsRegistered is set it
// requires ts-node/register first so an unbuilt .ts main can load.
func inspectScript(tsRegistered bool) string {
	var prelude string
	if tsRegistered {
		prelude = `try { require('ts-node/register'); } catch (e) {}` + "\n"
	}
	return prelude + `
const target = process.argv[1];
try {
  const mod = require(target);
  const def = mod && mod.default;
  const isPlugin = !!(def && typeof def === 'object' && typeof def.$$type === 'string');
  console.log(JSON.stringify({
    hasDefaultPluginExport: isPlugin,
    hasDynamicPluginInstaller: typeof mod.dynamicPluginInstaller !== 'undefined',
  }));
} catch (e) {
  console.log(JSON.stringify({ error: String(e && e.message || e) }));
}
`
}
