// Package shell provides the task runner adapter.
package shell

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"go.dynplug.dev/dp/internal/core/ports"
)

var _ ports.TaskRunner = (*Runner)(nil)

// Runner implements ports.TaskRunner using os/exec, inheriting the host
// process's environment and PATH.
type Runner struct {
	logger ports.Logger
}

// NewRunner creates a new Runner.
func NewRunner(logger ports.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run executes task.Command, capturing its output and exit code rather
// than failing on a non-zero exit: callers decide what a failure means
// (an Optional task, for instance, is only logged).
func (r *Runner) Run(ctx context.Context, task ports.Task) (ports.TaskResult, error) {
	result := ports.TaskResult{Task: task}

	if len(task.Command) == 0 {
		return result, nil
	}

	cmd := exec.CommandContext(ctx, task.Command[0], task.Command[1:]...) //nolint:gosec // command is caller-controlled
	cmd.Dir = task.WorkingDir
	cmd.Env = resolveEnvironment(os.Environ(), task.Env)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if r.logger != nil {
		r.logger.Info(strings.Join(task.Command, " "))
	}

	runErr := cmd.Run()

	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	result.ExitCode = cmd.ProcessState.ExitCode()
	result.Err = runErr

	return result, nil
}

// resolveEnvironment layers task-specific overrides on top of the host
// process environment.
func resolveEnvironment(base []string, overrides []string) []string {
	envMap := make(map[string]string, len(base)+len(overrides))
	for _, entry := range base {
		if k, v, ok := strings.Cut(entry, "="); ok {
			envMap[k] = v
		}
	}
	for _, entry := range overrides {
		if k, v, ok := strings.Cut(entry, "="); ok {
			envMap[k] = v
		}
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	return result
}
