// Package ports defines the core interfaces for the export pipeline.
package ports

import "context"

// Task is one external-process invocation the Task Runner (spec §4.6)
// executes. Optional tasks do not abort the pipeline on failure.
type Task struct {
	Name       string
	Command    []string
	WorkingDir string
	Env        []string
	Optional   bool
}

// TaskResult captures a completed task's outcome for failure reporting.
type TaskResult struct {
	Task     Task
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

// TaskRunner executes a single external process and reports its outcome.
// The pipeline is strictly sequential (spec §5): callers invoke Run once
// per task, in order, and stop on the first non-optional failure.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type TaskRunner interface {
	Run(ctx context.Context, task Task) (TaskResult, error)
}
