// Package commands builds the dp CLI's cobra command tree (spec §6).
package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.dynplug.dev/dp/internal/app"
	"go.dynplug.dev/dp/internal/core/ports"
)

// CLI bundles the application and the task runner the package command
// needs directly (export's own runner lives inside app.App's deps).
type CLI struct {
	app    *app.App
	runner ports.TaskRunner
	root   *cobra.Command
}

// New builds the dp command tree.
func New(application *app.App, runner ports.TaskRunner) *CLI {
	c := &CLI{app: application, runner: runner}

	root := &cobra.Command{
		Use:           "dp",
		Short:         "dp converts Backstage plugin packages into dynamic-plugin artifacts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newExportCommand(c))
	root.AddCommand(newPackageCommand(c))
	root.AddCommand(newVersionCommand())
	c.root = root
	return c
}

// Execute runs the command tree against os.Args.
func (c *CLI) Execute(ctx context.Context) error {
	return c.root.ExecuteContext(ctx)
}
