package commands

import (
	"os"

	"github.com/spf13/cobra"
	"go.dynplug.dev/dp/internal/app"
	"go.trai.ch/zerr"
)

func newPackageCommand(c *CLI) *cobra.Command {
	var tag string

	cmd := &cobra.Command{
		Use:   "package <exported-dir>...",
		Short: "Wrap one or more exported dynamic-plugin directories into a container image",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tool := os.Getenv("CONTAINER_TOOL")
			if tool == "" {
				tool = "docker"
			}
			if tag == "" {
				return zerr.New("--tag is required")
			}
			return c.app.Package(cmd.Context(), c.runner, app.PackageOptions{
				ExportedDirs:  args,
				Tag:           tag,
				ContainerTool: tool,
			})
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "tag to apply to the built container image")
	return cmd
}
