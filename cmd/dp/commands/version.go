package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.dynplug.dev/dp/internal/build"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the dp version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), build.Version)
			return nil
		},
	}
}
