package commands

import (
	"os"

	"github.com/spf13/cobra"
	"go.dynplug.dev/dp/internal/app"
)

func newExportCommand(c *CLI) *cobra.Command {
	opts := app.ExportOptions{}
	var frontend, dev bool
	var noInstall, noBuild bool
	var noScalprum, noModuleFederation bool

	cmd := &cobra.Command{
		Use:   "export <plugin-dir>",
		Short: "Export a plugin package into a dynamic-plugin artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.PluginDir = args[0]
			opts.Install = !noInstall
			opts.Build = !noBuild
			opts.GenerateScalprum = !noScalprum
			opts.GenerateModuleFederation = !noModuleFederation
			opts.Backend = !frontend
			if dev {
				opts.TrackManifest = true
			}

			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			if err := c.app.LoadDefaults(cwd, &opts); err != nil {
				return err
			}

			unused, err := c.app.Export(cmd.Context(), opts)
			if err != nil {
				return err
			}
			for _, name := range unused {
				cmd.PrintErrf("warning: --embed-package %s was never embedded\n", name)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.TargetDir, "target-dir", "", "output directory (default: <plugin-dir>/dist-dynamic)")
	flags.StringVar(&opts.MonorepoRoot, "monorepo-root", "", "root of the monorepo workspace, for workspace-protocol resolution")
	flags.StringVar(&opts.DynamicPluginsRoot, "dynamic-plugins-root", "", "destination for a dev-install copy of the exported package")
	flags.StringSliceVar(&opts.EmbedPackages, "embed-package", nil, "package name to embed (repeatable)")
	flags.StringSliceVar(&opts.SharedPackages, "shared-package", nil, "shared-package include/exclude rule, '!' prefix excludes (repeatable)")
	flags.StringSliceVar(&opts.AllowNativePackages, "allow-native-package", nil, "package name allowed to contain native modules (repeatable)")
	flags.StringSliceVar(&opts.SuppressNative, "suppress-native-package", nil, "package name to stub out instead of rejecting as native (repeatable)")
	flags.StringSliceVar(&opts.IgnoreVersionCheck, "ignore-version-check", nil, "package name exempted from peer-dependency conflict errors (repeatable)")
	flags.BoolVar(&noInstall, "no-install", false, "skip the package-manager install step")
	flags.BoolVar(&noBuild, "no-build", false, "skip invoking each embedded package's build script")
	flags.BoolVar(&opts.Clean, "clean", false, "remove the target directory before exporting")
	flags.BoolVar(&opts.TrackManifest, "track-dynamic-manifest-and-lock-file", false, "do not gitignore the derived package.json and lock file")
	flags.BoolVar(&frontend, "frontend", false, "export as a frontend plugin instead of a backend plugin")
	flags.StringVar(&opts.ScalprumConfigPath, "scalprum-config", "", "path to a Scalprum config file (frontend)")
	flags.BoolVar(&noScalprum, "no-generate-scalprum-assets", false, "skip Scalprum asset generation (frontend)")
	flags.BoolVar(&noModuleFederation, "no-generate-module-federation-assets", false, "skip module-federation asset generation (frontend)")
	flags.BoolVar(&dev, "dev", false, "alias for --track-dynamic-manifest-and-lock-file")

	return cmd
}
