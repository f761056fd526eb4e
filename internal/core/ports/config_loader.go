package ports

// ProjectConfig holds the dp.yaml defaults (SPEC_FULL §2.3) that seed the
// CLI flags described in spec §6 when the user does not override them.
type ProjectConfig struct {
	SharedPackages         []string
	AllowNativePackages    []string
	SuppressNativePackages []string
	Install                bool
	Build                  bool
}

// ConfigLoader reads a project's dp.yaml, if any.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the configuration from the given working directory.
	// A missing file is not an error; it yields a ProjectConfig with
	// Install and Build enabled and no package lists.
	Load(cwd string) (ProjectConfig, error)
}
