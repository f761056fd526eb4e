package config

// dpfile is the structure of the dp.yaml project configuration file.
type dpfile struct {
	Version string   `yaml:"version"`
	Shared  []string `yaml:"sharedPackages"`
	Native  struct {
		Allow    []string `yaml:"allow"`
		Suppress []string `yaml:"suppress"`
	} `yaml:"native"`
	Install *bool `yaml:"install"`
	Build   *bool `yaml:"build"`
}
