package core

// TreeConfig represents the optional .bug-warden.yml file at the root of the
// analysed source tree.
type TreeConfig struct {
	// Extra instructions appended to every matching prompt.
	CustomInstructions []string `yaml:"custom_instructions"`

	// Directory names skipped entirely, e.g. ["ThirdParty", "Debug"].
	ExcludeDirs []string `yaml:"exclude_dirs"`

	// The leading dot is optional. Example: [".inl", "bak"]
	ExcludeExts []string `yaml:"exclude_exts"`

	// Replaces the configured inclusion filter when non-empty.
	IncludeExts []string `yaml:"include_exts"`
}

// DefaultTreeConfig returns a config with default values.
func DefaultTreeConfig() *TreeConfig {
	return &TreeConfig{
		CustomInstructions: []string{},
		ExcludeDirs:        []string{},
		ExcludeExts:        []string{},
		IncludeExts:        []string{},
	}
}
