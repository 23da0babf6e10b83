package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sevigo/bug-warden/internal/core"
)

// TreeConfigFile is looked up at the root of the analysed source tree.
const TreeConfigFile = ".bug-warden.yml"

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParsing  = errors.New("config parsing failed")
)

// LoadTreeConfig loads the .bug-warden.yml file from a source root. A missing
// file yields the defaults together with ErrConfigNotFound.
func LoadTreeConfig(root string) (*core.TreeConfig, error) {
	configPath := filepath.Join(root, TreeConfigFile)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return core.DefaultTreeConfig(), ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", TreeConfigFile, err)
	}

	tc := core.DefaultTreeConfig()
	if err := yaml.Unmarshal(data, tc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParsing, err)
	}
	tc.ExcludeExts = normalizeExts(tc.ExcludeExts)
	tc.IncludeExts = normalizeExts(tc.IncludeExts)
	return tc, nil
}

// ApplyTree returns a copy of the chunker config with the tree overrides
// applied.
func (c ChunkerConfig) ApplyTree(tc *core.TreeConfig) ChunkerConfig {
	if tc == nil {
		return c
	}
	out := c
	out.ExcludeDirs = append(append([]string{}, c.ExcludeDirs...), tc.ExcludeDirs...)
	if len(tc.IncludeExts) > 0 {
		out.Extensions = append([]string{}, tc.IncludeExts...)
	}
	if len(tc.ExcludeExts) > 0 {
		excluded := make(map[string]bool, len(tc.ExcludeExts))
		for _, ext := range tc.ExcludeExts {
			excluded[strings.ToLower(ext)] = true
		}
		kept := make([]string, 0, len(out.Extensions))
		for _, ext := range out.Extensions {
			if !excluded[strings.ToLower(ext)] {
				kept = append(kept, ext)
			}
		}
		out.Extensions = kept
	}
	return out
}

func normalizeExts(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}
