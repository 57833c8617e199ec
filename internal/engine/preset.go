package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadPreset reads a YAML tuning preset and overlays it on the defaults, so
// a preset only needs to name the fields it changes. The merged config is
// validated before being returned.
func LoadPreset(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read preset: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse preset %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("preset %s: %w", path, err)
	}
	return cfg, nil
}
