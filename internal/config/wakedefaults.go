package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pocketsnooze/snoozerd/internal/domain"
)

// LoadWakeDefaults returns the wake-time settings defaults, overridden by the
// optional YAML settings file when one is configured. These are only the
// defaults handed to readers; the user's own settings live in the store.
func LoadWakeDefaults(path string) (domain.Settings, error) {
	defaults := domain.DefaultSettings()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return defaults, fmt.Errorf("failed to read settings file: %w", err)
	}
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return defaults, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	if !defaults.Validate() {
		return domain.DefaultSettings(), fmt.Errorf("settings file %s contains out-of-range values", path)
	}
	return defaults, nil
}
