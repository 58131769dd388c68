package config

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML config file and merges its non-zero values onto cfg.
//
// Zero values in the file (false, 0, "") leave cfg unchanged; use flags or
// the environment to turn a default off.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fileConfig Config
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if err := mergo.Merge(cfg, fileConfig, mergo.WithOverride); err != nil {
		return fmt.Errorf("merge config file: %w", err)
	}
	return nil
}
