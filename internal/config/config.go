// Package config loads the optional YAML configuration file the
// glitch-db CLI accepts, mirroring the pack's yaml.v3-based
// configuration loaders (progressdb-ProgressDB, maruel-mddb/backend).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PartitionSpec describes one partition declaration in the config file.
// The CLI decodes these entries but does not open or use them; the
// partition it operates on comes from its flags.
type PartitionSpec struct {
	Name      string   `yaml:"name"`
	Flavor    string   `yaml:"flavor"` // plain, versioned, bitemporal
	IndexPath []string `yaml:"indexPaths,omitempty"`
	CacheSize *int     `yaml:"cacheSize,omitempty"`
}

// Config is the glitch-db CLI's optional YAML configuration file shape.
type Config struct {
	BaseDir      string          `yaml:"baseDir"`
	DefaultCache int             `yaml:"defaultCacheSize"`
	LogLevel     string          `yaml:"logLevel"`
	Partitions   []PartitionSpec `yaml:"partitions,omitempty"`
}

// Default returns the configuration the CLI uses when no file is given.
func Default() Config {
	return Config{
		BaseDir:      "./data",
		DefaultCache: 1000,
		LogLevel:     "info",
	}
}

// Load reads and decodes the YAML file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}
